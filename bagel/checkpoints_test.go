package bagel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/graph"
)

func TestCheckpointStore(t *testing.T) {
	store, err := OpenCheckpoints(t.TempDir(), 3)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.Latest(SHORTEST_PATH)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), latest)

	require.NoError(t, store.Store(SHORTEST_PATH, 2, []byte("two")))
	require.NoError(t, store.Store(SHORTEST_PATH, 4, []byte("four")))
	require.NoError(t, store.Store(ALL_PAIRS_SHORTEST_PATH, 9, []byte("apsp")))

	latest, err = store.Latest(SHORTEST_PATH)
	require.NoError(t, err)
	assert.Equal(t, int64(4), latest)

	// storing an earlier epoch drops everything after it
	require.NoError(t, store.Store(SHORTEST_PATH, 3, []byte("three")))
	latest, err = store.Latest(SHORTEST_PATH)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest)
	_, err = store.Load(SHORTEST_PATH, 4)
	assert.Error(t, err)

	state, err := store.Load(SHORTEST_PATH, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), state)

	require.NoError(t, store.Reset(SHORTEST_PATH))
	latest, err = store.Latest(SHORTEST_PATH)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), latest)
	latest, err = store.Latest(ALL_PAIRS_SHORTEST_PATH)
	require.NoError(t, err)
	assert.Equal(t, int64(9), latest)
}

// checkpointedRun runs algorithm on every partition with a checkpoint store
// in dir. run returns a printable result per owned vertex.
func checkpointedRun(
	t *testing.T, g *graph.Graph[string], dir string, partitions int, resume bool,
	run func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error),
) map[string]float64 {
	t.Helper()
	var mu sync.Mutex
	result := make(map[string]float64)
	partitionRun(t, g, partitions, graph.HASH_PARTITION, func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) error {
		checkpoints, err := OpenCheckpoints(dir, ec.PartitionId)
		if err != nil {
			return err
		}
		defer checkpoints.Close()
		ec.Checkpoints = checkpoints
		ec.StepsBetweenCheckpoints = 1
		ec.Resume = resume

		local, err := run(ctx, ec, store)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for k, v := range local {
			result[k] = v
		}
		return nil
	})
	return result
}

func TestSSSPResumesFromCheckpoint(t *testing.T) {
	g := graph.NewGraph([]graph.Edge[string]{
		{Src: "a", Dst: "b", Weight: 1},
		{Src: "b", Dst: "c", Weight: 1},
		{Src: "c", Dst: "d", Weight: 1},
		{Src: "a", Dst: "d", Weight: 10},
	}, true)
	sssp := func(iterations int) func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error) {
		return func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error) {
			distances, err := RunSSSP(ctx, ec, store, "a", iterations)
			if err != nil {
				return nil, err
			}
			out := make(map[string]float64)
			distances.Each(func(v string, d float64) { out[v] = d })
			return out, nil
		}
	}

	dir := t.TempDir()
	partial := checkpointedRun(t, g, dir, 2, false, sssp(1))
	assert.Equal(t, 10.0, partial["d"])

	resumed := checkpointedRun(t, g, dir, 2, true, sssp(20))
	assert.Equal(t, map[string]float64{"a": 0, "b": 1, "c": 2, "d": 3}, resumed)
}

func TestAPSPResumesFromCheckpoint(t *testing.T) {
	g := graph.NewGraph([]graph.Edge[string]{
		{Src: "a", Dst: "b", Weight: 1},
		{Src: "b", Dst: "c", Weight: 1},
		{Src: "c", Dst: "d", Weight: 1},
	}, true)
	apsp := func(iterations int) func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error) {
		return func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error) {
			pairs, err := RunAPSP(ctx, ec, store, iterations)
			if err != nil {
				return nil, err
			}
			out := make(map[string]float64)
			pairs.Each(func(dst, src string, d float64) { out[src+dst] = d })
			return out, nil
		}
	}

	dir := t.TempDir()
	partial := checkpointedRun(t, g, dir, 2, false, apsp(1))
	_, ok := partial["ad"]
	assert.False(t, ok)

	resumed := checkpointedRun(t, g, dir, 2, true, apsp(20))
	assert.Equal(t, checkpointedRun(t, g, t.TempDir(), 2, false, apsp(20)), resumed)
	assert.Equal(t, 3.0, resumed["ad"])
}

func TestResumeWithoutCheckpointsStartsOver(t *testing.T) {
	distances := checkpointedRun(t, triangle(), t.TempDir(), 3, true,
		func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) (map[string]float64, error) {
			d, err := RunSSSP(ctx, ec, store, "A", 20)
			if err != nil {
				return nil, err
			}
			out := make(map[string]float64)
			d.Each(func(v string, dist float64) { out[v] = dist })
			return out, nil
		})
	assert.Equal(t, 3.0, distances["C"])
}
