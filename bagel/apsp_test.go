package bagel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"project/graph"
)

type pair struct {
	Dst, Src string
}

func runAPSP(t *testing.T, g *graph.Graph[string], partitions int, iterations int, threads int) map[pair]float64 {
	t.Helper()
	var mu sync.Mutex
	result := make(map[pair]float64)
	partitionRun(t, g, partitions, graph.SEQUENCE_PARTITION, func(ctx context.Context, ec *ExecContext, store *graph.Store[string]) error {
		ec.Threads = threads
		ec.Stripes = 16
		pairs, err := RunAPSP(ctx, ec, store, iterations)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		pairs.Each(func(dst, src string, d float64) {
			result[pair{Dst: dst, Src: src}] = d
		})
		return nil
	})
	return result
}

func TestAPSPTwoHopBeatsDirectEdge(t *testing.T) {
	g := graph.NewGraph([]graph.Edge[string]{
		{Src: "A", Dst: "B", Weight: 1},
		{Src: "B", Dst: "C", Weight: 1},
		{Src: "A", Dst: "C", Weight: 5},
	}, true)

	for _, partitions := range []int{1, 2, 3} {
		pairs := runAPSP(t, g, partitions, 20, 4)
		assert.Equal(t, map[pair]float64{
			{Dst: "B", Src: "A"}: 1,
			{Dst: "C", Src: "B"}: 1,
			{Dst: "C", Src: "A"}: 2,
		}, pairs, "partitions=%d", partitions)
	}
}

func TestAPSPUndirectedEdgeHasNoSelfPairs(t *testing.T) {
	g := graph.NewGraph([]graph.Edge[string]{{Src: "A", Dst: "B", Weight: 3}}, false)
	pairs := runAPSP(t, g, 2, 20, 1)
	assert.Equal(t, map[pair]float64{
		{Dst: "B", Src: "A"}: 3,
		{Dst: "A", Src: "B"}: 3,
	}, pairs)
}

func TestAPSPBoundedEpochsLimitHops(t *testing.T) {
	// a path of four hops needs four epochs to connect its ends
	g := graph.NewGraph([]graph.Edge[string]{
		{Src: "a", Dst: "b", Weight: 1},
		{Src: "b", Dst: "c", Weight: 1},
		{Src: "c", Dst: "d", Weight: 1},
		{Src: "d", Dst: "e", Weight: 1},
	}, true)

	pairs := runAPSP(t, g, 2, 2, 2)
	assert.Equal(t, 2.0, pairs[pair{Dst: "c", Src: "a"}])
	_, ok := pairs[pair{Dst: "e", Src: "a"}]
	assert.False(t, ok)

	pairs = runAPSP(t, g, 2, 4, 2)
	assert.Equal(t, 4.0, pairs[pair{Dst: "e", Src: "a"}])
	assert.Len(t, pairs, 10)
}

func TestAPSPIsDeterministicAcrossThreadCounts(t *testing.T) {
	var edges []graph.Edge[string]
	names := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	for i := range names {
		for j := range names {
			if i != j && (i*3+j)%4 == 0 {
				edges = append(edges, graph.Edge[string]{Src: names[i], Dst: names[j], Weight: float64((i+j)%5 + 1)})
			}
		}
	}
	g := graph.NewGraph(edges, true)

	reference := runAPSP(t, g, 1, 50, 1)
	assert.Equal(t, reference, runAPSP(t, g, 3, 50, 8))
	assert.Equal(t, reference, runAPSP(t, g, 4, 50, 0))
}
