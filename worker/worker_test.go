package worker

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"project/bagel"
	"project/database"
	"project/database/mongodb"
)

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// readResults joins every partition file in dir, sorted.
func readResults(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var lines []string
	for _, entry := range entries {
		file, err := os.Open(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		file.Close()
		require.NoError(t, err)
		for _, r := range records {
			lines = append(lines, strings.Join(r, ","))
		}
	}
	sort.Strings(lines)
	return lines
}

func testConfig(t *testing.T, algorithm string, input string) Config {
	cfg := DefaultConfig()
	cfg.Algorithm = algorithm
	cfg.Input = input
	cfg.Output = filepath.Join(t.TempDir(), "results")
	cfg.IsDirected = true
	return cfg
}

func TestRunSSSPLocal(t *testing.T) {
	input := writeGraph(t, "1,2,1\n2,3,2\n1,3,4\n4\n")
	for _, local := range []int{1, 3} {
		cfg := testConfig(t, bagel.SHORTEST_PATH, input)
		cfg.Root = "1"
		cfg.Local = local
		require.NoError(t, Run(context.Background(), cfg))

		assert.Equal(t, []string{
			"1,0",
			"2,1",
			"3,3",
			"4,1.7976931348623157e+308",
		}, readResults(t, cfg.Output), "local=%d", local)
	}
}

func TestRunAPSPWithEncodedStringIds(t *testing.T) {
	input := writeGraph(t, "alpha,beta,1\nbeta,gamma,1\nalpha,gamma,5\n")
	cfg := testConfig(t, bagel.ALL_PAIRS_SHORTEST_PATH, input)
	cfg.VType = "string"
	cfg.NeedEncode = true
	cfg.Partitioner = "hash"
	cfg.Local = 2
	cfg.Threads = 4
	require.NoError(t, Run(context.Background(), cfg))

	assert.Equal(t, []string{
		"alpha,beta,1",
		"alpha,gamma,2",
		"beta,gamma,1",
	}, readResults(t, cfg.Output))
}

func TestRunSSSPIntoSQLite(t *testing.T) {
	input := writeGraph(t, "1,2,3\n")
	cfg := testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "2"
	cfg.IsDirected = false
	cfg.Output = "sqlite:" + filepath.Join(t.TempDir(), "out.db")
	cfg.OutputTable = "distances"
	require.NoError(t, Run(context.Background(), cfg))
}

func TestRunWithCheckpointsAndCoord(t *testing.T) {
	input := writeGraph(t, "1,2,1\n2,3,1\n3,4,1\n")
	cfg := testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "1"
	cfg.Local = 2
	cfg.StatusAddr = "127.0.0.1:0"
	cfg.CheckpointDir = filepath.Join(t.TempDir(), "checkpoints")
	cfg.StepsBetweenCheckpoints = 2
	require.NoError(t, Run(context.Background(), cfg))

	for pid := 0; pid < 2; pid++ {
		store, err := bagel.OpenCheckpoints(cfg.CheckpointDir, pid)
		require.NoError(t, err)
		latest, err := store.Latest(bagel.SHORTEST_PATH)
		store.Close()
		require.NoError(t, err)
		assert.Equal(t, int64(4), latest)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	input := writeGraph(t, "1,2\n")

	cfg := testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "1"
	cfg.VType = "float64"
	assert.ErrorIs(t, Run(context.Background(), cfg), ErrUnknownVType)

	cfg = testConfig(t, "pagerank", input)
	assert.ErrorIs(t, Run(context.Background(), cfg), ErrUnknownAlgorithm)

	cfg = testConfig(t, bagel.ALL_PAIRS_SHORTEST_PATH, input)
	cfg.Output = "sqlite:out.db"
	assert.ErrorIs(t, Run(context.Background(), cfg), database.ErrUnsupportedOutput)

	cfg = testConfig(t, bagel.SHORTEST_PATH, input)
	assert.ErrorIs(t, Run(context.Background(), cfg), ErrInvalidConfig)

	cfg = testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "99"
	assert.ErrorIs(t, Run(context.Background(), cfg), bagel.ErrRootNotFound)

	cfg = testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "1"
	cfg.Peers = []string{"127.0.0.1:1", "127.0.0.1:2"}
	cfg.PartitionId = 2
	assert.ErrorIs(t, Run(context.Background(), cfg), ErrInvalidConfig)
}

func TestReadConfigYAMLWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"algorithm: apsp\ninput: graph.csv\nlocal: 3\nneed_encode: true\n",
	), 0644))
	t.Setenv("BAGEL_ITERATIONS", "7")

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, bagel.ALL_PAIRS_SHORTEST_PATH, cfg.Algorithm)
	assert.Equal(t, 3, cfg.Partitions())
	assert.True(t, cfg.NeedEncode)
	assert.Equal(t, 7, cfg.Iterations)
	assert.Equal(t, "uint32", cfg.VType)
	assert.NoError(t, cfg.Validate())
}

func TestRunReportsToExternalCoord(t *testing.T) {
	coord := bagel.NewCoord()
	require.NoError(t, coord.Start("127.0.0.1:0"))
	defer coord.Close()

	input := writeGraph(t, "1,2,1\n2,3,1\n")
	cfg := testConfig(t, bagel.SHORTEST_PATH, input)
	cfg.Root = "1"
	cfg.Local = 2
	cfg.StatusAddr = coord.Addr()
	cfg.ExternalCoord = true
	require.NoError(t, Run(context.Background(), cfg))

	snapshot := coord.Snapshot()
	require.Len(t, snapshot, 2)
	for _, p := range snapshot {
		assert.True(t, p.Done)
		assert.Equal(t, uint64(3), p.Epoch)
	}
}

// vertexIds answers FindOne for a fixed set of vertex ids.
type vertexIds map[string]bool

func (v vertexIds) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	id := filter.(bson.M)["ID"].(string)
	if !v[id] {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(mongodb.VertexDocument{ID: id}, nil, nil)
}

func TestCheckRootAgainstMongoVertices(t *testing.T) {
	ctx := context.Background()
	vertices := vertexIds{"1": true, "2": true}

	cfg := testConfig(t, bagel.SHORTEST_PATH, "mongodb://localhost/graphs")
	cfg.Root = "2"
	assert.NoError(t, checkRoot(ctx, cfg, vertices))

	cfg.Root = "7"
	assert.ErrorIs(t, checkRoot(ctx, cfg, vertices), bagel.ErrRootNotFound)

	cfg = testConfig(t, bagel.ALL_PAIRS_SHORTEST_PATH, "mongodb://localhost/graphs")
	assert.NoError(t, checkRoot(ctx, cfg, vertices))
}
