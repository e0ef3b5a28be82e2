package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestReadConfigByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "c.json")
	require.NoError(t, WriteJSONConfig(jsonPath, sample{Name: "json", Count: 2}))
	yamlPath := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: yaml\ncount: 3\n"), 0644))

	var s sample
	require.NoError(t, ReadConfig(jsonPath, &s))
	assert.Equal(t, sample{Name: "json", Count: 2}, s)
	require.NoError(t, ReadConfig(yamlPath, &s))
	assert.Equal(t, sample{Name: "yaml", Count: 3}, s)

	assert.Error(t, ReadConfig(filepath.Join(dir, "missing.json"), &s))
}

func TestGetEnv(t *testing.T) {
	t.Setenv(ENV_PREFIX+"COUNT", "12")
	t.Setenv(ENV_PREFIX+"FLAG", "true")
	t.Setenv(ENV_PREFIX+"WAIT", "150ms")
	t.Setenv(ENV_PREFIX+"BROKEN", "x")

	assert.Equal(t, "12", GetEnv("COUNT", "0"))
	assert.Equal(t, "fallback", GetEnv("UNSET", "fallback"))
	assert.Equal(t, 12, GetEnvInt("COUNT", 0))
	assert.Equal(t, 5, GetEnvInt("BROKEN", 5))
	assert.True(t, GetEnvBool("FLAG", false))
	assert.Equal(t, 150*time.Millisecond, GetEnvDuration("WAIT", time.Second))
}

func TestLoadEnvIgnoresMissingFile(t *testing.T) {
	LoadEnv(filepath.Join(t.TempDir(), "absent.env"))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(ENV_PREFIX+"FROM_DOTENV=yes\n"), 0644))
	t.Setenv(ENV_PREFIX+"FROM_DOTENV", "")
	os.Unsetenv(ENV_PREFIX + "FROM_DOTENV")
	LoadEnv(path)
	assert.Equal(t, "yes", GetEnv("FROM_DOTENV", ""))
}

func TestAssignPortsAndSynchronize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AssignPorts(dir, 2, 43460))
	for _, name := range []string{"worker0.json", "worker1.json"} {
		require.NoError(t, WriteJSONConfig(GetConfigPath(dir, name), map[string]interface{}{"Algorithm": "sssp"}))
	}
	require.NoError(t, WriteJSONConfig(GetConfigPath(dir, "client.json"), map[string]interface{}{"ClientId": "c"}))

	require.NoError(t, SynchronizeConfigs(dir))

	var worker struct {
		Algorithm      string
		PartitionId    int
		Peers          []string
		HeartbeatAddrs []string
		LostMsgsThresh uint8
	}
	require.NoError(t, ReadJSONConfig(GetConfigPath(dir, "worker1.json"), &worker))
	assert.Equal(t, "sssp", worker.Algorithm)
	assert.Equal(t, 1, worker.PartitionId)
	assert.Equal(t, []string{"127.0.0.1:43460", "127.0.0.1:43462"}, worker.Peers)
	assert.Equal(t, []string{"127.0.0.1:43461", "127.0.0.1:43463"}, worker.HeartbeatAddrs)
	assert.Equal(t, uint8(3), worker.LostMsgsThresh)

	assert.True(t, IsClientConfig("client.json"))
	assert.False(t, IsWorkerConfig("client.json"))
	assert.False(t, IsCoordConfig(CLUSTER_CONFIG))

	var client struct{ ClientId, CoordAddr string }
	require.NoError(t, ReadJSONConfig(GetConfigPath(dir, "client.json"), &client))
	assert.Equal(t, "", client.CoordAddr)
}

func TestSynchronizeSharesCoordAddr(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteJSONConfig(GetConfigPath(dir, CLUSTER_CONFIG), ClusterConfig{
		Peers:          []string{"127.0.0.1:5000"},
		HeartbeatAddrs: []string{"127.0.0.1:5001"},
		CoordAddr:      "127.0.0.1:5400",
	}))
	require.NoError(t, WriteJSONConfig(GetConfigPath(dir, "worker0.json"), map[string]interface{}{"StatusAddr": "old"}))
	require.NoError(t, WriteJSONConfig(GetConfigPath(dir, "client.json"), map[string]interface{}{"ClientId": "c"}))
	require.NoError(t, WriteJSONConfig(GetConfigPath(dir, "coord.json"), map[string]interface{}{}))

	require.NoError(t, SynchronizeConfigs(dir))

	var worker struct{ StatusAddr string }
	require.NoError(t, ReadJSONConfig(GetConfigPath(dir, "worker0.json"), &worker))
	assert.Equal(t, "127.0.0.1:5400", worker.StatusAddr)

	var client struct{ ClientId, CoordAddr string }
	require.NoError(t, ReadJSONConfig(GetConfigPath(dir, "client.json"), &client))
	assert.Equal(t, "c", client.ClientId)
	assert.Equal(t, "127.0.0.1:5400", client.CoordAddr)

	var coord struct{ CoordAddr string }
	require.NoError(t, ReadJSONConfig(GetConfigPath(dir, "coord.json"), &coord))
	assert.Equal(t, "127.0.0.1:5400", coord.CoordAddr)
}

func TestSynchronizeRejectsExtraWorkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AssignPorts(dir, 1, 5000))
	for _, name := range []string{"worker0.json", "worker1.json"} {
		require.NoError(t, WriteJSONConfig(GetConfigPath(dir, name), map[string]interface{}{}))
	}
	assert.Error(t, SynchronizeConfigs(dir))
}

func TestHashing(t *testing.T) {
	assert.Equal(t, HashId(7), HashId(7))
	assert.NotEqual(t, HashId(7), HashId(8))
	assert.Equal(t, HashString("v"), HashString("v"))
}

func TestIPEmptyPortOnly(t *testing.T) {
	assert.Equal(t, "127.0.0.1:0", IPEmptyPortOnly("127.0.0.1:5000"))
	assert.Equal(t, ":0", IPEmptyPortOnly("garbage"))
}
