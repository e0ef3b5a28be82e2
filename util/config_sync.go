package util

import (
	"fmt"
	"os"
	"strings"
)

// ClusterConfig is the single source of truth for the peer directory.
type ClusterConfig struct {
	Peers          []string // gRPC exchange address, indexed by partition id
	HeartbeatAddrs []string // fcheck UDP address, indexed by partition id
	LostMsgsThresh uint8
	CoordAddr      string // optional; copied to workers, clients and the coord
}

const (
	WORKERS        = "worker"
	CLIENT         = "client"
	COORD          = "coord"
	CLUSTER_CONFIG = "cluster.json"
	CONFIG_DIR     = "config"
)

// SynchronizeConfigs copies the peer directory of <dir>/cluster.json into
// every <dir>/worker*.json, assigning partition ids in filename order. A
// cluster CoordAddr becomes the workers' StatusAddr and the CoordAddr of the
// client and coord configs.
// Worker files are edited as raw maps so project/util does not import
// project/worker.
func SynchronizeConfigs(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var cluster ClusterConfig
	err = ReadJSONConfig(GetConfigPath(dir, CLUSTER_CONFIG), &cluster)
	if err != nil {
		return err
	}

	partitionId := 0
	for _, file := range files {
		filename := file.Name()
		if IsClientConfig(filename) || IsCoordConfig(filename) {
			if cluster.CoordAddr == "" {
				continue
			}
			raw := make(map[string]interface{})
			if err := ReadJSONConfig(GetConfigPath(dir, filename), &raw); err != nil {
				return err
			}
			raw["CoordAddr"] = cluster.CoordAddr
			if err := WriteJSONConfig(GetConfigPath(dir, filename), raw); err != nil {
				return err
			}
			continue
		}
		if !IsWorkerConfig(filename) {
			continue
		}

		raw := make(map[string]interface{})
		if err := ReadJSONConfig(GetConfigPath(dir, filename), &raw); err != nil {
			return err
		}
		if partitionId >= len(cluster.Peers) {
			return fmt.Errorf(
				"SynchronizeConfigs: %v has no peer slot (cluster has %d peers)",
				filename, len(cluster.Peers),
			)
		}
		raw["PartitionId"] = partitionId
		raw["Peers"] = cluster.Peers
		raw["HeartbeatAddrs"] = cluster.HeartbeatAddrs
		raw["LostMsgsThresh"] = cluster.LostMsgsThresh
		if cluster.CoordAddr != "" {
			raw["StatusAddr"] = cluster.CoordAddr
		}
		if err := WriteJSONConfig(GetConfigPath(dir, filename), raw); err != nil {
			return err
		}
		partitionId++
	}
	return nil
}

// AssignPorts fills in a loopback peer directory for a cluster of n workers
// starting at basePort; heartbeats use the port right after the exchange port.
func AssignPorts(dir string, n int, basePort int) error {
	cluster := ClusterConfig{LostMsgsThresh: 3}
	for i := 0; i < n; i++ {
		port := basePort + 2*i
		cluster.Peers = append(cluster.Peers, fmt.Sprintf("127.0.0.1:%d", port))
		cluster.HeartbeatAddrs = append(cluster.HeartbeatAddrs, fmt.Sprintf("127.0.0.1:%d", port+1))
	}
	return WriteJSONConfig(GetConfigPath(dir, CLUSTER_CONFIG), cluster)
}

func IsClientConfig(filename string) bool {
	return strings.HasPrefix(filename, CLIENT)
}

func IsCoordConfig(filename string) bool {
	return strings.HasPrefix(filename, COORD)
}

func IsWorkerConfig(filename string) bool {
	return strings.HasPrefix(filename, WORKERS)
}

func GetConfigPath(dir string, filename string) string {
	return fmt.Sprintf("%s/%s", dir, filename)
}
