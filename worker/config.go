package worker

import (
	"errors"
	"fmt"
	"strings"

	"project/bagel"
	"project/database"
	"project/graph"
	"project/util"
)

var (
	ErrUnknownVType     = errors.New("unknown vertex id type")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrInvalidConfig    = errors.New("invalid worker config")
)

// vertex id types accepted in Config.VType
var VTypes = []string{"uint32", "int32", "uint64", "int64", "string"}

// Config describes one worker process, or a whole in-process cluster when
// Local > 0.
type Config struct {
	Algorithm  string `yaml:"algorithm"`
	Input      string `yaml:"input"`
	InputTable string `yaml:"input_table"`
	Output     string `yaml:"output"`
	// OutputTable names the table or collection of database outputs.
	OutputTable string `yaml:"output_table"`
	Compress    bool   `yaml:"compress"`

	IsDirected  bool   `yaml:"is_directed"`
	Root        string `yaml:"root"`
	Iterations  int    `yaml:"iterations"`
	VType       string `yaml:"vtype"`
	NeedEncode  bool   `yaml:"need_encode"`
	Encoder     string `yaml:"encoder"`
	Partitioner string `yaml:"partitioner"`
	Alpha       int    `yaml:"alpha"`
	PartByIn    bool   `yaml:"part_by_in"`

	Threads int `yaml:"threads"`
	Stripes int `yaml:"stripes"`

	Local          int      `yaml:"local"`
	PartitionId    int      `yaml:"partition_id"`
	Peers          []string `yaml:"peers"`
	HeartbeatAddrs []string `yaml:"heartbeat_addrs"`
	LostMsgsThresh uint8    `yaml:"lost_msgs_thresh"`
	StatusAddr     string   `yaml:"status_addr"`
	// ExternalCoord means StatusAddr is served by cmd/coord, so no worker
	// hosts the coord itself.
	ExternalCoord bool `yaml:"external_coord"`

	CheckpointDir           string `yaml:"checkpoint_dir"`
	StepsBetweenCheckpoints uint64 `yaml:"steps_between_checkpoints"`
	Resume                  bool   `yaml:"resume"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm:      bagel.SHORTEST_PATH,
		Iterations:     20,
		VType:          "uint32",
		Encoder:        graph.SINGLE_ENCODER,
		Partitioner:    graph.SEQUENCE_PARTITION,
		Alpha:          -1,
		Stripes:        bagel.DEFAULT_STRIPES,
		LostMsgsThresh: 3,
	}
}

// ReadConfig loads a JSON or YAML config over the defaults, then applies
// environment overrides.
func ReadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if err := util.ReadConfig(filename, &cfg); err != nil {
		return Config{}, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides cfg with the BAGEL_ prefixed environment variables.
func ApplyEnv(cfg *Config) {
	cfg.Algorithm = util.GetEnv("ALGORITHM", cfg.Algorithm)
	cfg.Input = util.GetEnv("INPUT", cfg.Input)
	cfg.Output = util.GetEnv("OUTPUT", cfg.Output)
	cfg.Root = util.GetEnv("ROOT", cfg.Root)
	cfg.VType = util.GetEnv("VTYPE", cfg.VType)
	cfg.Iterations = util.GetEnvInt("ITERATIONS", cfg.Iterations)
	cfg.Threads = util.GetEnvInt("THREADS", cfg.Threads)
	cfg.Local = util.GetEnvInt("LOCAL", cfg.Local)
	cfg.PartitionId = util.GetEnvInt("PARTITION_ID", cfg.PartitionId)
	cfg.IsDirected = util.GetEnvBool("IS_DIRECTED", cfg.IsDirected)
	cfg.NeedEncode = util.GetEnvBool("NEED_ENCODE", cfg.NeedEncode)
	cfg.Compress = util.GetEnvBool("COMPRESS", cfg.Compress)
	cfg.Resume = util.GetEnvBool("RESUME", cfg.Resume)
	cfg.StatusAddr = util.GetEnv("STATUS_ADDR", cfg.StatusAddr)
	cfg.ExternalCoord = util.GetEnvBool("EXTERNAL_COORD", cfg.ExternalCoord)
	cfg.CheckpointDir = util.GetEnv("CHECKPOINT_DIR", cfg.CheckpointDir)
	if peers := util.GetEnv("PEERS", ""); peers != "" {
		cfg.Peers = strings.Split(peers, ",")
	}
}

// Partitions is the size of the cluster cfg belongs to.
func (cfg Config) Partitions() int {
	if cfg.Local > 0 {
		return cfg.Local
	}
	if len(cfg.Peers) > 0 {
		return len(cfg.Peers)
	}
	return 1
}

// Validate reports the first fatal problem of cfg. It runs before any input
// is read.
func (cfg Config) Validate() error {
	switch cfg.Algorithm {
	case bagel.SHORTEST_PATH, bagel.ALL_PAIRS_SHORTEST_PATH:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, cfg.Algorithm)
	}
	if !isVType(cfg.VType) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrUnknownVType, cfg.VType, VTypes)
	}
	if err := database.CheckOutput(cfg.Algorithm, cfg.Output); err != nil {
		return err
	}
	if cfg.Input == "" {
		return fmt.Errorf("%w: no input", ErrInvalidConfig)
	}
	if cfg.Algorithm == bagel.SHORTEST_PATH && cfg.Root == "" {
		return fmt.Errorf("%w: sssp needs a root", ErrInvalidConfig)
	}
	if cfg.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, cfg.Iterations)
	}
	switch cfg.Encoder {
	case "", graph.SINGLE_ENCODER, graph.DISTRIBUTED_ENCODER:
	default:
		return fmt.Errorf("%w: unknown encoder %q", ErrInvalidConfig, cfg.Encoder)
	}
	if cfg.Local <= 0 && len(cfg.Peers) > 0 {
		if cfg.PartitionId < 0 || cfg.PartitionId >= len(cfg.Peers) {
			return fmt.Errorf("%w: partition id %d with %d peers", ErrInvalidConfig, cfg.PartitionId, len(cfg.Peers))
		}
		if len(cfg.HeartbeatAddrs) > 0 && len(cfg.HeartbeatAddrs) != len(cfg.Peers) {
			return fmt.Errorf("%w: %d heartbeat addresses for %d peers", ErrInvalidConfig, len(cfg.HeartbeatAddrs), len(cfg.Peers))
		}
	}
	return nil
}

func isVType(vtype string) bool {
	for _, t := range VTypes {
		if t == vtype {
			return true
		}
	}
	return false
}
