// Package worker runs a shortest-path job end to end: it loads the graph,
// partitions it, runs the driver on every partition this process hosts and
// writes each partition's result.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"project/bagel"
	"project/database"
	"project/database/mongodb"
	"project/graph"
)

// Run executes cfg. The vertex id type is fixed for the whole run by
// cfg.VType.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.VType {
	case "uint32":
		return run[uint32](ctx, cfg)
	case "int32":
		return run[int32](ctx, cfg)
	case "uint64":
		return run[uint64](ctx, cfg)
	case "int64":
		return run[int64](ctx, cfg)
	case "string":
		return run[string](ctx, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVType, cfg.VType)
	}
}

func run[X graph.ID](ctx context.Context, cfg Config) error {
	start := time.Now()
	src, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	g, err := graph.Load[X](ctx, src, cfg.IsDirected)
	closeSource()
	if err != nil {
		return fmt.Errorf("load %v: %w", cfg.Input, err)
	}
	log.Printf("run: loaded %d vertices, %d edges in %v\n", len(g.Vertices), g.EdgeCount(), time.Since(start))

	var root X
	if cfg.Algorithm == bagel.SHORTEST_PATH {
		if root, err = graph.ParseID[X](cfg.Root); err != nil {
			return fmt.Errorf("%w: %v", bagel.ErrRootNotFound, err)
		}
	}

	if !cfg.NeedEncode {
		return runGraph(ctx, cfg, g, root, graph.FormatID[X])
	}

	encoded, encoder, err := graph.EncodeGraph(g)
	if err != nil {
		return err
	}
	var encodedRoot uint32
	if cfg.Algorithm == bagel.SHORTEST_PATH {
		var ok bool
		if encodedRoot, ok = encoder.Encode(root); !ok {
			return fmt.Errorf("%w: %v", bagel.ErrRootNotFound, cfg.Root)
		}
	}
	log.Printf("run: encoded %d vertex ids with the %s encoder\n", encoder.Len(), encoderName(cfg))
	return runGraph(ctx, cfg, encoded, encodedRoot, func(id uint32) string {
		return graph.FormatID(encoder.Decode(id))
	})
}

func encoderName(cfg Config) string {
	if cfg.Encoder == "" {
		return graph.SINGLE_ENCODER
	}
	return cfg.Encoder
}

func openSource(ctx context.Context, cfg Config) (graph.Source, func(), error) {
	kind, dest := database.Kind(cfg.Input)
	switch kind {
	case database.FILE:
		return graph.NewCSVSource(dest), func() {}, nil
	case database.MYSQL, database.SQLSERVER, database.SQLITE:
		return &database.SQLEdgeSource{Kind: kind, DSN: dest, Table: cfg.InputTable}, func() {}, nil
	case database.MONGODB:
		client, collection, err := mongodb.Connect(ctx, dest, mongodb.DEFAULT_COLLECTION)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			if err := client.Disconnect(ctx); err != nil {
				log.Printf("openSource: error disconnecting from %v: %v\n", cfg.Input, err)
			}
		}
		if err := checkRoot(ctx, cfg, collection); err != nil {
			disconnect()
			return nil, nil, err
		}
		return &mongodb.EdgeSource{Collection: collection}, disconnect, nil
	default:
		return nil, nil, fmt.Errorf("%w: cannot read input %q", ErrInvalidConfig, cfg.Input)
	}
}

// checkRoot fails early when an SSSP root has no vertex document.
func checkRoot(ctx context.Context, cfg Config, vertices mongodb.VertexFinder) error {
	if cfg.Algorithm != bagel.SHORTEST_PATH {
		return nil
	}
	found, err := mongodb.HasVertex(ctx, vertices, cfg.Root)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %v", bagel.ErrRootNotFound, cfg.Root)
	}
	return nil
}

func openSink(ctx context.Context, cfg Config, partitionId int) (database.Sink, error) {
	if kind, dest := database.Kind(cfg.Output); kind == database.MONGODB {
		if err := database.CheckOutput(cfg.Algorithm, cfg.Output); err != nil {
			return nil, err
		}
		return mongodb.OpenSink(ctx, dest, partitionId)
	}
	return database.Open(ctx, cfg.Output, cfg.Algorithm, partitionId, database.Options{
		Compress: cfg.Compress,
		Table:    cfg.OutputTable,
	})
}

// runGraph hosts either every partition (Local) or the single partition of
// this process.
func runGraph[V graph.ID](ctx context.Context, cfg Config, g *graph.Graph[V], root V, format func(V) string) error {
	var coord *bagel.Coord
	if cfg.StatusAddr != "" && !cfg.ExternalCoord && (cfg.Local > 0 || len(cfg.Peers) == 0 || cfg.PartitionId == 0) {
		coord = bagel.NewCoord()
		if err := coord.Start(cfg.StatusAddr); err != nil {
			return err
		}
		defer coord.Close()
	}

	if cfg.Local > 0 || len(cfg.Peers) == 0 {
		reporter, stop, err := progressReporter(cfg, coord, "local")
		if err != nil {
			return err
		}
		defer stop()
		cluster := bagel.NewLocalCluster(cfg.Partitions())
		return cluster.Run(ctx, func(ctx context.Context, t bagel.Transport) error {
			return runPartition(ctx, cfg, g, t, root, format, reporter)
		})
	}

	t, err := bagel.ListenGRPC(cfg.PartitionId, len(cfg.Peers), cfg.Peers[cfg.PartitionId])
	if err != nil {
		return err
	}
	defer t.Close()
	if err := t.Connect(cfg.Peers); err != nil {
		return err
	}
	if len(cfg.HeartbeatAddrs) > 0 {
		if err := t.MonitorPeers(cfg.HeartbeatAddrs, cfg.LostMsgsThresh); err != nil {
			return err
		}
	}

	reporter, stop, err := progressReporter(cfg, coord, fmt.Sprintf("partition-%d", cfg.PartitionId))
	if err != nil {
		return err
	}
	defer stop()
	return runPartition(ctx, cfg, g, t, root, format, reporter)
}

// progressReporter reports to the coord hosted by this process, or dials
// the one at StatusAddr. It returns nil when no status address is set.
func progressReporter(cfg Config, coord *bagel.Coord, clientId string) (bagel.ProgressReporter, func(), error) {
	if coord != nil {
		return coord, func() {}, nil
	}
	if cfg.StatusAddr == "" {
		return nil, func() {}, nil
	}
	client := bagel.NewClient()
	if err := client.Start(clientId, cfg.StatusAddr); err != nil {
		return nil, nil, err
	}
	return client, func() { client.Stop() }, nil
}

func runPartition[V graph.ID](
	ctx context.Context, cfg Config, g *graph.Graph[V], t bagel.Transport,
	root V, format func(V) string, reporter bagel.ProgressReporter,
) error {
	pid := t.PartitionId()
	store, err := graph.Partition(g, cfg.Partitioner, t.Partitions(), pid, cfg.Alpha, cfg.PartByIn)
	if err != nil {
		return err
	}
	log.Printf("runPartition: partition %d owns %d vertices, %d edges\n", pid, store.LocalVertexCount(), store.LocalEdgeCount())

	ec := bagel.NewExecContext(t, cfg.Threads)
	ec.Stripes = cfg.Stripes
	ec.Logger = log.Default()
	ec.Progress = reporter
	ec.StepsBetweenCheckpoints = cfg.StepsBetweenCheckpoints
	ec.Resume = cfg.Resume
	if cfg.StepsBetweenCheckpoints > 0 || cfg.Resume {
		checkpoints, err := bagel.OpenCheckpoints(cfg.CheckpointDir, pid)
		if err != nil {
			return err
		}
		defer checkpoints.Close()
		ec.Checkpoints = checkpoints
	}

	sink, err := openSink(ctx, cfg, pid)
	if err != nil {
		return err
	}

	switch cfg.Algorithm {
	case bagel.SHORTEST_PATH:
		distances, err := bagel.RunSSSP(ctx, ec, store, root, cfg.Iterations)
		if err != nil {
			sink.Close(ctx)
			return err
		}
		err = saveDistances(ctx, sink, distances, format)
		if err != nil {
			return err
		}
	case bagel.ALL_PAIRS_SHORTEST_PATH:
		pairs, err := bagel.RunAPSP(ctx, ec, store, cfg.Iterations)
		if err != nil {
			sink.Close(ctx)
			return err
		}
		if err := savePairs(ctx, sink, pairs, format); err != nil {
			return err
		}
	}
	return nil
}

func saveDistances[V graph.ID](ctx context.Context, sink database.Sink, distances *bagel.DistanceTable[V], format func(V) string) error {
	start := time.Now()
	var err error
	distances.Each(func(v V, d float64) {
		if err == nil {
			err = sink.WriteDistance(database.DistanceRow{Vertex: format(v), Distance: d})
		}
	})
	if cerr := sink.Close(ctx); err == nil {
		err = cerr
	}
	log.Printf("saveDistances: save cost %v\n", time.Since(start))
	return err
}

func savePairs[V graph.ID](ctx context.Context, sink database.Sink, pairs *bagel.PairTable[V], format func(V) string) error {
	start := time.Now()
	var err error
	pairs.Each(func(dst V, src V, d float64) {
		if err == nil {
			err = sink.WritePair(database.PairRow{Src: format(src), Dst: format(dst), Distance: d})
		}
	})
	if cerr := sink.Close(ctx); err == nil {
		err = cerr
	}
	log.Printf("savePairs: save cost %v\n", time.Since(start))
	return err
}
