package bagel

import (
	"context"
	"fmt"
	"time"

	"project/graph"
)

// RunSSSP computes distances from root with a frontier-merge emulation of
// Dijkstra. Each epoch settles the global frontier minimum, relaxes its
// out-edges on every partition and merges the partition frontiers back into
// one global frontier. It stops when the frontier empties or after
// iterations epochs. The returned table is only meaningful for vertices
// owned by this partition.
func RunSSSP[V graph.ID](
	ctx context.Context,
	ec *ExecContext,
	store *graph.Store[V],
	root V,
	iterations int,
) (*DistanceTable[V], error) {
	if err := ec.validate(store.PartitionId(), store.Partitions()); err != nil {
		return nil, err
	}
	if !store.Contains(root) {
		return nil, fmt.Errorf("%w: %v", ErrRootNotFound, root)
	}

	start := time.Now()
	label := partitionLabel(ec.Transport)
	distances := NewDistanceTable(store)
	frontier := NewFrontier[V]()
	distances.Set(root, 0)
	frontier.Insert(0, root)

	var state ssspState[V]
	resumed, err := ec.restore(ctx, SHORTEST_PATH, &state)
	if err != nil {
		return nil, err
	}
	if resumed > 0 {
		distances.restore(state.Distances)
		frontier.Reset(state.Frontier)
	}

	active := graph.NewBitmap(store.VertexCount())
	view := graph.NewActiveView(store, active)

	epoch := resumed + 1
	for ; frontier.Len() > 0 && epoch <= uint64(iterations); epoch++ {
		top, _ := frontier.PopMin()
		active.Clear()
		if i, ok := store.Index(top.Vertex); ok {
			active.Set(i)
		}

		// only the owner of top has it in view, so exactly one message
		// reaches every partition
		_, err := Broadcast(ctx, ec.Transport, view,
			func(emit func(RelaxMessage[V]), v V) {
				emit(RelaxMessage[V]{Vertex: v, Distance: top.Distance})
			},
			func(_ int, msg RelaxMessage[V]) int {
				for _, n := range store.Neighbours(msg.Vertex) {
					candidate := msg.Distance + n.Weight
					if candidate < distances.Get(n.Vertex) {
						frontier.Insert(candidate, n.Vertex)
						distances.Set(n.Vertex, candidate)
					}
				}
				return 1
			},
			Options{Concurrency: 1},
		)
		if err != nil {
			return nil, fmt.Errorf("sssp relax epoch %d: %w", epoch, err)
		}

		if frontier, err = mergeFrontiers(ctx, ec.Transport, frontier); err != nil {
			return nil, fmt.Errorf("sssp merge epoch %d: %w", epoch, err)
		}

		ec.logf("RunSSSP: partition %d, epoch %d, frontier size %d", ec.PartitionId, epoch, frontier.Len())
		frontierGauge.WithLabelValues(label).Set(float64(frontier.Len()))
		ec.report(ctx, Progress{Algorithm: SHORTEST_PATH, Epoch: epoch, Frontier: frontier.Len()})

		if err := ec.checkpoint(SHORTEST_PATH, epoch, ssspState[V]{
			Distances: distances.snapshot(),
			Frontier:  frontier.Entries(),
		}); err != nil {
			return nil, err
		}
	}

	ec.report(ctx, Progress{Algorithm: SHORTEST_PATH, Epoch: epoch - 1, Frontier: frontier.Len(), Done: true})
	ec.logf("RunSSSP: partition %d done after %d epochs, total cost %v", ec.PartitionId, epoch-1, time.Since(start))
	return distances, nil
}

// mergeFrontiers sends the local frontier to every partition and returns the
// union of all of them, keeping the smallest distance per vertex.
func mergeFrontiers[V graph.ID](ctx context.Context, t Transport, local *Frontier[V]) (*Frontier[V], error) {
	encoded, err := local.MarshalBinary()
	if err != nil {
		return nil, err
	}

	merged := NewFrontier[V]()
	var decodeErr error
	_, err = BroadcastOnce(ctx, t, encoded, func(from int, data []byte) int {
		incoming := NewFrontier[V]()
		if err := incoming.UnmarshalBinary(data); err != nil {
			decodeErr = fmt.Errorf("frontier from partition %d: %w", from, err)
			return 0
		}
		for _, e := range incoming.items.entries {
			merged.Merge(e.Distance, e.Vertex)
		}
		return incoming.Len()
	}, Options{Concurrency: 1})
	if err != nil {
		return nil, err
	}
	return merged, decodeErr
}
