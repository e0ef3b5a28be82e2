package bagel

import (
	"context"
	"fmt"
	"time"

	"project/graph"
)

// RunAPSP computes all-pairs distances by repeated relaxation. Every epoch
// each active vertex broadcasts the source distances it has learned and
// every stored out-edge extends them; a vertex whose row improves is active
// in the next epoch. Epoch i discovers paths of at most i hops, so
// iterations must exceed the diameter for exact results.
//
// The returned table holds the rows of the vertices this partition owns.
func RunAPSP[V graph.ID](
	ctx context.Context,
	ec *ExecContext,
	store *graph.Store[V],
	iterations int,
) (*PairTable[V], error) {
	if err := ec.validate(store.PartitionId(), store.Partitions()); err != nil {
		return nil, err
	}

	start := time.Now()
	label := partitionLabel(ec.Transport)
	pairs := NewPairTable[V](ec.Stripes)
	active := graph.NewBitmap(store.VertexCount())
	next := graph.NewBitmap(store.VertexCount())
	active.Fill()

	var state apspState[V]
	resumed, err := ec.restore(ctx, ALL_PAIRS_SHORTEST_PATH, &state)
	if err != nil {
		return nil, err
	}
	if resumed > 0 {
		pairs.restore(state.Pairs)
		active.SetWords(state.Active)
	}

	relax := func(_ int, msg PairMessage[V]) int {
		changed := 0
		for _, n := range store.Neighbours(msg.Vertex) {
			if !pairs.Relax(n.Vertex, msg.Vertex, msg.Sources, n.Weight) {
				continue
			}
			if i, ok := store.Index(n.Vertex); ok {
				next.Set(i)
			}
			changed++
		}
		return changed
	}

	epoch := resumed + 1
	for ; epoch <= uint64(iterations); epoch++ {
		view := graph.NewActiveView(store, active)
		total, err := AllReduceSum(ctx, ec.Transport, int64(view.Count()))
		if err != nil {
			return nil, fmt.Errorf("apsp count epoch %d: %w", epoch, err)
		}
		activeGauge.WithLabelValues(label).Set(float64(total))
		if total == 0 {
			break
		}

		next.Clear()
		updates, err := Broadcast(ctx, ec.Transport, view,
			func(emit func(PairMessage[V]), v V) {
				emit(PairMessage[V]{Vertex: v, Sources: pairs.Sources(v)})
			},
			relax,
			Options{Concurrency: ec.threads()},
		)
		if err != nil {
			return nil, fmt.Errorf("apsp relax epoch %d: %w", epoch, err)
		}
		active, next = next, active

		ec.logf("RunAPSP: partition %d, epoch %d, active %d, updates %d", ec.PartitionId, epoch, total, updates)
		ec.report(ctx, Progress{Algorithm: ALL_PAIRS_SHORTEST_PATH, Epoch: epoch, Active: total})

		if err := ec.checkpoint(ALL_PAIRS_SHORTEST_PATH, epoch, apspState[V]{
			Pairs:  pairs.snapshot(),
			Active: active.Words(),
		}); err != nil {
			return nil, err
		}
	}

	ec.report(ctx, Progress{Algorithm: ALL_PAIRS_SHORTEST_PATH, Epoch: epoch - 1, Done: true})
	ec.logf("RunAPSP: partition %d done after %d epochs, %d pairs, total cost %v", ec.PartitionId, epoch-1, pairs.Len(), time.Since(start))
	return pairs, nil
}
