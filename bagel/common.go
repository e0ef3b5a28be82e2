package bagel

import (
	"errors"
	"math"

	"project/graph"
)

// constants name the algorithm a worker runs
const (
	SHORTEST_PATH           = "sssp"
	ALL_PAIRS_SHORTEST_PATH = "apsp"
)

// Infinity marks a vertex the root has not reached.
const Infinity = math.MaxFloat64

// DEFAULT_STRIPES is the number of lock stripes guarding the pair table.
const DEFAULT_STRIPES = 1024

var (
	ErrRootNotFound      = errors.New("root vertex not found in graph")
	ErrPartitionMismatch = errors.New("store and transport disagree on partitioning")
	ErrPeerFailed        = errors.New("peer partition failed")
	ErrDuplicateDelivery = errors.New("duplicate delivery for superstep")
)

// RelaxMessage announces the settled distance of a frontier vertex.
type RelaxMessage[V graph.ID] struct {
	Vertex   V
	Distance float64
}

// FrontierEntry is one unsettled candidate.
type FrontierEntry[V graph.ID] struct {
	Distance float64
	Vertex   V
}

// PairMessage carries the source distances a vertex has learned so far. An
// empty Sources map means the vertex has not propagated yet.
type PairMessage[V graph.ID] struct {
	Vertex  V
	Sources map[V]float64
}

func less[V graph.ID](a, b FrontierEntry[V]) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Vertex < b.Vertex
}
