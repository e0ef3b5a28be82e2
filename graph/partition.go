package graph

import (
	"fmt"
	"sort"
)

const (
	SEQUENCE_PARTITION = "sequence"
	HASH_PARTITION     = "hash"
)

// Partitioner assigns every vertex to exactly one owning partition.
type Partitioner[V ID] interface {
	Owner(v V) int
	Partitions() int
}

// HashPartitioner owns v on partition hash(v) % n.
type HashPartitioner[V ID] struct {
	N int
}

func (p HashPartitioner[V]) Owner(v V) int {
	return int(Hash(v) % uint64(p.N))
}

func (p HashPartitioner[V]) Partitions() int {
	return p.N
}

// SequencePartitioner splits the sorted vertex sequence into contiguous
// ranges of roughly equal degree(v)+alpha weight.
type SequencePartitioner[V ID] struct {
	starts []V // first vertex of partitions 1..n-1
	n      int
}

// NewSequencePartitioner balances n partitions over sorted vertices. A
// negative alpha defaults to 8*(n-1), which weights vertex count more as
// the cluster grows.
func NewSequencePartitioner[V ID](vertices []V, degrees []int, n int, alpha int) *SequencePartitioner[V] {
	if alpha < 0 {
		alpha = 8 * (n - 1)
	}
	total := 0
	for i := range vertices {
		total += degrees[i] + alpha
	}

	p := &SequencePartitioner[V]{n: n}
	if n <= 1 || len(vertices) == 0 {
		return p
	}

	sum := 0
	next := 1
	for i := range vertices {
		// start partition `next` once the running weight reaches its share
		for next < n && sum*n >= total*next {
			p.starts = append(p.starts, vertices[i])
			next++
		}
		sum += degrees[i] + alpha
	}
	// tail partitions own nothing but must still have a boundary
	for next < n {
		p.starts = append(p.starts, vertices[len(vertices)-1])
		next++
	}
	return p
}

func (p *SequencePartitioner[V]) Owner(v V) int {
	return sort.Search(len(p.starts), func(i int) bool { return v < p.starts[i] })
}

func (p *SequencePartitioner[V]) Partitions() int {
	return p.n
}

// NewPartitioner builds the partitioner named by kind.
func NewPartitioner[V ID](kind string, g *Graph[V], n int, alpha int, byIn bool) (Partitioner[V], error) {
	if n <= 0 {
		return nil, fmt.Errorf("partition count must be positive, got %d", n)
	}
	switch kind {
	case HASH_PARTITION:
		return HashPartitioner[V]{N: n}, nil
	case SEQUENCE_PARTITION, "":
		return NewSequencePartitioner(g.Vertices, g.Degrees(byIn), n, alpha), nil
	default:
		return nil, fmt.Errorf("unknown partitioner %q", kind)
	}
}
