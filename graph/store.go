package graph

import (
	"fmt"
	"sort"
)

// Store is one partition's share of a graph. It keeps the edges whose
// destination this partition owns, indexed by source, so a broadcast of a
// source vertex can be relaxed locally by every partition.
type Store[V ID] struct {
	partitionId int
	partitioner Partitioner[V]
	vertices    []V // every vertex of the graph, sorted
	index       map[V]int
	adjacency   map[V][]Neighbour[V]
	local       []int // dense indices of owned vertices
	edges       int
}

// NewStore keeps the part of g owned by partitionId.
func NewStore[V ID](g *Graph[V], partitioner Partitioner[V], partitionId int) (*Store[V], error) {
	if partitionId < 0 || partitionId >= partitioner.Partitions() {
		return nil, fmt.Errorf(
			"partition id %d out of range [0,%d)", partitionId, partitioner.Partitions(),
		)
	}

	s := &Store[V]{
		partitionId: partitionId,
		partitioner: partitioner,
		vertices:    g.Vertices,
		index:       make(map[V]int, len(g.Vertices)),
		adjacency:   make(map[V][]Neighbour[V]),
	}
	for i, v := range g.Vertices {
		s.index[v] = i
		if partitioner.Owner(v) == partitionId {
			s.local = append(s.local, i)
		}
	}
	for _, e := range g.Edges {
		if partitioner.Owner(e.Dst) != partitionId {
			continue
		}
		s.adjacency[e.Src] = append(s.adjacency[e.Src], Neighbour[V]{Vertex: e.Dst, Weight: e.Weight})
		s.edges++
	}
	// deterministic relaxation order
	for _, neighbours := range s.adjacency {
		sort.SliceStable(neighbours, func(i, j int) bool { return neighbours[i].Vertex < neighbours[j].Vertex })
	}
	return s, nil
}

func (s *Store[V]) PartitionId() int {
	return s.partitionId
}

func (s *Store[V]) Partitions() int {
	return s.partitioner.Partitions()
}

// Neighbours lists the stored out-edges of v, i.e. those landing on a
// vertex owned by this partition.
func (s *Store[V]) Neighbours(v V) []Neighbour[V] {
	return s.adjacency[v]
}

func (s *Store[V]) Owner(v V) int {
	return s.partitioner.Owner(v)
}

func (s *Store[V]) IsLocal(v V) bool {
	return s.partitioner.Owner(v) == s.partitionId
}

func (s *Store[V]) Contains(v V) bool {
	_, ok := s.index[v]
	return ok
}

// Index is the dense index of v across the whole graph.
func (s *Store[V]) Index(v V) (int, bool) {
	i, ok := s.index[v]
	return i, ok
}

func (s *Store[V]) Vertex(i int) V {
	return s.vertices[i]
}

// VertexCount counts every vertex of the graph, not only the owned ones.
func (s *Store[V]) VertexCount() int {
	return len(s.vertices)
}

func (s *Store[V]) LocalVertexCount() int {
	return len(s.local)
}

func (s *Store[V]) LocalEdgeCount() int {
	return s.edges
}

// LocalView iterates the owned vertices in id order.
func (s *Store[V]) LocalView() View[V] {
	return localView[V]{store: s}
}

// Partition loads the share of g for partitionId using the named
// partitioner.
func Partition[V ID](g *Graph[V], kind string, partitions int, partitionId int, alpha int, byIn bool) (*Store[V], error) {
	partitioner, err := NewPartitioner(kind, g, partitions, alpha, byIn)
	if err != nil {
		return nil, err
	}
	return NewStore(g, partitioner, partitionId)
}
