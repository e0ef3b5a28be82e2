package graph

import (
	"context"
	"fmt"
	"sort"
)

type Edge[V ID] struct {
	Src    V
	Dst    V
	Weight float64
}

type Neighbour[V ID] struct {
	Vertex V
	Weight float64
}

// Graph is the parsed, not yet partitioned edge list. Vertices are sorted
// and distinct; their position is the dense vertex index used by every
// partition.
type Graph[V ID] struct {
	Vertices   []V
	Edges      []Edge[V]
	IsDirected bool
}

// Load parses every record of src. Undirected graphs get the reverse of
// every edge.
func Load[V ID](ctx context.Context, src Source, isDirected bool) (*Graph[V], error) {
	raw, err := src.Edges(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[V]struct{})
	g := &Graph[V]{IsDirected: isDirected}
	for i, r := range raw {
		u, err := ParseID[V](r.Src)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		seen[u] = struct{}{}
		if r.VertexOnly {
			continue
		}
		v, err := ParseID[V](r.Dst)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if r.Weight < 0 {
			return nil, fmt.Errorf("record %d: %w", i+1, ErrNegativeWeight)
		}
		seen[v] = struct{}{}
		g.Edges = append(g.Edges, Edge[V]{Src: u, Dst: v, Weight: r.Weight})
		if !isDirected {
			g.Edges = append(g.Edges, Edge[V]{Src: v, Dst: u, Weight: r.Weight})
		}
	}

	g.Vertices = make([]V, 0, len(seen))
	for v := range seen {
		g.Vertices = append(g.Vertices, v)
	}
	sort.Slice(g.Vertices, func(i, j int) bool { return g.Vertices[i] < g.Vertices[j] })
	return g, nil
}

// NewGraph builds a graph from already parsed edges; isolated vertices may
// be listed in extra.
func NewGraph[V ID](edges []Edge[V], isDirected bool, extra ...V) *Graph[V] {
	seen := make(map[V]struct{})
	g := &Graph[V]{IsDirected: isDirected}
	for _, e := range edges {
		seen[e.Src] = struct{}{}
		seen[e.Dst] = struct{}{}
		g.Edges = append(g.Edges, e)
		if !isDirected {
			g.Edges = append(g.Edges, Edge[V]{Src: e.Dst, Dst: e.Src, Weight: e.Weight})
		}
	}
	for _, v := range extra {
		seen[v] = struct{}{}
	}
	for v := range seen {
		g.Vertices = append(g.Vertices, v)
	}
	sort.Slice(g.Vertices, func(i, j int) bool { return g.Vertices[i] < g.Vertices[j] })
	return g
}

// EdgeCount counts stored edges, i.e. twice the input edges when undirected.
func (g *Graph[V]) EdgeCount() int {
	return len(g.Edges)
}

// Degrees returns the out-degree (or in-degree when byIn) of every vertex
// in dense index order.
func (g *Graph[V]) Degrees(byIn bool) []int {
	index := make(map[V]int, len(g.Vertices))
	for i, v := range g.Vertices {
		index[v] = i
	}
	degrees := make([]int, len(g.Vertices))
	for _, e := range g.Edges {
		if byIn {
			degrees[index[e.Dst]]++
		} else {
			degrees[index[e.Src]]++
		}
	}
	return degrees
}
