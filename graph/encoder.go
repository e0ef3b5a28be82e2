package graph

import (
	"fmt"
	"math"
)

const (
	SINGLE_ENCODER      = "single"
	DISTRIBUTED_ENCODER = "distributed"
)

// Encoder maps external vertex ids onto dense uint32 ids in sorted order, so
// encoded ids keep the relative order of the external ids.
type Encoder[X ID] struct {
	ids   []X
	index map[X]uint32
}

// NewEncoder builds an encoder over sorted, distinct ids.
func NewEncoder[X ID](ids []X) (*Encoder[X], error) {
	if uint64(len(ids)) > math.MaxUint32 {
		return nil, fmt.Errorf("cannot encode %d vertices into uint32 ids", len(ids))
	}
	e := &Encoder[X]{
		ids:   append([]X(nil), ids...),
		index: make(map[X]uint32, len(ids)),
	}
	for i, id := range e.ids {
		e.index[id] = uint32(i)
	}
	return e, nil
}

func (e *Encoder[X]) Encode(x X) (uint32, bool) {
	id, ok := e.index[x]
	return id, ok
}

func (e *Encoder[X]) Decode(id uint32) X {
	return e.ids[id]
}

func (e *Encoder[X]) Len() int {
	return len(e.ids)
}

// EncodeGraph rewrites g over dense uint32 ids.
func EncodeGraph[X ID](g *Graph[X]) (*Graph[uint32], *Encoder[X], error) {
	encoder, err := NewEncoder(g.Vertices)
	if err != nil {
		return nil, nil, err
	}

	encoded := &Graph[uint32]{
		Vertices:   make([]uint32, len(g.Vertices)),
		Edges:      make([]Edge[uint32], len(g.Edges)),
		IsDirected: g.IsDirected,
	}
	for i := range g.Vertices {
		encoded.Vertices[i] = uint32(i)
	}
	for i, e := range g.Edges {
		encoded.Edges[i] = Edge[uint32]{
			Src:    encoder.index[e.Src],
			Dst:    encoder.index[e.Dst],
			Weight: e.Weight,
		}
	}
	return encoded, encoder, nil
}
