package bagel

import (
	"bytes"
	"container/heap"
	"encoding/gob"
	"sort"

	"project/graph"
)

// Frontier is the ordered set of unsettled (distance, vertex) candidates,
// keyed by (distance, vertex id). It holds at most one entry per vertex.
// Not safe for concurrent use.
type Frontier[V graph.ID] struct {
	items entryHeap[V]
	pos   map[V]int
}

func NewFrontier[V graph.ID]() *Frontier[V] {
	pos := make(map[V]int)
	return &Frontier[V]{items: entryHeap[V]{pos: pos}, pos: pos}
}

func (f *Frontier[V]) Len() int {
	return len(f.items.entries)
}

// Insert adds (distance, v), replacing any entry v already has.
func (f *Frontier[V]) Insert(distance float64, v V) {
	f.Remove(v)
	heap.Push(&f.items, FrontierEntry[V]{Distance: distance, Vertex: v})
}

// Merge keeps the smaller of the existing entry for v and (distance, v).
func (f *Frontier[V]) Merge(distance float64, v V) {
	if d, ok := f.Distance(v); ok && d <= distance {
		return
	}
	f.Insert(distance, v)
}

// Remove drops the entry of v, if any.
func (f *Frontier[V]) Remove(v V) bool {
	i, ok := f.pos[v]
	if !ok {
		return false
	}
	heap.Remove(&f.items, i)
	return true
}

func (f *Frontier[V]) Distance(v V) (float64, bool) {
	i, ok := f.pos[v]
	if !ok {
		return 0, false
	}
	return f.items.entries[i].Distance, true
}

func (f *Frontier[V]) Min() (FrontierEntry[V], bool) {
	if f.Len() == 0 {
		return FrontierEntry[V]{}, false
	}
	return f.items.entries[0], true
}

func (f *Frontier[V]) PopMin() (FrontierEntry[V], bool) {
	if f.Len() == 0 {
		return FrontierEntry[V]{}, false
	}
	return heap.Pop(&f.items).(FrontierEntry[V]), true
}

// Entries lists every entry in (distance, vertex) order.
func (f *Frontier[V]) Entries() []FrontierEntry[V] {
	entries := make([]FrontierEntry[V], len(f.items.entries))
	copy(entries, f.items.entries)
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}

// MarshalBinary encodes the ordered entry sequence; the byte layout does not
// depend on the vertex id width or the host.
func (f *Frontier[V]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f.Entries()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Frontier[V]) UnmarshalBinary(data []byte) error {
	var entries []FrontierEntry[V]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entries); err != nil {
		return err
	}
	f.Reset(entries)
	return nil
}

// Reset replaces the content of f, merging duplicate vertices.
func (f *Frontier[V]) Reset(entries []FrontierEntry[V]) {
	f.items.entries = f.items.entries[:0]
	f.pos = make(map[V]int, len(entries))
	f.items.pos = f.pos
	for _, e := range entries {
		f.Merge(e.Distance, e.Vertex)
	}
}

// entryHeap is a min-heap of entries that tracks each vertex's position so
// entries can be removed in O(log n).
type entryHeap[V graph.ID] struct {
	entries []FrontierEntry[V]
	pos     map[V]int
}

func (h entryHeap[V]) Len() int { return len(h.entries) }

func (h entryHeap[V]) Less(i, j int) bool { return less(h.entries[i], h.entries[j]) }

func (h entryHeap[V]) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.pos[h.entries[i].Vertex] = i
	h.pos[h.entries[j].Vertex] = j
}

func (h *entryHeap[V]) Push(x interface{}) {
	e := x.(FrontierEntry[V])
	h.pos[e.Vertex] = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *entryHeap[V]) Pop() interface{} {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	delete(h.pos, e.Vertex)
	return e
}
