package bagel

import (
	"sort"

	"project/graph"
)

// DistanceTable stores the best known distance from the root for every
// vertex, densely indexed by the store's vertex index. Only owned vertices
// are ever relaxed or emitted.
type DistanceTable[V graph.ID] struct {
	store     *graph.Store[V]
	distances []float64
}

func NewDistanceTable[V graph.ID](store *graph.Store[V]) *DistanceTable[V] {
	t := &DistanceTable[V]{
		store:     store,
		distances: make([]float64, store.VertexCount()),
	}
	for i := range t.distances {
		t.distances[i] = Infinity
	}
	return t
}

// Get returns Infinity for vertices outside the graph.
func (t *DistanceTable[V]) Get(v V) float64 {
	i, ok := t.store.Index(v)
	if !ok {
		return Infinity
	}
	return t.distances[i]
}

func (t *DistanceTable[V]) Set(v V, distance float64) {
	if i, ok := t.store.Index(v); ok {
		t.distances[i] = distance
	}
}

// Each visits the owned vertices in id order, reached or not.
func (t *DistanceTable[V]) Each(fn func(v V, distance float64)) {
	t.store.LocalView().Each(func(v V) {
		fn(v, t.Get(v))
	})
}

func (t *DistanceTable[V]) snapshot() []float64 {
	return append([]float64(nil), t.distances...)
}

func (t *DistanceTable[V]) restore(distances []float64) {
	copy(t.distances, distances)
}

// PairTable maps destination -> source -> best distance. Rows are sharded by
// the stripe of their destination and every access holds that stripe, so
// read-modify-write on one destination is atomic.
type PairTable[V graph.ID] struct {
	stripes *Stripes[V]
	shards  []map[V]map[V]float64
}

func NewPairTable[V graph.ID](stripes int) *PairTable[V] {
	s := NewStripes[V](stripes)
	t := &PairTable[V]{
		stripes: s,
		shards:  make([]map[V]map[V]float64, s.Len()),
	}
	for i := range t.shards {
		t.shards[i] = make(map[V]map[V]float64)
	}
	return t
}

// Sources copies the row of dst.
func (t *PairTable[V]) Sources(dst V) map[V]float64 {
	unlock := t.stripes.Lock(dst)
	defer unlock()

	row := t.shards[t.stripes.Index(dst)][dst]
	sources := make(map[V]float64, len(row))
	for src, d := range row {
		sources[src] = d
	}
	return sources
}

func (t *PairTable[V]) Get(dst V, src V) (float64, bool) {
	unlock := t.stripes.Lock(dst)
	defer unlock()

	d, ok := t.shards[t.stripes.Index(dst)][dst][src]
	return d, ok
}

// Relax folds the edge (via -> dst, weight) into the row of dst. With no
// known sources, via itself becomes a source at distance weight; otherwise
// every source of via is extended by weight. Self pairs are never stored.
// It reports whether the row changed.
func (t *PairTable[V]) Relax(dst V, via V, sources map[V]float64, weight float64) bool {
	if dst == via {
		return false
	}
	unlock := t.stripes.Lock(dst)
	defer unlock()

	shard := t.shards[t.stripes.Index(dst)]
	row, ok := shard[dst]
	if !ok {
		row = make(map[V]float64)
		shard[dst] = row
	}

	if len(sources) == 0 {
		return improve(row, via, weight)
	}
	changed := false
	for src, d := range sources {
		if src == dst {
			continue
		}
		if improve(row, src, d+weight) {
			changed = true
		}
	}
	return changed
}

func improve[V graph.ID](row map[V]float64, src V, candidate float64) bool {
	if existing, ok := row[src]; ok && existing <= candidate {
		return false
	}
	row[src] = candidate
	return true
}

// Each visits every (dst, src, distance) triple ordered by dst then src.
// It must not run concurrently with Relax.
func (t *PairTable[V]) Each(fn func(dst V, src V, distance float64)) {
	var dsts []V
	for _, shard := range t.shards {
		for dst := range shard {
			dsts = append(dsts, dst)
		}
	}
	sort.Slice(dsts, func(i, j int) bool { return dsts[i] < dsts[j] })

	for _, dst := range dsts {
		row := t.shards[t.stripes.Index(dst)][dst]
		srcs := make([]V, 0, len(row))
		for src := range row {
			srcs = append(srcs, src)
		}
		sort.Slice(srcs, func(i, j int) bool { return srcs[i] < srcs[j] })
		for _, src := range srcs {
			fn(dst, src, row[src])
		}
	}
}

// Len counts stored pairs.
func (t *PairTable[V]) Len() int {
	n := 0
	for _, shard := range t.shards {
		for _, row := range shard {
			n += len(row)
		}
	}
	return n
}

func (t *PairTable[V]) snapshot() map[V]map[V]float64 {
	rows := make(map[V]map[V]float64)
	for _, shard := range t.shards {
		for dst, row := range shard {
			copied := make(map[V]float64, len(row))
			for src, d := range row {
				copied[src] = d
			}
			rows[dst] = copied
		}
	}
	return rows
}

func (t *PairTable[V]) restore(rows map[V]map[V]float64) {
	for dst, row := range rows {
		shard := t.shards[t.stripes.Index(dst)]
		copied := make(map[V]float64, len(row))
		for src, d := range row {
			copied[src] = d
		}
		shard[dst] = copied
	}
}
