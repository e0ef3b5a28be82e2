package graph

// View is a restartable sequence of vertex ids.
type View[V ID] interface {
	Each(fn func(v V))
}

type localView[V ID] struct {
	store *Store[V]
}

func (lv localView[V]) Each(fn func(v V)) {
	for _, i := range lv.store.local {
		fn(lv.store.vertices[i])
	}
}

// ActiveView is the owned vertices of a store whose bit is set in active.
type ActiveView[V ID] struct {
	store  *Store[V]
	active *Bitmap
}

func NewActiveView[V ID](store *Store[V], active *Bitmap) *ActiveView[V] {
	return &ActiveView[V]{store: store, active: active}
}

func (av *ActiveView[V]) Each(fn func(v V)) {
	for _, i := range av.store.local {
		if av.active.Get(i) {
			fn(av.store.vertices[i])
		}
	}
}

// Count counts the owned active vertices.
func (av *ActiveView[V]) Count() int {
	n := 0
	av.Each(func(V) { n++ })
	return n
}

// SliceView serves a fixed list of vertices.
type SliceView[V ID] []V

func (sv SliceView[V]) Each(fn func(v V)) {
	for _, v := range sv {
		fn(v)
	}
}
