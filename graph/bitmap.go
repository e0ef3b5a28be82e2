package graph

import (
	"math/bits"
	"sync/atomic"
)

// Bitmap is a fixed-size bitset over dense vertex indices. Set is safe for
// concurrent use; Clear, Fill and Count are not meant to race with it.
type Bitmap struct {
	words []uint64
	size  int
}

func NewBitmap(size int) *Bitmap {
	return &Bitmap{words: make([]uint64, (size+63)/64), size: size}
}

func (b *Bitmap) Size() int {
	return b.size
}

func (b *Bitmap) Set(i int) {
	addr := &b.words[i/64]
	mask := uint64(1) << (uint(i) % 64)
	for {
		old := atomic.LoadUint64(addr)
		if old&mask != 0 || atomic.CompareAndSwapUint64(addr, old, old|mask) {
			return
		}
	}
}

func (b *Bitmap) Get(i int) bool {
	return atomic.LoadUint64(&b.words[i/64])&(uint64(1)<<(uint(i)%64)) != 0
}

func (b *Bitmap) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}

func (b *Bitmap) Fill() {
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	if tail := b.size % 64; tail != 0 {
		b.words[len(b.words)-1] = (uint64(1) << uint(tail)) - 1
	}
}

func (b *Bitmap) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Words exposes the backing words, for checkpoints.
func (b *Bitmap) Words() []uint64 {
	return append([]uint64(nil), b.words...)
}

func (b *Bitmap) SetWords(words []uint64) {
	copy(b.words, words)
}
