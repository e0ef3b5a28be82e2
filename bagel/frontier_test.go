package bagel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierKeepsOneEntryPerVertex(t *testing.T) {
	f := NewFrontier[string]()
	f.Insert(5, "c")
	f.Insert(3, "c")
	f.Insert(3, "a")
	f.Insert(1, "b")

	assert.Equal(t, 3, f.Len())
	d, ok := f.Distance("c")
	require.True(t, ok)
	assert.Equal(t, 3.0, d)

	// equal distances break ties on the vertex id
	var order []string
	for f.Len() > 0 {
		e, _ := f.PopMin()
		order = append(order, e.Vertex)
	}
	assert.Equal(t, []string{"b", "a", "c"}, order)

	_, ok = f.PopMin()
	assert.False(t, ok)
}

func TestFrontierMergeKeepsSmaller(t *testing.T) {
	f := NewFrontier[uint32]()
	f.Merge(4, 1)
	f.Merge(6, 1)
	f.Merge(2, 1)
	assert.Equal(t, 1, f.Len())
	min, ok := f.Min()
	require.True(t, ok)
	assert.Equal(t, FrontierEntry[uint32]{Distance: 2, Vertex: 1}, min)

	assert.True(t, f.Remove(1))
	assert.False(t, f.Remove(1))
	_, ok = f.Min()
	assert.False(t, ok)
}

func TestFrontierBinaryRoundTrip(t *testing.T) {
	f := NewFrontier[int64]()
	f.Insert(2.5, -3)
	f.Insert(0.5, 7)
	f.Insert(2.5, -9)

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	decoded := NewFrontier[int64]()
	decoded.Insert(100, 42)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, []FrontierEntry[int64]{
		{Distance: 0.5, Vertex: 7},
		{Distance: 2.5, Vertex: -9},
		{Distance: 2.5, Vertex: -3},
	}, decoded.Entries())

	// an empty frontier still encodes
	data, err = NewFrontier[int64]().MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, 0, decoded.Len())
	assert.NotNil(t, decoded.Entries())
}

func TestFrontierResetMergesDuplicates(t *testing.T) {
	f := NewFrontier[string]()
	f.Reset([]FrontierEntry[string]{
		{Distance: 3, Vertex: "x"},
		{Distance: 1, Vertex: "x"},
		{Distance: 2, Vertex: "y"},
	})
	assert.Equal(t, []FrontierEntry[string]{
		{Distance: 1, Vertex: "x"},
		{Distance: 2, Vertex: "y"},
	}, f.Entries())
}

func TestStripes(t *testing.T) {
	s := NewStripes[string](0)
	assert.Equal(t, DEFAULT_STRIPES, s.Len())

	s = NewStripes[string](7)
	assert.Equal(t, s.Index("vertex"), s.Index("vertex"))
	for _, k := range []string{"a", "b", "c", "dddd"} {
		i := s.Index(k)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 7)
	}

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("shared")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestPairTableRelax(t *testing.T) {
	pairs := NewPairTable[string](4)

	// seed: via becomes a source of dst
	assert.True(t, pairs.Relax("b", "a", nil, 3))
	assert.False(t, pairs.Relax("b", "a", nil, 4))
	d, ok := pairs.Get("b", "a")
	require.True(t, ok)
	assert.Equal(t, 3.0, d)

	// extension of every source of via, skipping dst itself
	assert.True(t, pairs.Relax("c", "b", map[string]float64{"a": 3, "c": 1}, 2))
	_, ok = pairs.Get("c", "c")
	assert.False(t, ok)
	d, _ = pairs.Get("c", "a")
	assert.Equal(t, 5.0, d)

	assert.False(t, pairs.Relax("a", "a", nil, 1))
	assert.Equal(t, 2, pairs.Len())

	sources := pairs.Sources("c")
	sources["z"] = 1
	_, ok = pairs.Get("c", "z")
	assert.False(t, ok)

	var got []string
	pairs.Each(func(dst, src string, d float64) { got = append(got, dst+src) })
	assert.Equal(t, []string{"ba", "ca"}, got)
}
