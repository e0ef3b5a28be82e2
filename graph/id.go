// Package graph holds the partitioned adjacency a worker computes over:
// vertex ids, edge-list sources, partitioners, the partition store, active
// bitmaps and the optional vertex-id encoder.
package graph

import (
	"errors"
	"fmt"
	"strconv"

	"project/util"
)

// ID is the set of vertex id representations a run can be parameterized
// with. Every member is totally ordered, hashable and gob-serializable.
type ID interface {
	int32 | uint32 | int64 | uint64 | string
}

var (
	ErrMalformedEdge  = errors.New("malformed edge")
	ErrNegativeWeight = errors.New("negative edge weight")
	ErrUnknownVertex  = errors.New("unknown vertex")
)

// ParseID parses the textual form of a vertex id.
func ParseID[V ID](s string) (V, error) {
	var id V
	var err error
	switch p := any(&id).(type) {
	case *int32:
		var n int64
		n, err = strconv.ParseInt(s, 0, 32)
		*p = int32(n)
	case *uint32:
		var n uint64
		n, err = strconv.ParseUint(s, 0, 32)
		*p = uint32(n)
	case *int64:
		*p, err = strconv.ParseInt(s, 0, 64)
	case *uint64:
		*p, err = strconv.ParseUint(s, 0, 64)
	case *string:
		*p = s
	}
	if err != nil {
		return id, fmt.Errorf("%w: vertex id %q: %v", ErrMalformedEdge, s, err)
	}
	return id, nil
}

func FormatID[V ID](v V) string {
	switch x := any(v).(type) {
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func Hash[V ID](v V) uint64 {
	switch x := any(v).(type) {
	case int32:
		return util.HashId(uint64(uint32(x)))
	case uint32:
		return util.HashId(uint64(x))
	case int64:
		return util.HashId(uint64(x))
	case uint64:
		return util.HashId(x)
	case string:
		return util.HashString(x)
	}
	return 0
}
