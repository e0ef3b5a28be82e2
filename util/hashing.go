package util

import (
	"encoding/binary"
	"hash/fnv"
)

func HashId(vertexId uint64) uint64 {
	inputBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(inputBytes, vertexId)

	algorithm := fnv.New64a()
	algorithm.Write(inputBytes)
	return algorithm.Sum64()
}

func HashString(vertexId string) uint64 {
	algorithm := fnv.New64a()
	algorithm.Write([]byte(vertexId))
	return algorithm.Sum64()
}
