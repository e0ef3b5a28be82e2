package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const CENTRAL_DB_NAME = "bagel-db"
const DEFAULT_REGION = "us-east-2"
const MAXIMUM_ITEMS_PER_BATCH = 25

// output kinds, selected by the prefix of the output destination
const (
	FILE      = "file"
	MYSQL     = "mysql"
	SQLSERVER = "sqlserver"
	SQLITE    = "sqlite"
	DYNAMODB  = "dynamodb"
	MONGODB   = "mongodb"
)

var ErrUnsupportedOutput = errors.New("unsupported output destination")

// DistanceRow is one SSSP result.
type DistanceRow struct {
	Vertex   string
	Distance float64
}

// PairRow is one APSP result.
type PairRow struct {
	Src      string
	Dst      string
	Distance float64
}

// Sink receives the rows of one partition. Rows are only guaranteed to be
// stored once Close returns nil.
type Sink interface {
	WriteDistance(row DistanceRow) error
	WritePair(row PairRow) error
	Close(ctx context.Context) error
}

type Options struct {
	// Compress gzips file output.
	Compress bool
	// Table overrides the table or collection rows are written to.
	Table string
}

// Kind classifies output and returns the destination with the kind prefix
// removed. Plain paths and "file:" prefixed paths are files.
func Kind(output string) (string, string) {
	switch {
	case strings.HasPrefix(output, "mongodb://"), strings.HasPrefix(output, "mongodb+srv://"):
		return MONGODB, output
	case strings.HasPrefix(output, "sqlserver://"):
		return SQLSERVER, output
	}
	for _, kind := range []string{FILE, MYSQL, SQLSERVER, SQLITE, DYNAMODB} {
		if rest, ok := strings.CutPrefix(output, kind+":"); ok {
			return kind, rest
		}
	}
	if strings.Contains(output, "://") {
		return "", output
	}
	return FILE, output
}

// CheckOutput rejects destinations the algorithm cannot write to. All-pairs
// results are only written to files.
func CheckOutput(algorithm string, output string) error {
	kind, _ := Kind(output)
	if kind == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedOutput, output)
	}
	if algorithm == "apsp" && kind != FILE {
		return fmt.Errorf("%w: %s output for %s", ErrUnsupportedOutput, kind, algorithm)
	}
	return nil
}

// Open creates the sink of partitionId for every kind but MONGODB, which
// lives in the mongodb package.
func Open(ctx context.Context, output string, algorithm string, partitionId int, opts Options) (Sink, error) {
	if err := CheckOutput(algorithm, output); err != nil {
		return nil, err
	}
	kind, dest := Kind(output)
	switch kind {
	case FILE:
		return NewFileSink(dest, algorithm, partitionId, opts.Compress)
	case MYSQL, SQLSERVER, SQLITE:
		return NewSQLSink(ctx, kind, dest, tableName(opts, algorithm), partitionId)
	case DYNAMODB:
		table := dest
		if opts.Table != "" {
			table = opts.Table
		}
		return NewDynamoSink(ctx, table, partitionId)
	default:
		return nil, fmt.Errorf("%w: %s must be opened by its own package", ErrUnsupportedOutput, kind)
	}
}

func tableName(opts Options, algorithm string) string {
	if opts.Table != "" {
		return opts.Table
	}
	return algorithm + "_distances"
}

// Batches splits items into consecutive batches of at most size items.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MAXIMUM_ITEMS_PER_BATCH
	}
	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// PairsUnsupported is returned by sinks that only store distance rows.
func PairsUnsupported(kind string) error {
	return fmt.Errorf("%w: %s cannot store pair rows", ErrUnsupportedOutput, kind)
}
