package graph

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// RawEdge is one record of an edge list before vertex ids are parsed.
// A record with VertexOnly set declares a vertex without any edge.
type RawEdge struct {
	Src        string
	Dst        string
	Weight     float64
	VertexOnly bool
}

// Source yields the whole edge list. Every partition reads the full list and
// keeps its own share.
type Source interface {
	Edges(ctx context.Context) ([]RawEdge, error)
}

// CSVSource reads `src,dst[,weight]` records from a file or from every file
// of a directory. Lines starting with '#' are comments, single-column lines
// declare isolated vertices and a missing weight defaults to 1.
type CSVSource struct {
	Path  string
	Comma rune
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, Comma: ','}
}

func (s *CSVSource) Edges(ctx context.Context) ([]RawEdge, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", s.Path, err)
	}

	files := []string{s.Path}
	if info.IsDir() {
		entries, err := os.ReadDir(s.Path)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			files = append(files, filepath.Join(s.Path, entry.Name()))
		}
		sort.Strings(files)
	}

	var edges []RawEdge
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileEdges, err := s.readFile(file)
		if err != nil {
			return nil, err
		}
		edges = append(edges, fileEdges...)
	}
	return edges, nil
}

func (s *CSVSource) readFile(filename string) ([]RawEdge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var edges []RawEdge
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEdge, filename, err)
		}
		line, _ := reader.FieldPos(0)
		edge, err := ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// ParseRecord turns one edge-list record into a RawEdge.
func ParseRecord(record []string) (RawEdge, error) {
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	switch len(record) {
	case 1:
		if record[0] == "" {
			return RawEdge{}, fmt.Errorf("%w: empty vertex id", ErrMalformedEdge)
		}
		return RawEdge{Src: record[0], VertexOnly: true}, nil
	case 2, 3:
		if record[0] == "" || record[1] == "" {
			return RawEdge{}, fmt.Errorf("%w: empty vertex id", ErrMalformedEdge)
		}
		edge := RawEdge{Src: record[0], Dst: record[1], Weight: 1}
		if len(record) == 3 {
			weight, err := strconv.ParseFloat(record[2], 64)
			if err != nil {
				return RawEdge{}, fmt.Errorf("%w: weight %q", ErrMalformedEdge, record[2])
			}
			if weight < 0 || math.IsNaN(weight) {
				return RawEdge{}, fmt.Errorf("%w: %v->%v weight=%v", ErrNegativeWeight, edge.Src, edge.Dst, weight)
			}
			edge.Weight = weight
		}
		return edge, nil
	default:
		return RawEdge{}, fmt.Errorf("%w: expected 1 to 3 columns, got %d", ErrMalformedEdge, len(record))
	}
}

// MemorySource serves a fixed edge list, mostly for tests and tools.
type MemorySource []RawEdge

func (s MemorySource) Edges(ctx context.Context) ([]RawEdge, error) {
	return append([]RawEdge(nil), s...), nil
}
