package database

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// FileSink writes one CSV file per partition, named
// <partition>_<algorithm>.csv[.gz] inside a directory.
type FileSink struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	gz     *gzip.Writer
	csv    *csv.Writer
	record []string
}

// FileName is the name of the result file of partitionId.
func FileName(algorithm string, partitionId int, compress bool) string {
	name := fmt.Sprintf("%04d_%s.csv", partitionId, algorithm)
	if compress {
		name += ".gz"
	}
	return name
}

func NewFileSink(dir string, algorithm string, partitionId int, compress bool) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileName(algorithm, partitionId, compress))
	file, err := os.Create(path)
	if err != nil {
		log.Printf("NewFileSink: could not create %v: %v\n", path, err)
		return nil, err
	}

	s := &FileSink{path: path, file: file, buf: bufio.NewWriter(file)}
	var w io.Writer = s.buf
	if compress {
		s.gz = gzip.NewWriter(s.buf)
		w = s.gz
	}
	s.csv = csv.NewWriter(w)
	return s, nil
}

func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) WriteDistance(row DistanceRow) error {
	s.record = append(s.record[:0], row.Vertex, FormatDistance(row.Distance))
	return s.csv.Write(s.record)
}

func (s *FileSink) WritePair(row PairRow) error {
	s.record = append(s.record[:0], row.Src, row.Dst, FormatDistance(row.Distance))
	return s.csv.Write(s.record)
}

func (s *FileSink) Close(ctx context.Context) error {
	s.csv.Flush()
	err := s.csv.Error()
	if s.gz != nil {
		if cerr := s.gz.Close(); err == nil {
			err = cerr
		}
	}
	if ferr := s.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// FormatDistance prints d with the fewest digits that parse back to d.
func FormatDistance(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}
