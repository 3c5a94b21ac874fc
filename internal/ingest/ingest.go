// Package ingest provides the lazy, pull-based row source the pipeline drains.
// A source is finite and non-restartable: once Next returns io.EOF the run is
// over and the cursor cannot be rewound.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmptyInput indicates the source has no header row at all.
var ErrEmptyInput = errors.New("ingest: input is empty or has no header")

// Row is one raw, untyped record keyed by column name, plus the 1-based line
// number it came from in the source file.
type Row struct {
	Line   int
	Fields map[string]string
}

// Cursor is a single forward cursor over raw rows. Next returns io.EOF once
// the sequence is exhausted.
type Cursor interface {
	Next() (Row, error)
}

var (
	_ Cursor = (*CSVSource)(nil)
	_ Cursor = (*SliceSource)(nil)
)

// CSVSource streams rows from CSV, one row in memory at a time.
type CSVSource struct {
	reader *csv.Reader
	header []string
	line   int
}

// NewCSVSource wraps an io.Reader and consumes the header row immediately.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	return &CSVSource{reader: cr, header: header, line: 1}, nil
}

// Header returns the column names in source order.
func (s *CSVSource) Header() []string {
	out := make([]string, len(s.header))
	copy(out, s.header)
	return out
}

// Next yields the next raw row. Short records leave trailing columns absent;
// long records drop the overflow. Both cases are the validator's problem, not
// an ingestion failure.
func (s *CSVSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("read csv row: %w", err)
	}
	s.line++

	fields := make(map[string]string, len(s.header))
	for i, name := range s.header {
		if i < len(record) {
			fields[name] = record[i]
		}
	}
	return Row{Line: s.line, Fields: fields}, nil
}

// File bundles a CSVSource with its backing file handle.
type File struct {
	*CSVSource
	f *os.File
}

// OpenFile opens a CSV file as a row source.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	src, err := NewCSVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{CSVSource: src, f: f}, nil
}

// Close releases the underlying file.
func (s *File) Close() error {
	return s.f.Close()
}

// SliceSource replays an in-memory row slice; used by tests and as the bridge
// for already-decoded inputs.
type SliceSource struct {
	rows []Row
	next int
}

// NewSliceSource builds a cursor over pre-built rows.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements Cursor.
func (s *SliceSource) Next() (Row, error) {
	if s.next >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}
