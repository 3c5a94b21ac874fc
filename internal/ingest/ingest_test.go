package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCSVSourceStreamsRows(t *testing.T) {
	input := "invoice_id,quantity\nA1,2\nA2,3\n"
	src, err := NewCSVSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	row, err := src.Next()
	if err != nil {
		t.Fatalf("first row: %v", err)
	}
	// 首行数据在第 2 行（第 1 行是表头）。
	if row.Line != 2 {
		t.Fatalf("line = %d, want 2", row.Line)
	}
	if row.Fields["invoice_id"] != "A1" || row.Fields["quantity"] != "2" {
		t.Fatalf("unexpected fields: %#v", row.Fields)
	}

	row, err = src.Next()
	if err != nil {
		t.Fatalf("second row: %v", err)
	}
	if row.Line != 3 || row.Fields["invoice_id"] != "A2" {
		t.Fatalf("unexpected second row: %+v", row)
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestCSVSourceEmptyInput(t *testing.T) {
	if _, err := NewCSVSource(strings.NewReader("")); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCSVSourceRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\n1,2,3,4\n"
	src, err := NewCSVSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	short, err := src.Next()
	if err != nil {
		t.Fatalf("short row: %v", err)
	}
	if _, ok := short.Fields["c"]; ok {
		t.Fatalf("short row should omit trailing column: %#v", short.Fields)
	}

	long, err := src.Next()
	if err != nil {
		t.Fatalf("long row: %v", err)
	}
	if len(long.Fields) != 3 {
		t.Fatalf("long row should drop overflow: %#v", long.Fields)
	}
}

func TestSliceSourceIsFinite(t *testing.T) {
	src := NewSliceSource([]Row{{Line: 2}, {Line: 3}})

	for want := 2; want <= 3; want++ {
		row, err := src.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if row.Line != want {
			t.Fatalf("line = %d, want %d", row.Line, want)
		}
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("EOF should be sticky, got %v", err)
	}
}
