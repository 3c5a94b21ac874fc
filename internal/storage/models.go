package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RunRecord is one archived pipeline run.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	RowsTotal    int64
	RowsValid    int64
	RowsRejected int64
	Completeness float64
	GrossRevenue decimal.Decimal
	NetRevenue   decimal.Decimal
	ReturnAmount decimal.Decimal
	AnomalyCount int64
	WhaleCount   int64
	CreatedAt    time.Time
}

// AnomalyRecord is one flagged transaction attached to a run.
type AnomalyRecord struct {
	RunID      int64
	Invoice    string
	CustomerID string
	Amount     decimal.Decimal
	ZScore     float64
	Threshold  float64
}

// DeadLetterRecord is one rejected row attached to a run. Raw fields are
// stored as JSON since rejected rows have no fixed shape.
type DeadLetterRecord struct {
	RunID      int64
	LineNumber int
	Reason     string
	Fields     json.RawMessage
}
