package pipeline

import (
	"time"

	"streamsight/internal/analytics"
	"streamsight/internal/rfm"
	"streamsight/internal/validate"
)

// Snapshot is the immutable result of one finished run. It is handed to the
// reporting and storage collaborators as a copy; no accumulator leaks out.
type Snapshot struct {
	StartedAt  time.Time
	FinishedAt time.Time

	RowsTotal    int64
	RowsValid    int64
	RowsRejected int64
	Completeness float64

	Revenue   analytics.RevenueResult
	Geography analytics.GeographyResult
	Products  analytics.ProductsResult
	Returns   analytics.ReturnsResult
	Quality   analytics.QualityResult

	AmountMean   float64
	AmountStdDev float64
	Anomalies    []analytics.Anomaly

	RFM rfm.Result

	DeadLetters []validate.Rejection
}
