package analytics

import "streamsight/internal/validate"

// Quality counts soft gaps in otherwise-valid rows: guest checkouts and blank
// descriptions do not fail validation but matter for reporting.
type Quality struct {
	rows               int64
	missingCustomer    int64
	missingDescription int64
}

// QualityResult is the finalized data-quality table.
type QualityResult struct {
	ValidRows          int64
	MissingCustomerID  int64
	MissingDescription int64
	FieldCompleteness  float64
}

// NewQuality constructs an empty quality tracker.
func NewQuality() *Quality {
	return &Quality{}
}

// Observe inspects one valid record.
func (q *Quality) Observe(rec validate.Record) {
	q.rows++
	if rec.CustomerID == "" {
		q.missingCustomer++
	}
	if rec.Description == "" {
		q.missingDescription++
	}
}

// Result copies the counters. FieldCompleteness is the fraction of valid rows
// carrying both optional fields; zero rows yields 0 by convention (row-level
// completeness lives on the dead-letter sink instead).
func (q *Quality) Result() QualityResult {
	completeness := 0.0
	if q.rows > 0 {
		missing := q.missingCustomer
		if q.missingDescription > missing {
			missing = q.missingDescription
		}
		completeness = float64(q.rows-missing) / float64(q.rows)
	}
	return QualityResult{
		ValidRows:          q.rows,
		MissingCustomerID:  q.missingCustomer,
		MissingDescription: q.missingDescription,
		FieldCompleteness:  completeness,
	}
}
