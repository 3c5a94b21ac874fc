package analytics

import "streamsight/internal/validate"

// DeadLetter is the append-only sink for rejected rows. Entries are never
// overwritten or dropped, and arrival order is preserved.
type DeadLetter struct {
	rows  []validate.Rejection
	valid int64
}

// NewDeadLetter constructs an empty sink.
func NewDeadLetter() *DeadLetter {
	return &DeadLetter{}
}

// Reject appends one rejected row.
func (d *DeadLetter) Reject(r validate.Rejection) {
	d.rows = append(d.rows, r)
}

// RecordValid counts a row that passed validation, for the completeness ratio.
func (d *DeadLetter) RecordValid() {
	d.valid++
}

// ValidCount returns rows that passed validation.
func (d *DeadLetter) ValidCount() int64 { return d.valid }

// RejectedCount returns rows routed here.
func (d *DeadLetter) RejectedCount() int64 { return int64(len(d.rows)) }

// Completeness is valid / (valid + rejected); 1.0 when no rows were seen.
func (d *DeadLetter) Completeness() float64 {
	total := d.valid + int64(len(d.rows))
	if total == 0 {
		return 1.0
	}
	return float64(d.valid) / float64(total)
}

// Rows returns a copy of the rejected rows in arrival order.
func (d *DeadLetter) Rows() []validate.Rejection {
	out := make([]validate.Rejection, len(d.rows))
	copy(out, d.rows)
	return out
}
