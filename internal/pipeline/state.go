// Package pipeline drives one lazy traversal of the input and owns every
// accumulator for the duration of a run.
package pipeline

import (
	"errors"
	"fmt"
)

// State is the orchestrator lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
	StateDone
	StateAborted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNoRows indicates the input produced no data rows at all.
var ErrNoRows = errors.New("pipeline: input contained no rows")

// RejectionRateError aborts a run whose input is too dirty to trust.
type RejectionRateError struct {
	Valid    int64
	Rejected int64
	Rate     float64
	Limit    float64
}

// Error implements error.
func (e *RejectionRateError) Error() string {
	return fmt.Sprintf(
		"pipeline: rejection rate %.4f exceeds limit %.4f (%d valid, %d rejected)",
		e.Rate, e.Limit, e.Valid, e.Rejected,
	)
}
