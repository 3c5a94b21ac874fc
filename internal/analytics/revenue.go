// Package analytics holds the single-pass accumulators fed by the pipeline.
// All monetary arithmetic goes through shopspring/decimal; float64 never
// touches ledger values.
package analytics

import (
	"github.com/shopspring/decimal"

	"streamsight/internal/validate"
)

// Revenue accumulates gross/return totals plus daily and monthly breakdowns.
// Net is always derived as gross minus returns, never stored.
type Revenue struct {
	gross       decimal.Decimal
	returns     decimal.Decimal
	txCount     int64
	returnCount int64
	daily       map[string]decimal.Decimal
	monthly     map[string]decimal.Decimal
}

// RevenueResult is the finalized revenue table.
type RevenueResult struct {
	Gross            decimal.Decimal
	ReturnAmount     decimal.Decimal
	Net              decimal.Decimal
	TransactionCount int64
	ReturnCount      int64
	Daily            map[string]decimal.Decimal
	Monthly          map[string]decimal.Decimal
}

// NewRevenue constructs an empty revenue accumulator.
func NewRevenue() *Revenue {
	return &Revenue{
		gross:   decimal.Zero,
		returns: decimal.Zero,
		daily:   make(map[string]decimal.Decimal),
		monthly: make(map[string]decimal.Decimal),
	}
}

// Observe folds one valid record into the totals.
func (r *Revenue) Observe(rec validate.Record) {
	amount := rec.LineAmount()
	r.txCount++

	if rec.IsReturn() {
		r.returnCount++
		r.returns = r.returns.Add(amount.Abs())
	} else {
		r.gross = r.gross.Add(amount)
	}

	day := rec.Timestamp.Format("2006-01-02")
	month := rec.Timestamp.Format("2006-01")
	r.daily[day] = r.daily[day].Add(amount)
	r.monthly[month] = r.monthly[month].Add(amount)
}

// Result copies the accumulated state into an immutable table.
func (r *Revenue) Result() RevenueResult {
	daily := make(map[string]decimal.Decimal, len(r.daily))
	for k, v := range r.daily {
		daily[k] = v
	}
	monthly := make(map[string]decimal.Decimal, len(r.monthly))
	for k, v := range r.monthly {
		monthly[k] = v
	}
	return RevenueResult{
		Gross:            r.gross,
		ReturnAmount:     r.returns,
		Net:              r.gross.Sub(r.returns),
		TransactionCount: r.txCount,
		ReturnCount:      r.returnCount,
		Daily:            daily,
		Monthly:          monthly,
	}
}
