package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"streamsight/internal/validate"
)

// topReturnedLimit caps the returned-product leaderboard in the result.
const topReturnedLimit = 10

// Returns tracks return frequency and the revenue impact of returned lines.
type Returns struct {
	total         int64
	returns       int64
	cancellations int64
	impact        decimal.Decimal
	byProduct     map[string]int64
}

// ReturnedProduct pairs a product code with its return count.
type ReturnedProduct struct {
	Code  string
	Count int64
}

// ReturnsResult is the finalized returns table.
type ReturnsResult struct {
	TotalTransactions  int64
	ReturnTransactions int64
	Cancellations      int64
	ReturnRate         float64
	RevenueImpact      decimal.Decimal
	TopReturned        []ReturnedProduct
}

// NewReturns constructs an empty returns accumulator.
func NewReturns() *Returns {
	return &Returns{
		impact:    decimal.Zero,
		byProduct: make(map[string]int64),
	}
}

// Observe folds one valid record into the return stats.
func (r *Returns) Observe(rec validate.Record) {
	r.total++
	if rec.IsCancellation() {
		r.cancellations++
	}
	if !rec.IsReturn() {
		return
	}
	r.returns++
	r.impact = r.impact.Add(rec.LineAmount())
	r.byProduct[rec.ProductCode]++
}

// Result copies the accumulated state. ReturnRate is a fraction in [0, 1].
func (r *Returns) Result() ReturnsResult {
	rate := 0.0
	if r.total > 0 {
		rate = float64(r.returns) / float64(r.total)
	}

	top := make([]ReturnedProduct, 0, len(r.byProduct))
	for code, count := range r.byProduct {
		top = append(top, ReturnedProduct{Code: code, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Code < top[j].Code
	})
	if len(top) > topReturnedLimit {
		top = top[:topReturnedLimit]
	}

	return ReturnsResult{
		TotalTransactions:  r.total,
		ReturnTransactions: r.returns,
		Cancellations:      r.cancellations,
		ReturnRate:         rate,
		RevenueImpact:      r.impact,
		TopReturned:        top,
	}
}
