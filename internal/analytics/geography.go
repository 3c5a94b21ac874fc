package analytics

import (
	"github.com/shopspring/decimal"

	"streamsight/internal/validate"
)

// CountryStats is the per-country slice of the ledger.
type CountryStats struct {
	Net   decimal.Decimal
	Count int64
}

// Geography aggregates net revenue and transaction counts per country.
// Memory is bounded by distinct countries, not row count.
type Geography struct {
	byCountry map[string]CountryStats
	total     decimal.Decimal
}

// NewGeography constructs an empty geography accumulator.
func NewGeography() *Geography {
	return &Geography{
		byCountry: make(map[string]CountryStats),
		total:     decimal.Zero,
	}
}

// Observe folds one valid record into its country bucket.
func (g *Geography) Observe(rec validate.Record) {
	amount := rec.LineAmount()
	stats := g.byCountry[rec.Country]
	stats.Net = stats.Net.Add(amount)
	stats.Count++
	g.byCountry[rec.Country] = stats
	g.total = g.total.Add(amount)
}

// GeographyResult is the finalized country table.
type GeographyResult struct {
	Countries map[string]CountryStats
	Total     decimal.Decimal
}

// Result copies the accumulated state.
func (g *Geography) Result() GeographyResult {
	out := make(map[string]CountryStats, len(g.byCountry))
	for k, v := range g.byCountry {
		out[k] = v
	}
	return GeographyResult{Countries: out, Total: g.total}
}
