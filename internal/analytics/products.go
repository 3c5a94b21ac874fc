package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"streamsight/internal/validate"
)

// ProductStats is the per-product slice of the ledger.
type ProductStats struct {
	Code        string
	Description string
	Net         decimal.Decimal
	Quantity    int64
	Count       int64
}

// Products aggregates revenue, quantity, and counts per product code.
type Products struct {
	byCode map[string]*ProductStats
	total  decimal.Decimal
}

// ProductsResult is the finalized product table.
type ProductsResult struct {
	Top          []ProductStats
	ProductCount int
	Total        decimal.Decimal
}

// NewProducts constructs an empty product accumulator.
func NewProducts() *Products {
	return &Products{
		byCode: make(map[string]*ProductStats),
		total:  decimal.Zero,
	}
}

// Observe folds one valid record into its product bucket. The latest
// non-empty description wins.
func (p *Products) Observe(rec validate.Record) {
	amount := rec.LineAmount()
	stats, ok := p.byCode[rec.ProductCode]
	if !ok {
		stats = &ProductStats{Code: rec.ProductCode}
		p.byCode[rec.ProductCode] = stats
	}
	stats.Net = stats.Net.Add(amount)
	stats.Quantity += rec.Quantity
	stats.Count++
	if rec.Description != "" {
		stats.Description = rec.Description
	}
	p.total = p.total.Add(amount)
}

// Result returns the top-k products by net revenue plus summary totals.
// Ties sort by product code for deterministic output.
func (p *Products) Result(topK int) ProductsResult {
	all := make([]ProductStats, 0, len(p.byCode))
	for _, stats := range p.byCode {
		all = append(all, *stats)
	}
	sort.Slice(all, func(i, j int) bool {
		if cmp := all[i].Net.Cmp(all[j].Net); cmp != 0 {
			return cmp > 0
		}
		return all[i].Code < all[j].Code
	})

	if topK > 0 && topK < len(all) {
		all = all[:topK]
	}
	return ProductsResult{
		Top:          all,
		ProductCount: len(p.byCode),
		Total:        p.total,
	}
}
