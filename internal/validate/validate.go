// Package validate turns raw rows into well-typed transaction records.
// Every failure mode is a value; nothing here panics or returns an error.
package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"streamsight/internal/ingest"
)

// Column names expected on the input, matching the retail dataset export.
const (
	ColInvoice     = "invoice_id"
	ColProductCode = "product_code"
	ColDescription = "description"
	ColQuantity    = "quantity"
	ColUnitPrice   = "unit_price"
	ColTimestamp   = "timestamp"
	ColCustomerID  = "customer_id"
	ColCountry     = "country"
)

// requiredColumns in check order; first missing one wins.
var requiredColumns = []string{
	ColInvoice, ColProductCode, ColQuantity, ColUnitPrice, ColTimestamp, ColCountry,
}

// Reason classifies why a row was rejected.
type Reason string

const (
	ReasonMissingField Reason = "missing-required-field"
	ReasonBadQuantity  Reason = "non-numeric-quantity"
	ReasonBadPrice     Reason = "non-numeric-price"
	ReasonBadDate      Reason = "unparseable-date"
)

// Rejection is a row that failed validation, with enough context to audit it.
type Rejection struct {
	Line   int
	Fields map[string]string
	Reason Reason
	Field  string
}

// Record is an immutable validated transaction. CustomerID is empty for guest
// checkouts.
type Record struct {
	Invoice     string
	ProductCode string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Timestamp   time.Time
	CustomerID  string
	Country     string
}

// LineAmount is quantity * unit price; negative for returns.
func (r Record) LineAmount() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity))
}

// IsReturn reports whether the line is a return. The quantity sign is
// authoritative so the gross/return/net invariant stays purely arithmetic.
func (r Record) IsReturn() bool {
	return r.Quantity < 0
}

// IsCancellation reports the retail convention of prefixing cancelled
// invoices with 'C'. Informational only; it never feeds the ledger.
func (r Record) IsCancellation() bool {
	return strings.HasPrefix(r.Invoice, "C")
}

// Validator parses raw rows under a configured set of date layouts.
type Validator struct {
	layouts []string
}

// DefaultDateLayouts cover the formats seen in the retail exports.
var DefaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"2/1/2006 15:04",
	"2006-01-02",
	"1/2/2006",
}

// NewValidator builds a validator; an empty layout list falls back to the
// defaults.
func NewValidator(layouts []string) *Validator {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &Validator{layouts: layouts}
}

// Validate checks one raw row. Exactly one of the results is meaningful: a
// nil Rejection means the Record is valid.
func (v *Validator) Validate(row ingest.Row) (Record, *Rejection) {
	for _, col := range requiredColumns {
		if strings.TrimSpace(row.Fields[col]) == "" {
			return Record{}, v.reject(row, ReasonMissingField, col)
		}
	}

	quantity, err := strconv.ParseInt(strings.TrimSpace(row.Fields[ColQuantity]), 10, 64)
	if err != nil {
		return Record{}, v.reject(row, ReasonBadQuantity, ColQuantity)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(row.Fields[ColUnitPrice]))
	if err != nil || price.IsNegative() {
		return Record{}, v.reject(row, ReasonBadPrice, ColUnitPrice)
	}

	ts, ok := v.parseTimestamp(strings.TrimSpace(row.Fields[ColTimestamp]))
	if !ok {
		return Record{}, v.reject(row, ReasonBadDate, ColTimestamp)
	}

	return Record{
		Invoice:     strings.TrimSpace(row.Fields[ColInvoice]),
		ProductCode: strings.TrimSpace(row.Fields[ColProductCode]),
		Description: strings.TrimSpace(row.Fields[ColDescription]),
		Quantity:    quantity,
		UnitPrice:   price.Round(2),
		Timestamp:   ts,
		CustomerID:  strings.TrimSpace(row.Fields[ColCustomerID]),
		Country:     strings.TrimSpace(row.Fields[ColCountry]),
	}, nil
}

func (v *Validator) parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range v.layouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (v *Validator) reject(row ingest.Row, reason Reason, field string) *Rejection {
	fields := make(map[string]string, len(row.Fields))
	for k, val := range row.Fields {
		fields[k] = val
	}
	return &Rejection{
		Line:   row.Line,
		Fields: fields,
		Reason: reason,
		Field:  field,
	}
}
