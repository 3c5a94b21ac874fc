// Package rfm builds customer-value segmentation: per-customer
// recency/frequency/monetary profiles and whale classification over the
// derived aggregate set.
package rfm

import (
	"time"

	"github.com/shopspring/decimal"

	"streamsight/internal/validate"
)

// Profile is the aggregate for one distinct customer. Memory across a run is
// O(distinct customers), never O(rows).
type Profile struct {
	CustomerID string
	FirstSeen  time.Time
	LastSeen   time.Time
	Frequency  int64
	Monetary   decimal.Decimal
}

// Aggregator folds valid records into customer profiles. Guest transactions
// (empty customer id) are skipped entirely.
type Aggregator struct {
	profiles map[string]*Profile
	order    []string
	skipped  int64
}

// NewAggregator constructs an empty customer aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{profiles: make(map[string]*Profile)}
}

// Observe updates or creates the profile for the record's customer. Returns
// carry a negative line amount and therefore reduce monetary value.
func (a *Aggregator) Observe(rec validate.Record) {
	if rec.CustomerID == "" {
		a.skipped++
		return
	}

	amount := rec.LineAmount()
	p, ok := a.profiles[rec.CustomerID]
	if !ok {
		a.order = append(a.order, rec.CustomerID)
		a.profiles[rec.CustomerID] = &Profile{
			CustomerID: rec.CustomerID,
			FirstSeen:  rec.Timestamp,
			LastSeen:   rec.Timestamp,
			Frequency:  1,
			Monetary:   amount,
		}
		return
	}

	p.Frequency++
	p.Monetary = p.Monetary.Add(amount)
	if rec.Timestamp.Before(p.FirstSeen) {
		p.FirstSeen = rec.Timestamp
	}
	if rec.Timestamp.After(p.LastSeen) {
		p.LastSeen = rec.Timestamp
	}
}

// Profiles returns copies of all profiles in first-sighting order.
func (a *Aggregator) Profiles() []Profile {
	out := make([]Profile, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.profiles[id])
	}
	return out
}

// Len is the distinct customer count.
func (a *Aggregator) Len() int { return len(a.profiles) }

// SkippedGuests counts records ignored for having no customer id.
func (a *Aggregator) SkippedGuests() int64 { return a.skipped }

// MaxDate is the latest transaction timestamp across all profiles; the
// default RFM reference date. ok is false when no customers exist.
func (a *Aggregator) MaxDate() (time.Time, bool) {
	if len(a.order) == 0 {
		return time.Time{}, false
	}
	var max time.Time
	for _, id := range a.order {
		if ls := a.profiles[id].LastSeen; ls.After(max) {
			max = ls
		}
	}
	return max, true
}
