package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// AmountSample is one validated amount buffered for the scoring pass.
// Value is the absolute line amount as float64, the quantity the moments saw.
type AmountSample struct {
	Invoice    string
	CustomerID string
	Amount     decimal.Decimal
	Value      float64
}

// Anomaly flags a transaction whose amount sits beyond the z-score threshold.
type Anomaly struct {
	Invoice    string
	CustomerID string
	Amount     decimal.Decimal
	ZScore     float64
	Threshold  float64
}

// ScoreAmounts is the second pass of anomaly detection: it replays the
// buffered amounts against the finalized moments. With fewer than two
// observations, or zero variance, nothing is flagged. Results come back
// ordered by |z| descending.
func ScoreAmounts(samples []AmountSample, moments *Moments, threshold float64) []Anomaly {
	if moments.StdDev() == 0 {
		return nil
	}

	var out []Anomaly
	for _, s := range samples {
		z := moments.ZScore(s.Value)
		if math.Abs(z) < threshold {
			continue
		}
		out = append(out, Anomaly{
			Invoice:    s.Invoice,
			CustomerID: s.CustomerID,
			Amount:     s.Amount,
			ZScore:     z,
			Threshold:  threshold,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].ZScore) > math.Abs(out[j].ZScore)
	})
	return out
}
