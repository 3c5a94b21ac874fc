package rfm

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Score is the RFM scorecard for one customer.
type Score struct {
	CustomerID     string
	RecencyDays    int
	Frequency      int64
	Monetary       decimal.Decimal
	RecencyScore   int
	FrequencyScore int
	MonetaryScore  int
	RFM            string
	IsWhale        bool
}

// Result is the finalized segmentation output. Scores and Whales are ordered
// by monetary value descending, ties in first-sighting order.
type Result struct {
	Scores            []Score
	Whales            []Score
	WhaleCount        int
	WhalePercentage   float64
	WhaleRevenue      decimal.Decimal
	WhaleRevenueShare float64
	TotalCustomers    int
	TotalMonetary     decimal.Decimal
}

// Segment scores the finalized profile set and classifies whales. This is the
// cheap second pass: it runs over the per-customer aggregates, bounded by
// customer cardinality.
//
// Whale cutoff is nearest-rank: with n customers sorted by monetary value
// descending, the top n-ceil(p/100*n) ranks are whales, and every customer
// tied with the boundary value is included as well. Zero customers yields an
// empty result, not an error.
func Segment(profiles []Profile, reference time.Time, percentile float64) Result {
	if len(profiles) == 0 {
		return Result{
			WhaleRevenue:  decimal.Zero,
			TotalMonetary: decimal.Zero,
		}
	}

	if reference.IsZero() {
		for _, p := range profiles {
			if p.LastSeen.After(reference) {
				reference = p.LastSeen
			}
		}
	}

	scores := buildScores(profiles, reference)

	// Stable sort keeps insertion order for equal monetary values, so output
	// ordering is deterministic without affecting whale inclusion.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Monetary.Cmp(scores[j].Monetary) > 0
	})

	total := decimal.Zero
	for _, s := range scores {
		total = total.Add(s.Monetary)
	}

	n := len(scores)
	whaleCount := n - int(math.Ceil(percentile/100*float64(n)))
	if whaleCount > 0 {
		boundary := scores[whaleCount-1].Monetary
		for whaleCount < n && scores[whaleCount].Monetary.Equal(boundary) {
			whaleCount++
		}
		for i := 0; i < whaleCount; i++ {
			scores[i].IsWhale = true
		}
	}

	whales := make([]Score, whaleCount)
	copy(whales, scores[:whaleCount])

	whaleRevenue := decimal.Zero
	for _, w := range whales {
		whaleRevenue = whaleRevenue.Add(w.Monetary)
	}

	share := 0.0
	if !total.IsZero() {
		share = whaleRevenue.Div(total).InexactFloat64()
	}

	return Result{
		Scores:            scores,
		Whales:            whales,
		WhaleCount:        whaleCount,
		WhalePercentage:   float64(whaleCount) / float64(n) * 100,
		WhaleRevenue:      whaleRevenue,
		WhaleRevenueShare: share,
		TotalCustomers:    n,
		TotalMonetary:     total,
	}
}

func buildScores(profiles []Profile, reference time.Time) []Score {
	recency := make([]float64, len(profiles))
	frequency := make([]float64, len(profiles))
	monetary := make([]float64, len(profiles))
	for i, p := range profiles {
		recency[i] = reference.Sub(p.LastSeen).Hours() / 24
		frequency[i] = float64(p.Frequency)
		monetary[i] = p.Monetary.InexactFloat64()
	}

	rq := quintiles(recency)
	fq := quintiles(frequency)
	mq := quintiles(monetary)

	scores := make([]Score, len(profiles))
	for i, p := range profiles {
		// Recency scores in reverse: more recent is better.
		r := scoreAgainst(recency[i], rq, true)
		f := scoreAgainst(frequency[i], fq, false)
		m := scoreAgainst(monetary[i], mq, false)
		scores[i] = Score{
			CustomerID:     p.CustomerID,
			RecencyDays:    int(recency[i]),
			Frequency:      p.Frequency,
			Monetary:       p.Monetary,
			RecencyScore:   r,
			FrequencyScore: f,
			MonetaryScore:  m,
			RFM:            fmt.Sprintf("%d%d%d", r, f, m),
		}
	}
	return scores
}

// quintiles returns nearest-rank 20/40/60/80/100th percentile boundaries.
func quintiles(values []float64) [5]float64 {
	var out [5]float64
	if len(values) == 0 {
		return out
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	for i, q := range []float64{20, 40, 60, 80, 100} {
		rank := int(math.Ceil(q / 100 * float64(len(sorted))))
		if rank < 1 {
			rank = 1
		}
		out[i] = sorted[rank-1]
	}
	return out
}

func scoreAgainst(value float64, bounds [5]float64, reverse bool) int {
	for i, threshold := range bounds {
		if value <= threshold {
			if reverse {
				return 5 - i
			}
			return i + 1
		}
	}
	if reverse {
		return 1
	}
	return 5
}
