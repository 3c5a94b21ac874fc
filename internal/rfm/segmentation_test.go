package rfm

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func profile(id string, monetary string, frequency int64, lastSeen time.Time) Profile {
	return Profile{
		CustomerID: id,
		FirstSeen:  lastSeen.AddDate(0, -6, 0),
		LastSeen:   lastSeen,
		Frequency:  frequency,
		Monetary:   decimal.RequireFromString(monetary),
	}
}

func TestSegmentWhaleScenario(t *testing.T) {
	ref := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	profiles := []Profile{
		profile("A", "150.00", 2, ref),
		profile("B", "10.00", 1, ref),
		profile("C", "-5.00", 1, ref),
	}

	result := Segment(profiles, ref, 50)
	if result.WhaleCount != 1 {
		t.Fatalf("whale count = %d, want 1", result.WhaleCount)
	}
	if result.Whales[0].CustomerID != "A" {
		t.Fatalf("whale = %s, want A", result.Whales[0].CustomerID)
	}
	if want := 150.0 / 155.0; math.Abs(result.WhaleRevenueShare-want) > 1e-9 {
		t.Fatalf("revenue share = %f, want %f", result.WhaleRevenueShare, want)
	}
	if math.Abs(result.WhalePercentage-100.0/3.0) > 1e-9 {
		t.Fatalf("whale percentage = %f", result.WhalePercentage)
	}
}

func TestSegmentIncludesBoundaryTies(t *testing.T) {
	ref := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	profiles := []Profile{
		profile("A", "100.00", 1, ref),
		profile("B", "50.00", 1, ref),
		profile("C", "50.00", 1, ref),
		profile("D", "10.00", 1, ref),
	}

	result := Segment(profiles, ref, 50)
	// ceil(0.5*4)=2 ranks above the cutoff, and C ties B at the boundary.
	if result.WhaleCount != 3 {
		t.Fatalf("whale count = %d, want 3 (boundary tie included)", result.WhaleCount)
	}
	gotIDs := []string{result.Whales[0].CustomerID, result.Whales[1].CustomerID, result.Whales[2].CustomerID}
	if gotIDs[0] != "A" || gotIDs[1] != "B" || gotIDs[2] != "C" {
		t.Fatalf("whales = %v (ties must keep insertion order)", gotIDs)
	}
}

func TestSegmentEmptyProfiles(t *testing.T) {
	result := Segment(nil, time.Time{}, 99)
	if result.WhaleCount != 0 || result.TotalCustomers != 0 {
		t.Fatalf("empty segment = %+v", result)
	}
	if !result.TotalMonetary.Equal(decimal.Zero) {
		t.Fatalf("total monetary = %s, want 0", result.TotalMonetary)
	}
}

func TestSegmentHighPercentileSmallBase(t *testing.T) {
	ref := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	profiles := []Profile{
		profile("A", "100.00", 1, ref),
		profile("B", "10.00", 1, ref),
	}

	// Top 1% of two customers is less than one whole customer.
	result := Segment(profiles, ref, 99)
	if result.WhaleCount != 0 {
		t.Fatalf("whale count = %d, want 0", result.WhaleCount)
	}
}

func TestSegmentAgainstBruteForce(t *testing.T) {
	ref := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(99))

	var profiles []Profile
	totalF := 0.0
	for i := 0; i < 500; i++ {
		cents := rng.Intn(1_000_00)
		m := decimal.New(int64(cents), -2)
		profiles = append(profiles, Profile{
			CustomerID: "cust-" + strconv.Itoa(i),
			FirstSeen:  ref.AddDate(0, -rng.Intn(12)-1, 0),
			LastSeen:   ref.AddDate(0, 0, -rng.Intn(300)),
			Frequency:  int64(rng.Intn(40) + 1),
			Monetary:   m,
		})
		totalF += m.InexactFloat64()
	}

	const percentile = 95.0
	result := Segment(profiles, ref, percentile)

	// Brute force: sort descending, take the top ranks above the nearest-rank
	// cutoff, then sum.
	values := make([]float64, len(profiles))
	for i, p := range profiles {
		values[i] = p.Monetary.InexactFloat64()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	n := len(values)
	count := n - int(math.Ceil(percentile/100*float64(n)))
	boundary := values[count-1]
	sum := 0.0
	for _, v := range values {
		if v >= boundary {
			sum += v
		}
	}

	if math.Abs(result.WhaleRevenueShare-sum/totalF) > 1e-9 {
		t.Fatalf("share = %.12f, brute force = %.12f", result.WhaleRevenueShare, sum/totalF)
	}
}

func TestScoresUseQuintiles(t *testing.T) {
	ref := time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC)
	var profiles []Profile
	for i := 1; i <= 10; i++ {
		profiles = append(profiles, Profile{
			CustomerID: "cust-" + strconv.Itoa(i),
			FirstSeen:  ref.AddDate(-1, 0, 0),
			LastSeen:   ref.AddDate(0, 0, -(11-i)*10),
			Frequency:  int64(i),
			Monetary:   decimal.NewFromInt(int64(i * 100)),
		})
	}

	result := Segment(profiles, ref, 90)
	if len(result.Scores) != 10 {
		t.Fatalf("scores = %d, want 10", len(result.Scores))
	}

	// Best customer: most money and most frequent, most recently seen.
	top := result.Scores[0]
	if top.CustomerID != "cust-10" {
		t.Fatalf("top scorer = %s, want cust-10", top.CustomerID)
	}
	if top.MonetaryScore != 5 || top.FrequencyScore != 5 {
		t.Fatalf("top scores = %+v, want 5s", top)
	}
	if top.RFM != "555" {
		t.Fatalf("top RFM = %s, want 555", top.RFM)
	}

	bottom := result.Scores[len(result.Scores)-1]
	if bottom.MonetaryScore != 1 || bottom.FrequencyScore != 1 || bottom.RecencyScore != 1 {
		t.Fatalf("bottom scores = %+v, want 1s", bottom)
	}
}
