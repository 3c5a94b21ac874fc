package pipeline

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"streamsight/internal/config"
	"streamsight/internal/ingest"
	"streamsight/internal/validate"
)

func testConfig() *config.Config {
	return &config.Config{
		Analytics: config.AnalyticsConfig{
			TopKProducts:    10,
			ZScoreThreshold: 3.0,
			WhalePercentile: 50,
			MaxRejectRate:   1.0,
			MinSampleRows:   1000,
			EnableAnomalies: true,
			EnableRFM:       true,
		},
	}
}

func testRunner(cfg *config.Config) *Runner {
	return New(cfg, zerolog.Nop())
}

func makeRow(line int, invoice, qty, price, customer string) ingest.Row {
	return ingest.Row{
		Line: line,
		Fields: map[string]string{
			validate.ColInvoice:     invoice,
			validate.ColProductCode: "SKU-" + invoice,
			validate.ColDescription: "desc",
			validate.ColQuantity:    qty,
			validate.ColUnitPrice:   price,
			validate.ColTimestamp:   "2011-03-" + pad(line) + " 10:00:00",
			validate.ColCustomerID:  customer,
			validate.ColCountry:     "United Kingdom",
		},
	}
}

func pad(n int) string {
	day := n%27 + 1
	if day < 10 {
		return "0" + strconv.Itoa(day)
	}
	return strconv.Itoa(day)
}

func scenarioRows() []ingest.Row {
	return []ingest.Row{
		makeRow(2, "1001", "1", "100.00", "A"),
		makeRow(3, "1002", "1", "50.00", "A"),
		makeRow(4, "1003", "1", "10.00", "B"),
		makeRow(5, "C1004", "-1", "5.00", "C"),
	}
}

func TestRunScenarioSnapshot(t *testing.T) {
	runner := testRunner(testConfig())

	snapshot, err := runner.Run(context.Background(), ingest.NewSliceSource(scenarioRows()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if runner.State() != StateDone {
		t.Fatalf("state = %s, want done", runner.State())
	}

	if got := snapshot.Revenue.Gross.String(); got != "160" {
		t.Fatalf("gross = %s, want 160", got)
	}
	if got := snapshot.Revenue.ReturnAmount.String(); got != "5" {
		t.Fatalf("return = %s, want 5", got)
	}
	if got := snapshot.Revenue.Net.String(); got != "155" {
		t.Fatalf("net = %s, want 155", got)
	}

	if snapshot.RowsTotal != 4 || snapshot.RowsValid != 4 || snapshot.RowsRejected != 0 {
		t.Fatalf("row counts = (%d, %d, %d)", snapshot.RowsTotal, snapshot.RowsValid, snapshot.RowsRejected)
	}
	if snapshot.Completeness != 1.0 {
		t.Fatalf("completeness = %f, want 1.0", snapshot.Completeness)
	}

	// Customer monetary: A=150, B=10, C=-5. At the 50th percentile the top
	// half by monetary value is A alone.
	if snapshot.RFM.TotalCustomers != 3 {
		t.Fatalf("customers = %d, want 3", snapshot.RFM.TotalCustomers)
	}
	if snapshot.RFM.WhaleCount != 1 || snapshot.RFM.Whales[0].CustomerID != "A" {
		t.Fatalf("whales = %+v", snapshot.RFM.Whales)
	}
	if want := 150.0 / 155.0; math.Abs(snapshot.RFM.WhaleRevenueShare-want) > 1e-9 {
		t.Fatalf("whale revenue share = %f, want %f", snapshot.RFM.WhaleRevenueShare, want)
	}
}

func TestRunRoutesRejectionsToDeadLetter(t *testing.T) {
	rows := scenarioRows()

	missing := makeRow(6, "1005", "", "1.00", "D")
	badPrice := makeRow(7, "1006", "1", "abc", "D")
	rows = append(rows, missing, badPrice)

	runner := testRunner(testConfig())
	snapshot, err := runner.Run(context.Background(), ingest.NewSliceSource(rows))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if snapshot.RowsValid != 4 || snapshot.RowsRejected != 2 {
		t.Fatalf("counts = (%d, %d), want (4, 2)", snapshot.RowsValid, snapshot.RowsRejected)
	}
	if snapshot.RowsValid+snapshot.RowsRejected != snapshot.RowsTotal {
		t.Fatal("valid + rejected must equal total")
	}
	if want := 4.0 / 6.0; snapshot.Completeness != want {
		t.Fatalf("completeness = %f, want %f", snapshot.Completeness, want)
	}

	if len(snapshot.DeadLetters) != 2 {
		t.Fatalf("dead letters = %d, want 2", len(snapshot.DeadLetters))
	}
	if snapshot.DeadLetters[0].Reason != validate.ReasonMissingField || snapshot.DeadLetters[0].Line != 6 {
		t.Fatalf("first dead letter = %+v", snapshot.DeadLetters[0])
	}
	if snapshot.DeadLetters[1].Reason != validate.ReasonBadPrice || snapshot.DeadLetters[1].Line != 7 {
		t.Fatalf("second dead letter = %+v", snapshot.DeadLetters[1])
	}

	// Rejected rows touch no accumulator.
	if got := snapshot.Revenue.Net.String(); got != "155" {
		t.Fatalf("net = %s, want 155", got)
	}
	if snapshot.Revenue.TransactionCount != 4 {
		t.Fatalf("transaction count = %d, want 4", snapshot.Revenue.TransactionCount)
	}
	if snapshot.RFM.TotalCustomers != 3 {
		t.Fatalf("customers = %d, want 3", snapshot.RFM.TotalCustomers)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	first, err := testRunner(testConfig()).Run(context.Background(), ingest.NewSliceSource(scenarioRows()))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := testRunner(testConfig()).Run(context.Background(), ingest.NewSliceSource(scenarioRows()))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !first.Revenue.Gross.Equal(second.Revenue.Gross) ||
		!first.Revenue.Net.Equal(second.Revenue.Net) ||
		!first.Revenue.ReturnAmount.Equal(second.Revenue.ReturnAmount) {
		t.Fatal("revenue differs between identical runs")
	}
	if first.Completeness != second.Completeness {
		t.Fatal("completeness differs between identical runs")
	}
	if first.AmountMean != second.AmountMean || first.AmountStdDev != second.AmountStdDev {
		t.Fatal("moments differ between identical runs")
	}
	if first.RFM.WhaleCount != second.RFM.WhaleCount ||
		first.RFM.WhaleRevenueShare != second.RFM.WhaleRevenueShare {
		t.Fatal("whale results differ between identical runs")
	}
	if len(first.Anomalies) != len(second.Anomalies) {
		t.Fatal("anomaly counts differ between identical runs")
	}
}

func TestRunEmptyInputIsFatal(t *testing.T) {
	runner := testRunner(testConfig())

	_, err := runner.Run(context.Background(), ingest.NewSliceSource(nil))
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if runner.State() != StateAborted {
		t.Fatalf("state = %s, want aborted", runner.State())
	}
}

func TestRunCircuitBreaker(t *testing.T) {
	cfg := testConfig()
	cfg.Analytics.MinSampleRows = 4
	cfg.Analytics.MaxRejectRate = 0.5

	rows := []ingest.Row{
		makeRow(2, "1001", "1", "1.00", "A"),
		makeRow(3, "1002", "x", "1.00", "A"),
		makeRow(4, "1003", "x", "1.00", "A"),
		makeRow(5, "1004", "x", "1.00", "A"),
		makeRow(6, "1005", "1", "1.00", "A"),
	}

	runner := testRunner(cfg)
	_, err := runner.Run(context.Background(), ingest.NewSliceSource(rows))

	var rateErr *RejectionRateError
	if !errors.As(err, &rateErr) {
		t.Fatalf("熔断应返回 RejectionRateError, 实际 %v", err)
	}
	if rateErr.Rejected != 3 || rateErr.Valid != 1 {
		t.Fatalf("breaker stats = %+v", rateErr)
	}
	if rateErr.Rate != 0.75 {
		t.Fatalf("rate = %f, want 0.75", rateErr.Rate)
	}
	if runner.State() != StateAborted {
		t.Fatalf("state = %s, want aborted", runner.State())
	}
}

func TestRunBreakerWaitsForMinimumSample(t *testing.T) {
	cfg := testConfig()
	cfg.Analytics.MinSampleRows = 100
	cfg.Analytics.MaxRejectRate = 0.1

	// 50% rejected, but below the minimum sample the breaker stays quiet.
	rows := []ingest.Row{
		makeRow(2, "1001", "1", "1.00", "A"),
		makeRow(3, "1002", "x", "1.00", "A"),
	}

	if _, err := testRunner(cfg).Run(context.Background(), ingest.NewSliceSource(rows)); err != nil {
		t.Fatalf("run should succeed below minimum sample: %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := testRunner(testConfig())
	_, err := runner.Run(ctx, ingest.NewSliceSource(scenarioRows()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runner.State() != StateAborted {
		t.Fatalf("state = %s, want aborted", runner.State())
	}
}

func TestRunDisabledStages(t *testing.T) {
	cfg := testConfig()
	cfg.Analytics.EnableAnomalies = false
	cfg.Analytics.EnableRFM = false

	snapshot, err := testRunner(cfg).Run(context.Background(), ingest.NewSliceSource(scenarioRows()))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if snapshot.Anomalies != nil {
		t.Fatal("anomalies should be skipped when disabled")
	}
	if snapshot.RFM.TotalCustomers != 0 {
		t.Fatal("rfm should be skipped when disabled")
	}
	if got := snapshot.Revenue.Net.String(); got != "155" {
		t.Fatalf("ledger must still run: net = %s", got)
	}
}
