package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"streamsight/internal/pipeline"
)

// writeSummary renders the human-readable SUMMARY.md.
func (w *Writer) writeSummary(s *pipeline.Snapshot) error {
	path := filepath.Join(w.cfg.Output.ReportsDir(), "SUMMARY.md")
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	var b strings.Builder
	b.WriteString("# StreamSight Analytics Report\n\n")

	b.WriteString("## Revenue Overview\n\n")
	fmt.Fprintf(&b, "- **Gross Revenue**: %s\n", formatMoney(s.Revenue.Gross))
	fmt.Fprintf(&b, "- **Net Revenue**: %s\n", formatMoney(s.Revenue.Net))
	fmt.Fprintf(&b, "- **Return Amount**: %s\n", formatMoney(s.Revenue.ReturnAmount))
	fmt.Fprintf(&b, "- **Total Transactions**: %d\n", s.Revenue.TransactionCount)
	fmt.Fprintf(&b, "- **Return Transactions**: %d\n", s.Revenue.ReturnCount)
	fmt.Fprintf(&b, "- **Return Rate**: %.2f%%\n\n", s.Returns.ReturnRate*100)

	b.WriteString("## Geographic Performance\n\n")
	for i, name := range topCountries(s, w.cfg.Report.TopCountries) {
		stats := s.Geography.Countries[name]
		share := 0.0
		if !s.Geography.Total.IsZero() {
			share = stats.Net.Div(s.Geography.Total).InexactFloat64()
		}
		fmt.Fprintf(&b, "%d. **%s**: %s (%.1f%% of total)\n", i+1, name, formatMoney(stats.Net), share*100)
	}
	b.WriteString("\n")

	b.WriteString("## Product Performance\n\n")
	fmt.Fprintf(&b, "- **Unique Products**: %d\n\n", s.Products.ProductCount)
	for i, p := range s.Products.Top {
		desc := p.Description
		if desc == "" {
			desc = p.Code
		}
		fmt.Fprintf(&b, "%d. **%s** — %s, %d units, %d transactions\n",
			i+1, desc, formatMoney(p.Net), p.Quantity, p.Count)
	}
	b.WriteString("\n")

	b.WriteString("## Whale Customer Analysis\n\n")
	fmt.Fprintf(&b, "- **Total Customers**: %d\n", s.RFM.TotalCustomers)
	fmt.Fprintf(&b, "- **Whale Customers**: %d (%.2f%% of customer base)\n", s.RFM.WhaleCount, s.RFM.WhalePercentage)
	fmt.Fprintf(&b, "- **Whale Revenue**: %s\n", formatMoney(s.RFM.WhaleRevenue))
	fmt.Fprintf(&b, "- **Whale Revenue Share**: %.2f%%\n\n", s.RFM.WhaleRevenueShare*100)
	for i, wh := range s.RFM.Whales {
		if i >= w.cfg.Report.TopWhales {
			break
		}
		fmt.Fprintf(&b, "%d. **Customer %s** — %s over %d transactions, last seen %d days ago, RFM %s\n",
			i+1, wh.CustomerID, formatMoney(wh.Monetary), wh.Frequency, wh.RecencyDays, wh.RFM)
	}
	b.WriteString("\n")

	b.WriteString("## Anomaly Detection\n\n")
	fmt.Fprintf(&b, "- **Anomalies Detected**: %d\n", len(s.Anomalies))
	fmt.Fprintf(&b, "- **Mean Transaction Value**: $%.2f\n", s.AmountMean)
	fmt.Fprintf(&b, "- **Std Dev**: $%.2f\n\n", s.AmountStdDev)
	for i, a := range s.Anomalies {
		if i >= w.cfg.Report.TopAnomalies {
			break
		}
		fmt.Fprintf(&b, "%d. **Invoice %s** — %s (z = %.2f)\n",
			i+1, a.Invoice, formatMoney(a.Amount), a.ZScore)
	}
	b.WriteString("\n")

	b.WriteString("## Data Quality\n\n")
	fmt.Fprintf(&b, "- **Rows Processed**: %d\n", s.RowsTotal)
	fmt.Fprintf(&b, "- **Rows Rejected**: %d\n", s.RowsRejected)
	fmt.Fprintf(&b, "- **Completeness Rate**: %.2f%%\n", s.Completeness*100)
	fmt.Fprintf(&b, "- **Missing Customer ID**: %d\n", s.Quality.MissingCustomerID)
	fmt.Fprintf(&b, "- **Missing Description**: %d\n", s.Quality.MissingDescription)

	if _, err := file.WriteString(b.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// formatMoney renders a decimal as $1,234.56 (sign first for negatives).
func formatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, grouped.String(), parts[1])
}
