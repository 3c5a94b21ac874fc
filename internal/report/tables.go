package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"streamsight/internal/pipeline"
)

// writeTables emits one JSON file per analytic. Decimals serialize as
// strings; map keys are sorted so consecutive runs over the same input are
// byte-identical.
func (w *Writer) writeTables(s *pipeline.Snapshot) error {
	tables := map[string]any{
		"revenue.json":   revenueTable(s),
		"geography.json": geographyTable(s),
		"products.json":  productsTable(s),
		"returns.json":   returnsTable(s),
		"anomalies.json": anomaliesTable(s),
		"rfm.json":       rfmTable(s),
		"quality.json":   qualityTable(s),
	}

	for name, payload := range tables {
		if err := writeJSON(filepath.Join(w.cfg.Output.TablesDir(), name), payload); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, payload any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func moneyMap(in map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v.String()
	}
	return out
}

func revenueTable(s *pipeline.Snapshot) map[string]any {
	return map[string]any{
		"gross_revenue":     s.Revenue.Gross.String(),
		"return_amount":     s.Revenue.ReturnAmount.String(),
		"net_revenue":       s.Revenue.Net.String(),
		"transaction_count": s.Revenue.TransactionCount,
		"return_count":      s.Revenue.ReturnCount,
		"daily_revenue":     moneyMap(s.Revenue.Daily),
		"monthly_revenue":   moneyMap(s.Revenue.Monthly),
	}
}

func geographyTable(s *pipeline.Snapshot) map[string]any {
	countries := make(map[string]any, len(s.Geography.Countries))
	for name, stats := range s.Geography.Countries {
		share := 0.0
		if !s.Geography.Total.IsZero() {
			share = stats.Net.Div(s.Geography.Total).InexactFloat64()
		}
		countries[name] = map[string]any{
			"net_revenue":       stats.Net.String(),
			"transaction_count": stats.Count,
			"revenue_share":     share,
		}
	}
	return map[string]any{
		"countries":     countries,
		"total_revenue": s.Geography.Total.String(),
	}
}

func productsTable(s *pipeline.Snapshot) map[string]any {
	top := make([]map[string]any, len(s.Products.Top))
	for i, p := range s.Products.Top {
		top[i] = map[string]any{
			"product_code":      p.Code,
			"description":       p.Description,
			"net_revenue":       p.Net.String(),
			"quantity_sold":     p.Quantity,
			"transaction_count": p.Count,
		}
	}
	return map[string]any{
		"top_products":  top,
		"product_count": s.Products.ProductCount,
		"total_revenue": s.Products.Total.String(),
	}
}

func returnsTable(s *pipeline.Snapshot) map[string]any {
	top := make([]map[string]any, len(s.Returns.TopReturned))
	for i, p := range s.Returns.TopReturned {
		top[i] = map[string]any{"product_code": p.Code, "return_count": p.Count}
	}
	return map[string]any{
		"total_transactions":    s.Returns.TotalTransactions,
		"return_transactions":   s.Returns.ReturnTransactions,
		"cancellations":         s.Returns.Cancellations,
		"return_rate":           s.Returns.ReturnRate,
		"revenue_impact":        s.Returns.RevenueImpact.String(),
		"top_returned_products": top,
	}
}

func anomaliesTable(s *pipeline.Snapshot) map[string]any {
	rows := make([]map[string]any, len(s.Anomalies))
	for i, a := range s.Anomalies {
		rows[i] = map[string]any{
			"invoice_id":  a.Invoice,
			"customer_id": a.CustomerID,
			"amount":      a.Amount.String(),
			"z_score":     a.ZScore,
			"threshold":   a.Threshold,
		}
	}
	return map[string]any{
		"anomalies":     rows,
		"anomaly_count": len(s.Anomalies),
		"amount_mean":   s.AmountMean,
		"amount_stddev": s.AmountStdDev,
	}
}

func rfmTable(s *pipeline.Snapshot) map[string]any {
	whales := make([]map[string]any, len(s.RFM.Whales))
	for i, wh := range s.RFM.Whales {
		whales[i] = map[string]any{
			"customer_id":  wh.CustomerID,
			"recency_days": wh.RecencyDays,
			"frequency":    wh.Frequency,
			"monetary":     wh.Monetary.String(),
			"rfm_score":    wh.RFM,
		}
	}
	return map[string]any{
		"total_customers":     s.RFM.TotalCustomers,
		"whale_count":         s.RFM.WhaleCount,
		"whale_percentage":    s.RFM.WhalePercentage,
		"whale_revenue":       s.RFM.WhaleRevenue.String(),
		"whale_revenue_share": s.RFM.WhaleRevenueShare,
		"whales":              whales,
	}
}

func qualityTable(s *pipeline.Snapshot) map[string]any {
	return map[string]any{
		"rows_total":          s.RowsTotal,
		"rows_valid":          s.RowsValid,
		"rows_rejected":       s.RowsRejected,
		"completeness_rate":   s.Completeness,
		"missing_customer_id": s.Quality.MissingCustomerID,
		"missing_description": s.Quality.MissingDescription,
		"field_completeness":  s.Quality.FieldCompleteness,
	}
}

// topCountries returns country names ordered by net revenue descending.
func topCountries(s *pipeline.Snapshot, limit int) []string {
	names := make([]string, 0, len(s.Geography.Countries))
	for name := range s.Geography.Countries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := s.Geography.Countries[names[i]], s.Geography.Countries[names[j]]
		if cmp := ci.Net.Cmp(cj.Net); cmp != 0 {
			return cmp > 0
		}
		return names[i] < names[j]
	})
	if limit > 0 && limit < len(names) {
		names = names[:limit]
	}
	return names
}
