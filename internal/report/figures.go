package report

import (
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"

	"streamsight/internal/pipeline"
)

// writeFigures renders the PNG charts. Figures are best effort on shape:
// charts that would be empty are skipped rather than rendered blank.
func (w *Writer) writeFigures(s *pipeline.Snapshot) error {
	if len(s.Geography.Countries) > 0 {
		path := filepath.Join(w.cfg.Output.FiguresDir(), "country_revenue.png")
		if err := writeCountryBars(path, s); err != nil {
			return err
		}
	}
	if s.RFM.TotalCustomers > 1 {
		path := filepath.Join(w.cfg.Output.FiguresDir(), "whale_pareto.png")
		if err := writeWhalePareto(path, s); err != nil {
			return err
		}
	}
	return nil
}

func writeCountryBars(path string, s *pipeline.Snapshot) error {
	names := topCountries(s, 10)
	bars := make([]chart.Value, len(names))
	for i, name := range names {
		bars[i] = chart.Value{
			Label: name,
			Value: s.Geography.Countries[name].Net.InexactFloat64(),
		}
	}

	graph := chart.BarChart{
		Title:    "Net Revenue by Country",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Bars:     bars,
	}

	return renderPNG(path, func(f *os.File) error {
		return graph.Render(chart.PNG, f)
	})
}

// writeWhalePareto plots the cumulative revenue share over customers ranked
// by monetary value, the visual behind the whale numbers.
func writeWhalePareto(path string, s *pipeline.Snapshot) error {
	total := s.RFM.TotalMonetary.InexactFloat64()
	if total == 0 {
		return nil
	}

	x := make([]float64, len(s.RFM.Scores))
	y := make([]float64, len(s.RFM.Scores))
	cumulative := 0.0
	for i, score := range s.RFM.Scores {
		cumulative += score.Monetary.InexactFloat64()
		x[i] = float64(i+1) / float64(len(s.RFM.Scores)) * 100
		y[i] = cumulative / total * 100
	}

	graph := chart.Chart{
		Title:  "Customer Revenue Concentration",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Customers (%)",
		},
		YAxis: chart.YAxis{
			Name: "Cumulative Revenue (%)",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Cumulative share",
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return renderPNG(path, func(f *os.File) error {
		return graph.Render(chart.PNG, f)
	})
}

func renderPNG(path string, render func(*os.File) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := render(file); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return nil
}
