// Package report renders a finished snapshot into files: JSON tables, a
// markdown summary, a dead-letter export, and PNG figures. It only reads the
// snapshot; nothing here feeds back into the pipeline.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"streamsight/internal/config"
	"streamsight/internal/logging"
	"streamsight/internal/pipeline"
)

// Writer renders snapshots under the configured output directory.
type Writer struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewWriter constructs a report writer.
func NewWriter(cfg *config.Config, logger zerolog.Logger) *Writer {
	return &Writer{cfg: cfg, logger: logging.Component(logger, "report")}
}

// Write renders every artifact for the snapshot.
func (w *Writer) Write(s *pipeline.Snapshot) error {
	out := w.cfg.Output
	for _, dir := range []string{out.TablesDir(), out.FiguresDir(), out.ReportsDir(), out.ErrorsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	if err := w.writeTables(s); err != nil {
		return err
	}

	dlqPath := filepath.Join(out.ErrorsDir(), "bad_rows.jsonl")
	if err := writeDeadLetters(dlqPath, s.DeadLetters); err != nil {
		return err
	}

	if err := w.writeSummary(s); err != nil {
		return err
	}

	if w.cfg.Report.Figures {
		if err := w.writeFigures(s); err != nil {
			return err
		}
	}

	w.logger.Info().Str("dir", out.Dir).Msg("report written")
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
