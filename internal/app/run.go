package app

import (
	"context"
	"os/signal"
	"syscall"

	"streamsight/internal/ingest"
	"streamsight/internal/pipeline"
	"streamsight/internal/report"
)

// Run executes one full analytics pass: ingest, aggregate, report, and
// optionally archive the snapshot.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputPath := a.Config.Input.File
	if opts.InputPath != "" {
		inputPath = opts.InputPath
	}

	src, err := ingest.OpenFile(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	a.Logger.Info().Str("input", inputPath).Msg("starting analytics run")

	runner := pipeline.New(a.Config, a.Logger)
	snapshot, err := runner.Run(ctx, src)
	if err != nil {
		a.Logger.Error().Err(err).Stringer("state", runner.State()).Msg("run failed")
		return err
	}

	writer := report.NewWriter(a.Config, a.Logger)
	if err := writer.Write(snapshot); err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; archive skipped")
		return nil
	}

	runID, err := store.ArchiveRun(ctx, snapshot)
	if err != nil {
		// The report on disk is the primary artifact; a failed archive is
		// logged, not fatal.
		a.Logger.Error().Err(err).Msg("failed to archive run")
		return nil
	}
	a.Logger.Info().Int64("run_id", runID).Msg("run archived")
	return nil
}
