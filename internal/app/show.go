package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recently archived runs.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runs, err := store.ListRecentRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no runs found")
		return nil
	}

	total, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Started (UTC)\tRows\tRejected\tNet Revenue\tAnomalies\tWhales\tCompleteness")

	for _, run := range runs {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%s\t%d\t%d\t%.2f%%\n",
			run.StartedAt.UTC().Format(time.RFC3339),
			run.RowsTotal,
			run.RowsRejected,
			run.NetRevenue.StringFixed(2),
			run.AnomalyCount,
			run.WhaleCount,
			run.Completeness*100,
		)
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "showing %d of %d runs\n", len(runs), total)
	return nil
}
