package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"streamsight/internal/pipeline"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertRunSQL = `INSERT INTO runs (
        started_at,
        finished_at,
        rows_total,
        rows_valid,
        rows_rejected,
        completeness,
        gross_revenue,
        net_revenue,
        return_amount,
        anomaly_count,
        whale_count
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    RETURNING id;`

	insertAnomalySQL = `INSERT INTO run_anomalies (
        run_id,
        invoice_id,
        customer_id,
        amount,
        z_score,
        threshold
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	insertDeadLetterSQL = `INSERT INTO run_dead_letters (
        run_id,
        line_number,
        reason,
        raw_row
    ) VALUES (
        $1,$2,$3,$4
    );`

	listRecentRunsSQL = `SELECT
        id,
        started_at,
        finished_at,
        rows_total,
        rows_valid,
        rows_rejected,
        completeness,
        gross_revenue,
        net_revenue,
        return_amount,
        anomaly_count,
        whale_count,
        created_at
    FROM runs
    ORDER BY started_at DESC
    LIMIT $1;`

	countRunsSQL = `SELECT COUNT(*) FROM runs;`
)

// RunStore defines operations for archiving finished runs.
type RunStore interface {
	ArchiveRun(ctx context.Context, snapshot *pipeline.Snapshot) (int64, error)
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	CountRuns(ctx context.Context) (int64, error)
}

// Store aggregates access to the run archive.
type Store struct {
	pool *pgxpool.Pool
}

var _ RunStore = (*Store)(nil)

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ArchiveRun persists a finished snapshot: the summary row plus its anomalies
// and dead letters, all in one transaction.
func (s *Store) ArchiveRun(ctx context.Context, snapshot *pipeline.Snapshot) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, insertRunSQL,
		snapshot.StartedAt,
		snapshot.FinishedAt,
		snapshot.RowsTotal,
		snapshot.RowsValid,
		snapshot.RowsRejected,
		snapshot.Completeness,
		snapshot.Revenue.Gross,
		snapshot.Revenue.Net,
		snapshot.Revenue.ReturnAmount,
		int64(len(snapshot.Anomalies)),
		int64(snapshot.RFM.WhaleCount),
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, a := range snapshot.Anomalies {
		rec := AnomalyRecord{
			RunID:      runID,
			Invoice:    a.Invoice,
			CustomerID: a.CustomerID,
			Amount:     a.Amount,
			ZScore:     a.ZScore,
			Threshold:  a.Threshold,
		}
		batch.Queue(insertAnomalySQL, rec.RunID, rec.Invoice, rec.CustomerID, rec.Amount, rec.ZScore, rec.Threshold)
	}
	for _, d := range snapshot.DeadLetters {
		raw, err := json.Marshal(d.Fields)
		if err != nil {
			return 0, fmt.Errorf("marshal dead letter row: %w", err)
		}
		rec := DeadLetterRecord{
			RunID:      runID,
			LineNumber: d.Line,
			Reason:     string(d.Reason),
			Fields:     raw,
		}
		batch.Queue(insertDeadLetterSQL, rec.RunID, rec.LineNumber, rec.Reason, rec.Fields)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("archive details: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}
	return runID, nil
}

// ListRecentRuns returns archived runs newest first.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.RowsTotal,
			&rec.RowsValid,
			&rec.RowsRejected,
			&rec.Completeness,
			&rec.GrossRevenue,
			&rec.NetRevenue,
			&rec.ReturnAmount,
			&rec.AnomalyCount,
			&rec.WhaleCount,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountRuns returns the number of archived runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := pool.QueryRow(ctx, countRunsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}
