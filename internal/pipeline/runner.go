package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"streamsight/internal/analytics"
	"streamsight/internal/config"
	"streamsight/internal/ingest"
	"streamsight/internal/logging"
	"streamsight/internal/rfm"
	"streamsight/internal/validate"
)

// clock is stubbed in tests.
var clock = time.Now

// Runner orchestrates one run: validate each row once, fan it out to every
// single-pass consumer, then finalize the two-pass consumers. A Runner is
// single-use; construct a fresh one per run.
type Runner struct {
	validator *validate.Validator
	logger    zerolog.Logger

	topK            int
	zThreshold      float64
	whalePercentile float64
	referenceDate   time.Time
	maxRejectRate   float64
	minSampleRows   int64
	anomaliesOn     bool
	rfmOn           bool

	state State
}

// New constructs a runner from validated configuration. Config values are
// trusted here; Validate ran before the pipeline was built.
func New(cfg *config.Config, logger zerolog.Logger) *Runner {
	reference, _ := cfg.Analytics.ReferenceTime()
	return &Runner{
		validator:       validate.NewValidator(cfg.Input.DateFormats),
		logger:          logging.Component(logger, "pipeline"),
		topK:            cfg.Analytics.TopKProducts,
		zThreshold:      cfg.Analytics.ZScoreThreshold,
		whalePercentile: cfg.Analytics.WhalePercentile,
		referenceDate:   reference,
		maxRejectRate:   cfg.Analytics.MaxRejectRate,
		minSampleRows:   cfg.Analytics.MinSampleRows,
		anomaliesOn:     cfg.Analytics.EnableAnomalies,
		rfmOn:           cfg.Analytics.EnableRFM,
		state:           StateIdle,
	}
}

// State reports the current lifecycle state.
func (r *Runner) State() State { return r.state }

// Run drains the cursor and returns the immutable snapshot. Row-level
// failures land in the dead-letter output; only ingestion-level problems
// (cursor failure, empty input, rejection-rate breach, cancellation) surface
// as errors.
func (r *Runner) Run(ctx context.Context, src ingest.Cursor) (*Snapshot, error) {
	started := clock()
	r.state = StateStreaming
	r.logger.Info().Msg("ingestion started")

	revenue := analytics.NewRevenue()
	geography := analytics.NewGeography()
	products := analytics.NewProducts()
	returns := analytics.NewReturns()
	quality := analytics.NewQuality()
	deadLetter := analytics.NewDeadLetter()
	customers := rfm.NewAggregator()
	var moments analytics.Moments

	// Amounts buffered for the scoring pass; bounded by valid-row count, the
	// documented trade against re-reading the source.
	var buffered []analytics.AmountSample

	for {
		// Abort latency is bounded by one row: both cancellation and the
		// circuit breaker are checked per iteration.
		if err := ctx.Err(); err != nil {
			r.state = StateAborted
			return nil, err
		}

		row, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			r.state = StateAborted
			return nil, fmt.Errorf("pipeline: read row: %w", err)
		}

		rec, rejection := r.validator.Validate(row)
		if rejection != nil {
			deadLetter.Reject(*rejection)
			r.logger.Debug().
				Int("line", rejection.Line).
				Str("reason", string(rejection.Reason)).
				Msg("row rejected")
		} else {
			deadLetter.RecordValid()
			revenue.Observe(rec)
			geography.Observe(rec)
			products.Observe(rec)
			returns.Observe(rec)
			quality.Observe(rec)
			customers.Observe(rec)

			if r.anomaliesOn {
				value := rec.LineAmount().Abs().InexactFloat64()
				moments.Observe(value)
				buffered = append(buffered, analytics.AmountSample{
					Invoice:    rec.Invoice,
					CustomerID: rec.CustomerID,
					Amount:     rec.LineAmount(),
					Value:      value,
				})
			}
		}

		if err := r.checkRejectionRate(deadLetter); err != nil {
			r.state = StateAborted
			r.logger.Error().Err(err).Msg("ingestion aborted")
			return nil, err
		}
	}

	total := deadLetter.ValidCount() + deadLetter.RejectedCount()
	if total == 0 {
		r.state = StateAborted
		return nil, ErrNoRows
	}

	r.state = StateFinalizing
	r.logger.Info().
		Int64("rows", total).
		Int64("valid", deadLetter.ValidCount()).
		Int64("rejected", deadLetter.RejectedCount()).
		Msg("finalizing")

	var anomalies []analytics.Anomaly
	if r.anomaliesOn {
		anomalies = analytics.ScoreAmounts(buffered, &moments, r.zThreshold)
	}

	var segmentation rfm.Result
	if r.rfmOn {
		segmentation = rfm.Segment(customers.Profiles(), r.referenceDate, r.whalePercentile)
	}

	snapshot := &Snapshot{
		StartedAt:    started,
		FinishedAt:   clock(),
		RowsTotal:    total,
		RowsValid:    deadLetter.ValidCount(),
		RowsRejected: deadLetter.RejectedCount(),
		Completeness: deadLetter.Completeness(),
		Revenue:      revenue.Result(),
		Geography:    geography.Result(),
		Products:     products.Result(r.topK),
		Returns:      returns.Result(),
		Quality:      quality.Result(),
		AmountMean:   moments.Mean(),
		AmountStdDev: moments.StdDev(),
		Anomalies:    anomalies,
		RFM:          segmentation,
		DeadLetters:  deadLetter.Rows(),
	}

	r.state = StateDone
	r.logger.Info().
		Str("net_revenue", snapshot.Revenue.Net.String()).
		Int("anomalies", len(snapshot.Anomalies)).
		Int("whales", snapshot.RFM.WhaleCount).
		Float64("completeness", snapshot.Completeness).
		Msg("run complete")

	return snapshot, nil
}

func (r *Runner) checkRejectionRate(d *analytics.DeadLetter) error {
	total := d.ValidCount() + d.RejectedCount()
	if total < r.minSampleRows {
		return nil
	}
	rate := float64(d.RejectedCount()) / float64(total)
	if rate <= r.maxRejectRate {
		return nil
	}
	return &RejectionRateError{
		Valid:    d.ValidCount(),
		Rejected: d.RejectedCount(),
		Rate:     rate,
		Limit:    r.maxRejectRate,
	}
}
