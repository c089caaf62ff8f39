// Package analysis runs one uploaded statement through extraction and
// reconciliation.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/google/uuid"
)

// Analyzer turns PDF bytes into a reconciled statement record.
type Analyzer struct {
	pipeline *Pipeline
	timeout  time.Duration
}

// NewAnalyzer creates an Analyzer. A positive timeout bounds each analysis,
// including the oracle call.
func NewAnalyzer(o oracle.ExtractionOracle, r *reconcile.Reconciler, timeout time.Duration) *Analyzer {
	return &Analyzer{
		pipeline: NewStatementPipeline(o, r),
		timeout:  timeout,
	}
}

// Analyze extracts and reconciles a single statement. Failures from the
// oracle keep their *oracle.ExtractionError type through the wrapping.
func (a *Analyzer) Analyze(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	state := &State{
		AnalysisID: uuid.NewString(),
		PDF:        pdf,
	}

	log := logger.FromContext(ctx).With().Str("analysis_id", state.AnalysisID).Logger()
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	log.Info().Int("bytes", len(pdf)).Msg("Analyzing statement")

	if err := a.pipeline.Execute(ctx, state); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, oracle.ErrExtractionFailed) {
			err = oracle.ExtractionFailure("statement analysis timed out", err)
		}
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Statement analysis failed")
		return nil, err
	}

	rec := state.Record
	event := log.Info().
		Int("transactions", len(rec.Transactions)).
		Str("currency", rec.Currency).
		Bool("reconciled", rec.Reconciliation.IsReconciled).
		Dur("duration", time.Since(start))
	if rec.Reconciliation.Discrepancy != nil {
		event = event.Float64("discrepancy", *rec.Reconciliation.Discrepancy)
	}
	event.Msg("Statement analysis completed")

	return rec, nil
}
