package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *State) error
}

// State holds the data passed between steps for one analysis.
type State struct {
	AnalysisID string
	PDF        []byte

	// Extracted is the record exactly as the oracle returned it.
	Extracted *domain.StatementRecord

	// Record is the working copy the later steps transform.
	Record *domain.StatementRecord
}

// ExtractStep asks the oracle for a statement record.
type ExtractStep struct {
	Oracle oracle.ExtractionOracle
}

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	rec, err := s.Oracle.Extract(ctx, state.PDF)
	if err != nil {
		return err
	}
	if rec == nil {
		return oracle.ExtractionFailure("model returned no statement", nil)
	}
	state.Extracted = rec
	state.Record = rec.Clone()
	return nil
}

// ReconcileStep defaults the currency, normalizes amounts and attaches the
// reconciliation verdict.
type ReconcileStep struct {
	Reconciler *reconcile.Reconciler
}

func (s *ReconcileStep) Execute(ctx context.Context, state *State) error {
	out, err := s.Reconciler.Process(state.Record)
	if err != nil {
		if errors.Is(err, reconcile.ErrNonFiniteAmount) || errors.Is(err, reconcile.ErrUnknownTransactionType) {
			return oracle.ExtractionFailure("statement could not be reconciled", err)
		}
		return err
	}
	state.Record = out

	if state.Extracted != nil {
		logAdjustments(ctx, state.Extracted, out)
	}
	return nil
}

// logAdjustments records what reconciliation changed relative to the oracle
// output.
func logAdjustments(ctx context.Context, extracted, processed *domain.StatementRecord) {
	flipped := 0
	for _, tx := range extracted.Transactions {
		if tx.Amount < 0 {
			flipped++
		}
	}
	defaulted := strings.TrimSpace(extracted.Currency) == ""
	if flipped == 0 && !defaulted {
		return
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Bool("currency_defaulted", defaulted).
		Str("currency", processed.Currency).
		Int("amounts_normalized", flipped).
		Msg("Adjusted extracted statement")
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementPipeline creates the standard extract → reconcile pipeline.
func NewStatementPipeline(o oracle.ExtractionOracle, r *reconcile.Reconciler) *Pipeline {
	return NewPipeline(
		&ExtractStep{Oracle: o},
		&ReconcileStep{Reconciler: r},
	)
}
