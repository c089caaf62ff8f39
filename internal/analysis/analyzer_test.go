package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analysis"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/oracle"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
)

// MockOracle is a mock implementation of oracle.ExtractionOracle for testing.
type MockOracle struct {
	ExtractFunc func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error)
}

func (m *MockOracle) Extract(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, pdf)
	}
	return &domain.StatementRecord{Transactions: []domain.Transaction{}}, nil
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func TestAnalyze_EndToEnd(t *testing.T) {
	extracted := &domain.StatementRecord{
		AccountHolder:   domain.AccountHolder{Name: "Jane Doe", Address: "1 High St"},
		StartingBalance: 1000,
		EndingBalance:   1100,
		Transactions: []domain.Transaction{
			{Date: "02/01", Description: "Card", Amount: -200, Type: domain.TransactionDebit},
			{Date: "03/01", Description: "Salary", Amount: 300, Type: domain.TransactionCredit},
		},
	}
	mock := &MockOracle{
		ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
			if string(pdf) != "%PDF-1.4" {
				t.Errorf("Expected PDF bytes to be forwarded, got %q", pdf)
			}
			return extracted, nil
		},
	}

	a := analysis.NewAnalyzer(mock, reconcile.New(reconcile.DefaultPolicy()), time.Second)
	rec, err := a.Analyze(quietContext(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if rec.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", rec.Currency)
	}
	if rec.Transactions[0].Amount != 200 || rec.Transactions[1].Amount != 300 {
		t.Errorf("Amounts not normalized: %+v", rec.Transactions)
	}
	if rec.Transactions[0].Description != "Card" {
		t.Errorf("Transaction order changed: %+v", rec.Transactions)
	}
	if rec.Reconciliation.CalculatedBalance != 1100 || !rec.Reconciliation.IsReconciled {
		t.Errorf("Unexpected reconciliation: %+v", rec.Reconciliation)
	}
	if rec.Reconciliation.Discrepancy != nil {
		t.Errorf("Discrepancy should be absent when reconciled")
	}
	if extracted.Transactions[0].Amount != -200 {
		t.Error("Oracle output must not be modified")
	}
}

func TestAnalyze_Discrepancy(t *testing.T) {
	mock := &MockOracle{
		ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
			return &domain.StatementRecord{
				Currency:        "EUR",
				StartingBalance: 1000,
				EndingBalance:   1000.011,
				Transactions:    []domain.Transaction{},
			}, nil
		},
	}

	rec, err := analysis.NewAnalyzer(mock, reconcile.New(reconcile.Policy{}), 0).Analyze(quietContext(), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if rec.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", rec.Currency)
	}
	if rec.Reconciliation.IsReconciled {
		t.Error("Expected statement not to reconcile")
	}
	if rec.Reconciliation.Discrepancy == nil || *rec.Reconciliation.Discrepancy != 0.011 {
		t.Errorf("Discrepancy = %v, want 0.011", rec.Reconciliation.Discrepancy)
	}
}

func TestAnalyze_OracleErrorsKeepTheirType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"document type mismatch", oracle.DocumentTypeMismatch("This document appears to be a receipt."), oracle.ErrDocumentTypeMismatch},
		{"extraction failure", oracle.ExtractionFailure("model output is not valid JSON", errors.New("bad")), oracle.ErrExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockOracle{
				ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
					return nil, tt.err
				},
			}

			_, err := analysis.NewAnalyzer(mock, reconcile.New(reconcile.DefaultPolicy()), 0).Analyze(quietContext(), nil)
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	mock := &MockOracle{
		ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	_, err := analysis.NewAnalyzer(mock, reconcile.New(reconcile.DefaultPolicy()), 10*time.Millisecond).Analyze(quietContext(), nil)
	if !errors.Is(err, oracle.ErrExtractionFailed) {
		t.Errorf("Expected timeout to surface as extraction failure, got %v", err)
	}
}

func TestAnalyze_NilRecord(t *testing.T) {
	mock := &MockOracle{
		ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
			return nil, nil
		},
	}

	_, err := analysis.NewAnalyzer(mock, reconcile.New(reconcile.DefaultPolicy()), 0).Analyze(quietContext(), nil)
	if !errors.Is(err, oracle.ErrExtractionFailed) {
		t.Errorf("Expected extraction failure, got %v", err)
	}
}

func TestAnalyze_RejectUnknownTypes(t *testing.T) {
	mock := &MockOracle{
		ExtractFunc: func(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
			return &domain.StatementRecord{
				Transactions: []domain.Transaction{{Amount: 5, Type: "transfer"}},
			}, nil
		},
	}
	r := reconcile.New(reconcile.Policy{UnknownTypes: reconcile.UnknownTypesReject})

	_, err := analysis.NewAnalyzer(mock, r, 0).Analyze(quietContext(), nil)
	if !errors.Is(err, oracle.ErrExtractionFailed) || !errors.Is(err, reconcile.ErrUnknownTransactionType) {
		t.Errorf("Expected wrapped unknown type error, got %v", err)
	}
}

// stepFunc adapts a function to the PipelineStep interface.
type stepFunc func(ctx context.Context, state *analysis.State) error

func (f stepFunc) Execute(ctx context.Context, state *analysis.State) error { return f(ctx, state) }

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	var ran []int
	boom := errors.New("boom")

	p := analysis.NewPipeline(
		stepFunc(func(ctx context.Context, s *analysis.State) error { ran = append(ran, 1); return nil }),
		stepFunc(func(ctx context.Context, s *analysis.State) error { ran = append(ran, 2); return boom }),
		stepFunc(func(ctx context.Context, s *analysis.State) error { ran = append(ran, 3); return nil }),
	)

	err := p.Execute(context.Background(), &analysis.State{})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("Expected 2 steps to run, got %v", ran)
	}
}

func TestReconcileStep_LogsAdjustments(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	extracted := &domain.StatementRecord{
		StartingBalance: 100,
		EndingBalance:   90,
		Transactions: []domain.Transaction{
			{Amount: -10, Type: domain.TransactionDebit},
		},
	}
	state := &analysis.State{Extracted: extracted, Record: extracted.Clone()}

	step := &analysis.ReconcileStep{Reconciler: reconcile.New(reconcile.DefaultPolicy())}
	if err := step.Execute(ctx, state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !state.Record.Reconciliation.IsReconciled {
		t.Errorf("Expected reconciled record, got %+v", state.Record.Reconciliation)
	}
	if state.Record.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", state.Record.Currency)
	}
	if extracted.Currency != "" || extracted.Transactions[0].Amount != -10 {
		t.Error("Extracted record must not be modified")
	}

	out := buf.String()
	if !strings.Contains(out, `"currency_defaulted":true`) || !strings.Contains(out, `"amounts_normalized":1`) {
		t.Errorf("Expected adjustment log, got %q", out)
	}
}

func TestReconcileStep_NoAdjustmentsNoLog(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	extracted := &domain.StatementRecord{Currency: "EUR", Transactions: []domain.Transaction{}}
	state := &analysis.State{Extracted: extracted, Record: extracted.Clone()}

	step := &analysis.ReconcileStep{Reconciler: reconcile.New(reconcile.DefaultPolicy())}
	if err := step.Execute(ctx, state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no log output, got %q", buf.String())
	}
}
