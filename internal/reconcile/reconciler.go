package reconcile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNonFiniteAmount is returned when a balance or amount is NaN or infinite.
	ErrNonFiniteAmount = errors.New("reconcile: non-finite amount")

	// ErrUnknownTransactionType is returned under UnknownTypesReject.
	ErrUnknownTransactionType = errors.New("reconcile: unknown transaction type")
)

// Reconciler normalizes extracted statements and checks them against their
// reported closing balance. It holds no mutable state and is safe for
// concurrent use.
type Reconciler struct {
	policy Policy
}

// New creates a Reconciler. Zero-valued policy fields take their defaults.
func New(policy Policy) *Reconciler {
	return &Reconciler{policy: policy.withDefaults()}
}

// Normalize returns a copy of txs with every amount replaced by its absolute
// value. Order and all other fields are preserved. NaN and infinite amounts
// are copied through untouched.
func Normalize(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	for i, tx := range txs {
		if isFinite(tx.Amount) {
			tx.Amount = math.Abs(tx.Amount)
		}
		out[i] = tx
	}
	return out
}

// ApplyCurrencyDefault sets the policy's default currency on rec when the
// extracted currency is empty.
func (r *Reconciler) ApplyCurrencyDefault(rec *domain.StatementRecord) {
	if rec == nil {
		return
	}
	if strings.TrimSpace(rec.Currency) == "" {
		rec.Currency = r.policy.DefaultCurrency
	}
}

// Reconcile folds the normalized transactions over the starting balance and
// compares the result with the reported ending balance.
func (r *Reconciler) Reconcile(startingBalance float64, txs []domain.Transaction, endingBalance float64) (domain.ReconciliationResult, error) {
	if !isFinite(startingBalance) || !isFinite(endingBalance) {
		return domain.ReconciliationResult{}, fmt.Errorf("%w: starting=%v ending=%v", ErrNonFiniteAmount, startingBalance, endingBalance)
	}

	net := decimal.Zero
	for i, tx := range txs {
		if !isFinite(tx.Amount) {
			return domain.ReconciliationResult{}, fmt.Errorf("%w: transaction %d amount=%v", ErrNonFiniteAmount, i, tx.Amount)
		}
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Type {
		case domain.TransactionCredit:
			net = net.Add(amount)
		case domain.TransactionDebit:
			net = net.Sub(amount)
		default:
			if r.policy.UnknownTypes == UnknownTypesReject {
				return domain.ReconciliationResult{}, fmt.Errorf("%w: transaction %d has type %q", ErrUnknownTransactionType, i, tx.Type)
			}
		}
	}

	calculated := decimal.NewFromFloat(startingBalance).Add(net)
	discrepancy := decimal.NewFromFloat(endingBalance).Sub(calculated)

	result := domain.ReconciliationResult{
		CalculatedBalance: calculated.InexactFloat64(),
		IsReconciled:      discrepancy.Abs().LessThan(r.policy.Tolerance),
	}
	if !result.IsReconciled {
		d := discrepancy.InexactFloat64()
		result.Discrepancy = &d
	}
	return result, nil
}

// Process returns a reconciled copy of rec: currency defaulted, amounts
// normalized and the reconciliation verdict attached. rec is not modified.
func (r *Reconciler) Process(rec *domain.StatementRecord) (*domain.StatementRecord, error) {
	if rec == nil {
		return nil, errors.New("reconcile: nil statement")
	}

	out := rec.Clone()
	r.ApplyCurrencyDefault(out)
	out.Transactions = Normalize(out.Transactions)

	result, err := r.Reconcile(out.StartingBalance, out.Transactions, out.EndingBalance)
	if err != nil {
		return nil, err
	}
	out.Reconciliation = result
	return out, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
