package domain

// TransactionType tags the direction of a transaction. Amounts are always
// non-negative magnitudes once normalized; direction lives only here.
type TransactionType string

const (
	// TransactionDebit is money leaving the account.
	TransactionDebit TransactionType = "debit"
	// TransactionCredit is money entering the account.
	TransactionCredit TransactionType = "credit"
)

// Transaction is one statement line as returned by the extraction model.
// Date is kept as the free-form text printed on the statement.
type Transaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Balance     *float64        `json:"balance,omitempty"` // running balance after this line, if printed
}

// AccountHolder identifies who the statement belongs to.
type AccountHolder struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ReconciliationResult is the verdict of checking the transactions against
// the reported closing balance. Discrepancy is nil when IsReconciled is true.
type ReconciliationResult struct {
	CalculatedBalance float64  `json:"calculatedBalance"`
	IsReconciled      bool     `json:"isReconciled"`
	Discrepancy       *float64 `json:"discrepancy,omitempty"`
}

// StatementRecord is the full analysis of one uploaded statement.
// Transactions keep statement order.
type StatementRecord struct {
	AccountHolder   AccountHolder        `json:"accountHolder"`
	DocumentDate    string               `json:"documentDate,omitempty"`
	Currency        string               `json:"currency"`
	StartingBalance float64              `json:"startingBalance"`
	EndingBalance   float64              `json:"endingBalance"`
	Transactions    []Transaction        `json:"transactions"`
	Reconciliation  ReconciliationResult `json:"reconciliation"`
}

// Clone returns a deep copy so callers can transform a record without
// touching the original.
func (r *StatementRecord) Clone() *StatementRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Transactions = make([]Transaction, len(r.Transactions))
	for i, tx := range r.Transactions {
		if tx.Balance != nil {
			b := *tx.Balance
			tx.Balance = &b
		}
		out.Transactions[i] = tx
	}
	if r.Reconciliation.Discrepancy != nil {
		d := *r.Reconciliation.Discrepancy
		out.Reconciliation.Discrepancy = &d
	}
	return &out
}
