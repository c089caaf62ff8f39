package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/domain"
)

// DecodeStatement converts the model's generic JSON object into a
// StatementRecord. An explicit "error" member is reported as a document type
// mismatch; any missing or mistyped required field is an extraction failure.
// A "reconciliation" member, if the model produced one, is ignored.
func DecodeStatement(raw map[string]interface{}) (*domain.StatementRecord, error) {
	if raw == nil {
		return nil, ExtractionFailure("model returned an empty document", nil)
	}

	if v, ok := raw["error"]; ok && v != nil {
		msg, isString := v.(string)
		if !isString || strings.TrimSpace(msg) == "" {
			return nil, ExtractionFailure("model returned a malformed error payload", fmt.Errorf("error field has type %T", v))
		}
		return nil, DocumentTypeMismatch(strings.TrimSpace(msg))
	}

	rec, err := decodeStatement(raw)
	if err != nil {
		return nil, ExtractionFailure("model output does not describe a statement", err)
	}
	return rec, nil
}

func decodeStatement(raw map[string]interface{}) (*domain.StatementRecord, error) {
	rec := &domain.StatementRecord{}

	if v, ok := raw["accountHolder"]; ok && v != nil {
		holder, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q has type %T, want object", "accountHolder", v)
		}
		name, err := getOptionalStringField(holder, "name")
		if err != nil {
			return nil, fmt.Errorf("accountHolder: %w", err)
		}
		address, err := getOptionalStringField(holder, "address")
		if err != nil {
			return nil, fmt.Errorf("accountHolder: %w", err)
		}
		rec.AccountHolder = domain.AccountHolder{Name: name, Address: address}
	}

	var err error
	if rec.DocumentDate, err = getOptionalStringField(raw, "documentDate"); err != nil {
		return nil, err
	}
	if rec.Currency, err = getOptionalStringField(raw, "currency"); err != nil {
		return nil, err
	}
	if rec.StartingBalance, err = getFloat64Field(raw, "startingBalance"); err != nil {
		return nil, err
	}
	if rec.EndingBalance, err = getFloat64Field(raw, "endingBalance"); err != nil {
		return nil, err
	}

	txAny, ok := raw["transactions"]
	if !ok {
		return nil, fmt.Errorf("missing required field %q", "transactions")
	}
	var txSlice []interface{}
	if txAny != nil {
		txSlice, ok = txAny.([]interface{})
		if !ok {
			return nil, fmt.Errorf("'transactions' is %T, want array", txAny)
		}
	}

	rec.Transactions = make([]domain.Transaction, 0, len(txSlice))
	for i, item := range txSlice {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transaction %d is %T, want object", i, item)
		}
		tx, err := decodeTransaction(obj)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		rec.Transactions = append(rec.Transactions, tx)
	}

	return rec, nil
}

func decodeTransaction(obj map[string]interface{}) (domain.Transaction, error) {
	var tx domain.Transaction
	var err error

	if tx.Date, err = getOptionalStringField(obj, "date"); err != nil {
		return tx, err
	}
	if tx.Description, err = getOptionalStringField(obj, "description"); err != nil {
		return tx, err
	}
	if tx.Amount, err = getFloat64Field(obj, "amount"); err != nil {
		return tx, err
	}
	typ, err := getOptionalStringField(obj, "type")
	if err != nil {
		return tx, err
	}
	tx.Type = domain.TransactionType(strings.ToLower(typ))
	if tx.Balance, err = getOptionalFloat64Field(obj, "balance"); err != nil {
		return tx, err
	}
	return tx, nil
}

func getOptionalStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
	return strings.TrimSpace(s), nil
}

func getFloat64Field(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return f, nil
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return &f, nil
}

func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid number %q", val.String())
		}
		return f, nil
	case int:
		return float64(val), nil
	case string:
		return parseAmountString(val)
	default:
		return 0, fmt.Errorf("has type %T, want number", v)
	}
}

// amountPattern is an optionally signed number with an optional decimal part.
// Commas are only valid as thousands separators in groups of three.
var amountPattern = regexp.MustCompile(`^[-+]?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)

// parseAmountString accepts amounts the model sometimes emits as text:
// "1,234.56", "$12.00", "(45.10)" for negatives. Locale formats such as
// "1.234,56" are rejected rather than guessed.
func parseAmountString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '$', '£', '€':
			return -1
		}
		return r
	}, s)

	if !amountPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid number %q", s)
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	if neg {
		f = -f
	}
	return f, nil
}
