package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownTypePolicy decides what happens to transactions whose type is
// neither "debit" nor "credit".
type UnknownTypePolicy string

const (
	// UnknownTypesIgnore lets unknown tags contribute zero to the net change.
	UnknownTypesIgnore UnknownTypePolicy = "ignore"
	// UnknownTypesReject fails reconciliation on the first unknown tag.
	UnknownTypesReject UnknownTypePolicy = "reject"
)

// Defaults applied when a Policy field is left at its zero value.
const (
	DefaultCurrency  = "USD"
	DefaultTolerance = "0.01"
)

// Policy holds the knobs that silently affect financial totals.
type Policy struct {
	// Tolerance is the absolute amount, in statement currency units, under
	// which a discrepancy still counts as reconciled. The comparison is strict.
	Tolerance decimal.Decimal

	// DefaultCurrency replaces a missing currency on the statement.
	DefaultCurrency string

	// UnknownTypes controls transactions with an unrecognized type tag.
	UnknownTypes UnknownTypePolicy
}

// DefaultPolicy returns the policy the service runs with out of the box.
func DefaultPolicy() Policy {
	return Policy{
		Tolerance:       decimal.RequireFromString(DefaultTolerance),
		DefaultCurrency: DefaultCurrency,
		UnknownTypes:    UnknownTypesIgnore,
	}
}

// withDefaults fills zero-valued fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.Tolerance.Sign() <= 0 {
		p.Tolerance = def.Tolerance
	}
	if strings.TrimSpace(p.DefaultCurrency) == "" {
		p.DefaultCurrency = def.DefaultCurrency
	}
	if p.UnknownTypes == "" {
		p.UnknownTypes = def.UnknownTypes
	}
	return p
}

// ParseUnknownTypePolicy converts a config value into an UnknownTypePolicy.
func ParseUnknownTypePolicy(s string) (UnknownTypePolicy, error) {
	switch UnknownTypePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnknownTypesIgnore:
		return UnknownTypesIgnore, nil
	case UnknownTypesReject:
		return UnknownTypesReject, nil
	default:
		return "", fmt.Errorf("unknown transaction type policy %q (want %q or %q)", s, UnknownTypesIgnore, UnknownTypesReject)
	}
}

// ParseTolerance parses a positive decimal tolerance such as "0.01".
func ParseTolerance(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse tolerance %q: %w", s, err)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("tolerance must be positive, got %s", d)
	}
	return d, nil
}
