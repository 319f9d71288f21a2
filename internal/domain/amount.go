package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountKind tags an AmountSpec
type AmountKind string

const (
	AmountShares   AmountKind = "shares"
	AmountNotional AmountKind = "notional"
	AmountAll      AmountKind = "all"
)

// Bounds on amount values. Anything outside them is rejected before any
// arithmetic, so a short string cannot expand into a huge number.
const (
	MaxAmountDecimals      = 18
	MaxAmountIntegerDigits = 30
)

// AmountSpec describes how much to trade: a share count, a cash notional,
// or everything available (cash on entry, the held quantity on exit).
type AmountSpec struct {
	Kind  AmountKind
	Value decimal.Decimal
}

// Shares is an explicit share count
func Shares(n decimal.Decimal) AmountSpec {
	return AmountSpec{Kind: AmountShares, Value: n}
}

// Notional is a cash amount converted to shares at the fill price
func Notional(cash decimal.Decimal) AmountSpec {
	return AmountSpec{Kind: AmountNotional, Value: cash}
}

// All trades the whole cash balance (entry) or the whole position (exit)
func All() AmountSpec {
	return AmountSpec{Kind: AmountAll}
}

// Validate rejects unknown kinds, non-positive values and values outside
// MaxAmountDecimals / MaxAmountIntegerDigits
func (a AmountSpec) Validate() error {
	switch a.Kind {
	case AmountAll:
		return nil
	case AmountShares, AmountNotional:
		if err := checkAmountRange(a.Value); err != nil {
			return fmt.Errorf("%s amount: %w", a.Kind, err)
		}
		if !a.Value.IsPositive() {
			return fmt.Errorf("%s amount must be positive: %w", a.Kind, ErrInvalidRequest)
		}
		return nil
	}
	return fmt.Errorf("unknown amount kind %q: %w", a.Kind, ErrInvalidRequest)
}

// String renders the spec for logs
func (a AmountSpec) String() string {
	if a.Kind == AmountAll {
		return string(AmountAll)
	}
	return string(a.Kind) + ":" + a.Value.String()
}

// ParseAmountSpec builds an AmountSpec from a kind and a decimal string.
// The value is ignored for "all".
func ParseAmountSpec(kind, value string) (AmountSpec, error) {
	k := AmountKind(strings.ToLower(strings.TrimSpace(kind)))
	if k == AmountAll {
		return All(), nil
	}
	if k != AmountShares && k != AmountNotional {
		return AmountSpec{}, fmt.Errorf("unknown amount kind %q: %w", kind, ErrInvalidRequest)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return AmountSpec{}, fmt.Errorf("amount is not a decimal number: %w", ErrInvalidRequest)
	}
	spec := AmountSpec{Kind: k, Value: v}
	if err := spec.Validate(); err != nil {
		return AmountSpec{}, err
	}
	return spec, nil
}

// checkAmountRange only looks at the exponent and coefficient length, never
// at the rescaled value.
func checkAmountRange(v decimal.Decimal) error {
	exp := int64(v.Exponent())
	if exp < -MaxAmountDecimals {
		return fmt.Errorf("more than %d decimal places: %w", MaxAmountDecimals, ErrInvalidRequest)
	}
	if exp > MaxAmountIntegerDigits || int64(v.NumDigits())+exp > MaxAmountIntegerDigits {
		return fmt.Errorf("more than %d integer digits: %w", MaxAmountIntegerDigits, ErrInvalidRequest)
	}
	return nil
}
