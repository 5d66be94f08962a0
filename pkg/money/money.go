// Package money stores monetary values as integer minor units with an
// ISO-4217 currency, backed by go-money for arithmetic and shopspring/decimal
// for conversion from parsed statement amounts.
package money

import (
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	CAD = "CAD" // Canadian Dollar
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	JPY = "JPY" // Japanese Yen (no decimal places)
)

// ErrUnknownCurrency is returned for codes go-money does not know.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// NewFromDecimal converts a decimal amount to minor units, rounding half away
// from zero to the currency's fraction digits.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, currencyCode)
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := amount.Mul(multiplier).Round(0).IntPart()
	return New(minor, currency.Code), nil
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units (cents)
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// IsNegative returns true if the amount is less than zero
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}

	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// ToDecimal converts back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// Convert applies an exchange rate expressed as target units per source unit.
func (m *Money) Convert(targetCurrency string, rate decimal.Decimal) (*Money, error) {
	if m == nil || m.m == nil {
		return Zero(targetCurrency), nil
	}
	return NewFromDecimal(m.ToDecimal().Mul(rate), targetCurrency)
}

// Display returns a formatted string for display (e.g., "$1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// String returns the amount as a fixed-point string (e.g., "1234.56").
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}
