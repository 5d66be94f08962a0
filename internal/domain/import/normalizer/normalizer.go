// Package normalizer converts the textual tokens found on a bank statement
// into canonical values: calendar dates, signed decimal amounts and cleaned
// descriptions.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when an amount token has no digits left after cleaning.
	ErrEmptyAmount = errors.New("empty amount")
	// ErrInvalidAmount is returned when the cleaned token is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate is returned when no layout matches the date token.
	ErrInvalidDate = errors.New("invalid date")
)

// TransactionType is the direction of money for a parsed transaction.
type TransactionType string

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// Valid reports whether t is one of the known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Sign applies the direction of t to a non-negative magnitude.
func (t TransactionType) Sign(magnitude decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return magnitude.Abs().Neg()
	}
	return magnitude.Abs()
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	// Letters, digits, whitespace and - & ' . ( ) survive.
	disallowedPattern = regexp.MustCompile(`[^\p{L}\p{N}\s\-&'.()]`)
	amountNoise       = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\u00a0", "")
)

// CleanDescription strips characters outside the allowed set and collapses
// runs of whitespace to a single space.
func CleanDescription(raw string) string {
	s := disallowedPattern.ReplaceAllString(raw, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseAmount removes the currency symbol, thousands separators and
// whitespace from an amount token and parses the rest as a signed decimal.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := amountNoise.Replace(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" {
		return decimal.Zero, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, raw, err)
	}
	return d, nil
}

// Classify splits a signed amount into its non-negative magnitude and type.
// Negative amounts are expenses, everything else is income.
func Classify(amount decimal.Decimal) (decimal.Decimal, TransactionType) {
	if amount.IsNegative() {
		return amount.Abs(), Expense
	}
	return amount, Income
}

// ParseDate parses value against each layout in order and returns the first
// exact match as a UTC calendar date.
func ParseDate(value string, layouts ...string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// MonthDayDate combines a month abbreviation, a day and an optional
// four-digit year into a date. When year is empty fallbackYear is used.
func MonthDayDate(month, day, year string, fallbackYear int) (time.Time, error) {
	if strings.TrimSpace(year) == "" {
		year = fmt.Sprintf("%04d", fallbackYear)
	}
	return ParseDate(fmt.Sprintf("%s %s %s", day, month, year), "2 Jan 2006")
}
