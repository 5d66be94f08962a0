// Package fingerprint derives the deduplication hash used to recognise
// transactions that were already imported from an earlier statement.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date portion of the canonical key.
const DateLayout = "2006-01-02"

// Canonical builds the key that is hashed:
// "<YYYY-MM-DD>|<lowercased description>|<signed amount, 2 decimals>".
func Canonical(date time.Time, description string, signedAmount decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(date.Format(DateLayout))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(description)))
	b.WriteByte('|')
	b.WriteString(signedAmount.StringFixed(2))
	return b.String()
}

// Compute returns the base64 SHA-256 digest of the canonical key.
// Identical inputs always produce identical output, and description
// case never changes the result.
func Compute(date time.Time, description string, signedAmount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(Canonical(date, description, signedAmount)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Set is a read-only membership view over fingerprints that already exist
// in a budget space.
type Set map[string]struct{}

// NewSet builds a Set from a slice of fingerprints.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether fp is in the set. A nil Set contains nothing.
func (s Set) Contains(fp string) bool {
	if s == nil || fp == "" {
		return false
	}
	_, ok := s[fp]
	return ok
}
