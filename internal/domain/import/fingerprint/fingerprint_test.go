package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	date := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		desc   string
		amount string
		want   string
	}{
		{"expense", "STARBUCKS", "-45.67", "2025-12-15|starbucks|-45.67"},
		{"income pads decimals", "Salary Deposit", "2500", "2025-12-15|salary deposit|2500.00"},
		{"trims description", "  Tim Hortons ", "-3.1", "2025-12-15|tim hortons|-3.10"},
		{"zero amount", "FEE REVERSAL", "0", "2025-12-15|fee reversal|0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonical(date, tt.desc, decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_MatchesSHA256Base64(t *testing.T) {
	date := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)
	sum := sha256.Sum256([]byte("2025-12-15|starbucks|-45.67"))
	want := base64.StdEncoding.EncodeToString(sum[:])

	got := Compute(date, "STARBUCKS", decimal.RequireFromString("-45.67"))
	assert.Equal(t, want, got)
	assert.Len(t, got, 44)
}

func TestCompute_Deterministic(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 200; i++ {
		date := faker.DateRange(
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		desc := faker.Company()
		amount := decimal.NewFromFloat(faker.Price(-5000, 5000)).Round(2)

		first := Compute(date, desc, amount)
		require.Equal(t, first, Compute(date, desc, amount), "repeat call for %q", desc)
		require.Equal(t, first, Compute(date, strings.ToUpper(desc), amount), "upper case of %q", desc)
		require.Equal(t, first, Compute(date, strings.ToLower(desc), amount), "lower case of %q", desc)
	}
}

func TestCompute_SignMatters(t *testing.T) {
	date := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	income := Compute(date, "TRANSFER", decimal.RequireFromString("100.00"))
	expense := Compute(date, "TRANSFER", decimal.RequireFromString("-100.00"))
	assert.NotEqual(t, income, expense)
}

func TestCompute_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.March, 3, 21, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("-9.99")
	assert.Equal(t, Compute(morning, "NETFLIX", amount), Compute(evening, "NETFLIX", amount))
}

func TestSet(t *testing.T) {
	s := NewSet("a", "", "b")
	assert.True(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains(""))
	assert.False(t, s.Contains("c"))
	assert.Len(t, s, 2)

	var empty Set
	assert.False(t, empty.Contains("a"))
}
