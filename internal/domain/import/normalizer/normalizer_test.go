package normalizer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "STARBUCKS", "STARBUCKS"},
		{"collapses spaces", "SALARY    DEPOSIT", "SALARY DEPOSIT"},
		{"tabs and newlines", "TIM\tHORTONS\n#123", "TIM HORTONS 123"},
		{"keeps allowed punctuation", "A&W (DOWNTOWN) - MCDONALD'S INC.", "A&W (DOWNTOWN) - MCDONALD'S INC."},
		{"strips symbols", "UBER* TRIP @ 12/01 $", "UBER TRIP 1201"},
		{"keeps accented letters", "CAFÉ DÉPÔT", "CAFÉ DÉPÔT"},
		{"trims", "   E-TRANSFER   ", "E-TRANSFER"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescription(tt.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-45.67", "-45.67"},
		{"+2500.00", "2500"},
		{"2500.00", "2500"},
		{"$1,234.56", "1234.56"},
		{"-$ 1,234.56", "-1234.56"},
		{"- 12.00", "-12"},
		{"0.00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	for _, input := range []string{"", "$", "-", "abc", "12.3.4"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			assert.Error(t, err)
		})
	}

	_, err := ParseAmount("$,")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	_, err = ParseAmount("4x.50")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClassify(t *testing.T) {
	mag, kind := Classify(decimal.RequireFromString("-45.67"))
	assert.Equal(t, Expense, kind)
	assert.Equal(t, "45.67", mag.StringFixed(2))

	mag, kind = Classify(decimal.RequireFromString("2500"))
	assert.Equal(t, Income, kind)
	assert.Equal(t, "2500.00", mag.StringFixed(2))

	mag, kind = Classify(decimal.Zero)
	assert.Equal(t, Income, kind)
	assert.True(t, mag.IsZero())
}

func TestTransactionType_Sign(t *testing.T) {
	m := decimal.RequireFromString("12.50")
	assert.Equal(t, "-12.50", Expense.Sign(m).StringFixed(2))
	assert.Equal(t, "12.50", Income.Sign(m).StringFixed(2))
	assert.True(t, Expense.Valid())
	assert.False(t, TransactionType("Transfer").Valid())
}

func TestParseDate(t *testing.T) {
	layouts := []string{"2006-01-02", "01/02/2006"}

	got, err := ParseDate("2025-12-15", layouts...)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("12/15/2025", layouts...)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2025-13-40", layouts...)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("", layouts...)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestMonthDayDate(t *testing.T) {
	got, err := MonthDayDate("DEC", "15", "2025", 1999)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = MonthDayDate("JAN", "02", "", 2026)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, err = MonthDayDate("Feb", "3", "", 2024)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), got)

	_, err = MonthDayDate("XYZ", "15", "2025", 2025)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = MonthDayDate("FEB", "30", "2025", 2025)
	assert.ErrorIs(t, err, ErrInvalidDate)
}
