// Package repository provides persistence for imported statement transactions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
)

// TransactionType is the stored direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is a persisted transaction record. Amounts are unsigned minor
// units; Type carries the direction.
type Transaction struct {
	ID                 uuid.UUID
	BudgetSpaceID      uuid.UUID
	Type               TransactionType
	AmountMinor        int64
	CurrencyCode       string
	ExchangeRateToBase decimal.Decimal
	AmountInBaseMinor  int64
	Date               time.Time
	CategoryID         *uuid.UUID
	Merchant           string
	Note               string
	IsDeleted          bool
	DeduplicationHash  string
	CreatedAt          time.Time
}

// TransactionStore is the persistence collaborator of the import service
type TransactionStore interface {
	// ExistingFingerprints returns the dedup hashes of live transactions in a budget space.
	ExistingFingerprints(ctx context.Context, budgetSpaceID uuid.UUID) (fingerprint.Set, error)
	// Create inserts a transaction and returns its ID.
	Create(ctx context.Context, tx *Transaction) (uuid.UUID, error)
}

// DBTX is the subset of pgxpool.Pool used by the repository. pgxmock pools
// satisfy it as well.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
