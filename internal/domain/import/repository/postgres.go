package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
)

// PostgresTransactionStore implements TransactionStore using PostgreSQL
type PostgresTransactionStore struct {
	db DBTX
}

// NewPostgresTransactionStore creates a new PostgreSQL transaction store
func NewPostgresTransactionStore(db DBTX) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

var _ TransactionStore = (*PostgresTransactionStore)(nil)

// ExistingFingerprints loads every dedup hash recorded for the budget space.
// Soft-deleted rows are ignored so a deleted transaction can be imported again.
func (r *PostgresTransactionStore) ExistingFingerprints(ctx context.Context, budgetSpaceID uuid.UUID) (fingerprint.Set, error) {
	query := `
		SELECT deduplication_hash
		FROM transactions
		WHERE budget_space_id = $1
		  AND deduplication_hash IS NOT NULL
		  AND is_deleted = false`

	rows, err := r.db.Query(ctx, query, budgetSpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	set := fingerprint.NewSet()
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		if hash != "" {
			set[hash] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fingerprints: %w", err)
	}
	return set, nil
}

// Create inserts a new transaction
func (r *PostgresTransactionStore) Create(ctx context.Context, tx *Transaction) (uuid.UUID, error) {
	query := `
		INSERT INTO transactions (
			id, budget_space_id, type, amount_minor, currency_code, exchange_rate_to_base,
			amount_in_base_minor, date, category_id, merchant, note, is_deleted, deduplication_hash
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	var hash *string
	if tx.DeduplicationHash != "" {
		hash = &tx.DeduplicationHash
	}

	err := r.db.QueryRow(ctx, query,
		tx.ID,
		tx.BudgetSpaceID,
		string(tx.Type),
		tx.AmountMinor,
		tx.CurrencyCode,
		tx.ExchangeRateToBase.String(),
		tx.AmountInBaseMinor,
		tx.Date,
		tx.CategoryID,
		tx.Merchant,
		tx.Note,
		tx.IsDeleted,
		hash,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx.ID, nil
}
