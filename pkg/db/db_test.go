package db

import (
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := New(Config{}, logger)
	assert.ErrorContains(t, err, "DSN is empty")

	_, err = New(Config{DSN: "postgres://%zz"}, logger)
	assert.ErrorContains(t, err, "failed to parse database config")
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := fs.ReadFile(migrations, "migrations/00001_create_transactions.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "-- +goose Up")
	assert.Contains(t, sql, "-- +goose Down")
	assert.Contains(t, sql, "deduplication_hash")
	assert.False(t, strings.Contains(sql, "UNIQUE INDEX"), "dedup index stays non-unique")
}
