// Package service provides the PDF statement import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-importer/pkg/metrics"
	"github.com/FACorreiaa/statement-importer/pkg/money"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

const (
	// DefaultCurrency is assigned to imported records unless overridden.
	DefaultCurrency = money.CAD
	// DefaultNote is attached to every imported record unless overridden.
	DefaultNote = "Imported from PDF statement"
)

var (
	// ErrUnreadableInput wraps every text source failure: not a PDF, empty,
	// encrypted or structurally broken.
	ErrUnreadableInput = errors.New("unreadable statement")
	// ErrNoTransactionsFound matches *NoTransactionsError.
	ErrNoTransactionsFound = errors.New("no transactions found")
	// ErrInvalidItem is returned by Confirm for items that cannot be persisted.
	ErrInvalidItem = errors.New("invalid import item")
	// ErrNoStore is returned by Confirm on a service built without a store.
	ErrNoStore = errors.New("import service has no transaction store")
)

// NoTransactionsError reports a statement in which no transaction lines were
// recognised. It is returned together with the (empty) preview.
type NoTransactionsError struct {
	Profile sniffer.Profile
}

func (e *NoTransactionsError) Error() string {
	return fmt.Sprintf("no transactions found in statement (bank detected: %s)", e.Profile)
}

// Is makes errors.Is(err, ErrNoTransactionsFound) match.
func (e *NoTransactionsError) Is(target error) bool {
	return target == ErrNoTransactionsFound
}

// ImportPreviewItem is one parsed transaction shown to the user before import.
// Amount is the non-negative magnitude.
type ImportPreviewItem struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        normalizer.TransactionType
	IsDuplicate bool
	Fingerprint string
}

// ImportPreview is the result of parsing a statement, ordered by date.
type ImportPreview struct {
	BankDetected       sniffer.Profile
	TotalTransactions  int
	DuplicatesDetected int
	Transactions       []ImportPreviewItem
	// MalformedSkipped counts lines that matched a pattern but did not parse.
	MalformedSkipped int
}

// ConfirmRequest carries the items the user accepted from a preview.
type ConfirmRequest struct {
	BudgetSpaceID    uuid.UUID
	CategoryID       *uuid.UUID
	ImportDuplicates bool
	Transactions     []ImportPreviewItem
}

// ImportOutcome summarises a confirmed import.
type ImportOutcome struct {
	ImportedCount  int
	SkippedCount   int
	TransactionIDs []uuid.UUID
}

// ImportService orchestrates statement previews and confirmed imports
type ImportService struct {
	store    repository.TransactionStore
	source   pdftext.Source
	detector *sniffer.Detector
	parser   *parser.Parser
	metrics  *metrics.ImportMetrics
	currency string
	note     string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewImportService creates a new import service. store may be nil for
// offline previews; Confirm then fails with ErrNoStore.
func NewImportService(store repository.TransactionStore, source pdftext.Source, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		store:    store,
		source:   source,
		detector: sniffer.NewDetector(sniffer.DefaultMarkers()),
		parser:   parser.NewParser(parser.Config{Logger: logger}),
		currency: DefaultCurrency,
		note:     DefaultNote,
		logger:   logger,
		tracer:   otel.Tracer("import.service"),
	}
}

// WithParser replaces the statement parser
func (s *ImportService) WithParser(p *parser.Parser) *ImportService {
	s.parser = p
	return s
}

// WithDetector replaces the bank format detector
func (s *ImportService) WithDetector(d *sniffer.Detector) *ImportService {
	s.detector = d
	return s
}

// WithMetrics adds Prometheus instrumentation
func (s *ImportService) WithMetrics(m *metrics.ImportMetrics) *ImportService {
	s.metrics = m
	return s
}

// WithRecordDefaults sets the currency and note assigned to imported records.
// Empty values keep the current setting.
func (s *ImportService) WithRecordDefaults(currency, note string) *ImportService {
	if currency != "" {
		s.currency = currency
	}
	if note != "" {
		s.note = note
	}
	return s
}

// Preview extracts the text of a PDF statement and builds an import preview
// for the budget space. Extraction failures are wrapped in ErrUnreadableInput
// and happen before any parsing or store access.
func (s *ImportService) Preview(ctx context.Context, budgetSpaceID uuid.UUID, r io.ReaderAt, size int64) (*ImportPreview, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ImportService.Preview")
	defer span.End()
	span.SetAttributes(attribute.String("budget_space.id", budgetSpaceID.String()))

	pages, err := s.source.Extract(ctx, r, size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "text extraction failed")
		return nil, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}

	return s.preview(ctx, span, budgetSpaceID, pdftext.JoinPages(pages), start)
}

// PreviewText builds a preview from already extracted statement text.
func (s *ImportService) PreviewText(ctx context.Context, budgetSpaceID uuid.UUID, text string) (*ImportPreview, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ImportService.PreviewText")
	defer span.End()
	span.SetAttributes(attribute.String("budget_space.id", budgetSpaceID.String()))

	return s.preview(ctx, span, budgetSpaceID, text, start)
}

func (s *ImportService) preview(ctx context.Context, span trace.Span, budgetSpaceID uuid.UUID, text string, start time.Time) (*ImportPreview, error) {
	profile := s.detector.Detect(text)
	span.SetAttributes(attribute.String("import.bank", string(profile)))

	result, err := s.parser.Parse(text, profile)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse %s statement: %w", profile, err)
	}

	candidates := result.Transactions
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Date.Before(candidates[j].Date)
	})

	preview := &ImportPreview{
		BankDetected:     profile,
		Transactions:     make([]ImportPreviewItem, 0, len(candidates)),
		MalformedSkipped: len(result.Skipped),
	}

	if len(candidates) == 0 {
		s.metrics.ObservePreview(string(profile), 0, 0, preview.MalformedSkipped, time.Since(start))
		s.logger.Info("no transactions found in statement",
			slog.String("budget_space_id", budgetSpaceID.String()),
			slog.String("bank", string(profile)),
			slog.Int("malformed_skipped", preview.MalformedSkipped),
		)
		return preview, &NoTransactionsError{Profile: profile}
	}

	existing, err := s.existingFingerprints(ctx, budgetSpaceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, tx := range candidates {
		item := ImportPreviewItem{
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
			Type:        tx.Type,
			IsDuplicate: existing.Contains(tx.Fingerprint),
			Fingerprint: tx.Fingerprint,
		}
		if item.IsDuplicate {
			preview.DuplicatesDetected++
		}
		preview.Transactions = append(preview.Transactions, item)
	}
	preview.TotalTransactions = len(preview.Transactions)

	span.SetAttributes(
		attribute.Int("import.total", preview.TotalTransactions),
		attribute.Int("import.duplicates", preview.DuplicatesDetected),
	)
	s.metrics.ObservePreview(string(profile), preview.TotalTransactions, preview.DuplicatesDetected, preview.MalformedSkipped, time.Since(start))
	s.logger.Info("statement preview built",
		slog.String("budget_space_id", budgetSpaceID.String()),
		slog.String("bank", string(profile)),
		slog.Int("total", preview.TotalTransactions),
		slog.Int("duplicates", preview.DuplicatesDetected),
		slog.Int("malformed_skipped", preview.MalformedSkipped),
	)

	return preview, nil
}

func (s *ImportService) existingFingerprints(ctx context.Context, budgetSpaceID uuid.UUID) (fingerprint.Set, error) {
	if s.store == nil {
		return fingerprint.NewSet(), nil
	}
	set, err := s.store.ExistingFingerprints(ctx, budgetSpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing fingerprints: %w", err)
	}
	return set, nil
}

// Confirm persists the submitted items. Items flagged as duplicates are
// skipped unless ImportDuplicates is set. Every item is validated before the
// first create, so ErrInvalidItem means nothing was persisted. Items are then
// created one by one; on a store failure the outcome so far is returned with
// the error.
func (s *ImportService) Confirm(ctx context.Context, req ConfirmRequest) (*ImportOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget_space.id", req.BudgetSpaceID.String()),
		attribute.Int("import.submitted", len(req.Transactions)),
		attribute.Bool("import.duplicates_allowed", req.ImportDuplicates),
	)

	if s.store == nil {
		return nil, ErrNoStore
	}

	var (
		records []pendingRecord
		skipped int
	)
	for i, item := range req.Transactions {
		if item.IsDuplicate && !req.ImportDuplicates {
			skipped++
			continue
		}
		record, amount, err := s.buildRecord(req, item)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid item")
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records = append(records, pendingRecord{index: i, record: record, amount: amount})
	}

	outcome := &ImportOutcome{SkippedCount: skipped, TransactionIDs: make([]uuid.UUID, 0, len(records))}
	total := money.Zero(s.currency)
	for _, p := range records {
		id, err := s.store.Create(ctx, p.record)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create failed")
			s.metrics.ObserveConfirm(outcome.ImportedCount, outcome.SkippedCount)
			s.logger.Error("failed to persist imported transaction",
				slog.String("budget_space_id", req.BudgetSpaceID.String()),
				slog.Int("item", p.index),
				slog.Int("imported", outcome.ImportedCount),
				slog.Any("error", err),
			)
			return outcome, fmt.Errorf("item %d: %w", p.index, err)
		}
		outcome.TransactionIDs = append(outcome.TransactionIDs, id)
		outcome.ImportedCount++
		if sum, err := total.Add(p.amount); err == nil {
			total = sum
		}
	}

	span.SetAttributes(attribute.String("import.total", total.String()))
	s.metrics.ObserveConfirm(outcome.ImportedCount, outcome.SkippedCount)
	s.logger.Info("statement import confirmed",
		slog.String("budget_space_id", req.BudgetSpaceID.String()),
		slog.Int("imported", outcome.ImportedCount),
		slog.Int("skipped", outcome.SkippedCount),
		slog.String("total", total.Display()),
	)
	return outcome, nil
}

type pendingRecord struct {
	index  int
	record *repository.Transaction
	amount *money.Money
}

// buildRecord validates item and maps it to the stored shape. The returned
// Money is the record amount in the import currency.
func (s *ImportService) buildRecord(req ConfirmRequest, item ImportPreviewItem) (*repository.Transaction, *money.Money, error) {
	if !item.Type.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown type %q", ErrInvalidItem, item.Type)
	}
	if item.Date.IsZero() {
		return nil, nil, fmt.Errorf("%w: missing date", ErrInvalidItem)
	}

	hash := item.Fingerprint
	if hash == "" {
		hash = fingerprint.Compute(item.Date, item.Description, item.Type.Sign(item.Amount))
	}

	amount, err := money.NewFromDecimal(item.Amount, s.currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	switch {
	case amount.IsNegative():
		return nil, nil, fmt.Errorf("%w: amount must be a non-negative magnitude", ErrInvalidItem)
	case amount.IsZero():
		return nil, nil, fmt.Errorf("%w: amount %s rounds to zero", ErrInvalidItem, item.Amount)
	}
	rate := decimal.NewFromInt(1)
	inBase, err := amount.Convert(s.currency, rate)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	txType := repository.TransactionTypeIncome
	if item.Type == normalizer.Expense {
		txType = repository.TransactionTypeExpense
	}

	return &repository.Transaction{
		BudgetSpaceID:      req.BudgetSpaceID,
		Type:               txType,
		AmountMinor:        amount.Amount(),
		CurrencyCode:       amount.Currency(),
		ExchangeRateToBase: rate,
		AmountInBaseMinor:  inBase.Amount(),
		Date:               item.Date.UTC(),
		CategoryID:         req.CategoryID,
		Merchant:           item.Description,
		Note:               s.note,
		DeduplicationHash:  hash,
	}, amount, nil
}
