// Package parser scans extracted bank statement text for transaction-shaped
// substrings and turns them into normalized candidates.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/fingerprint"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-importer/internal/domain/import/sniffer"
)

// ParsedTransaction is one candidate found in a statement. Amount is the
// non-negative magnitude; Type carries the direction.
type ParsedTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Type        normalizer.TransactionType
	Fingerprint string
}

// SignedAmount returns the amount with expenses negated.
func (t ParsedTransaction) SignedAmount() decimal.Decimal {
	return t.Type.Sign(t.Amount)
}

// MalformedMatchError describes a pattern match whose date or amount could
// not be converted.
type MalformedMatchError struct {
	Match string
	Err   error
}

func (e *MalformedMatchError) Error() string {
	return fmt.Sprintf("malformed statement line %q: %v", e.Match, e.Err)
}

func (e *MalformedMatchError) Unwrap() error {
	return e.Err
}

// Policy decides what happens to malformed matches.
type Policy int

const (
	// PolicySkip drops malformed matches and keeps scanning.
	PolicySkip Policy = iota
	// PolicyReport stops at the first malformed match and returns it as an error.
	PolicyReport
)

// Result contains the candidates found in one statement.
type Result struct {
	Profile      sniffer.Profile
	Transactions []ParsedTransaction
	Skipped      []MalformedMatchError
}

// Config configures the parser.
type Config struct {
	Registry *Registry
	Policy   Policy
	// Now supplies the year for dates printed without one.
	Now    func() time.Time
	Logger *slog.Logger
}

// DefaultConfig returns the built-in registry, PolicySkip and the wall clock.
func DefaultConfig() Config {
	return Config{
		Registry: DefaultRegistry(),
		Policy:   PolicySkip,
		Now:      time.Now,
		Logger:   slog.Default(),
	}
}

// Parser extracts transactions from statement text. It holds no per-call
// state and is safe for concurrent use.
type Parser struct {
	config Config
}

// NewParser creates a parser, filling unset fields from DefaultConfig.
func NewParser(config Config) *Parser {
	defaults := DefaultConfig()
	if config.Registry == nil {
		config.Registry = defaults.Registry
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	return &Parser{config: config}
}

// Parse scans text with the descriptor registered for profile. Matches are
// found independently of line boundaries and returned in text order.
// An error is only returned under PolicyReport.
func (p *Parser) Parse(text string, profile sniffer.Profile) (*Result, error) {
	d := p.config.Registry.Lookup(profile)
	result := &Result{
		Profile:      profile,
		Transactions: make([]ParsedTransaction, 0),
	}
	if d.Pattern == nil || text == "" {
		return result, nil
	}

	year := p.config.Now().Year()
	names := d.Pattern.SubexpNames()

	for _, loc := range d.Pattern.FindAllStringSubmatchIndex(text, -1) {
		groups := make(map[string]string, len(names))
		for i, name := range names {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			groups[name] = text[loc[2*i]:loc[2*i+1]]
		}

		tx, err := buildTransaction(d, groups, year)
		if err != nil {
			if herr := p.handleMalformed(result, text[loc[0]:loc[1]], err); herr != nil {
				return result, herr
			}
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}

	return result, nil
}

// handleMalformed is the single place that decides whether a malformed match
// is dropped or reported.
func (p *Parser) handleMalformed(result *Result, match string, err error) error {
	merr := &MalformedMatchError{Match: strings.TrimSpace(match), Err: err}
	if p.config.Policy == PolicyReport {
		return merr
	}
	result.Skipped = append(result.Skipped, *merr)
	p.config.Logger.Debug("skipping malformed statement line",
		slog.String("profile", string(result.Profile)),
		slog.Any("error", err),
	)
	return nil
}

var errNoDate = errors.New("pattern captured no date")

func buildTransaction(d Descriptor, groups map[string]string, fallbackYear int) (ParsedTransaction, error) {
	var (
		date time.Time
		err  error
	)
	switch d.DateStyle {
	case MonthDay:
		date, err = normalizer.MonthDayDate(groups["month"], groups["day"], groups["year"], fallbackYear)
	case Numeric:
		date, err = normalizer.ParseDate(groups["date"], d.DateLayouts...)
	default:
		err = errNoDate
	}
	if err != nil {
		return ParsedTransaction{}, err
	}

	amount, err := normalizer.ParseAmount(groups["amount"])
	if err != nil {
		return ParsedTransaction{}, err
	}

	rawDesc := strings.TrimSpace(groups["desc"])
	magnitude, kind := normalizer.Classify(amount)

	return ParsedTransaction{
		Date:        date,
		Description: normalizer.CleanDescription(rawDesc),
		Amount:      magnitude,
		Type:        kind,
		Fingerprint: fingerprint.Compute(date, rawDesc, amount),
	}, nil
}
