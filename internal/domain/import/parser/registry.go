package parser

import (
	"regexp"
	"sync"

	"github.com/FACorreiaa/statement-importer/internal/domain/import/sniffer"
)

// DateStyle says how the date groups of a pattern are read.
type DateStyle int

const (
	// MonthDay patterns capture "month", "day" and an optional "year" group.
	MonthDay DateStyle = iota
	// Numeric patterns capture a whole numeric "date" group parsed against DateLayouts.
	Numeric
)

// Descriptor describes the line shape of one statement layout. Pattern must
// define the named groups "desc" and "amount" plus the date groups required
// by DateStyle.
type Descriptor struct {
	Name        string
	Pattern     *regexp.Regexp
	DateStyle   DateStyle
	DateLayouts []string
}

// amountToken matches an optionally signed decimal with two places, an
// optional "$" and thousands separators.
const amountToken = `(?P<amount>[-+]?\$?\s*[\d,]+\.\d{2})`

// MonthDayDescriptor matches "DEC 15  STARBUCKS  -45.67" and
// "DEC 15 2025  SALARY DEPOSIT  +2500.00".
var MonthDayDescriptor = Descriptor{
	Name:      "month-day",
	Pattern:   regexp.MustCompile(`(?P<month>[A-Z]{3})\s+(?P<day>\d{1,2})(?:\s+(?P<year>\d{4}))?\s+(?P<desc>.+?)\s+` + amountToken),
	DateStyle: MonthDay,
}

// NumericDateDescriptor matches ISO or slash/dash delimited numeric dates
// such as "2025-12-15  PAYROLL  1,200.00" or "12/15/2025 GROCERY -54.10".
var NumericDateDescriptor = Descriptor{
	Name:      "numeric-date",
	Pattern:   regexp.MustCompile(`(?P<date>\d{4}[-/]\d{2}[-/]\d{2}|\d{2}[-/]\d{2}[-/]\d{4})\s+(?P<desc>.+?)\s+` + amountToken),
	DateStyle: Numeric,
	DateLayouts: []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006", // North American month first
		"01-02-2006",
		"02/01/2006", // day first, only reached when the month slot exceeds 12
		"02-01-2006",
	},
}

// Registry maps bank profiles to the descriptor used to scan their text.
// Profiles without an entry use the fallback descriptor.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[sniffer.Profile]Descriptor
	fallback    Descriptor
}

// NewRegistry creates a registry with only a fallback descriptor.
func NewRegistry(fallback Descriptor) *Registry {
	return &Registry{
		descriptors: make(map[sniffer.Profile]Descriptor),
		fallback:    fallback,
	}
}

// DefaultRegistry returns the built-in profile table. Only CIBC has a
// dedicated layout; the other Canadian banks share the numeric-date layout.
func DefaultRegistry() *Registry {
	r := NewRegistry(NumericDateDescriptor)
	r.Register(sniffer.ProfileCIBC, MonthDayDescriptor)
	r.Register(sniffer.ProfileTD, NumericDateDescriptor)
	r.Register(sniffer.ProfileRBC, NumericDateDescriptor)
	r.Register(sniffer.ProfileScotiabank, NumericDateDescriptor)
	r.Register(sniffer.ProfileGeneric, NumericDateDescriptor)
	return r
}

// Register sets or replaces the descriptor for a profile.
func (r *Registry) Register(profile sniffer.Profile, d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[profile] = d
}

// Lookup returns the descriptor for profile, or the fallback.
func (r *Registry) Lookup(profile sniffer.Profile) Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.descriptors[profile]; ok {
		return d
	}
	return r.fallback
}
