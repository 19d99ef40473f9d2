// Package currency resolves ISO 4217 currency codes to their subunit
// conventions
package currency

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/currency"
)

var (
	// ErrCurrencyCodeEmpty defines an error if the currency code is empty
	ErrCurrencyCodeEmpty = errors.New("currency code is empty")
	// ErrUnknownCurrency is returned when a code is not a recognised currency
	ErrUnknownCurrency = errors.New("unknown currency")

	errInvalidSubunitFactor = errors.New("subunit factor must be positive")
	errMalformedCode        = errors.New("currency code must be three letters")
)

// Metadata holds the subunit convention for a currency
type Metadata struct {
	Code string
	// SubunitFactor is how many of the smallest unit make one whole unit,
	// 100 for USD and 1 for JPY.
	SubunitFactor int64
}

// Table is the currency metadata lookup. ISO 4217 data comes from the
// compiled x/text tables, so the only state built by NewTable is the override
// set. A Table is immutable and safe for concurrent use.
type Table struct {
	overrides map[string]Metadata
}

// NewTable returns a Table backed by the ISO 4217 data set. overrides adds or
// replaces entries, for example BTC with a factor of 100000000.
func NewTable(overrides map[string]int64) (*Table, error) {
	t := &Table{
		overrides: make(map[string]Metadata, len(overrides)),
	}
	for code, factor := range overrides {
		c := strings.ToUpper(strings.TrimSpace(code))
		if c == "" {
			return nil, ErrCurrencyCodeEmpty
		}
		if !isAlpha(c) {
			return nil, fmt.Errorf("%w: %q", errMalformedCode, code)
		}
		if factor <= 0 {
			return nil, fmt.Errorf("%s %w: %d", c, errInvalidSubunitFactor, factor)
		}
		t.overrides[c] = Metadata{Code: c, SubunitFactor: factor}
	}
	return t, nil
}

// Lookup returns the metadata for a currency code, case-insensitive. Empty
// codes are unknown currencies.
func (t *Table) Lookup(code string) (Metadata, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return Metadata{}, fmt.Errorf("%w: %w", ErrUnknownCurrency, ErrCurrencyCodeEmpty)
	}
	if m, ok := t.overrides[c]; ok {
		return m, nil
	}
	return fromISO(c)
}

// SubunitFactor returns how many smallest units make one whole unit of code
func (t *Table) SubunitFactor(code string) (int64, error) {
	m, err := t.Lookup(code)
	if err != nil {
		return 0, err
	}
	return m.SubunitFactor, nil
}

// Validate checks every supplied code exists
func (t *Table) Validate(codes ...string) error {
	for i := range codes {
		if _, err := t.Lookup(codes[i]); err != nil {
			return err
		}
	}
	return nil
}

// Overrides returns the override codes in sorted order
func (t *Table) Overrides() []string {
	codes := make([]string, 0, len(t.overrides))
	for c := range t.overrides {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func fromISO(code string) (Metadata, error) {
	if len(code) != 3 || !isAlpha(code) {
		return Metadata{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return Metadata{
		Code:          unit.String(),
		SubunitFactor: int64(math.Pow10(scale)),
	}, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
