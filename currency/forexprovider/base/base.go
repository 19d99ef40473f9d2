// Package base holds the provider contract, settings and error
// classification shared by every forex provider
package base

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrSubunitLookupUnset is returned when a provider has no way to resolve
	// currency subunits
	ErrSubunitLookupUnset = errors.New("subunit lookup unset")

	errInvalidSubunitFactor = errors.New("subunit factor must be positive")
)

// GetName returns name of provider
func (b *Base) GetName() string {
	return b.Name
}

// IsEnabled returns true if enabled
func (b *Base) IsEnabled() bool {
	return b.Enabled
}

// Setup applies settings shared by every provider, defaulting timeouts
func (b *Base) Setup(s Settings, lookup SubunitLookup) error {
	if lookup == nil {
		return ErrSubunitLookupUnset
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.ConnectTimeout <= 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
	b.Settings = s
	b.Subunits = lookup
	return nil
}

// Normalise converts a whole unit wire rate into the per smallest unit rate of
// baseCurrency
func (b *Base) Normalise(baseCurrency string, wireRate decimal.Decimal) (decimal.Decimal, error) {
	factor, err := b.subunitFactor(baseCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	return PerSubunit(wireRate, factor)
}

// NormaliseAll converts a map of whole unit wire rates keyed by target code
// into per smallest unit rates of baseCurrency. Non-positive rates are
// rejected as missing.
func (b *Base) NormaliseAll(baseCurrency string, wireRates map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	factor, err := b.subunitFactor(baseCurrency)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(wireRates))
	for code, rate := range wireRates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: %s%s", ErrRateNotFound, baseCurrency, code)
		}
		perSubunit, err := PerSubunit(rate, factor)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(code)] = perSubunit
	}
	return out, nil
}

// SubunitAmount returns one smallest unit of baseCurrency expressed in whole
// units, 0.01 for USD
func (b *Base) SubunitAmount(baseCurrency string) (decimal.Decimal, error) {
	factor, err := b.subunitFactor(baseCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	return SubunitAmount(factor)
}

func (b *Base) subunitFactor(code string) (int64, error) {
	if b.Subunits == nil {
		return 0, ErrSubunitLookupUnset
	}
	return b.Subunits.SubunitFactor(code)
}

// PerSubunit converts a rate quoted per whole unit of the base currency into
// a rate per smallest unit
func PerSubunit(wireRate decimal.Decimal, factor int64) (decimal.Decimal, error) {
	if factor <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", errInvalidSubunitFactor, factor)
	}
	if factor == 1 {
		return wireRate, nil
	}
	return wireRate.Div(decimal.NewFromInt(factor)), nil
}

// WholeUnit converts a per smallest unit rate back to a rate per whole unit
func WholeUnit(rate decimal.Decimal, factor int64) (decimal.Decimal, error) {
	if factor <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", errInvalidSubunitFactor, factor)
	}
	return rate.Mul(decimal.NewFromInt(factor)), nil
}

// SubunitAmount returns the whole unit value of one smallest unit
func SubunitAmount(factor int64) (decimal.Decimal, error) {
	return PerSubunit(decimal.NewFromInt(1), factor)
}
