// Package forexprovider resolves exchange rates through an ordered list of
// foreign exchange API services, falling over to the next service when one
// fails transiently
package forexprovider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/currency"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/log"
)

var (
	// ErrAllProvidersFailed is matched by every *AllProvidersFailedError
	ErrAllProvidersFailed = errors.New("all forex providers failed")
	// ErrNoProvidersSupplied is returned when the provider order is empty
	ErrNoProvidersSupplied = errors.New("no forex providers supplied")
	// ErrNoTargetCurrencies is returned when a historic lookup has no targets
	ErrNoTargetCurrencies = errors.New("no target currencies supplied")

	errRegistryIsNil      = errors.New("forex provider registry is nil")
	errCurrencyTableIsNil = errors.New("currency table is nil")
)

// ForexProviders resolves rates from registered providers in caller supplied
// order
type ForexProviders struct {
	registry *Registry
	table    *currency.Table
}

// ExchangeResult is the outcome of a successful exchange lookup
type ExchangeResult struct {
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	// ExchangeRate is per smallest unit of the base currency
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	// RawRate is per whole unit of the base currency
	RawRate        decimal.Decimal `json:"rawRate"`
	SourceProvider string          `json:"sourceProvider"`
}

// AttemptError is the reason a single provider attempt failed
type AttemptError struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (a AttemptError) Error() string {
	var pe *base.ProviderError
	if errors.As(a.Err, &pe) && pe.Provider == a.Provider {
		return a.Provider + ": " + pe.Err.Error()
	}
	return a.Provider + ": " + a.Err.Error()
}

// Unwrap returns the underlying error
func (a AttemptError) Unwrap() error {
	return a.Err
}

// AllProvidersFailedError is returned once every provider in the order has
// failed transiently
type AllProvidersFailedError struct {
	Base     string
	Target   string
	Attempts []AttemptError
}

// Error implements the error interface
func (e *AllProvidersFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("failed to load ")
	sb.WriteString(e.Base)
	sb.WriteString("->")
	sb.WriteString(e.Target)
	sb.WriteString(":")
	for i := range e.Attempts {
		sb.WriteString("\n")
		sb.WriteString(e.Attempts[i].Error())
	}
	return sb.String()
}

// Is allows errors.Is to match ErrAllProvidersFailed
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns every attempt error in attempt order
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i := range e.Attempts {
		errs[i] = e.Attempts[i]
	}
	return errs
}

// NewForexProviders returns a failover engine over the registry
func NewForexProviders(registry *Registry, table *currency.Table) (*ForexProviders, error) {
	if registry == nil {
		return nil, errRegistryIsNil
	}
	if table == nil {
		return nil, errCurrencyTableIsNil
	}
	return &ForexProviders{registry: registry, table: table}, nil
}

// Registry returns the provider registry backing the engine
func (f *ForexProviders) Registry() *Registry {
	return f.registry
}

// Convert returns amount, expressed in the smallest unit of baseCurrency,
// converted into targetCurrency
func (f *ForexProviders) Convert(ctx context.Context, amount decimal.Decimal, baseCurrency, targetCurrency string, providerOrder []string) (decimal.Decimal, error) {
	result, err := f.GetExchangeData(ctx, amount, baseCurrency, targetCurrency, providerOrder)
	if err != nil {
		return decimal.Zero, err
	}
	return result.ConvertedAmount, nil
}

// GetExchangeRate returns the rate per smallest unit of baseCurrency from the
// first provider in providerOrder that succeeds
func (f *ForexProviders) GetExchangeRate(ctx context.Context, baseCurrency, targetCurrency string, providerOrder []string) (decimal.Decimal, error) {
	result, err := f.GetExchangeData(ctx, decimal.NewFromInt(1), baseCurrency, targetCurrency, providerOrder)
	if err != nil {
		return decimal.Zero, err
	}
	return result.ExchangeRate, nil
}

// GetExchangeData converts amount, expressed in the smallest unit of
// baseCurrency, and returns the rate details alongside the provider that
// served them
func (f *ForexProviders) GetExchangeData(ctx context.Context, amount decimal.Decimal, baseCurrency, targetCurrency string, providerOrder []string) (*ExchangeResult, error) {
	baseCurrency = strings.ToUpper(baseCurrency)
	targetCurrency = strings.ToUpper(targetCurrency)
	factor, err := f.table.SubunitFactor(baseCurrency)
	if err != nil {
		return nil, err
	}
	if err = f.table.Validate(targetCurrency); err != nil {
		return nil, err
	}
	providers, err := f.resolve(providerOrder)
	if err != nil {
		return nil, err
	}

	callID := newCallID()
	var rate decimal.Decimal
	source, err := f.attempt(ctx, callID, baseCurrency, targetCurrency, providerOrder, providers, func(p base.Provider) error {
		r, err := p.GetCurrentRate(ctx, baseCurrency, targetCurrency)
		if err != nil {
			return err
		}
		if !r.IsPositive() {
			return fmt.Errorf("%w: %s%s", base.ErrRateNotFound, baseCurrency, targetCurrency)
		}
		rate = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	rawRate, err := base.WholeUnit(rate, factor)
	if err != nil {
		return nil, err
	}
	return &ExchangeResult{
		ConvertedAmount: rate.Mul(amount),
		ExchangeRate:    rate,
		RawRate:         rawRate,
		SourceProvider:  source,
	}, nil
}

// GetHistoricRate returns per smallest unit rates from baseCurrency into each
// target currency on date, keyed by upper case target code
func (f *ForexProviders) GetHistoricRate(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time, providerOrder []string) (map[string]decimal.Decimal, error) {
	if len(targetCurrencies) == 0 {
		return nil, ErrNoTargetCurrencies
	}
	baseCurrency = strings.ToUpper(baseCurrency)
	targets := make([]string, len(targetCurrencies))
	for i := range targetCurrencies {
		targets[i] = strings.ToUpper(targetCurrencies[i])
	}
	if err := f.table.Validate(baseCurrency); err != nil {
		return nil, err
	}
	if err := f.table.Validate(targets...); err != nil {
		return nil, err
	}
	providers, err := f.resolve(providerOrder)
	if err != nil {
		return nil, err
	}

	callID := newCallID()
	var rates map[string]decimal.Decimal
	_, err = f.attempt(ctx, callID, baseCurrency, strings.Join(targets, ","), providerOrder, providers, func(p base.Provider) error {
		r, err := p.GetHistoricRates(ctx, baseCurrency, targets, date)
		if err != nil {
			return err
		}
		rates = make(map[string]decimal.Decimal, len(r))
		for k, v := range r {
			rates[strings.ToUpper(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (f *ForexProviders) resolve(providerOrder []string) ([]base.Provider, error) {
	if len(providerOrder) == 0 {
		return nil, ErrNoProvidersSupplied
	}
	return f.registry.ResolveAll(providerOrder)
}

// attempt calls fn against each provider in order until one succeeds. A
// transient failure moves on to the next provider, anything else is returned
// straight away.
func (f *ForexProviders) attempt(ctx context.Context, callID, baseCurrency, target string, providerOrder []string, providers []base.Provider, fn func(base.Provider) error) (string, error) {
	var attempts []AttemptError
	for i := range providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := providerOrder[i]
		log.Debugf(log.ForexSys, "[%s] fetching %s->%s from %s", callID, baseCurrency, target, id)
		err := fn(providers[i])
		if err == nil {
			log.Debugf(log.ForexSys, "[%s] %s->%s served by %s", callID, baseCurrency, target, id)
			return id, nil
		}
		err = base.ClassifyError(id, err)
		if !base.IsTransient(err) {
			log.Errorf(log.ForexSys, "[%s] %s->%s aborted by %s: %v", callID, baseCurrency, target, id, err)
			return "", err
		}
		log.Warnf(log.ForexSys, "[%s] %s->%s failed on %s, trying next provider: %v", callID, baseCurrency, target, id, err)
		attempts = append(attempts, AttemptError{Provider: id, Err: err})
	}
	return "", &AllProvidersFailedError{
		Base:     baseCurrency,
		Target:   target,
		Attempts: attempts,
	}
}

func newCallID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}
