package forexprovider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/omniexchange/currency"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/request"
)

// stubProvider is a deterministic provider that counts how often it is called
type stubProvider struct {
	name     string
	rate     decimal.Decimal
	historic map[string]decimal.Decimal
	err      error

	mtx     sync.Mutex
	current int
	history int
}

func (s *stubProvider) GetName() string { return s.name }

func (s *stubProvider) GetCurrentRate(_ context.Context, _, _ string) (decimal.Decimal, error) {
	s.mtx.Lock()
	s.current++
	s.mtx.Unlock()
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

func (s *stubProvider) GetHistoricRates(_ context.Context, _ string, _ []string, _ time.Time) (map[string]decimal.Decimal, error) {
	s.mtx.Lock()
	s.history++
	s.mtx.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.historic, nil
}

func (s *stubProvider) calls() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.current + s.history
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var connectTimeout = &url.Error{Op: "Get", URL: "https://xecdapi.xe.com/v1/convert_from.json/", Err: timeoutError{}}

func newEngine(t *testing.T, stubs ...*stubProvider) *ForexProviders {
	t.Helper()
	tbl, err := currency.NewTable(nil)
	require.NoError(t, err)
	r := NewRegistry()
	for _, s := range stubs {
		require.NoError(t, r.Register(s.name, s))
	}
	f, err := NewForexProviders(r, tbl)
	require.NoError(t, err)
	return f
}

func TestNewForexProviders(t *testing.T) {
	t.Parallel()
	tbl, err := currency.NewTable(nil)
	require.NoError(t, err)
	_, err = NewForexProviders(nil, tbl)
	require.ErrorIs(t, err, errRegistryIsNil)
	_, err = NewForexProviders(NewRegistry(), nil)
	require.ErrorIs(t, err, errCurrencyTableIsNil)

	r := NewRegistry()
	f, err := NewForexProviders(r, tbl)
	require.NoError(t, err)
	assert.Same(t, r, f.Registry())
}

func TestConcreteFailoverScenario(t *testing.T) {
	t.Parallel()
	xe := &stubProvider{name: "xe", err: connectTimeout}
	oxr := &stubProvider{name: "open_exchange_rates", rate: decimal.RequireFromString("0.009521811")}
	f := newEngine(t, xe, oxr)

	rate, err := f.GetExchangeRate(t.Context(), "USD", "JPY", []string{"xe", "open_exchange_rates"})
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.009521811")), "got %s", rate)
	assert.Equal(t, 1, xe.calls(), "xe should be called exactly once")
	assert.Equal(t, 1, oxr.calls(), "open_exchange_rates should be called exactly once")
}

func TestConvertFailover(t *testing.T) {
	t.Parallel()
	p1 := &stubProvider{name: "p1", err: base.NewTransientError("p1", base.ErrQuotaExceeded)}
	p2 := &stubProvider{name: "p2", rate: decimal.RequireFromString("1.4108")}
	p3 := &stubProvider{name: "p3", rate: decimal.RequireFromString("9")}
	f := newEngine(t, p1, p2, p3)

	amount := decimal.NewFromInt(12345)
	converted, err := f.Convert(t.Context(), amount, "USD", "JPY", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.True(t, converted.Equal(amount.Mul(decimal.RequireFromString("1.4108"))), "got %s", converted)
	assert.Equal(t, 1, p1.calls())
	assert.Equal(t, 1, p2.calls())
	assert.Zero(t, p3.calls(), "no provider may be tried after a success")
}

func TestGetExchangeData(t *testing.T) {
	t.Parallel()
	p := &stubProvider{name: "open_exchange_rates", rate: decimal.RequireFromString("0.009521811")}
	f := newEngine(t, p)

	res, err := f.GetExchangeData(t.Context(), decimal.NewFromInt(500), "usd", "jpy", []string{"open_exchange_rates"})
	require.NoError(t, err)
	assert.True(t, res.ExchangeRate.Equal(decimal.RequireFromString("0.009521811")))
	assert.True(t, res.RawRate.Equal(decimal.RequireFromString("0.9521811")), "raw rate should be per whole dollar")
	assert.True(t, res.RawRate.Equal(res.ExchangeRate.Mul(decimal.NewFromInt(100))))
	assert.True(t, res.ConvertedAmount.Equal(decimal.RequireFromString("4.7609055")))
	assert.Equal(t, "open_exchange_rates", res.SourceProvider)

	res, err = f.GetExchangeData(t.Context(), decimal.NewFromInt(500), "JPY", "USD", []string{"open_exchange_rates"})
	require.NoError(t, err)
	assert.True(t, res.RawRate.Equal(res.ExchangeRate), "currencies without subunits have a factor of one")

	res, err = f.GetExchangeData(t.Context(), decimal.NewFromInt(1), "KWD", "USD", []string{"open_exchange_rates"})
	require.NoError(t, err)
	assert.True(t, res.RawRate.Equal(res.ExchangeRate.Mul(decimal.NewFromInt(1000))))
}

func TestGetExchangeDataIdempotent(t *testing.T) {
	t.Parallel()
	p1 := &stubProvider{name: "p1", err: connectTimeout}
	p2 := &stubProvider{name: "p2", rate: decimal.RequireFromString("0.0092")}
	f := newEngine(t, p1, p2)

	first, err := f.GetExchangeData(t.Context(), decimal.NewFromInt(100), "USD", "EUR", []string{"p1", "p2"})
	require.NoError(t, err)
	for range 5 {
		again, err := f.GetExchangeData(t.Context(), decimal.NewFromInt(100), "USD", "EUR", []string{"p1", "p2"})
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical calls should yield identical results")
	}
	assert.Equal(t, 6, p1.calls())
	assert.Equal(t, 6, p2.calls())
}

func TestAllProvidersFailed(t *testing.T) {
	t.Parallel()
	p1 := &stubProvider{name: "xe", err: connectTimeout}
	p2 := &stubProvider{name: "open_exchange_rates", err: base.NewTransientError("open_exchange_rates", fmt.Errorf("%w: too_many_requests", base.ErrQuotaExceeded))}
	p3 := &stubProvider{name: "fixer", rate: decimal.Zero}
	f := newEngine(t, p1, p2, p3)

	_, err := f.Convert(t.Context(), decimal.NewFromInt(1), "USD", "JPY", []string{"xe", "open_exchange_rates", "fixer"})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.ErrorIs(t, err, base.ErrQuotaExceeded, "attempt errors should be reachable")
	require.ErrorIs(t, err, base.ErrRateNotFound, "a zero rate must count as a missing rate")

	var failed *AllProvidersFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "USD", failed.Base)
	assert.Equal(t, "JPY", failed.Target)
	require.Len(t, failed.Attempts, 3)
	for i, id := range []string{"xe", "open_exchange_rates", "fixer"} {
		assert.Equal(t, id, failed.Attempts[i].Provider)
		assert.True(t, base.IsTransient(failed.Attempts[i].Err))
	}

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "failed to load USD->JPY:"), msg)
	xeAt := strings.Index(msg, "xe: Get")
	oxrAt := strings.Index(msg, "open_exchange_rates: provider quota exceeded: too_many_requests")
	fixerAt := strings.Index(msg, "fixer: rate not found in response")
	require.NotEqual(t, -1, xeAt, msg)
	require.NotEqual(t, -1, oxrAt, msg)
	require.NotEqual(t, -1, fixerAt, msg)
	assert.Less(t, xeAt, oxrAt, "diagnostics must be in attempt order")
	assert.Less(t, oxrAt, fixerAt, "diagnostics must be in attempt order")
	assert.Contains(t, msg, "i/o timeout")

	for _, p := range []*stubProvider{p1, p2, p3} {
		assert.Equal(t, 1, p.calls())
	}
}

func TestFatalErrorAbortsFailover(t *testing.T) {
	t.Parallel()
	p1 := &stubProvider{name: "p1", err: base.NewFatalError("p1", base.ErrCredentialsUnset)}
	p2 := &stubProvider{name: "p2", rate: decimal.NewFromInt(1)}
	f := newEngine(t, p1, p2)

	_, err := f.GetExchangeRate(t.Context(), "USD", "EUR", []string{"p1", "p2"})
	require.ErrorIs(t, err, base.ErrCredentialsUnset)
	assert.NotErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, 1, p1.calls())
	assert.Zero(t, p2.calls(), "a fatal error must stop the failover sequence")

	unclassified := &stubProvider{name: "p3", err: errors.New("unexpected")}
	f = newEngine(t, unclassified, p2)
	_, err = f.GetExchangeRate(t.Context(), "USD", "EUR", []string{"p3", "p2"})
	require.ErrorContains(t, err, "unexpected")
	assert.Zero(t, p2.calls(), "unclassified errors are fatal")
}

func TestRejectedCredentialsAbortFailover(t *testing.T) {
	t.Parallel()
	rejected := fmt.Errorf("%w: Bad credentials: %w", base.ErrCredentialsRejected, &request.StatusError{
		Name:       "xe",
		StatusCode: 401,
		Body:       []byte(`{"code":1,"message":"Bad credentials"}`),
	})
	xe := &stubProvider{name: "xe", err: base.ClassifyError("xe", rejected)}
	oxr := &stubProvider{name: "open_exchange_rates", rate: decimal.NewFromInt(2)}
	f := newEngine(t, xe, oxr)

	_, err := f.GetExchangeRate(t.Context(), "USD", "JPY", []string{"xe", "open_exchange_rates"})
	require.ErrorIs(t, err, base.ErrCredentialsRejected)
	assert.NotErrorIs(t, err, ErrAllProvidersFailed)
	assert.Equal(t, 1, xe.calls())
	assert.Zero(t, oxr.calls(), "a misconfigured provider must not be skipped silently")
}

func TestEmptyCurrencyCode(t *testing.T) {
	t.Parallel()
	p := &stubProvider{name: "xe", rate: decimal.NewFromInt(1)}
	f := newEngine(t, p)

	for _, code := range []string{"", "  "} {
		_, err := f.GetExchangeRate(t.Context(), code, "JPY", []string{"xe"})
		require.ErrorIsf(t, err, currency.ErrUnknownCurrency, "base %q must be an unknown currency", code)
		_, err = f.GetExchangeRate(t.Context(), "USD", code, []string{"xe"})
		require.ErrorIsf(t, err, currency.ErrUnknownCurrency, "target %q must be an unknown currency", code)
		_, err = f.Convert(t.Context(), decimal.NewFromInt(1), code, "JPY", []string{"xe"})
		require.ErrorIs(t, err, currency.ErrUnknownCurrency)
		_, err = f.GetExchangeData(t.Context(), decimal.NewFromInt(1), "USD", code, []string{"xe"})
		require.ErrorIs(t, err, currency.ErrUnknownCurrency)
		_, err = f.GetHistoricRate(t.Context(), code, []string{"EUR"}, time.Now(), []string{"xe"})
		require.ErrorIs(t, err, currency.ErrUnknownCurrency)
	}
	assert.Zero(t, p.calls())
}

func TestUnknownCurrency(t *testing.T) {
	t.Parallel()
	p := &stubProvider{name: "xe", rate: decimal.NewFromInt(1)}
	f := newEngine(t, p)

	_, err := f.GetExchangeRate(t.Context(), "fake_crypto", "JPY", []string{"xe"})
	require.ErrorIs(t, err, currency.ErrUnknownCurrency)
	_, err = f.Convert(t.Context(), decimal.NewFromInt(1), "USD", "fake_crypto", []string{"xe"})
	require.ErrorIs(t, err, currency.ErrUnknownCurrency)
	_, err = f.GetExchangeData(t.Context(), decimal.NewFromInt(1), "fake_crypto", "JPY", []string{"not_registered"})
	require.ErrorIs(t, err, currency.ErrUnknownCurrency, "currencies must be validated before providers are resolved")
	_, err = f.GetHistoricRate(t.Context(), "USD", []string{"EUR", "fake_crypto"}, time.Now(), []string{"xe"})
	require.ErrorIs(t, err, currency.ErrUnknownCurrency)

	assert.Zero(t, p.calls())
}

func TestUnresolvableProvider(t *testing.T) {
	t.Parallel()
	xe := &stubProvider{name: "xe", rate: decimal.NewFromInt(1)}
	oxr := &stubProvider{name: "open_exchange_rates", rate: decimal.NewFromInt(1)}
	f := newEngine(t, xe, oxr)

	for _, order := range [][]string{
		{"fake_provider"},
		{"xe", "fake_provider"},
		{"xe", "open_exchange_rates", "fake_provider"},
		{"fake_provider", "open_exchange_rates"},
	} {
		_, err := f.GetExchangeRate(t.Context(), "USD", "JPY", order)
		require.ErrorIs(t, err, ErrProviderNotFound)
		_, err = f.GetHistoricRate(t.Context(), "USD", []string{"JPY"}, time.Now(), order)
		require.ErrorIs(t, err, ErrProviderNotFound)
	}
	assert.Zero(t, xe.calls(), "no provider may be invoked when any identifier is unresolvable")
	assert.Zero(t, oxr.calls(), "no provider may be invoked when any identifier is unresolvable")

	_, err := f.GetExchangeRate(t.Context(), "USD", "JPY", nil)
	require.ErrorIs(t, err, ErrNoProvidersSupplied)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	p := &stubProvider{name: "xe", rate: decimal.NewFromInt(1)}
	f := newEngine(t, p)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := f.GetExchangeRate(ctx, "USD", "JPY", []string{"xe"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls())
}

func TestGetHistoricRate(t *testing.T) {
	t.Parallel()
	p1 := &stubProvider{name: "xe", err: base.NewTransientError("xe", base.ErrHistoricRatesUnsupported)}
	p2 := &stubProvider{name: "open_exchange_rates", historic: map[string]decimal.Decimal{
		"eur": decimal.RequireFromString("0.00832586"),
		"JPY": decimal.RequireFromString("1.127745"),
	}}
	f := newEngine(t, p1, p2)

	date := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	rates, err := f.GetHistoricRate(t.Context(), "usd", []string{"eur", "JPY"}, date, []string{"xe", "open_exchange_rates"})
	require.NoError(t, err)
	assert.True(t, rates["EUR"].Equal(decimal.RequireFromString("0.00832586")))
	assert.True(t, rates["JPY"].Equal(decimal.RequireFromString("1.127745")))
	assert.Equal(t, 1, p1.calls())
	assert.Equal(t, 1, p2.calls())

	_, err = f.GetHistoricRate(t.Context(), "USD", nil, date, []string{"xe"})
	require.ErrorIs(t, err, ErrNoTargetCurrencies)

	_, err = f.GetHistoricRate(t.Context(), "USD", []string{"EUR"}, date, []string{"xe"})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorContains(t, err, "failed to load USD->EUR:")
}

func TestAttemptErrorMessage(t *testing.T) {
	t.Parallel()
	a := AttemptError{Provider: "xe", Err: base.NewTransientError("xe", base.ErrQuotaExceeded)}
	assert.Equal(t, "xe: provider quota exceeded", a.Error())
	assert.ErrorIs(t, a, base.ErrQuotaExceeded)

	a = AttemptError{Provider: "xe", Err: errors.New("raw")}
	assert.Equal(t, "xe: raw", a.Error())
}
