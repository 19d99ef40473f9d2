// Powered by 15+ exchange rate data sources, the Fixer API is capable of
// delivering real-time exchange rate data for 170 world currencies. The API
// comes with multiple endpoints, each serving a different use case. Endpoint
// functionalities include getting the latest exchange rate data for all or a
// specific set of currencies, converting amounts from one currency to another,
// retrieving Time-Series data for one or multiple currencies and querying the
// API for daily fluctuation data.

package fixer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/log"
	"github.com/thrasher-corp/omniexchange/request"
)

const (
	rateInterval = time.Second
	requestRate  = 5
)

var (
	errAPIKeyLevel          = errors.New("apikey set failure")
	errInsufficientAPILevel = errors.New("insufficient API privileges")
)

// Setup sets appropriate values for fixer object
func (f *Fixer) Setup(config base.Settings, lookup base.SubunitLookup) error {
	if config.APIKeyLvl < fixerAPIFree || config.APIKeyLvl > fixerAPIEnterprise {
		log.Errorf(log.ForexSys,
			"apikey incorrectly set in config for %s, please set appropriate account levels",
			config.Name)
		return errAPIKeyLevel
	}
	if err := f.Base.Setup(config, lookup); err != nil {
		return err
	}
	client, err := common.NewHTTPClientWithTimeouts(f.ConnectTimeout, f.ReadTimeout)
	if err != nil {
		return err
	}
	f.Requester, err = request.New(f.Name,
		client,
		request.WithLimiter(request.NewRateLimit(rateInterval, requestRate)))
	if err != nil {
		return err
	}
	f.apiURL = fixerAPISSL
	if f.APIKeyLvl == fixerAPIFree {
		f.apiURL = fixerAPI
	}
	return nil
}

// GetCurrentRate returns the rate per smallest unit of baseCurrency
func (f *Fixer) GetCurrentRate(ctx context.Context, baseCurrency, targetCurrency string) (decimal.Decimal, error) {
	rates, err := f.GetRates(ctx, baseCurrency, []string{targetCurrency})
	if err != nil {
		return decimal.Zero, base.ClassifyError(f.Name, err)
	}
	rate, err := f.Normalise(baseCurrency, rates[targetCurrency])
	return rate, base.ClassifyError(f.Name, err)
}

// GetHistoricRates returns rates per smallest unit of baseCurrency on date
func (f *Fixer) GetHistoricRates(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time) (map[string]decimal.Decimal, error) {
	quoted := f.quoteCurrency(baseCurrency)
	rates, err := f.GetHistoricalRates(ctx, date, quoted, withBase(quoted, baseCurrency, targetCurrencies))
	if err != nil {
		return nil, base.ClassifyError(f.Name, err)
	}
	cross, err := crossRates(quoted, baseCurrency, targetCurrencies, rates)
	if err != nil {
		return nil, base.ClassifyError(f.Name, err)
	}
	normalised, err := f.NormaliseAll(baseCurrency, cross)
	if err != nil {
		return nil, base.ClassifyError(f.Name, err)
	}
	return normalised, nil
}

// GetRates returns the latest whole unit rates from baseCurrency into each
// symbol. Free accounts are EUR based so other bases are derived from the EUR
// quotes.
func (f *Fixer) GetRates(ctx context.Context, baseCurrency string, symbols []string) (map[string]decimal.Decimal, error) {
	quoted := f.quoteCurrency(baseCurrency)
	rates, err := f.GetLatestRates(ctx, quoted, withBase(quoted, baseCurrency, symbols))
	if err != nil {
		return nil, err
	}
	return crossRates(quoted, baseCurrency, symbols, rates)
}

// GetSupportedCurrencies returns supported currencies
func (f *Fixer) GetSupportedCurrencies(ctx context.Context) ([]string, error) {
	var resp Symbols
	if err := f.SendOpenHTTPRequest(ctx, fixerSupportedCurrencies, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	currencies := make([]string, 0, len(resp.Map))
	for key := range resp.Map {
		currencies = append(currencies, key)
	}
	return currencies, nil
}

// GetLatestRates returns real-time exchange rate data for all available or a
// specific set of currencies. NOTE DEFAULT BASE CURRENCY IS EUR
func (f *Fixer) GetLatestRates(ctx context.Context, baseCurrency string, symbols []string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	if f.APIKeyLvl > fixerAPIFree {
		v.Set("base", baseCurrency)
	}
	v.Set("symbols", strings.Join(symbols, ","))

	var resp Rates
	if err := f.SendOpenHTTPRequest(ctx, fixerAPILatest, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Rates, nil
}

// GetHistoricalRates returns historical exchange rate data for all available or
// a specific set of currencies.
func (f *Fixer) GetHistoricalRates(ctx context.Context, date time.Time, baseCurrency string, symbols []string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("symbols", strings.Join(symbols, ","))
	if f.APIKeyLvl > fixerAPIFree && baseCurrency != "" {
		v.Set("base", baseCurrency)
	}

	var resp Rates
	if err := f.SendOpenHTTPRequest(ctx, date.Format(common.SimpleTimeFormat), v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Rates, nil
}

// ConvertCurrency allows for conversion of any amount from one currency to
// another. A zero date uses the latest rates.
func (f *Fixer) ConvertCurrency(ctx context.Context, from, to string, date time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	if f.APIKeyLvl < fixerAPIBasic {
		return decimal.Zero, fmt.Errorf("%w: upgrade to basic to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("from", from)
	v.Set("to", to)
	v.Set("amount", amount.String())
	if !date.IsZero() {
		v.Set("date", date.Format(common.SimpleTimeFormat))
	}

	var resp Conversion
	if err := f.SendOpenHTTPRequest(ctx, fixerAPIConvert, v, &resp); err != nil {
		return decimal.Zero, err
	}
	if !resp.Success {
		return decimal.Zero, responseError(resp.Error)
	}
	return resp.Result, nil
}

// GetTimeSeriesData returns daily historical exchange rate data between two
// specified dates for all available or a specific set of currencies.
func (f *Fixer) GetTimeSeriesData(ctx context.Context, startDate, endDate time.Time, baseCurrency string, symbols []string) (map[string]map[string]decimal.Decimal, error) {
	if f.APIKeyLvl < fixerAPIProfessional {
		return nil, fmt.Errorf("%w: upgrade to professional to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("start_date", startDate.Format(common.SimpleTimeFormat))
	v.Set("end_date", endDate.Format(common.SimpleTimeFormat))
	v.Set("base", baseCurrency)
	v.Set("symbols", strings.Join(symbols, ","))

	var resp TimeSeries
	if err := f.SendOpenHTTPRequest(ctx, fixerAPITimeSeries, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Rates, nil
}

// GetFluctuationData returns fluctuation data between two specified dates for
// all available or a specific set of currencies.
func (f *Fixer) GetFluctuationData(ctx context.Context, startDate, endDate time.Time, baseCurrency string, symbols []string) (map[string]Flux, error) {
	if f.APIKeyLvl < fixerAPIProfessionalPlus {
		return nil, fmt.Errorf("%w: upgrade to professional plus or enterprise to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("start_date", startDate.Format(common.SimpleTimeFormat))
	v.Set("end_date", endDate.Format(common.SimpleTimeFormat))
	v.Set("base", baseCurrency)
	v.Set("symbols", strings.Join(symbols, ","))

	var resp Fluctuation
	if err := f.SendOpenHTTPRequest(ctx, fixerAPIFluctuation, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Rates, nil
}

// SendOpenHTTPRequest sends a typical get request
func (f *Fixer) SendOpenHTTPRequest(ctx context.Context, endpoint string, v url.Values, result any) error {
	if f.APIKey == "" {
		return base.ErrCredentialsUnset
	}
	if v == nil {
		v = url.Values{}
	}
	v.Set("access_key", f.APIKey)

	path := common.EncodeURLValues(f.apiURL+endpoint, v)
	return f.Requester.SendPayload(ctx, func() (*request.Item, error) {
		return &request.Item{
			Method:  http.MethodGet,
			Path:    path,
			Result:  result,
			Verbose: f.Verbose,
		}, nil
	})
}

// quoteCurrency returns the base currency the account can request
func (f *Fixer) quoteCurrency(baseCurrency string) string {
	if f.APIKeyLvl == fixerAPIFree {
		return fixerFreeBase
	}
	return baseCurrency
}

// withBase adds baseCurrency to symbols when quotes are relative to another
// currency so the cross rate can be derived
func withBase(quoted, baseCurrency string, symbols []string) []string {
	if quoted == baseCurrency || common.StringSliceContainsUpper(symbols, baseCurrency) {
		return symbols
	}
	return append(append(make([]string, 0, len(symbols)+1), symbols...), baseCurrency)
}

// crossRates converts rates quoted against quoted into rates against
// baseCurrency for each target
func crossRates(quoted, baseCurrency string, targets []string, rates map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	divisor := decimal.NewFromInt(1)
	if quoted != baseCurrency {
		var ok bool
		divisor, ok = rates[baseCurrency]
		if !ok || !divisor.IsPositive() {
			return nil, fmt.Errorf("%w: %s%s", base.ErrRateNotFound, quoted, baseCurrency)
		}
	}
	out := make(map[string]decimal.Decimal, len(targets))
	for _, target := range targets {
		rate := decimal.NewFromInt(1)
		if target != quoted {
			var ok bool
			rate, ok = rates[target]
			if !ok || !rate.IsPositive() {
				return nil, fmt.Errorf("%w: %s%s", base.ErrRateNotFound, baseCurrency, target)
			}
		}
		out[target] = rate.Div(divisor)
	}
	return out, nil
}

// responseError maps a fixer error body onto a provider error
func responseError(e Error) error {
	switch e.Code {
	case fixerUsageLimitReached:
		return fmt.Errorf("%w: %s %s", base.ErrQuotaExceeded, e.Type, e.Info)
	case fixerInvalidAccessKey:
		return fmt.Errorf("%w: %s %s", base.ErrCredentialsRejected, e.Type, e.Info)
	}
	return fmt.Errorf("%w: %d %s %s", base.ErrProviderFailure, e.Code, e.Type, e.Info)
}
