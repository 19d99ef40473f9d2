// Currencylayer provides a simple REST API with real-time and historical
// exchange rates for 168 world currencies, delivering currency pairs in
// universally usable JSON format - compatible with any of your applications.
// Spot exchange rate data is retrieved from several major forex data providers
// in real-time, validated, processed and delivered hourly, every 10 minutes, or
// even within the 60-second market window.
// Providing the most representative forex market value available
// ("midpoint" value) for every API request, the currencylayer API powers
// currency converters, mobile applications, financial software components and
// back-office systems all around the world.

package currencylayer

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
	"github.com/thrasher-corp/omniexchange/request"
)

const (
	rateInterval = time.Second
	requestRate  = 5
)

var errInsufficientAPILevel = errors.New("insufficient API privileges")

// Setup sets appropriate values for CurrencyLayer
func (c *CurrencyLayer) Setup(config base.Settings, lookup base.SubunitLookup) error {
	if err := c.Base.Setup(config, lookup); err != nil {
		return err
	}
	client, err := common.NewHTTPClientWithTimeouts(c.ConnectTimeout, c.ReadTimeout)
	if err != nil {
		return err
	}
	c.Requester, err = request.New(c.Name,
		client,
		request.WithLimiter(request.NewRateLimit(rateInterval, requestRate)))
	if err != nil {
		return err
	}
	c.apiURL = APIEndpointURLSSL
	if c.APIKeyLvl == AccountFree {
		c.apiURL = APIEndpointURL
	}
	return nil
}

// GetCurrentRate returns the rate per smallest unit of baseCurrency
func (c *CurrencyLayer) GetCurrentRate(ctx context.Context, baseCurrency, targetCurrency string) (decimal.Decimal, error) {
	rates, err := c.GetRates(ctx, baseCurrency, []string{targetCurrency})
	if err != nil {
		return decimal.Zero, base.ClassifyError(c.Name, err)
	}
	rate, err := c.Normalise(baseCurrency, rates[targetCurrency])
	return rate, base.ClassifyError(c.Name, err)
}

// GetHistoricRates returns rates per smallest unit of baseCurrency on date
func (c *CurrencyLayer) GetHistoricRates(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time) (map[string]decimal.Decimal, error) {
	source := c.sourceCurrency(baseCurrency)
	quotes, err := c.GetHistoricalData(ctx, date, withBase(source, baseCurrency, targetCurrencies), source)
	if err != nil {
		return nil, base.ClassifyError(c.Name, err)
	}
	cross, err := crossQuotes(source, baseCurrency, targetCurrencies, quotes)
	if err != nil {
		return nil, base.ClassifyError(c.Name, err)
	}
	normalised, err := c.NormaliseAll(baseCurrency, cross)
	if err != nil {
		return nil, base.ClassifyError(c.Name, err)
	}
	return normalised, nil
}

// GetRates returns the live whole unit rates from baseCurrency into each
// symbol keyed by symbol. Free accounts are USD sourced so other bases are
// derived from the USD quotes.
func (c *CurrencyLayer) GetRates(ctx context.Context, baseCurrency string, symbols []string) (map[string]decimal.Decimal, error) {
	source := c.sourceCurrency(baseCurrency)
	quotes, err := c.GetliveData(ctx, withBase(source, baseCurrency, symbols), source)
	if err != nil {
		return nil, err
	}
	return crossQuotes(source, baseCurrency, symbols, quotes)
}

// GetSupportedCurrencies returns supported currencies
func (c *CurrencyLayer) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	var resp SupportedCurrencies
	if err := c.SendHTTPRequest(ctx, APIEndpointList, url.Values{}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Currencies, nil
}

// GetliveData returns live quotes for foreign exchange currencies keyed by
// source and currency, USDJPY for example
func (c *CurrencyLayer) GetliveData(ctx context.Context, currencies []string, source string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("currencies", strings.Join(currencies, ","))
	if c.APIKeyLvl > AccountFree {
		v.Set("source", source)
	}

	var resp LiveRates
	if err := c.SendHTTPRequest(ctx, APIEndpointLive, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Quotes, nil
}

// GetHistoricalData returns historical exchange rate data for every past day of
// the last 16 years.
func (c *CurrencyLayer) GetHistoricalData(ctx context.Context, date time.Time, currencies []string, source string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("currencies", strings.Join(currencies, ","))
	v.Set("date", date.Format(common.SimpleTimeFormat))
	if c.APIKeyLvl > AccountFree {
		v.Set("source", source)
	}

	var resp HistoricalRates
	if err := c.SendHTTPRequest(ctx, APIEndpointHistorical, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Quotes, nil
}

// Convert converts one currency amount to another currency amount. A zero
// date uses live rates.
func (c *CurrencyLayer) Convert(ctx context.Context, from, to string, date time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	if c.APIKeyLvl < AccountBasic {
		return decimal.Zero, fmt.Errorf("%w: upgrade to basic to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("from", from)
	v.Set("to", to)
	v.Set("amount", amount.String())
	if !date.IsZero() {
		v.Set("date", date.Format(common.SimpleTimeFormat))
	}

	var resp ConversionRate
	if err := c.SendHTTPRequest(ctx, APIEndpointConversion, v, &resp); err != nil {
		return decimal.Zero, err
	}
	if !resp.Success {
		return decimal.Zero, responseError(resp.Error)
	}
	return resp.Result, nil
}

// QueryTimeFrame returns historical exchange rates for a time-period.
// (maximum range: 365 days)
func (c *CurrencyLayer) QueryTimeFrame(ctx context.Context, startDate, endDate time.Time, source string, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	if c.APIKeyLvl < AccountPro {
		return nil, fmt.Errorf("%w: upgrade to professional to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("start_date", startDate.Format(common.SimpleTimeFormat))
	v.Set("end_date", endDate.Format(common.SimpleTimeFormat))
	v.Set("source", source)
	v.Set("currencies", strings.Join(currencies, ","))

	var resp TimeFrame
	if err := c.SendHTTPRequest(ctx, APIEndpointTimeframe, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Quotes, nil
}

// QueryCurrencyChange returns the change (both margin and percentage) of one or
// more currencies, relative to a Source Currency, within a specific
// time-frame (optional).
func (c *CurrencyLayer) QueryCurrencyChange(ctx context.Context, startDate, endDate time.Time, source string, currencies []string) (map[string]Changes, error) {
	if c.APIKeyLvl != AccountEnterprise {
		return nil, fmt.Errorf("%w: upgrade to enterprise to use this function", errInsufficientAPILevel)
	}

	v := url.Values{}
	v.Set("start_date", startDate.Format(common.SimpleTimeFormat))
	v.Set("end_date", endDate.Format(common.SimpleTimeFormat))
	v.Set("source", source)
	v.Set("currencies", strings.Join(currencies, ","))

	var resp ChangeRate
	if err := c.SendHTTPRequest(ctx, APIEndpointChange, v, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, responseError(resp.Error)
	}
	return resp.Quotes, nil
}

// SendHTTPRequest sends a HTTP request, if account is not free it automatically
// upgrades request to SSL.
func (c *CurrencyLayer) SendHTTPRequest(ctx context.Context, endPoint string, values url.Values, result any) error {
	if c.APIKey == "" {
		return base.ErrCredentialsUnset
	}
	values.Set("access_key", c.APIKey)
	path := common.EncodeURLValues(c.apiURL+endPoint, values)
	return c.Requester.SendPayload(ctx, func() (*request.Item, error) {
		return &request.Item{
			Method:  http.MethodGet,
			Path:    path,
			Result:  result,
			Verbose: c.Verbose,
		}, nil
	})
}

// sourceCurrency returns the source currency the account can request
func (c *CurrencyLayer) sourceCurrency(baseCurrency string) string {
	if c.APIKeyLvl == AccountFree {
		return freeSource
	}
	return baseCurrency
}

// withBase adds baseCurrency to currencies when quotes are sourced from
// another currency so the cross rate can be derived
func withBase(source, baseCurrency string, currencies []string) []string {
	if source == baseCurrency || common.StringSliceContainsUpper(currencies, baseCurrency) {
		return currencies
	}
	return append(append(make([]string, 0, len(currencies)+1), currencies...), baseCurrency)
}

// crossQuotes converts SOURCETARGET quotes into rates from baseCurrency keyed
// by target
func crossQuotes(source, baseCurrency string, targets []string, quotes map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	quote := func(code string) (decimal.Decimal, error) {
		if code == source {
			return decimal.NewFromInt(1), nil
		}
		q, ok := quotes[source+code]
		if !ok || !q.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: %s%s", base.ErrRateNotFound, source, code)
		}
		return q, nil
	}
	divisor, err := quote(baseCurrency)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(targets))
	for _, target := range targets {
		q, err := quote(target)
		if err != nil {
			return nil, err
		}
		out[target] = q.Div(divisor)
	}
	return out, nil
}

// responseError maps a currencylayer error body onto a provider error
func responseError(e Error) error {
	switch e.Code {
	case usageLimitReached:
		return fmt.Errorf("%w: %s %s", base.ErrQuotaExceeded, e.Type, e.Info)
	case invalidAccessKey:
		return fmt.Errorf("%w: %s %s", base.ErrCredentialsRejected, e.Type, e.Info)
	}
	return fmt.Errorf("%w: %d %s %s", base.ErrProviderFailure, e.Code, e.Type, e.Info)
}
