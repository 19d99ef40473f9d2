// Open Exchange Rates provides a simple, lightweight and portable JSON API with
// live and historical foreign exchange (forex) rates, via a simple and
// easy-to-integrate API, in JSON format. Data are tracked and blended
// algorithmically from multiple reliable sources, ensuring fair and unbiased
// consistency.
// End-of-day rates are available historically for all days going back to
// 1st January, 1999.

package openexchangerates

import (
	"context"
	"encoding/json"
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
	requestRate  = 10
)

// Setup sets values for the OXR object
func (o *OXR) Setup(config base.Settings, lookup base.SubunitLookup) error {
	if err := o.Base.Setup(config, lookup); err != nil {
		return err
	}
	client, err := common.NewHTTPClientWithTimeouts(o.ConnectTimeout, o.ReadTimeout)
	if err != nil {
		return err
	}
	o.Requester, err = request.New(o.Name,
		client,
		request.WithLimiter(request.NewRateLimit(rateInterval, requestRate)))
	if err != nil {
		return err
	}
	o.apiURL = APIURL
	return nil
}

// GetCurrentRate returns the rate per smallest unit of baseCurrency
func (o *OXR) GetCurrentRate(ctx context.Context, baseCurrency, targetCurrency string) (decimal.Decimal, error) {
	rates, err := o.GetLatest(ctx, baseCurrency, targetCurrency)
	if err != nil {
		return decimal.Zero, base.ClassifyError(o.Name, err)
	}
	rate, ok := rates[targetCurrency]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, base.ClassifyError(o.Name,
			fmt.Errorf("%w: %s%s", base.ErrRateNotFound, baseCurrency, targetCurrency))
	}
	rate, err = o.Normalise(baseCurrency, rate)
	return rate, base.ClassifyError(o.Name, err)
}

// GetHistoricRates returns rates per smallest unit of baseCurrency on date
func (o *OXR) GetHistoricRates(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time) (map[string]decimal.Decimal, error) {
	rates, err := o.GetHistoricalRates(ctx, date, baseCurrency, targetCurrencies)
	if err != nil {
		return nil, base.ClassifyError(o.Name, err)
	}
	wanted := make(map[string]decimal.Decimal, len(targetCurrencies))
	for _, target := range targetCurrencies {
		rate, ok := rates[target]
		if !ok {
			return nil, base.ClassifyError(o.Name,
				fmt.Errorf("%w: %s%s on %s", base.ErrRateNotFound, baseCurrency, target, date.Format(common.SimpleTimeFormat)))
		}
		wanted[target] = rate
	}
	normalised, err := o.NormaliseAll(baseCurrency, wanted)
	if err != nil {
		return nil, base.ClassifyError(o.Name, err)
	}
	return normalised, nil
}

// GetLatest returns the latest exchange rates available from the Open
// Exchange Rates API, quoted per whole unit of baseCurrency
func (o *OXR) GetLatest(ctx context.Context, baseCurrency, symbols string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("base", baseCurrency)
	v.Set("symbols", symbols)

	var resp Rates
	if err := o.SendHTTPRequest(ctx, APIEndpointLatest, v, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("%w: %s", base.ErrProviderFailure, resp.Description)
	}
	return resp.Rates, nil
}

// GetHistoricalRates returns historical exchange rates for any date available
// from the Open Exchange Rates API
func (o *OXR) GetHistoricalRates(ctx context.Context, date time.Time, baseCurrency string, symbols []string) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("base", baseCurrency)
	v.Set("symbols", strings.Join(symbols, ","))

	var resp Rates
	endpoint := APIEndpointHistory + date.Format(common.SimpleTimeFormat) + APIEndpointJSONExt
	if err := o.SendHTTPRequest(ctx, endpoint, v, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("%w: %s", base.ErrProviderFailure, resp.Description)
	}
	return resp.Rates, nil
}

// GetCurrencies returns a list of all currency symbols available from the Open
// Exchange Rates API
func (o *OXR) GetCurrencies(ctx context.Context, showInactive, showAlternative bool) (map[string]string, error) {
	v := url.Values{}
	v.Set("show_inactive", boolParam(showInactive))
	v.Set("show_alternative", boolParam(showAlternative))

	resp := make(map[string]string)
	return resp, o.SendHTTPRequest(ctx, APIEndpointCurrency, v, &resp)
}

// GetUsageStats returns basic plan information and usage statistics for an
// Open Exchange Rates App ID
func (o *OXR) GetUsageStats(ctx context.Context) (*Usage, error) {
	var resp Usage
	if err := o.SendHTTPRequest(ctx, APIEndpointUsage, url.Values{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("%w: %s", base.ErrProviderFailure, resp.Description)
	}
	return &resp, nil
}

// SendHTTPRequest sends an authenticated GET request to endpoint
func (o *OXR) SendHTTPRequest(ctx context.Context, endpoint string, v url.Values, result any) error {
	if o.APIKey == "" {
		return base.ErrCredentialsUnset
	}
	v.Set("app_id", o.APIKey)
	path := common.EncodeURLValues(o.apiURL+endpoint, v)
	err := o.Requester.SendPayload(ctx, func() (*request.Item, error) {
		return &request.Item{
			Method:  http.MethodGet,
			Path:    path,
			Result:  result,
			Verbose: o.Verbose,
		}, nil
	})
	return checkStatus(err)
}

// checkStatus maps Open Exchange Rates error bodies onto provider errors
func checkStatus(err error) error {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	var resp ErrorResponse
	_ = json.Unmarshal(statusErr.Body, &resp)
	if statusErr.StatusCode == http.StatusTooManyRequests || resp.Message == accessRestricted {
		return fmt.Errorf("%w: %s", base.ErrQuotaExceeded, resp.Description)
	}
	if base.IsAuthStatus(statusErr.StatusCode) {
		return fmt.Errorf("%w: %s %s: %w", base.ErrCredentialsRejected, resp.Message, resp.Description, err)
	}
	if resp.Message == "" {
		return err
	}
	return fmt.Errorf("%s: %w", resp.Message, err)
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
