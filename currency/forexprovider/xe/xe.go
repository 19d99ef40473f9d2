// XE Currency Data API delivers real-time and historical mid-market exchange
// rates for all official ISO 4217 currencies, sourced from over 100 providers.

package xe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/request"
)

const (
	rateInterval = time.Second
	requestRate  = 10
)

// Setup sets values for the XE object
func (x *XE) Setup(config base.Settings, lookup base.SubunitLookup) error {
	if err := x.Base.Setup(config, lookup); err != nil {
		return err
	}
	client, err := common.NewHTTPClientWithTimeouts(x.ConnectTimeout, x.ReadTimeout)
	if err != nil {
		return err
	}
	x.Requester, err = request.New(x.Name,
		client,
		request.WithLimiter(request.NewRateLimit(rateInterval, requestRate)))
	if err != nil {
		return err
	}
	x.apiURL = APIURL
	return nil
}

// GetCurrentRate returns the rate per smallest unit of baseCurrency. The
// request amount is one smallest unit so the returned mid rate needs no
// further scaling.
func (x *XE) GetCurrentRate(ctx context.Context, baseCurrency, targetCurrency string) (decimal.Decimal, error) {
	amount, err := x.SubunitAmount(baseCurrency)
	if err != nil {
		return decimal.Zero, base.ClassifyError(x.Name, err)
	}
	rates, err := x.ConvertFrom(ctx, baseCurrency, []string{targetCurrency}, amount)
	if err != nil {
		return decimal.Zero, base.ClassifyError(x.Name, err)
	}
	rate, ok := rates[targetCurrency]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, base.ClassifyError(x.Name,
			fmt.Errorf("%w: %s%s", base.ErrRateNotFound, baseCurrency, targetCurrency))
	}
	return rate, nil
}

// GetHistoricRates returns rates per smallest unit of baseCurrency on date
func (x *XE) GetHistoricRates(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time) (map[string]decimal.Decimal, error) {
	amount, err := x.SubunitAmount(baseCurrency)
	if err != nil {
		return nil, base.ClassifyError(x.Name, err)
	}
	rates, err := x.HistoricRate(ctx, baseCurrency, targetCurrencies, date, amount)
	if err != nil {
		return nil, base.ClassifyError(x.Name, err)
	}
	for _, target := range targetCurrencies {
		if rate, ok := rates[target]; !ok || !rate.IsPositive() {
			return nil, base.ClassifyError(x.Name,
				fmt.Errorf("%w: %s%s on %s", base.ErrRateNotFound, baseCurrency, target, date.Format(common.SimpleTimeFormat)))
		}
	}
	return rates, nil
}

// ConvertFrom converts amount of from into each target currency, returning
// the mid market value keyed by target code
func (x *XE) ConvertFrom(ctx context.Context, from string, to []string, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("from", from)
	v.Set("to", strings.Join(to, ","))
	v.Set("amount", amount.String())

	var resp json.RawMessage
	if err := x.SendHTTPRequest(ctx, APIEndpointConvertFrom, v, &resp); err != nil {
		return nil, err
	}
	return parseQuotes(resp)
}

// HistoricRate converts amount of from into each target currency at the
// rates published on date
func (x *XE) HistoricRate(ctx context.Context, from string, to []string, date time.Time, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	v := url.Values{}
	v.Set("from", from)
	v.Set("to", strings.Join(to, ","))
	v.Set("date", date.Format(common.SimpleTimeFormat))
	v.Set("amount", amount.String())

	var resp json.RawMessage
	if err := x.SendHTTPRequest(ctx, APIEndpointHistoric, v, &resp); err != nil {
		return nil, err
	}
	return parseQuotes(resp)
}

// GetAccountInfo returns the package and remaining allowance for the account
func (x *XE) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var resp AccountInfo
	if err := x.SendHTTPRequest(ctx, APIEndpointAccountInfo, url.Values{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendHTTPRequest sends a basic auth GET request to endpoint
func (x *XE) SendHTTPRequest(ctx context.Context, endpoint string, v url.Values, result any) error {
	if x.APIID == "" || x.APIKey == "" {
		return base.ErrCredentialsUnset
	}
	path := common.EncodeURLValues(x.apiURL+endpoint, v)
	err := x.Requester.SendPayload(ctx, func() (*request.Item, error) {
		return &request.Item{
			Method:   http.MethodGet,
			Path:     path,
			Result:   result,
			Username: x.APIID,
			Password: x.APIKey,
			Verbose:  x.Verbose,
		}, nil
	})
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	codeErr := checkCode(statusErr.Body)
	if base.IsAuthStatus(statusErr.StatusCode) && !errors.Is(codeErr, base.ErrQuotaExceeded) && !errors.Is(codeErr, base.ErrCredentialsRejected) {
		codeErr = fmt.Errorf("%w: status %d", base.ErrCredentialsRejected, statusErr.StatusCode)
	}
	if codeErr != nil {
		return fmt.Errorf("%w: %w", codeErr, err)
	}
	return err
}

// parseQuotes reads each quote currency and its mid value from the to array
func parseQuotes(body []byte) (map[string]decimal.Decimal, error) {
	if err := checkCode(body); err != nil {
		return nil, err
	}
	quotes := make(map[string]decimal.Decimal)
	var parseErr error
	_, err := jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, err error) {
		if parseErr != nil {
			return
		}
		if err != nil {
			parseErr = err
			return
		}
		code, err := jsonparser.GetString(value, "quotecurrency")
		if err != nil {
			parseErr = err
			return
		}
		mid, dataType, _, err := jsonparser.Get(value, "mid")
		if err != nil {
			parseErr = err
			return
		}
		if dataType != jsonparser.Number {
			parseErr = fmt.Errorf("%w: mid for %s is %s", request.ErrMalformedResponse, code, dataType)
			return
		}
		rate, err := decimal.NewFromString(string(mid))
		if err != nil {
			parseErr = err
			return
		}
		quotes[strings.ToUpper(code)] = rate
	}, "to")
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return nil, fmt.Errorf("%w: quotes missing", base.ErrRateNotFound)
		}
		return nil, fmt.Errorf("%w: %v", request.ErrMalformedResponse, err)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", request.ErrMalformedResponse, parseErr)
	}
	return quotes, nil
}

// checkCode returns an error when the body carries an XE error code
func checkCode(body []byte) error {
	code, err := jsonparser.GetInt(body, "code")
	if err != nil {
		// no error code
		return nil
	}
	message, _ := jsonparser.GetString(body, "message")
	switch code {
	case codeMonthlyLimit:
		return fmt.Errorf("%w: monthly limit exceeded %s", base.ErrQuotaExceeded, message)
	case codeBadCredentials:
		return fmt.Errorf("%w: %s", base.ErrCredentialsRejected, message)
	}
	return fmt.Errorf("%w: code %d %s", base.ErrProviderFailure, code, message)
}
