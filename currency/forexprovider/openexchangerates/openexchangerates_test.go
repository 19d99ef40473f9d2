package openexchangerates

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/omniexchange/currency"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
)

var serverURL string

func TestMain(m *testing.M) {
	r := mux.NewRouter()
	r.HandleFunc("/latest.json", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		switch q.Get("app_id") {
		case "quota":
			w.WriteHeader(http.StatusTooManyRequests)
			write(w, `{"error":true,"status":429,"message":"access_restricted","description":"Access restricted for repeated over-use"}`)
			return
		case "restricted":
			w.WriteHeader(http.StatusForbidden)
			write(w, `{"error":true,"status":403,"message":"access_restricted","description":"Access restricted for repeated over-use"}`)
			return
		case "invalid":
			w.WriteHeader(http.StatusUnauthorized)
			write(w, `{"error":true,"status":401,"message":"invalid_app_id","description":"Invalid App ID provided"}`)
			return
		case "garbage":
			write(w, `<html>`)
			return
		case "empty":
			write(w, `{"base":"USD","rates":{}}`)
			return
		}
		if q.Get("base") != "USD" || q.Get("symbols") != "JPY" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		write(w, `{"disclaimer":"Usage subject to terms","license":"https://openexchangerates.org/license","timestamp":1514764800,"base":"USD","rates":{"JPY":0.9521811}}`)
	})
	r.HandleFunc("/historical/{date}.json", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["date"] != "2018-01-01" {
			w.WriteHeader(http.StatusBadRequest)
			write(w, `{"error":true,"status":400,"message":"not_available","description":"Historical rates for the requested date are not available"}`)
			return
		}
		write(w, `{"timestamp":1514764800,"base":"USD","rates":{"EUR":0.832586,"JPY":112.7745,"KRW":1066.25}}`)
	})
	r.HandleFunc("/currencies.json", func(w http.ResponseWriter, _ *http.Request) {
		write(w, `{"AUD":"Australian Dollar","USD":"United States Dollar"}`)
	})
	r.HandleFunc("/usage.json", func(w http.ResponseWriter, _ *http.Request) {
		write(w, `{"status":200,"data":{"app_id":"test","status":"active","plan":{"name":"Free","quota":"1000 requests / month"},"usage":{"requests":10,"requests_quota":1000,"requests_remaining":990}}}`)
	})
	serv := httptest.NewServer(r)
	serverURL = serv.URL + "/"
	code := m.Run()
	serv.Close()
	os.Exit(code)
}

func write(w io.Writer, s string) {
	if _, err := io.WriteString(w, s); err != nil {
		log.Fatal(err)
	}
}

func newOXR(t *testing.T, appID string) *OXR {
	t.Helper()
	tbl, err := currency.NewTable(nil)
	require.NoError(t, err)
	o := new(OXR)
	require.NoError(t, o.Setup(base.Settings{
		Name:    "open_exchange_rates",
		Enabled: true,
		APIKey:  appID,
	}, tbl))
	o.apiURL = serverURL
	return o
}

func TestSetup(t *testing.T) {
	t.Parallel()
	o := new(OXR)
	require.ErrorIs(t, o.Setup(base.Settings{Name: "open_exchange_rates"}, nil), base.ErrSubunitLookupUnset)

	o = newOXR(t, "test")
	assert.Equal(t, base.DefaultReadTimeout, o.ReadTimeout)
	assert.Equal(t, base.DefaultConnectTimeout, o.ConnectTimeout)
	require.NotNil(t, o.Requester)
	assert.Equal(t, "open_exchange_rates", o.Requester.Name)
}

func TestGetCurrentRate(t *testing.T) {
	t.Parallel()
	o := newOXR(t, "test")
	r, err := o.GetCurrentRate(t.Context(), "USD", "JPY")
	require.NoError(t, err)
	assert.True(t, r.Equal(decimal.RequireFromString("0.009521811")), "rate should be per cent, got %s", r)
}

func TestGetCurrentRateErrors(t *testing.T) {
	t.Parallel()
	_, err := newOXR(t, "").GetCurrentRate(t.Context(), "USD", "JPY")
	require.ErrorIs(t, err, base.ErrCredentialsUnset)
	assert.False(t, base.IsTransient(err), "missing credentials must be fatal")

	_, err = newOXR(t, "quota").GetCurrentRate(t.Context(), "USD", "JPY")
	require.ErrorIs(t, err, base.ErrQuotaExceeded)
	assert.True(t, base.IsTransient(err))

	_, err = newOXR(t, "invalid").GetCurrentRate(t.Context(), "USD", "JPY")
	require.ErrorIs(t, err, base.ErrCredentialsRejected)
	require.ErrorContains(t, err, "invalid_app_id")
	assert.False(t, base.IsTransient(err), "rejected credentials must be fatal")

	_, err = newOXR(t, "restricted").GetCurrentRate(t.Context(), "USD", "JPY")
	require.ErrorIs(t, err, base.ErrQuotaExceeded, "access_restricted is a quota error despite the 403")
	assert.True(t, base.IsTransient(err))

	_, err = newOXR(t, "garbage").GetCurrentRate(t.Context(), "USD", "JPY")
	require.Error(t, err)
	assert.True(t, base.IsTransient(err), "malformed bodies must be transient")

	_, err = newOXR(t, "empty").GetCurrentRate(t.Context(), "USD", "JPY")
	require.ErrorIs(t, err, base.ErrRateNotFound)
	assert.True(t, base.IsTransient(err))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = newOXR(t, "test").GetCurrentRate(ctx, "USD", "JPY")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, base.IsTransient(err), "caller cancellation must be fatal")
}

func TestGetHistoricRates(t *testing.T) {
	t.Parallel()
	o := newOXR(t, "test")
	rates, err := o.GetHistoricRates(t.Context(), "USD", []string{"EUR", "JPY", "KRW"}, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rates, 3)
	assert.True(t, rates["EUR"].Equal(decimal.RequireFromString("0.00832586")))
	assert.True(t, rates["JPY"].Equal(decimal.RequireFromString("1.127745")))
	assert.True(t, rates["KRW"].Equal(decimal.RequireFromString("10.6625")))

	_, err = o.GetHistoricRates(t.Context(), "USD", []string{"GBP"}, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, base.ErrRateNotFound)

	_, err = o.GetHistoricRates(t.Context(), "USD", []string{"EUR"}, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorContains(t, err, "not_available")
	assert.True(t, base.IsTransient(err))
}

func TestGetCurrencies(t *testing.T) {
	t.Parallel()
	c, err := newOXR(t, "test").GetCurrencies(t.Context(), true, false)
	require.NoError(t, err)
	assert.Equal(t, "Australian Dollar", c["AUD"])
}

func TestGetUsageStats(t *testing.T) {
	t.Parallel()
	u, err := newOXR(t, "test").GetUsageStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(990), u.Data.Usage.RequestsRemaining)
	assert.Equal(t, "Free", u.Data.Plan.Name)
}
