package request

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/omniexchange/common"
	"golang.org/x/time/rate"
)

var testURL string

func TestMain(m *testing.M) {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, `{"response":true}`); err != nil {
			log.Fatal(err)
		}
	})
	r.HandleFunc("/auth", func(w http.ResponseWriter, req *http.Request) {
		u, p, ok := req.BasicAuth()
		if !ok || u != "id" || p != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if req.Header.Get(userAgent) != "omniexchange-test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, err := io.WriteString(w, `{"response":true}`); err != nil {
			log.Fatal(err)
		}
	})
	r.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		if _, err := io.WriteString(w, `{"error":true,"message":"not_allowed"}`); err != nil {
			log.Fatal(err)
		}
	})
	r.HandleFunc("/garbage", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := io.WriteString(w, `<html>bad gateway</html>`); err != nil {
			log.Fatal(err)
		}
	})
	r.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(r)
	testURL = server.URL
	issues := m.Run()
	server.Close()
	os.Exit(issues)
}

type response struct {
	Response bool `json:"response"`
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New("", new(http.Client))
	require.ErrorIs(t, err, errServiceNameUnset)

	_, err = New("test", nil)
	require.ErrorIs(t, err, errHTTPClientIsNil)

	l := NewRateLimit(time.Second, 1)
	r, err := New("test", new(http.Client), WithLimiter(l), WithUserAgent("ua"))
	require.NoError(t, err)
	assert.Same(t, l, r.limiter)
	assert.Equal(t, "ua", r.UserAgent)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()
	r, err := New("test", new(http.Client))
	require.NoError(t, err)

	var i *Item
	_, err = i.validateRequest(t.Context(), r)
	require.ErrorIs(t, err, errRequestItemNil)

	_, err = (&Item{}).validateRequest(t.Context(), r)
	require.ErrorIs(t, err, errInvalidPath)

	req, err := (&Item{Path: testURL, Headers: map[string]string{"X-Test": "1"}}).validateRequest(t.Context(), r)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method, "method should default to GET")
	assert.Equal(t, "1", req.Header.Get("X-Test"))
}

func TestSendPayload(t *testing.T) {
	t.Parallel()
	var nilRequester *Requester
	err := nilRequester.SendPayload(t.Context(), nil)
	require.ErrorIs(t, err, errRequestSystemIsNil)

	r, err := New("test", common.NewHTTPClientWithTimeout(time.Second))
	require.NoError(t, err)

	err = r.SendPayload(t.Context(), nil)
	require.ErrorIs(t, err, errRequestFunctionIsNil)

	errGen := errors.New("generate failure")
	err = r.SendPayload(t.Context(), func() (*Item, error) { return nil, errGen })
	require.ErrorIs(t, err, errGen)

	var resp response
	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: testURL + "/", Result: &resp, Verbose: true}, nil
	})
	require.NoError(t, err)
	assert.True(t, resp.Response)
}

func TestSendPayloadBasicAuth(t *testing.T) {
	t.Parallel()
	r, err := New("auth", common.NewHTTPClientWithTimeout(time.Second), WithUserAgent("omniexchange-test"))
	require.NoError(t, err)

	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/auth", Username: "id", Password: "bad"}, nil
	})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)

	var resp response
	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/auth", Username: "id", Password: "key", Result: &resp}, nil
	})
	require.NoError(t, err)
	assert.True(t, resp.Response)
}

func TestSendPayloadStatusError(t *testing.T) {
	t.Parallel()
	r, err := New("status", common.NewHTTPClientWithTimeout(time.Second))
	require.NoError(t, err)

	var resp response
	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/error", Result: &resp}, nil
	})
	require.ErrorIs(t, err, ErrUnsuccessfulStatus)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.JSONEq(t, `{"error":true,"message":"not_allowed"}`, string(se.Body))
	assert.Contains(t, se.Error(), "status")
}

func TestSendPayloadMalformed(t *testing.T) {
	t.Parallel()
	r, err := New("malformed", common.NewHTTPClientWithTimeout(time.Second))
	require.NoError(t, err)

	var resp response
	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/garbage", Result: &resp}, nil
	})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSendPayloadTimeout(t *testing.T) {
	t.Parallel()
	c, err := common.NewHTTPClientWithTimeouts(time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	r, err := New("slow", c)
	require.NoError(t, err)

	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/slow"}, nil
	})
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestSendPayloadLimiterCancelled(t *testing.T) {
	t.Parallel()
	l := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, l.Allow(), "first token must be available")
	r, err := New("limited", common.NewHTTPClientWithTimeout(time.Second), WithLimiter(l))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	err = r.SendPayload(ctx, func() (*Item, error) {
		return &Item{Path: testURL + "/"}, nil
	})
	require.Error(t, err, "limiter wait must fail when the deadline cannot be met")
}

func TestSendPayloadMaxJobs(t *testing.T) {
	t.Parallel()
	r, err := New("jobs", common.NewHTTPClientWithTimeout(time.Second))
	require.NoError(t, err)
	r.jobs = MaxRequestJobs
	err = r.SendPayload(t.Context(), func() (*Item, error) {
		return &Item{Path: testURL + "/"}, nil
	})
	require.ErrorIs(t, err, errMaxRequestJobs)
}

func TestNewRateLimit(t *testing.T) {
	t.Parallel()
	require.Equal(t, rate.Inf, NewRateLimit(0, 0).Limit())
	require.Equal(t, 1, NewRateLimit(0, 0).Burst())
	require.Equal(t, 0.5, float64(NewRateLimit(time.Second*2, 1).Limit()))
	require.Equal(t, 0.5, float64(NewRateLimit(time.Second*10, 5).Limit()))
}

func TestIsVerbose(t *testing.T) {
	t.Parallel()
	require.False(t, IsVerbose(t.Context(), false))
	require.True(t, IsVerbose(t.Context(), true))
	require.True(t, IsVerbose(WithVerbose(t.Context()), false))
	require.False(t, IsVerbose(context.WithValue(t.Context(), contextVerboseFlag, false), false))
	require.False(t, IsVerbose(context.WithValue(t.Context(), contextVerboseFlag, "bruh"), false))
}
