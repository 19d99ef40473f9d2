// Package request wraps outbound HTTP calls for the forex providers
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"sync/atomic"

	"github.com/thrasher-corp/omniexchange/log"
	"golang.org/x/time/rate"
)

var (
	errRequestSystemIsNil   = errors.New("request system is nil")
	errMaxRequestJobs       = errors.New("max request jobs reached")
	errRequestFunctionIsNil = errors.New("request function is nil")
	errServiceNameUnset     = errors.New("service name unset")
	errRequestItemNil       = errors.New("request item is nil")
	errInvalidPath          = errors.New("invalid path")
	errHTTPClientIsNil      = errors.New("http client is nil")
)

// New returns a new Requester
func New(name string, httpRequester *http.Client, opts ...RequesterOption) (*Requester, error) {
	if name == "" {
		return nil, errServiceNameUnset
	}
	if httpRequester == nil {
		return nil, errHTTPClientIsNil
	}
	r := &Requester{
		HTTPClient: httpRequester,
		Name:       name,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// WithLimiter sets the rate limiter for the requester
func WithLimiter(l *rate.Limiter) RequesterOption {
	return func(r *Requester) {
		r.limiter = l
	}
}

// WithUserAgent sets the user agent header sent with every request
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) {
		r.UserAgent = ua
	}
}

// SendPayload sends a single HTTP/HTTPS request. Failures are returned to the
// caller without retrying.
func (r *Requester) SendPayload(ctx context.Context, newRequest Generate) error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if newRequest == nil {
		return errRequestFunctionIsNil
	}
	if atomic.LoadInt32(&r.jobs) >= MaxRequestJobs {
		return errMaxRequestJobs
	}

	atomic.AddInt32(&r.jobs, 1)
	defer atomic.AddInt32(&r.jobs, -1)
	return r.doRequest(ctx, newRequest)
}

// validateRequest validates the requester item fields
func (i *Item) validateRequest(ctx context.Context, r *Requester) (*http.Request, error) {
	if i == nil {
		return nil, errRequestItemNil
	}
	if i.Path == "" {
		return nil, errInvalidPath
	}

	method := i.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, i.Path, i.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range i.Headers {
		req.Header.Add(k, v)
	}
	if i.Username != "" || i.Password != "" {
		req.SetBasicAuth(i.Username, i.Password)
	}
	if r.UserAgent != "" && req.Header.Get(userAgent) == "" {
		req.Header.Add(userAgent, r.UserAgent)
	}
	return req, nil
}

func (r *Requester) doRequest(ctx context.Context, newRequest Generate) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	p, err := newRequest()
	if err != nil {
		return err
	}

	req, err := p.validateRequest(ctx, r)
	if err != nil {
		return err
	}

	verbose := IsVerbose(ctx, p.Verbose)
	if verbose {
		log.Debugf(log.RequestSys, "%s request path: %s", r.Name, p.Path)
		log.Debugf(log.RequestSys, "%s request type: %s", r.Name, req.Method)
	}
	if p.HTTPDebugging {
		dump, dumpErr := httputil.DumpRequestOut(req, false)
		if dumpErr == nil {
			log.Debugf(log.RequestSys, "DumpRequest:\n%s", dump)
		}
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	if verbose {
		log.Debugf(log.RequestSys, "%s HTTP status: %s, Code: %v", r.Name, resp.Status, resp.StatusCode)
		log.Debugf(log.RequestSys, "%s raw response: %s", r.Name, string(contents))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{
			Name:       r.Name,
			StatusCode: resp.StatusCode,
			Body:       contents,
		}
	}

	if p.Result == nil {
		return nil
	}
	if err := json.Unmarshal(contents, p.Result); err != nil {
		return fmt.Errorf("%s %w: %v", r.Name, ErrMalformedResponse, err)
	}
	return nil
}
