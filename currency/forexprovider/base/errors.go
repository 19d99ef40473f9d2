package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/thrasher-corp/omniexchange/request"
)

// Kind discriminates whether a failed provider attempt may be recovered by
// trying the next provider
type Kind uint8

// Kind values
const (
	Fatal Kind = iota
	Transient
)

var (
	// ErrQuotaExceeded is returned when a provider's request allowance is used
	// up
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrRateNotFound is returned when a response does not contain the
	// requested rate
	ErrRateNotFound = errors.New("rate not found in response")
	// ErrHistoricRatesUnsupported is returned by providers without historical
	// data
	ErrHistoricRatesUnsupported = errors.New("historic rates not supported")
	// ErrCredentialsUnset is returned when a provider requires API
	// credentials that were not configured
	ErrCredentialsUnset = errors.New("api credentials unset")
	// ErrCredentialsRejected is returned when a provider refuses the
	// configured credentials
	ErrCredentialsRejected = errors.New("api credentials rejected")
	// ErrProviderFailure is returned when a provider reports an error in an
	// otherwise well formed response
	ErrProviderFailure = errors.New("provider reported failure")
)

// String implements the stringer interface
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ProviderError is the reason a single provider attempt failed
type ProviderError struct {
	Provider string
	Kind     Kind
	Err      error
}

// Error implements the error interface
func (p *ProviderError) Error() string {
	return fmt.Sprintf("%s %s error: %v", p.Provider, p.Kind, p.Err)
}

// Unwrap returns the underlying error
func (p *ProviderError) Unwrap() error {
	return p.Err
}

// NewTransientError wraps err as recoverable by another provider
func NewTransientError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Kind: Transient, Err: err}
}

// NewFatalError wraps err as an error no other provider can resolve
func NewFatalError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Kind: Fatal, Err: err}
}

// IsTransient reports whether err is a transient provider error
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == Transient
}

// ClassifyError wraps an error raised while talking to a provider. Network
// failures, timeouts, unsuccessful statuses, undecodable bodies, missing rates
// and exhausted quotas are transient. Cancellation, missing or rejected
// credentials and anything unrecognised are fatal. Already classified errors
// are returned untouched.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if isTransient(err) {
		return NewTransientError(provider, err)
	}
	return NewFatalError(provider, err)
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrCredentialsUnset),
		errors.Is(err, ErrCredentialsRejected):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, request.ErrUnsuccessfulStatus),
		errors.Is(err, request.ErrMalformedResponse),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrRateNotFound),
		errors.Is(err, ErrHistoricRatesUnsupported),
		errors.Is(err, ErrProviderFailure):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// IsAuthStatus reports whether code is an HTTP status providers use to refuse
// credentials
func IsAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
