package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// Const vars for the request package
const (
	// MaxRequestJobs bounds concurrent in flight requests per Requester
	MaxRequestJobs int32 = 50

	userAgent = "User-Agent"
	// maxResponseSize bounds how much of a response body is read
	maxResponseSize = 4 << 20
	// maxErrorBodyLog bounds the raw body kept on a StatusError
	maxErrorBodyLog = 1024
)

var (
	// ErrMalformedResponse is returned when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response body")
	// ErrUnsuccessfulStatus is matched by every *StatusError
	ErrUnsuccessfulStatus = errors.New("unsuccessful HTTP status code")
)

// Requester is a rate limited HTTP requester bound to a single service
type Requester struct {
	HTTPClient *http.Client
	Name       string
	UserAgent  string
	limiter    *rate.Limiter
	jobs       int32
}

// RequesterOption is a function option that can be applied to the requester
type RequesterOption func(*Requester)

// Item is a temp item for requests
type Item struct {
	Method        string
	Path          string
	Headers       map[string]string
	Body          io.Reader
	Result        any
	Username      string
	Password      string
	Verbose       bool
	HTTPDebugging bool
}

// Generate defines a closure for functionality outside of the requester to
// build the request item.
type Generate func() (*Item, error)

// StatusError is returned when a service responds with a status outside the
// 2xx range. Body holds the raw response so providers can inspect service
// specific error payloads.
type StatusError struct {
	Name       string
	StatusCode int
	Body       []byte
}

// Error implements the error interface
func (s *StatusError) Error() string {
	body := s.Body
	if len(body) > maxErrorBodyLog {
		body = body[:maxErrorBodyLog]
	}
	return fmt.Sprintf("%s %s: %d raw response: %s",
		s.Name,
		ErrUnsuccessfulStatus,
		s.StatusCode,
		string(body))
}

// Is allows errors.Is to match ErrUnsuccessfulStatus
func (s *StatusError) Is(target error) bool {
	return target == ErrUnsuccessfulStatus
}
