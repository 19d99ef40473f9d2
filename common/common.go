// Package common holds helpers shared by the forex provider packages
package common

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Const declarations for common.go operations
const (
	// SimpleTimeFormat is the date layout used by historical rate endpoints
	SimpleTimeFormat = "2006-01-02"
	// SimpleTimeFormatWithTimezone is used when printing request times
	SimpleTimeFormatWithTimezone = "2006-01-02 15:04:05 MST"

	defaultIdleConnTimeout = 90 * time.Second
	defaultMaxIdleConns    = 100
)

// ErrInvalidTimeout is returned when a negative timeout is supplied
var ErrInvalidTimeout = errors.New("timeout must not be negative")

// IsEnabled takes in a boolean param  and returns a string if it is enabled
// or disabled
func IsEnabled(isEnabled bool) string {
	if isEnabled {
		return "Enabled"
	}
	return "Disabled"
}

// NewHTTPClientWithTimeout initialises a new HTTP client and its underlying
// transport IdleConnTimeout with the specified timeout duration
func NewHTTPClientWithTimeout(t time.Duration) *http.Client {
	tr := &http.Transport{
		// Added IdleConnTimeout to reduce the time of idle connections which
		// could potentially slow macOS reconnection when there is a sudden
		// network disconnection/issue
		IdleConnTimeout: t,
		Proxy:           http.ProxyFromEnvironment,
	}
	h := &http.Client{
		Transport: tr,
		Timeout:   t}
	return h
}

// NewHTTPClientWithTimeouts returns a HTTP client which bounds establishing a
// connection by connectTimeout and waiting for the response by readTimeout. A
// zero value leaves that phase unbounded.
func NewHTTPClientWithTimeouts(connectTimeout, readTimeout time.Duration) (*http.Client, error) {
	if connectTimeout < 0 || readTimeout < 0 {
		return nil, ErrInvalidTimeout
	}
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		IdleConnTimeout:       defaultIdleConnTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
	}
	var overall time.Duration
	if connectTimeout > 0 && readTimeout > 0 {
		overall = connectTimeout + readTimeout
	}
	return &http.Client{
		Transport: tr,
		Timeout:   overall,
	}, nil
}

// EncodeURLValues concatenates url values onto a url string and returns a
// string
func EncodeURLValues(urlPath string, values url.Values) string {
	u := urlPath
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}

// StringSliceContainsUpper checks a string slice for the upper case version
// of needle
func StringSliceContainsUpper(haystack []string, needle string) bool {
	needle = strings.ToUpper(needle)
	for i := range haystack {
		if strings.ToUpper(haystack[i]) == needle {
			return true
		}
	}
	return false
}

// SplitAndTrim splits a comma delimited list and drops empty entries
func SplitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for i := range parts {
		p := strings.TrimSpace(parts[i])
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
