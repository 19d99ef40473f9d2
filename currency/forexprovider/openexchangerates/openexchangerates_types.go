package openexchangerates

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/request"
)

// These consts contain endpoint information
const (
	APIURL              = "https://openexchangerates.org/api/"
	APIEndpointLatest   = "latest.json"
	APIEndpointHistory  = "historical/"
	APIEndpointCurrency = "currencies.json"
	APIEndpointJSONExt  = ".json"
	APIEndpointUsage    = "usage.json"

	// accessRestricted is the error message sent for repeated over-use
	accessRestricted = "access_restricted"
)

// OXR is a foreign exchange rate provider at https://openexchangerates.org/
// NOTE free accounts only support USD as the base currency
type OXR struct {
	base.Base
	Requester *request.Requester
	apiURL    string
}

// Rates is a holder for the latest or historical rates
type Rates struct {
	Disclaimer  string                     `json:"disclaimer"`
	License     string                     `json:"license"`
	Timestamp   int64                      `json:"timestamp"`
	Base        string                     `json:"base"`
	Rates       map[string]decimal.Decimal `json:"rates"`
	Error       bool                       `json:"error"`
	Status      int                        `json:"status"`
	Message     string                     `json:"message"`
	Description string                     `json:"description"`
}

// ErrorResponse is returned in the body of unsuccessful requests
type ErrorResponse struct {
	Error       bool   `json:"error"`
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// Usage holds the request allowance for the configured app id
type Usage struct {
	Status int `json:"status"`
	Data   struct {
		AppID  string `json:"app_id"`
		Status string `json:"status"`
		Plan   struct {
			Name            string `json:"name"`
			Quota           string `json:"quota"`
			UpdateFrequency string `json:"update_frequency"`
		} `json:"plan"`
		Usage struct {
			Requests          int64 `json:"requests"`
			RequestsQuota     int64 `json:"requests_quota"`
			RequestsRemaining int64 `json:"requests_remaining"`
			DaysElapsed       int64 `json:"days_elapsed"`
			DaysRemaining     int64 `json:"days_remaining"`
			DailyAverage      int64 `json:"daily_average"`
		} `json:"usage"`
	} `json:"data"`
	Error       bool   `json:"error"`
	Message     string `json:"message"`
	Description string `json:"description"`
}
