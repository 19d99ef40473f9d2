package fixer

import (
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/request"
)

// const declarations consist of endpoints and APIKey privileges
const (
	fixerAPIFree = iota
	fixerAPIBasic
	fixerAPIProfessional
	fixerAPIProfessionalPlus
	fixerAPIEnterprise

	fixerAPI                 = "http://data.fixer.io/api/"
	fixerAPISSL              = "https://data.fixer.io/api/"
	fixerAPILatest           = "latest"
	fixerAPIConvert          = "convert"
	fixerAPITimeSeries       = "timeseries"
	fixerAPIFluctuation      = "fluctuation"
	fixerSupportedCurrencies = "symbols"

	// fixerFreeBase is the only base currency available to free accounts
	fixerFreeBase = "EUR"
	// fixerUsageLimitReached is the error code returned once the monthly
	// allowance is used up
	fixerUsageLimitReached = 104
	// fixerInvalidAccessKey is the error code returned when the access key is refused
	fixerInvalidAccessKey = 101
)

// Fixer is a foreign exchange rate provider at https://fixer.io/
// NOTE DEFAULT BASE CURRENCY IS EUR upon free account usage
type Fixer struct {
	base.Base
	Requester *request.Requester
	apiURL    string
}

// Error holds the error details returned in unsuccessful responses
type Error struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

// Symbols is the response type for supported currencies
type Symbols struct {
	Success bool              `json:"success"`
	Error   Error             `json:"error"`
	Map     map[string]string `json:"symbols"`
}

// Rates contains the data fields for the currencies you have requested.
type Rates struct {
	Success    bool                       `json:"success"`
	Error      Error                      `json:"error"`
	Historical bool                       `json:"historical"`
	Timestamp  int64                      `json:"timestamp"`
	Base       string                     `json:"base"`
	Date       string                     `json:"date"`
	Rates      map[string]decimal.Decimal `json:"rates"`
}

// Conversion contains data for currency conversion
type Conversion struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
	Query   struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"query"`
	Info struct {
		Timestamp int64           `json:"timestamp"`
		Rate      decimal.Decimal `json:"rate"`
	} `json:"info"`
	Historical bool            `json:"historical"`
	Date       string          `json:"date"`
	Result     decimal.Decimal `json:"result"`
}

// TimeSeries holds timeseries data
type TimeSeries struct {
	Success    bool                                  `json:"success"`
	Error      Error                                 `json:"error"`
	Timeseries bool                                  `json:"timeseries"`
	StartDate  string                                `json:"start_date"`
	EndDate    string                                `json:"end_date"`
	Base       string                                `json:"base"`
	Rates      map[string]map[string]decimal.Decimal `json:"rates"`
}

// Fluctuation holds fluctuation data
type Fluctuation struct {
	Success     bool            `json:"success"`
	Error       Error           `json:"error"`
	Fluctuation bool            `json:"fluctuation"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Base        string          `json:"base"`
	Rates       map[string]Flux `json:"rates"`
}

// Flux is a sub type holding fluctation data
type Flux struct {
	StartRate decimal.Decimal `json:"start_rate"`
	EndRate   decimal.Decimal `json:"end_rate"`
	Change    decimal.Decimal `json:"change"`
	ChangePCT decimal.Decimal `json:"change_pct"`
}
