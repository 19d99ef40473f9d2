package base

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Default connection values for forex providers
const (
	DefaultReadTimeout    = 5 * time.Second
	DefaultConnectTimeout = 2 * time.Second
)

// Settings enforces standard variables across the provider packages
type Settings struct {
	Name           string        `json:"name"`
	Enabled        bool          `json:"enabled"`
	Verbose        bool          `json:"verbose"`
	APIID          string        `json:"apiId"`
	APIKey         string        `json:"apiKey"`
	APIKeyLvl      int           `json:"apiKeyLvl"`
	ReadTimeout    time.Duration `json:"readTimeout"`
	ConnectTimeout time.Duration `json:"connectTimeout"`
}

// Base enforces standard variables across the provider packages
type Base struct {
	Settings `json:"settings"`
	// Subunits converts wire rates to per smallest unit rates
	Subunits SubunitLookup `json:"-"`
}

// Provider is the capability every forex provider exposes. Rates are per
// smallest unit of the base currency, so multiplying a rate by an amount
// expressed in the base currency's smallest unit gives the converted amount.
type Provider interface {
	GetName() string
	GetCurrentRate(ctx context.Context, baseCurrency, targetCurrency string) (decimal.Decimal, error)
	GetHistoricRates(ctx context.Context, baseCurrency string, targetCurrencies []string, date time.Time) (map[string]decimal.Decimal, error)
}

// SubunitLookup resolves how many smallest units make one whole unit of a
// currency
type SubunitLookup interface {
	SubunitFactor(code string) (int64, error)
}
