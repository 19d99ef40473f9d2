package forexprovider

import (
	"errors"
	"fmt"

	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/currency"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/currencylayer"
	fixer "github.com/thrasher-corp/omniexchange/currency/forexprovider/fixer.io"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/openexchangerates"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider/xe"
	"github.com/thrasher-corp/omniexchange/log"
)

// Supported provider identifiers
const (
	XE                = "xe"
	OpenExchangeRates = "open_exchange_rates"
	Fixer             = "fixer"
	CurrencyLayer     = "currencylayer"
)

var (
	// ErrNoForexProvidersEnabled is returned when no provider settings are
	// enabled
	ErrNoForexProvidersEnabled = errors.New("no forex providers enabled")

	errUnsupportedProvider = errors.New("unsupported forex provider")
)

// GetSupportedForexProviders returns a list of supported forex providers
func GetSupportedForexProviders() []string {
	return []string{XE, OpenExchangeRates, Fixer, CurrencyLayer}
}

// NewProvider returns the provider named by settings, set up and ready for use
func NewProvider(settings base.Settings, lookup base.SubunitLookup) (base.Provider, error) {
	switch settings.Name {
	case XE:
		p := new(xe.XE)
		return p, p.Setup(settings, lookup)
	case OpenExchangeRates:
		p := new(openexchangerates.OXR)
		return p, p.Setup(settings, lookup)
	case Fixer:
		p := new(fixer.Fixer)
		return p, p.Setup(settings, lookup)
	case CurrencyLayer:
		p := new(currencylayer.CurrencyLayer)
		return p, p.Setup(settings, lookup)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedProvider, settings.Name)
	}
}

// StartFXService registers every enabled provider in a new registry and
// returns a failover engine over it
func StartFXService(fxProviders []base.Settings, table *currency.Table) (*ForexProviders, error) {
	if table == nil {
		return nil, errCurrencyTableIsNil
	}
	registry := NewRegistry()
	for i := range fxProviders {
		log.Debugf(log.ForexSys, "%s forex provider %s", fxProviders[i].Name, common.IsEnabled(fxProviders[i].Enabled))
		if !fxProviders[i].Enabled {
			continue
		}
		p, err := NewProvider(fxProviders[i], table)
		if err != nil {
			return nil, fmt.Errorf("%s setup failure: %w", fxProviders[i].Name, err)
		}
		if err := registry.Register(fxProviders[i].Name, p); err != nil {
			return nil, err
		}
		log.Debugf(log.ForexSys, "%s forex provider registered", fxProviders[i].Name)
	}
	if len(registry.List()) == 0 {
		return nil, ErrNoForexProvidersEnabled
	}
	return NewForexProviders(registry, table)
}
