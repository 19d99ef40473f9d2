package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/config"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider"
	"github.com/thrasher-corp/omniexchange/log"
	"github.com/thrasher-corp/omniexchange/request"
	"github.com/urfave/cli/v2"
)

var (
	errInvalidAmount   = errors.New("invalid amount supplied")
	errInvalidCurrency = errors.New("invalid currency supplied")
	errInvalidDate     = errors.New("invalid date supplied")
	errNoOrder         = errors.New("no provider order configured, set providerOrder in the config or pass --providers")
)

// session holds everything a command needs to query the engine
type session struct {
	engine *forexprovider.ForexProviders
	order  []string
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// setupSession loads the config, starts every enabled provider and applies
// the global flags
func setupSession(c *cli.Context) (*session, error) {
	cfg := &config.Config{}
	if err := cfg.LoadConfig(configPath, func() ([]byte, error) { return config.PromptForConfigKey(false) }); err != nil {
		return nil, err
	}
	if verbose {
		if err := log.SetLevel(log.ForexSys.Name(), "DEBUG|INFO|WARN|ERROR"); err != nil {
			return nil, err
		}
	}

	table, err := cfg.CurrencyTable()
	if err != nil {
		return nil, err
	}
	engine, err := forexprovider.StartFXService(cfg.GetForexProviderSettings(), table)
	if err != nil {
		return nil, err
	}

	order := cfg.GetProviderOrder()
	if providers != "" {
		order = common.SplitAndTrim(strings.ToLower(providers))
	}
	if len(order) == 0 {
		return nil, errNoOrder
	}

	ctx := c.Context
	if verbose {
		ctx = request.WithVerbose(ctx)
	}
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	return &session{engine: engine, order: order, ctx: ctx, cancel: cancel}, nil
}

func jsonOutput(w io.Writer, in any) error {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(j))
	return err
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %w", errInvalidAmount, s, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w %q: must not be negative", errInvalidAmount, s)
	}
	return amount, nil
}

func parseCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if code == "" {
		return "", fmt.Errorf("%w: empty", errInvalidCurrency)
	}
	return code, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(common.SimpleTimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected %s", errInvalidDate, s, common.SimpleTimeFormat)
	}
	if d.After(time.Now()) {
		return time.Time{}, fmt.Errorf("%w %q: date is in the future", errInvalidDate, s)
	}
	return d, nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
