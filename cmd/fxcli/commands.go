package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/omniexchange/common"
	"github.com/thrasher-corp/omniexchange/config"
	"github.com/thrasher-corp/omniexchange/currency/forexprovider"
	"github.com/urfave/cli/v2"
)

var pairFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "base",
		Usage: "the currency to convert from, USD for example",
	},
	&cli.StringFlag{
		Name:  "target",
		Usage: "the currency to convert into, JPY for example",
	},
}

var amountFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "amount",
		Usage: "the amount in the smallest unit of the base currency, cents for USD",
	},
}, pairFlags...)

var convertCommand = &cli.Command{
	Name:      "convert",
	Usage:     "converts an amount in the smallest unit of the base currency into the target currency",
	ArgsUsage: "<amount> <base> <target>",
	Flags:     amountFlags,
	Action:    convert,
}

var exchangeDataCommand = &cli.Command{
	Name:      "data",
	Usage:     "converts an amount and returns the rate, raw rate and the provider that served it",
	ArgsUsage: "<amount> <base> <target>",
	Flags:     amountFlags,
	Action:    getExchangeData,
}

var exchangeRateCommand = &cli.Command{
	Name:      "rate",
	Usage:     "returns the rate per smallest unit of the base currency",
	ArgsUsage: "<base> <target>",
	Flags:     pairFlags,
	Action:    getExchangeRate,
}

var historicRateCommand = &cli.Command{
	Name:      "historic",
	Usage:     "returns rates per smallest unit of the base currency on a date",
	ArgsUsage: "<base> <date> <targets...>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "base",
			Usage: "the base currency",
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "the date in " + common.SimpleTimeFormat + " format",
		},
		&cli.StringFlag{
			Name:  "targets",
			Usage: "comma delimited target currencies",
		},
	},
	Action: getHistoricRate,
}

var providersCommand = &cli.Command{
	Name:   "providers",
	Usage:  "lists supported and enabled forex providers and the failover order",
	Action: getProviders,
}

var generateConfigCommand = &cli.Command{
	Name:      "genconfig",
	Usage:     "writes a config with every supported provider disabled",
	ArgsUsage: "<path>",
	Action:    generateConfig,
}

var encryptConfigCommand = &cli.Command{
	Name:      "encrypt",
	Usage:     "encrypts a plain text config",
	ArgsUsage: "<input> <output>",
	Action:    encryptConfig,
}

var decryptConfigCommand = &cli.Command{
	Name:      "decrypt",
	Usage:     "decrypts an encrypted config",
	ArgsUsage: "<input> <output>",
	Action:    decryptConfig,
}

// argOrFlag returns the flag value when set, otherwise the positional arg
func argOrFlag(c *cli.Context, flag string, pos int) string {
	if c.IsSet(flag) {
		return c.String(flag)
	}
	return c.Args().Get(pos)
}

func amountAndPair(c *cli.Context) (amount decimal.Decimal, baseCurrency, targetCurrency string, err error) {
	amount, err = parseAmount(argOrFlag(c, "amount", 0))
	if err != nil {
		return decimal.Zero, "", "", err
	}
	baseCurrency, err = parseCurrency(argOrFlag(c, "base", 1))
	if err != nil {
		return decimal.Zero, "", "", err
	}
	targetCurrency, err = parseCurrency(argOrFlag(c, "target", 2))
	if err != nil {
		return decimal.Zero, "", "", err
	}
	return amount, baseCurrency, targetCurrency, nil
}

func convert(c *cli.Context) error {
	if c.NArg() == 0 && c.NumFlags() == 0 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	amount, baseCurrency, targetCurrency, err := amountAndPair(c)
	if err != nil {
		return err
	}
	s, err := setupSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	converted, err := s.engine.Convert(s.ctx, amount, baseCurrency, targetCurrency, s.order)
	if err != nil {
		return err
	}
	return jsonOutput(c.App.Writer, struct {
		Amount          decimal.Decimal `json:"amount"`
		Base            string          `json:"base"`
		Target          string          `json:"target"`
		ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	}{amount, baseCurrency, targetCurrency, converted})
}

func getExchangeData(c *cli.Context) error {
	if c.NArg() == 0 && c.NumFlags() == 0 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	amount, baseCurrency, targetCurrency, err := amountAndPair(c)
	if err != nil {
		return err
	}
	s, err := setupSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.engine.GetExchangeData(s.ctx, amount, baseCurrency, targetCurrency, s.order)
	if err != nil {
		return err
	}
	return jsonOutput(c.App.Writer, result)
}

func getExchangeRate(c *cli.Context) error {
	if c.NArg() == 0 && c.NumFlags() == 0 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	baseCurrency, err := parseCurrency(argOrFlag(c, "base", 0))
	if err != nil {
		return err
	}
	targetCurrency, err := parseCurrency(argOrFlag(c, "target", 1))
	if err != nil {
		return err
	}
	s, err := setupSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	rate, err := s.engine.GetExchangeRate(s.ctx, baseCurrency, targetCurrency, s.order)
	if err != nil {
		return err
	}
	return jsonOutput(c.App.Writer, struct {
		Base   string          `json:"base"`
		Target string          `json:"target"`
		Rate   decimal.Decimal `json:"rate"`
	}{baseCurrency, targetCurrency, rate})
}

func getHistoricRate(c *cli.Context) error {
	if c.NArg() == 0 && c.NumFlags() == 0 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	baseCurrency, err := parseCurrency(argOrFlag(c, "base", 0))
	if err != nil {
		return err
	}
	date, err := parseDate(argOrFlag(c, "date", 1))
	if err != nil {
		return err
	}
	var targets []string
	if c.IsSet("targets") {
		targets = common.SplitAndTrim(c.String("targets"))
	} else if c.NArg() > 2 {
		targets = c.Args().Slice()[2:]
	}
	s, err := setupSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	rates, err := s.engine.GetHistoricRate(s.ctx, baseCurrency, targets, date, s.order)
	if err != nil {
		return err
	}
	return jsonOutput(c.App.Writer, struct {
		Base  string                     `json:"base"`
		Date  string                     `json:"date"`
		Rates map[string]decimal.Decimal `json:"rates"`
	}{baseCurrency, date.Format(common.SimpleTimeFormat), rates})
}

func getProviders(c *cli.Context) error {
	s, err := setupSession(c)
	if err != nil {
		return err
	}
	defer s.close()
	return jsonOutput(c.App.Writer, struct {
		Supported []string `json:"supported"`
		Enabled   []string `json:"enabled"`
		Order     []string `json:"order"`
	}{forexprovider.GetSupportedForexProviders(), s.engine.Registry().List(), s.order})
}

func generateConfig(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = config.File
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().SaveConfigToFile(path, nil); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.App.Writer, "config written to %s at %s\n", path, time.Now().Format(common.SimpleTimeFormatWithTimezone))
	return err
}

func encryptConfig(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	if config.ConfirmECS(data) {
		return fmt.Errorf("%s is already encrypted", c.Args().Get(0))
	}
	key, err := config.PromptForConfigKey(true)
	if err != nil {
		return err
	}
	enc, err := config.EncryptConfigFile(data, key)
	if err != nil {
		return err
	}
	return writeFile(c.Args().Get(1), enc)
}

func decryptConfig(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	key, err := config.PromptForConfigKey(false)
	if err != nil {
		return err
	}
	plain, err := config.DecryptConfigFile(data, key)
	if err != nil {
		return err
	}
	return writeFile(c.Args().Get(1), plain)
}
