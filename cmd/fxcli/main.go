package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/thrasher-corp/omniexchange/signaler"
	"github.com/urfave/cli/v2"
)

var (
	configPath string
	providers  string
	verbose    bool
	timeout    time.Duration
)

const defaultTimeout = time.Second * 30

func main() {
	app := newApp()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Capture cancel for interrupt
		<-signaler.WaitForInterrupt()
		cancel()
		fmt.Println("fxcli process interrupted")
		os.Exit(1)
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "fxcli"
	app.EnableBashCompletion = true
	app.Usage = "command line interface for converting currencies with failover across forex providers"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.json",
			Usage:       "the config file to load forex providers from",
			EnvVars:     []string{"OMNIEXCHANGE_CONFIG"},
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "providers",
			Aliases:     []string{"p"},
			Usage:       "comma delimited provider order overriding the config, xe,open_exchange_rates for example",
			Destination: &providers,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "logs every provider request and response",
			Destination: &verbose,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Value:       defaultTimeout,
			Usage:       "the context timeout for the whole command",
			Destination: &timeout,
		},
	}
	app.Commands = []*cli.Command{
		convertCommand,
		exchangeDataCommand,
		exchangeRateCommand,
		historicRateCommand,
		providersCommand,
		generateConfigCommand,
		encryptConfigCommand,
		decryptConfigCommand,
	}
	return app
}
