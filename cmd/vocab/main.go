package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/logger"
)

const configKey = "config"

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to YAML config file",
		EnvVars: []string{"VOCAB_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error (overrides config)",
	},
	&cli.StringFlag{
		Name:  "log-format",
		Usage: "text or json (overrides config)",
	},
}

func usageError(c *cli.Context, err error, isSubcommand bool) error {
	return apperrors.New(apperrors.ErrUsage, "", err.Error())
}

func newApp() *cli.App {
	app := &cli.App{
		Name:      "vocab",
		Usage:     "build a word frequency vocabulary index from JSON-lines review files",
		ArgsUsage: "<pattern>",
		Flags:     append(append([]cli.Flag{}, globalFlags...), buildFlags...),
		Before:    setup,
		Action:    buildAction,
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "aggregate files matching pattern and save the index",
				ArgsUsage: "<pattern>",
				Flags:     buildFlags,
				Action:    buildAction,
			},
			{
				Name:   "show",
				Usage:  "print a saved index",
				Flags:  readFlags,
				Action: showAction,
			},
			{
				Name:      "lookup",
				Usage:     "print the id of each word, or the word of each id with --id",
				ArgsUsage: "<word>...",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "id", Usage: "treat arguments as ids"},
				}, readFlags...),
				Action: lookupAction,
			},
			{
				Name:   "check",
				Usage:  "probe every enabled sink and print a JSON report",
				Action: checkAction,
			},
			{
				Name:      "aggregate",
				Usage:     "count one file and print the counts as JSON",
				ArgsUsage: "<file>",
				Hidden:    true,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "lines", Usage: "maximum lines to read (0 = all)"},
				},
				Action: aggregateAction,
			},
		},
		HideHelpCommand: true,
		OnUsageError: usageError,
		// exit codes are decided in main
		ExitErrHandler: func(c *cli.Context, err error) {},
	}
	for _, cmd := range app.Commands {
		cmd.OnUsageError = usageError
	}
	return app
}

// setup loads the config and installs the logger before any command runs.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return apperrors.New(apperrors.ErrUsage, c.String("config"), err.Error())
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vocab: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
