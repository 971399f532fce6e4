package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/runner"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/metrics"
)

var buildFlags = []cli.Flag{
	&cli.StringFlag{Name: "datadir", Aliases: []string{"d"}, Usage: "directory the pattern is resolved against"},
	&cli.IntFlag{Name: "lines", Aliases: []string{"n"}, Usage: "maximum lines to read per file (0 = all)"},
	&cli.BoolFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "aggregate files concurrently"},
	&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "maximum concurrent workers (default: one per file)"},
	&cli.StringFlag{Name: "worker-mode", Usage: "inprocess or subprocess"},
	&cli.IntFlag{Name: "nwords", Aliases: []string{"k"}, Usage: "maximum vocabulary size"},
	&cli.StringFlag{Name: "index-name", Usage: "file name of the saved index"},
	&cli.DurationFlag{Name: "timeout", Usage: "per-result wait limit when running in parallel"},
	&cli.IntFlag{Name: "top", Usage: "words to list in the report (-1 = all)"},
}

var readFlags = []cli.Flag{
	&cli.StringFlag{Name: "from", Value: "file", Usage: "file, redis, postgres or sqlite"},
	&cli.StringFlag{Name: "datadir", Aliases: []string{"d"}, Usage: "directory holding the index file"},
	&cli.StringFlag{Name: "index-name", Usage: "name of the index to read"},
}

// applyFlags overrides config values with the flags the user set.
func applyFlags(c *cli.Context, cfg *config.VocabConfig) {
	if c.IsSet("datadir") {
		cfg.DataDir = c.String("datadir")
	}
	if c.IsSet("index-name") {
		cfg.IndexName = c.String("index-name")
	}
	if c.IsSet("lines") {
		cfg.Lines = c.Int("lines")
	}
	if c.IsSet("parallel") {
		cfg.Parallel = c.Bool("parallel")
	}
	if c.IsSet("workers") {
		cfg.MaxWorkers = c.Int("workers")
	}
	if c.IsSet("worker-mode") {
		cfg.WorkerMode = c.String("worker-mode")
	}
	if c.IsSet("nwords") {
		cfg.NWords = c.Int("nwords")
	}
	if c.IsSet("timeout") {
		cfg.ResultTimeout = c.Duration("timeout")
	}
	if c.IsSet("top") {
		cfg.ReportTop = c.Int("top")
	}
}

func buildAction(c *cli.Context) error {
	cfg := loadedConfig(c)
	applyFlags(c, &cfg.Vocab)
	if err := cfg.Validate(); err != nil {
		return apperrors.New(apperrors.ErrUsage, "", err.Error())
	}
	pattern := c.Args().First()
	if pattern == "" {
		if err := cli.ShowSubcommandHelp(c); err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrUsage, "", "missing file pattern")
	}

	runID := strconv.FormatInt(time.Now().UnixNano(), 36)
	ctx := logger.WithRunID(c.Context, runID)
	log := logger.FromContext(ctx)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(ctx)
	}
	if cfg.Metrics.PushURL != "" {
		defer func() {
			if err := m.Push(cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
				log.Warn("metrics push failed", "url", cfg.Metrics.PushURL, "error", err)
			}
		}()
	}

	paths, err := vocab.Resolve(cfg.Vocab.DataDir, pattern)
	if err != nil {
		return err
	}
	log.Info("starting build",
		"pattern", pattern,
		"files", len(paths),
		"workers", cfg.Vocab.Workers(len(paths)),
		"worker_mode", cfg.Vocab.WorkerMode,
	)

	opts := []vocab.Option{vocab.WithMetrics(m)}
	if cfg.Vocab.WorkerMode == config.WorkerModeSubprocess {
		worker, err := subprocessWorker(c, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, vocab.WithWorker(worker.Func()))
	}
	sinks, err := vocab.OpenSinks(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening sinks: %w", err)
	}
	defer sinks.Close()
	opts = append(opts, sinks.Options()...)

	res, err := vocab.NewBuilder(cfg.Vocab, cfg.Sinks, opts...).Build(ctx, paths)
	if res != nil {
		if werr := res.WriteReport(c.App.Writer, cfg.Vocab.ReportTop); werr != nil {
			return werr
		}
		log.Info("build finished", "index", res.IndexPath, "duration", res.Duration)
	}
	return err
}

// subprocessWorker re-executes this binary's aggregate command per file.
func subprocessWorker(c *cli.Context, cfg *config.Config) (runner.Subprocess, error) {
	exe, err := os.Executable()
	if err != nil {
		return runner.Subprocess{}, fmt.Errorf("locating executable: %w", err)
	}
	var args []string
	if path := c.String("config"); path != "" {
		args = append(args, "--config", path)
	}
	args = append(args,
		"--log-level", cfg.Logging.Level,
		"--log-format", cfg.Logging.Format,
		"aggregate",
		"--lines", strconv.Itoa(cfg.Vocab.Lines),
	)
	return runner.Subprocess{Command: exe, Args: args}, nil
}

func aggregateAction(c *cli.Context) error {
	cfg := loadedConfig(c)
	if c.IsSet("lines") {
		cfg.Vocab.Lines = c.Int("lines")
	}
	path := c.Args().First()
	if path == "" {
		return apperrors.New(apperrors.ErrUsage, "", "missing file")
	}
	counts, err := vocab.NewAggregator(cfg.Vocab, nil).AggregateFile(c.Context, path)
	if err != nil {
		return err
	}
	return json.NewEncoder(c.App.Writer).Encode(counts)
}

func showAction(c *cli.Context) error {
	cfg := loadedConfig(c)
	applyFlags(c, &cfg.Vocab)
	st, closer, err := vocab.OpenStore(c.Context, cfg, c.String("from"))
	if err != nil {
		return err
	}
	defer closer.Close()

	ix, err := st.Load(c.Context, cfg.Vocab.IndexName)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(c.App.Writer, ix.String())
	return err
}

func lookupAction(c *cli.Context) error {
	cfg := loadedConfig(c)
	applyFlags(c, &cfg.Vocab)
	args := c.Args().Slice()
	if len(args) == 0 {
		if err := cli.ShowSubcommandHelp(c); err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrUsage, "", "nothing to look up")
	}
	st, closer, err := vocab.OpenStore(c.Context, cfg, c.String("from"))
	if err != nil {
		return err
	}
	defer closer.Close()

	byID := c.Bool("id")
	missing := 0
	for _, arg := range args {
		// each load after the first is served from the cache
		ix, err := st.Load(c.Context, cfg.Vocab.IndexName)
		if err != nil {
			return err
		}
		if byID {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return apperrors.Newf(apperrors.ErrUsage, "", "bad id %q", arg)
			}
			word, ok := ix.Word(id)
			if !ok {
				missing++
				word = "-"
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\n", id, word)
			continue
		}
		id, ok := ix.ID(arg)
		if !ok {
			missing++
			fmt.Fprintf(c.App.Writer, "%s\t-\n", arg)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s\t%d\n", arg, id)
	}
	slog.Debug("lookup done", "queries", len(args), "missing", missing)
	return nil
}

func checkAction(c *cli.Context) error {
	cfg := loadedConfig(c)
	report := vocab.NewChecker(cfg).Run(c.Context, cfg.Sinks.Timeout)
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Status != health.StatusUp {
		return fmt.Errorf("sinks unavailable: %v", downComponents(report))
	}
	return nil
}

func downComponents(report health.Report) []string {
	var down []string
	for _, name := range report.Names() {
		if report.Components[name].Status == health.StatusDown {
			down = append(down, name)
		}
	}
	return down
}
