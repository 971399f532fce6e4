// Package vocab wires the indexing pipeline together: resolve input files,
// aggregate them through the runner, merge, build the vocabulary index,
// save it and publish it to the configured sinks.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/aggregator"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/runner"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/store"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/tracing"
)

// Publisher announces a freshly built index.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Sink is an extra store the index is copied to after the primary save.
type Sink struct {
	Name  string
	Store store.Store
}

// FileSummary describes one aggregated input file.
type FileSummary struct {
	Path     string
	Tokens   int
	Distinct int
}

// Result is everything a successful build produced.
type Result struct {
	Global    *index.Counts
	Index     *index.Index
	Files     []FileSummary
	IndexPath string
	Duration  time.Duration
	Trace     *tracing.Span
}

type Builder struct {
	cfg       config.VocabConfig
	sinkCfg   config.SinksConfig
	work      runner.Func[*index.Counts]
	primary   *store.FileStore
	sinks     []Sink
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Builder)

// WithWorker replaces the in-process file aggregator, e.g. with a
// subprocess worker.
func WithWorker(fn runner.Func[*index.Counts]) Option {
	return func(b *Builder) { b.work = fn }
}

func WithSinks(sinks ...Sink) Option {
	return func(b *Builder) { b.sinks = append(b.sinks, sinks...) }
}

func WithPublisher(p Publisher) Option {
	return func(b *Builder) { b.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// Stopwords returns the configured stopword set, or the default one.
func Stopwords(cfg config.VocabConfig) tokenizer.Stopwords {
	if len(cfg.Stopwords) > 0 {
		return tokenizer.NewStopwords(cfg.Stopwords...)
	}
	return tokenizer.Default()
}

// NewAggregator builds the in-process file aggregator for cfg.
func NewAggregator(cfg config.VocabConfig, m *metrics.Metrics) *aggregator.Aggregator {
	return aggregator.New(Stopwords(cfg), aggregator.Options{
		MaxLines:      cfg.Lines,
		ProgressEvery: cfg.ProgressEvery,
	}, m)
}

func NewBuilder(cfg config.VocabConfig, sinkCfg config.SinksConfig, opts ...Option) *Builder {
	b := &Builder{
		cfg:     cfg,
		sinkCfg: sinkCfg,
		primary: store.NewFileStore(cfg.DataDir),
		logger:  logger.WithComponent("builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.work == nil {
		b.work = NewAggregator(cfg, b.metrics).AggregateFile
	}
	return b
}

// Resolve expands pattern relative to dataDir. Absolute patterns are used
// as given. Matches are sorted so runs over the same tree are repeatable.
func Resolve(dataDir, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, apperrors.New(apperrors.ErrUsage, "", "missing file pattern")
	}
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(dataDir, pattern)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrUsage, full, "bad file pattern: %v", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Build aggregates paths and writes the index. Nothing is written unless
// every file was aggregated. Sink failures are reported after the primary
// file is in place.
func (b *Builder) Build(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "build")
	res, err := b.build(ctx, paths)
	span.End()
	span.Log(b.logger)
	if b.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		b.metrics.RunDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	if res != nil {
		res.Duration = time.Since(start)
		res.Trace = span
	}
	return res, err
}

func (b *Builder) build(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		b.logger.Warn("no input files, building an empty index")
	}
	_, stage := tracing.Start(ctx, "aggregate")
	stage.SetAttr("files", len(paths))
	counts, err := runner.Run(ctx, b.work, paths, runner.Options{
		MaxWorkers:    b.cfg.Workers(len(paths)),
		ResultTimeout: b.cfg.ResultTimeout,
		Metrics:       b.metrics,
	})
	stage.End()
	if err != nil {
		return nil, err
	}

	files := make([]FileSummary, len(paths))
	for i, c := range counts {
		files[i] = FileSummary{Path: paths[i], Tokens: c.Total(), Distinct: c.Len()}
	}
	_, stage = tracing.Start(ctx, "merge")
	global := index.Merge(counts)
	stage.End()
	_, stage = tracing.Start(ctx, "rank")
	ix := index.Build(global, b.cfg.NWords)
	stage.End()
	b.logger.Info("vocabulary built",
		"files", len(paths),
		"distinct_words", global.Len(),
		"index_size", ix.Len(),
		"max_size", b.cfg.NWords,
	)
	if b.metrics != nil {
		b.metrics.DistinctWords.Set(float64(global.Len()))
		b.metrics.VocabularySize.Set(float64(ix.Len()))
	}

	_, stage = tracing.Start(ctx, "save")
	err = b.primary.Save(ctx, b.cfg.IndexName, ix)
	stage.End()
	if err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}
	res := &Result{
		Global:    global,
		Index:     ix,
		Files:     files,
		IndexPath: b.primary.Path(b.cfg.IndexName),
	}
	b.logger.Info("index saved", "path", res.IndexPath)

	var sinkErrs []error
	for _, sink := range b.sinks {
		if err := b.publishTo(ctx, sink, ix); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	if b.publisher != nil {
		if err := b.announce(ctx, res); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	return res, errors.Join(sinkErrs...)
}

func (b *Builder) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: b.sinkCfg.Attempts,
		Permanent: func(err error) bool {
			return apperrors.Is(err, apperrors.ErrCorruptIndex)
		},
	}
}

func (b *Builder) publishTo(ctx context.Context, sink Sink, ix *index.Index) error {
	op := "sink:" + sink.Name
	_, stage := tracing.Start(ctx, op)
	defer stage.End()
	err := resilience.RetryWithTimeout(ctx, op, b.retryConfig(), b.sinkCfg.Timeout, func(ctx context.Context) error {
		return sink.Store.Save(ctx, b.cfg.IndexName, ix)
	})
	b.countSink(sink.Name, err)
	if err != nil {
		b.logger.Error("sink write failed", "sink", sink.Name, "error", err)
		return fmt.Errorf("publishing index to %s: %w", sink.Name, err)
	}
	b.logger.Info("index published", "sink", sink.Name, "name", b.cfg.IndexName)
	return nil
}

func (b *Builder) announce(ctx context.Context, res *Result) error {
	_, stage := tracing.Start(ctx, "announce")
	defer stage.End()
	event := kafka.Event{Key: b.cfg.IndexName, Value: NewIndexBuiltEvent(b.cfg.IndexName, res)}
	err := resilience.RetryWithTimeout(ctx, "kafka:index-built", b.retryConfig(), b.sinkCfg.Timeout, func(ctx context.Context) error {
		return b.publisher.Publish(ctx, event)
	})
	b.countSink("kafka", err)
	if err != nil {
		return fmt.Errorf("announcing index: %w", err)
	}
	return nil
}

func (b *Builder) countSink(name string, err error) {
	if b.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.metrics.SinkWritesTotal.WithLabelValues(name, status).Inc()
}
