// Package aggregator counts the words of one JSON-lines review file. Each
// line must decode to an object with a "text" array of tokens; the first
// bad line fails the whole file.
package aggregator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/readahead"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/metrics"
)

const (
	readAheadBuffers = 4
	readAheadSize    = 1 << 20
	maxLineSize      = 64 << 20
)

// Record is one decoded input line. Fields other than text are ignored.
type Record struct {
	Text *[]string `json:"text"`
}

// Options bound the work done per file.
type Options struct {
	// MaxLines stops reading after that many lines. Zero means unlimited.
	MaxLines int
	// ProgressEvery logs progress every that many lines. Zero disables.
	ProgressEvery int
}

type Aggregator struct {
	stopwords tokenizer.Stopwords
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Aggregator. m may be nil.
func New(stopwords tokenizer.Stopwords, opts Options, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		stopwords: stopwords,
		opts:      opts,
		metrics:   m,
		logger:    slog.Default().With("component", "aggregator"),
	}
}

// AggregateFile counts the filtered words of every record in path.
func (a *Aggregator) AggregateFile(ctx context.Context, path string) (*index.Counts, error) {
	start := time.Now()
	counts, err := a.aggregateFile(ctx, path)
	a.observe(start, err)
	return counts, err
}

func (a *Aggregator) aggregateFile(ctx context.Context, path string) (*index.Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file %s: %w", path, err)
	}
	defer f.Close()

	ra, err := readahead.NewReaderSize(f, readAheadBuffers, readAheadSize)
	if err != nil {
		return nil, fmt.Errorf("read-ahead on %s: %w", path, err)
	}
	defer ra.Close()

	var size uint64
	if st, err := f.Stat(); err == nil {
		size = uint64(st.Size())
	}
	a.logger.Info("aggregating file", "file", path, "size", humanize.Bytes(size))
	return a.Aggregate(ctx, ra, path)
}

// Aggregate counts the records read from r. source names the input in
// errors and logs.
func (a *Aggregator) Aggregate(ctx context.Context, r io.Reader, source string) (*index.Counts, error) {
	counts := index.NewCounts()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lines := 0
	// the limit is checked before Scan so nothing past it is ever read
	for (a.opts.MaxLines <= 0 || lines < a.opts.MaxLines) && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregating %s: %w", source, err)
		}
		lines++
		if a.opts.ProgressEvery > 0 && lines%a.opts.ProgressEvery == 0 {
			a.logger.Info("progress",
				"file", source,
				"lines", humanize.Comma(int64(lines)),
				"distinct_words", counts.Len(),
			)
		}

		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			a.countLines(lines - 1)
			return nil, apperrors.Newf(apperrors.ErrParse, source, "line %d: %v", lines, err)
		}
		if rec.Text == nil {
			a.countLines(lines - 1)
			return nil, apperrors.Newf(apperrors.ErrParse, source, "line %d: missing \"text\" array", lines)
		}
		for word := range a.stopwords.Filter(*rec.Text) {
			counts.Inc(word)
		}
	}
	a.countLines(lines)
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s after line %d: %w", source, lines, err)
	}
	a.logger.Debug("file aggregated",
		"file", source,
		"lines", lines,
		"distinct_words", counts.Len(),
		"tokens", counts.Total(),
	)
	return counts, nil
}

func (a *Aggregator) countLines(n int) {
	if a.metrics != nil && n > 0 {
		a.metrics.LinesProcessedTotal.Add(float64(n))
	}
}

func (a *Aggregator) observe(start time.Time, err error) {
	if a.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case apperrors.Is(err, apperrors.ErrParse):
		status = "parse_error"
	case err != nil:
		status = "error"
	}
	a.metrics.FilesAggregated.WithLabelValues(status).Inc()
	a.metrics.FileDuration.Observe(time.Since(start).Seconds())
}
