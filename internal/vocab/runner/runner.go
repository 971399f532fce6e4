// Package runner fans a per-file function out over a bounded pool of
// isolated workers and collects the results in submission order.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/metrics"
)

// Func processes one file. Workers share no mutable state: each call gets
// only its path and must return a value it owns.
type Func[T any] func(ctx context.Context, path string) (T, error)

type Options struct {
	// MaxWorkers bounds concurrent workers. Values <= 1 run synchronously.
	MaxWorkers int
	// ResultTimeout bounds the wait for each result, measured from when
	// collection of that result begins. Zero waits indefinitely.
	ResultTimeout time.Duration
	Metrics       *metrics.Metrics
}

type outcome[T any] struct {
	value T
	err   error
}

// Run applies fn to every path and returns the results aligned with paths.
// The first failure aborts the run: remaining workers are cancelled and no
// partial results are returned. There is no retry.
func Run[T any](ctx context.Context, fn Func[T], paths []string, opts Options) ([]T, error) {
	logger := slog.Default().With("component", "runner")
	if opts.MaxWorkers <= 1 {
		logger.Info("running synchronously", "files", len(paths))
		return runSync(ctx, fn, paths)
	}
	logger.Info("running in parallel",
		"files", len(paths),
		"workers", opts.MaxWorkers,
		"result_timeout", opts.ResultTimeout,
	)
	return runParallel(ctx, fn, paths, opts, logger)
}

func runSync[T any](ctx context.Context, fn Func[T], paths []string) ([]T, error) {
	results := make([]T, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted before %s: %w", path, err)
		}
		out := invoke(ctx, fn, path)
		if out.err != nil {
			return nil, out.err
		}
		results = append(results, out.value)
	}
	return results, nil
}

func runParallel[T any](ctx context.Context, fn Func[T], paths []string, opts Options, logger *slog.Logger) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(opts.MaxWorkers))
	futures := make([]chan outcome[T], len(paths))
	for i, path := range paths {
		futures[i] = make(chan outcome[T], 1)
		go func(path string, future chan<- outcome[T]) {
			if err := sem.Acquire(ctx, 1); err != nil {
				future <- outcome[T]{err: fmt.Errorf("worker for %s not started: %w", path, err)}
				return
			}
			defer sem.Release(1)
			future <- invoke(ctx, fn, path)
		}(path, futures[i])
	}

	results := make([]T, len(paths))
	for i, path := range paths {
		out, err := await(ctx, futures[i], path, opts.ResultTimeout)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrTimeout) && opts.Metrics != nil {
				opts.Metrics.WorkerTimeoutsTotal.Inc()
			}
			logger.Error("run aborted", "file", path, "collected", i, "error", err)
			return nil, err
		}
		logger.Debug("result collected", "file", path, "position", i)
		results[i] = out
	}
	return results, nil
}

func await[T any](ctx context.Context, future <-chan outcome[T], path string, timeout time.Duration) (T, error) {
	var zero T
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case out := <-future:
		if out.err != nil {
			return zero, out.err
		}
		return out.value, nil
	case <-expired:
		return zero, apperrors.Newf(apperrors.ErrTimeout, path, "no result within %v", timeout)
	case <-ctx.Done():
		return zero, fmt.Errorf("waiting for %s: %w", path, ctx.Err())
	}
}

// invoke runs fn and turns a panic into a worker crash for that file.
func invoke[T any](ctx context.Context, fn Func[T], path string) (out outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("worker panicked",
				"component", "runner",
				"file", path,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = outcome[T]{err: apperrors.Newf(apperrors.ErrWorkerCrash, path, "panic: %v", r)}
		}
	}()
	value, err := fn(ctx, path)
	return outcome[T]{value: value, err: err}
}
