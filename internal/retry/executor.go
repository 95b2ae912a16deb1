// Package retry runs remote write operations that may be rejected by the
// remote rate limiter. Only errors classified as Retryable are retried, after
// a fixed delay and without an attempt limit. Everything else is returned to
// the caller on the first failure.
package retry

import (
	"context"
	"log/slog"
	"time"

	"strava_sync/internal/metrics"
	"strava_sync/internal/source/strava"
)

// DefaultDelay matches the 15 minute window of the Strava short-term limit.
const DefaultDelay = 15 * time.Minute

type Outcome int

const (
	Fatal Outcome = iota
	Retryable
)

func (o Outcome) String() string {
	if o == Retryable {
		return "retryable"
	}
	return "fatal"
}

// Classifier decides what to do with an operation error.
type Classifier func(err error) Outcome

// RateLimited marks rate-limit rejections as Retryable and everything else as Fatal.
func RateLimited(err error) Outcome {
	if strava.IsRateLimited(err) {
		return Retryable
	}
	return Fatal
}

type Executor struct {
	delay    time.Duration
	classify Classifier
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(delay time.Duration, classify Classifier, logger *slog.Logger) *Executor {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if classify == nil {
		classify = RateLimited
	}
	return &Executor{
		delay:    delay,
		classify: classify,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Do runs op until it succeeds or fails with a Fatal error. The name is used
// for logs and metrics only.
func Do[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if e.classify(err) != Retryable {
			var zero T
			return zero, err
		}

		e.logger.Warn("rate limit exceeded, waiting",
			"operation", name,
			"attempt", attempt,
			"delay", e.delay,
			"error", err,
		)
		metrics.RateLimitWaits.WithLabelValues(name).Inc()

		if err := e.sleep(ctx, e.delay); err != nil {
			var zero T
			return zero, err
		}
	}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, e *Executor, name string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
