package retry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strava_sync/internal/metrics"
	"strava_sync/internal/source/strava"
)

func testExecutor(delays *[]time.Duration) *Executor {
	e := New(15*time.Minute, RateLimited, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	e.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return e
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	var delays []time.Duration
	e := testExecutor(&delays)
	rateLimited := &strava.APIError{StatusCode: http.StatusTooManyRequests}
	before := testutil.ToFloat64(metrics.RateLimitWaits.WithLabelValues("test_upload"))

	calls := 0
	result, err := Do(context.Background(), e, "test_upload", func(context.Context) (int, error) {
		calls++
		if calls <= 2 {
			return 0, rateLimited
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{15 * time.Minute, 15 * time.Minute}, delays)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitWaits.WithLabelValues("test_upload")))
}

func TestDo_FatalIsNotRetried(t *testing.T) {
	var delays []time.Duration
	e := testExecutor(&delays)
	fatal := &strava.APIError{StatusCode: http.StatusBadRequest, Message: "bad"}

	calls := 0
	_, err := Do(context.Background(), e, "update", func(context.Context) (string, error) {
		calls++
		return "", fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_PlainErrorIsFatal(t *testing.T) {
	var delays []time.Duration
	e := testExecutor(&delays)
	boom := errors.New("connection reset")

	err := Run(context.Background(), e, "update", func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, delays)
}

func TestDo_CustomClassifier(t *testing.T) {
	var delays []time.Duration
	e := testExecutor(&delays)
	transient := errors.New("transient")
	e.classify = func(err error) Outcome {
		if errors.Is(err, transient) {
			return Retryable
		}
		return Fatal
	}

	calls := 0
	err := Run(context.Background(), e, "custom", func(context.Context) error {
		calls++
		if calls == 1 {
			return transient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, delays, 1)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	e := New(time.Hour, nil, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, e, "upload", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &strava.APIError{StatusCode: http.StatusTooManyRequests}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNew_Defaults(t *testing.T) {
	e := New(0, nil, slog.Default())
	assert.Equal(t, DefaultDelay, e.delay)
	assert.Equal(t, Retryable, e.classify(&strava.APIError{StatusCode: http.StatusTooManyRequests}))
	assert.Equal(t, Fatal, e.classify(errors.New("x")))
	assert.Equal(t, "retryable", Retryable.String())
	assert.Equal(t, "fatal", Fatal.String())
}
