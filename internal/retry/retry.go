// Package retry repeats an operation with exponential backoff and jitter. It
// exists to ride out cold starts of the backend host and must only wrap calls
// that are safe to repeat.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

type Config struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ShouldRetry func(error) bool
	Logger      *slog.Logger

	// test hooks
	jitter func(time.Duration) time.Duration
	sleep  func(context.Context, time.Duration) error
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries failures that never got a response and HTTP
// 408, 429 and 5xx. Business 4xx and cancellation are final.
func DefaultShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nr interface{ NoResponse() bool }
	if errors.As(err, &nr) && nr.NoResponse() {
		return true
	}
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}
	return false
}

// Delay is the wait before retry number attempt (0-based):
// min(base*2^attempt + jitter, max). A max of 0 leaves the delay uncapped.
func Delay(attempt int, base, max time.Duration, jitter time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt && (max <= 0 || d < max) && d <= math.MaxInt64/2; i++ {
		d *= 2
	}
	d += jitter
	if max > 0 && d > max {
		return max
	}
	return d
}

// Do runs op until it succeeds, the predicate rejects its error, retries run
// out or ctx ends. The last error of op is returned.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error)) (T, error) {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}
	jitter := cfg.jitter
	if jitter == nil {
		jitter = randomJitter
	}
	sleep := cfg.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if attempt >= cfg.MaxRetries || !shouldRetry(err) {
			return res, err
		}
		wait := Delay(attempt, cfg.BaseDelay, cfg.MaxDelay, jitter(cfg.BaseDelay))
		if cfg.Logger != nil {
			cfg.Logger.WarnContext(ctx, "retrying call", "attempt", attempt+1, "wait", wait, "error", err)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return res, err
		}
	}
}

func DoErr(ctx context.Context, cfg Config, op func(context.Context) error) error {
	_, err := Do(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func randomJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return rand.N(base)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
