// Package circuitbreaker wraps sony/gobreaker with the settings used for the
// marketplace API: trip after a run of consecutive failures, stay open for a
// cooldown, then let a single probe through.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned instead of calling the protected function while the
// breaker is open or a half-open probe is already in flight.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name string
	// ConsecutiveFailures trips the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32
	Cooldown            time.Duration
	// IsFailure decides which errors count against the breaker.
	// Nil means every non-nil error counts.
	IsFailure func(error) bool
	Logger    *slog.Logger
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New returns nil when cfg.ConsecutiveFailures is zero; a nil *Breaker runs
// calls directly.
func New[T any](cfg Config) *Breaker[T] {
	if cfg.ConsecutiveFailures == 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures
	isFailure := cfg.IsFailure
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if isFailure == nil {
				return false
			}
			return !isFailure(err)
		},
	}
	if cfg.Logger != nil {
		log := cfg.Logger
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker. The result of fn is returned even when
// fn reports an error, so callers can inspect failed responses.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, ErrOpen
	}
	return res, err
}

// State reports "closed", "half-open" or "open". A nil breaker is always closed.
func (b *Breaker[T]) State() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}
