// Package notify carries user-facing notifications (toasts) out of the flows.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/niravGanatra/uparwala-sub002/internal/apiclient"
	"github.com/niravGanatra/uparwala-sub002/pkg/circuitbreaker"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

const (
	genericFailure = "Something went wrong. Please try again."
	offline        = "We could not reach the server. Check your connection and try again."
	sessionExpired = "Your session has expired. Please sign in again."
)

// FromError turns an error into the message shown to the user. Business
// errors (4xx) are shown verbatim; server and network failures get a generic
// text with a retry hint.
func FromError(err error) Notification {
	var apiErr *apiclient.APIError
	var te *apiclient.TransportError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusUnauthorized {
			return Notification{Level: LevelError, Message: sessionExpired}
		}
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.Message != "" {
			return Notification{Level: LevelError, Message: apiErr.Message}
		}
		return Notification{Level: LevelError, Message: genericFailure}
	case errors.As(err, &te), errors.Is(err, circuitbreaker.ErrOpen):
		return Notification{Level: LevelError, Message: offline}
	default:
		return Notification{Level: LevelError, Message: genericFailure}
	}
}

// Recorder buffers notifications until the UI drains them.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// Drain returns the buffered notifications and empties the buffer.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

type logNotifier struct {
	next Notifier
	log  *slog.Logger
}

// WithLog logs every notification before handing it to next.
func WithLog(next Notifier, log *slog.Logger) Notifier {
	return &logNotifier{next: next, log: log}
}

func (l *logNotifier) Notify(ctx context.Context, n Notification) {
	lvl := slog.LevelInfo
	if n.Level == LevelError {
		lvl = slog.LevelWarn
	}
	l.log.Log(ctx, lvl, "user notified", "level", string(n.Level), "message", n.Message)
	if l.next != nil {
		l.next.Notify(ctx, n)
	}
}
