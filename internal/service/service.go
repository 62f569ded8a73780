// Package service maps the marketplace REST endpoints to typed Go calls, one
// method per endpoint. Reads are wrapped in retry; writes are sent once.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/niravGanatra/uparwala-sub002/internal/retry"
)

// Doer is the transport the services run on; *apiclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

type base struct {
	api   Doer
	retry retry.Config
}

func (b base) read(ctx context.Context, path string, query url.Values, out any) error {
	return retry.DoErr(ctx, b.retry, func(ctx context.Context) error {
		return b.api.Do(ctx, http.MethodGet, path, query, nil, out)
	})
}

// idempotent is for POSTs the server treats as pure computations.
func (b base) idempotent(ctx context.Context, path string, body, out any) error {
	return retry.DoErr(ctx, b.retry, func(ctx context.Context) error {
		return b.api.Do(ctx, http.MethodPost, path, nil, body, out)
	})
}

func (b base) write(ctx context.Context, method, path string, body, out any) error {
	return b.api.Do(ctx, method, path, nil, body, out)
}

func itemPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}

// page is the paginated list envelope. Some endpoints answer with a bare
// array instead; decodeList accepts both.
type page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
