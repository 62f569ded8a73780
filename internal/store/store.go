// Package store holds the per-session key/value slots the client keeps between
// requests: the bearer token, the analytics session id and the pre-order gift
// selection. Slots are created on first write, read on load and removed on an
// explicit clear.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: key not found")

// KV is the storage backend behind every slot.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Scoped prefixes every key with scope, giving each browser session its own
// namespace in a shared backend.
func Scoped(kv KV, scope string) KV {
	return &scoped{kv: kv, prefix: scope + ":"}
}

type scoped struct {
	kv     KV
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, s.prefix+key)
}
