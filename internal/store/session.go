package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	accessTokenKey = "access_token"
	sessionIDKey   = "session_id"
)

// Tokens is the bearer token slot read by the API client.
type Tokens struct {
	kv KV
}

func NewTokens(kv KV) *Tokens {
	return &Tokens{kv: kv}
}

// AccessToken returns "" when no token is stored.
func (t *Tokens) AccessToken(ctx context.Context) (string, error) {
	b, err := t.kv.Get(ctx, accessTokenKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *Tokens) SetAccessToken(ctx context.Context, token string) error {
	return t.kv.Set(ctx, accessTokenKey, []byte(token))
}

func (t *Tokens) Clear(ctx context.Context) error {
	return t.kv.Delete(ctx, accessTokenKey)
}

// SessionID returns the analytics session id, creating it on first use.
func SessionID(ctx context.Context, kv KV) (string, error) {
	b, err := kv.Get(ctx, sessionIDKey)
	if err == nil {
		return string(b), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	id := uuid.NewString()
	if err := kv.Set(ctx, sessionIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("store session id failed: %w", err)
	}
	return id, nil
}
