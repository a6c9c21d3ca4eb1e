package store

import (
	"context"
	"time"
)

// Credential entry names. The triplet mirrors the browser cookies the web
// client keeps: access token, refresh token and the absolute expiry of the
// access token in milliseconds since epoch.
const (
	AuthTokenKey    = "auth_token"
	RefreshTokenKey = "refresh_token"
	ExpiresAtKey    = "expires_at"
)

// Entry is a named value with an optional time-to-live. A zero TTL means
// the entry does not expire on its own.
type Entry struct {
	Name  string
	Value string
	TTL   time.Duration
}

// Store is a key-value persistence layer with expiry. Get returns the empty
// string for missing or expired entries. SetAll writes all entries as a
// single unit so readers never observe a partially updated credential set.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	SetAll(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, names ...string) error
	Close() error
}
