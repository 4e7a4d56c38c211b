// Package gateway defines the capability interface for the hosted data
// store that owns persistence, authentication, and file storage. Domain
// services receive a Gateway by injection and never touch a global client.
// Two implementations are provided: Client speaks the store's REST API over
// HTTP, and Memory is a thread-safe in-process store for development and
// tests.
package gateway

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotAuthenticated is returned by Session when the access token is
	// missing, expired, or rejected by the store.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBucketRequired is returned by Upload when no bucket is configured.
	ErrBucketRequired = errors.New("storage bucket is required")
)

// RemoteError carries the store's rejection message so it can be surfaced
// verbatim to the caller.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "remote data gateway request failed"
}

type tokenKey struct{}

// WithToken attaches the caller's access token to the context. The HTTP
// client authorizes reads and writes with it so a row-level-secured store
// attributes them to the session, not the anonymous key.
func WithToken(ctx context.Context, accessToken string) context.Context {
	if accessToken == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, accessToken)
}

// TokenFrom returns the access token attached by WithToken, or "".
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Session identifies the authenticated caller.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Record is one row of a table, keyed by column name.
type Record map[string]any

// SelectOptions shapes a table read: one ordering key plus equality and
// greater-or-equal filters.
type SelectOptions struct {
	OrderBy    string
	Descending bool
	Equals     map[string]string
	AtLeast    map[string]string
}

// Gateway is the remote data store capability surface used by the
// application: session lookup, table-scoped reads (with count-only mode),
// single-record inserts, and binary object upload with public-URL
// resolution.
type Gateway interface {
	// Session resolves the caller behind an access token, or
	// ErrNotAuthenticated.
	Session(ctx context.Context, accessToken string) (*Session, error)

	// Select fetches all rows of a table matching opts.
	Select(ctx context.Context, table string, opts SelectOptions) ([]Record, error)

	// Count returns the number of rows matching opts without fetching them.
	Count(ctx context.Context, table string, opts SelectOptions) (int, error)

	// Insert persists a single record. idempotencyKey is a client-generated
	// token forwarded to the store so a replayed request is not applied
	// twice.
	Insert(ctx context.Context, table string, rec Record, idempotencyKey string) error

	// Upload writes an object under a namespaced key and returns its public
	// reference URL.
	Upload(ctx context.Context, bucket, key, contentType string, r io.Reader) (string, error)
}
