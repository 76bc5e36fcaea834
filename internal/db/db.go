// Package db defines the key-value store contract used by the embedding
// cache, with errors carrying the failing operation for diagnostics.
package db

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound signals a cache miss.
var ErrKeyNotFound = errors.New("db: key not found")

// Store is a minimal key-value contract.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close()
}

// Op constants map to Redis command names for error context.
const (
	OpGet  = "GET"
	OpSet  = "SET"
	OpPing = "PING"
)

// Error wraps an underlying error with the operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
