// Package kv provides durable string-keyed storage backends.
package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrIO is wrapped by every error a backend returns from an underlying
// storage operation.
var ErrIO = errors.New("key-value I/O failure")

// Store is a durable string-keyed store.
type Store interface {
	// Get returns the value stored under key. ok is false if nothing is
	// stored there.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// CloseableStore is a Store holding resources that must be released.
type CloseableStore interface {
	Store
	io.Closer
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	SQLiteFilename string

	MongoDSN      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Open returns the backend named in opts.
func Open(ctx context.Context, opts Options) (CloseableStore, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		return NewSQLite(opts.SQLiteFilename)
	case BackendMongo:
		return NewMongo(ctx, opts.MongoDSN, opts.MongoDatabase)
	case BackendRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
