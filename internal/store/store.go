/*
Package store
File: store.go
Description:
    Persistence adapter for the simulation. The engine never talks to a database
    directly: it hands whole-collection snapshots (zones, trees, scan history,
    scalar counters) to Snapshots, which JSON-encodes them into a KV backend
    keyed by fixed string names.

    Backends:
    - Memory: process-local map (tests, ephemeral runs).
    - SQLite: single-file durable store (modernc.org/sqlite, no cgo).
    - Redis: shared store for hosted deployments.
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by KV.Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// KV is the minimal byte-level contract every backend implements.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver      string // "memory", "sqlite" or "redis"
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(ctx, opts.SQLitePath)
	case "redis":
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}
