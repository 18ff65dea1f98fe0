/*
Package store
File: snapshots.go
Description:
    Typed load/save over a KV. Values are JSON encoded; every I/O call gets
    its own timeout and every failure is logged and swallowed.
*/

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/logger"
)

const ioTimeout = 3 * time.Second

// Snapshots is the typed face of a KV. Failures never reach the caller: a
// failed load yields the default, a failed save is logged and reported as false.
type Snapshots struct {
	kv  KV
	log *logger.Logger
}

func NewSnapshots(kv KV, log *logger.Logger) *Snapshots {
	if log == nil {
		log = logger.Nop()
	}
	return &Snapshots{kv: kv, log: log.With("component", "snapshots")}
}

// Load decodes the value stored under key, or returns def when the key is
// missing, unreadable or undecodable.
func Load[T any](s *Snapshots, key string, def T) T {
	if s == nil || s.kv == nil {
		return def
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("snapshot load failed", "key", key, "err", err)
		}
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Error("snapshot decode failed", "key", key, "err", err)
		return def
	}
	return out
}

// Save encodes value under key.
func (s *Snapshots) Save(key string, value interface{}) bool {
	if s == nil || s.kv == nil {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Error("snapshot encode failed", "key", key, "err", err)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := s.kv.Put(ctx, key, raw); err != nil {
		s.log.Error("snapshot save failed", "key", key, "err", err)
		return false
	}
	return true
}
