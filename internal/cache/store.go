// Package cache implements the atomic-rename, TTL-checked on-disk JSON
// discipline that every artifact under the cache root follows: the PR
// snapshot cache and the comment cache both read and write through the same
// Store[T] shape rather than duplicating the temp-file-then-rename dance per
// payload kind. The Claude analysis cache keeps its own store in the claude
// package.
package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Entry wraps a cached payload with the unix timestamp it was fetched at,
// matching the `{fetched_at, payload}` artifact shape from the persisted
// layouts.
type Entry[T any] struct {
	FetchedAt int64 `json:"fetched_at_unix_seconds"`
	Payload   T     `json:"payload"`
}

// Store is a generic, file-backed cache rooted at a directory. One JSON
// artifact per key; writes are atomic (temp sibling + rename), reads are
// synchronous.
type Store[T any] struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first write.
func NewStore[T any](dir string) *Store[T] {
	return &Store[T]{dir: dir}
}

// Get loads the entry for key. A missing file is not an error: it returns
// (nil, nil) so callers treat it as a cold cache. A file that exists but no
// longer parses is a data inconsistency, not a transient failure: the
// corrupt artifact is logged, discarded, and reported as a miss so the
// caller falls back to a fetch instead of surfacing a retryable error.
func (s *Store[T]) Get(key string) (*Entry[T], error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read %s: %w", key, err)
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("cache: discarding corrupt artifact %s: %v", s.path(key), err)
		os.Remove(s.path(key))
		return nil, nil
	}
	return &entry, nil
}

// Put writes payload for key, stamped with the current time. The write is
// atomic: serialize to a temp sibling in the same directory, then rename.
func (s *Store[T]) Put(key string, payload T) error {
	return s.putAt(key, payload, time.Now().Unix())
}

func (s *Store[T]) putAt(key string, payload T, fetchedAt int64) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}

	entry := Entry[T]{FetchedAt: fetchedAt, Payload: payload}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("cache: write temp %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: rename %s: %w", key, err)
	}
	return nil
}

// IsStale reports whether entry is older than ttlSecs, or doesn't exist.
func IsStale[T any](entry *Entry[T], ttlSecs int64) bool {
	if entry == nil {
		return true
	}
	if ttlSecs <= 0 {
		return false
	}
	return time.Now().Unix()-entry.FetchedAt > ttlSecs
}

// Path exposes the on-disk artifact path for key, mainly for diagnostics and
// tests.
func (s *Store[T]) Path(key string) string {
	return s.path(key)
}

func (s *Store[T]) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
