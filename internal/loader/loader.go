// Package loader implements the async data layer: a cache-first
// loader that serves stale data instantly while revalidating in the
// background, pushing updates through a single-producer channel the view
// drains non-blockingly on every render tick.
package loader

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/shhac/gh-rally/internal/cache"
)

// DataState is the tagged union a subscription observes: Loading until the
// first fetch lands, Loaded with the latest snapshot, or Error with a
// human-readable message.
type DataState[T any] struct {
	Kind    StateKind
	Snap    T
	Message string
}

// StateKind tags a DataState's variant.
type StateKind int

const (
	Loading StateKind = iota
	Loaded
	Errored
)

// FetchFunc performs the actual subprocess-backed fetch for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Subscription is what a view holds after Subscribe: a receive-only channel
// of state updates and a cancel func that drops the subscription.
type Subscription[T any] struct {
	C      <-chan DataState[T]
	Cancel func()
}

// chanCapacity is the bounded channel size for data-layer updates.
const chanCapacity = 64

// Loader ties a cache.Store to a fetch function for one kind of payload
// (PR snapshots, comments, ...). One Loader instance is shared across all
// keys of that payload kind; per-key state lives in the subscribers map.
type Loader[T any] struct {
	store *cache.Store[T]
	fetch FetchFunc[T]
	ttl   int64

	mu   sync.Mutex
	subs map[string][]chan DataState[T]
}

// New creates a Loader backed by store, using fetch to hit the network (or
// rather, the forge/agent CLI subprocess) on cache miss or revalidation.
// ttlSecs is the cache staleness window from configuration (default 300).
func New[T any](store *cache.Store[T], fetch FetchFunc[T], ttlSecs int64) *Loader[T] {
	return &Loader[T]{
		store: store,
		fetch: fetch,
		ttl:   ttlSecs,
		subs:  make(map[string][]chan DataState[T]),
	}
}

// Subscribe registers a channel for key and returns it along with a cancel
// func. Subscribe does not itself trigger a fetch; call Load for that.
func (l *Loader[T]) Subscribe(key string) Subscription[T] {
	ch := make(chan DataState[T], chanCapacity)

	l.mu.Lock()
	l.subs[key] = append(l.subs[key], ch)
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			list := l.subs[key]
			for i, c := range list {
				if c == ch {
					l.subs[key] = append(list[:i], list[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}

	return Subscription[T]{C: ch, Cancel: cancel}
}

// Load performs the synchronous cache probe: on a cache hit it emits Loaded
// immediately; if the hit is older than the TTL it also launches a background
// revalidation, while a within-TTL hit triggers no subprocess work at all.
// On miss (or with force=true) it emits Loading and performs a foreground
// fetch.
func (l *Loader[T]) Load(ctx context.Context, key string, force bool) {
	entry, err := l.store.Get(key)
	if err != nil {
		l.broadcast(key, DataState[T]{Kind: Errored, Message: err.Error()})
		return
	}

	if !force && entry != nil {
		l.broadcast(key, DataState[T]{Kind: Loaded, Snap: entry.Payload})
		if cache.IsStale(entry, l.ttl) {
			go l.revalidate(ctx, key, entry.Payload)
		}
		return
	}

	l.broadcast(key, DataState[T]{Kind: Loading})
	go l.fetchForeground(ctx, key)
}

// Refresh forces a foreground fetch regardless of cache state, equivalent to
// Load(key, force=true).
func (l *Loader[T]) Refresh(ctx context.Context, key string) {
	l.Load(ctx, key, true)
}

func (l *Loader[T]) fetchForeground(ctx context.Context, key string) {
	snap, err := l.fetch(ctx)
	if err != nil {
		l.broadcast(key, DataState[T]{Kind: Errored, Message: err.Error()})
		return
	}
	if err := l.store.Put(key, snap); err != nil {
		// Cache-write failure doesn't invalidate the fetch itself; the view
		// still gets fresh data, it just won't be warm next launch.
		l.broadcast(key, DataState[T]{Kind: Loaded, Snap: snap})
		return
	}
	l.broadcast(key, DataState[T]{Kind: Loaded, Snap: snap})
}

// revalidate re-fetches in the background and only emits if the result
// differs structurally from what's cached: "on change it emits a
// fresh Loaded, on no-change it is silent" rule.
func (l *Loader[T]) revalidate(ctx context.Context, key string, cached T) {
	fresh, err := l.fetch(ctx)
	if err != nil {
		// Transient failures during background revalidation don't replace
		// already-displayed data; surfaced only on an explicit retry.
		return
	}

	if !structurallyDifferent(cached, fresh) {
		return
	}

	if err := l.store.Put(key, fresh); err != nil {
		return
	}
	l.broadcast(key, DataState[T]{Kind: Loaded, Snap: fresh})
}

// broadcast sends state to every subscriber of key, coalescing to the latest
// value when a subscriber's channel is full rather than blocking the
// producer (backpressure rule).
func (l *Loader[T]) broadcast(key string, state DataState[T]) {
	l.mu.Lock()
	chans := append([]chan DataState[T]{}, l.subs[key]...)
	l.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- state:
		default:
			// Drain the stale slot and retry once so the latest state wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

// PatchCarrier is implemented by payloads whose identity is dominated by
// unified-patch text (forge.FileSet in the shipped binary). Revalidation
// compares such payloads with a line-level diff of the patch text instead
// of a deep structural walk.
type PatchCarrier interface {
	PatchText() string
}

// structurallyDifferent compares two payloads: patch-carrying payloads and
// plain strings are diffed as text via go-diff, and any inserted or deleted
// text counts as a change; everything else falls back to a deep structural
// comparison.
func structurallyDifferent[T any](a, b T) bool {
	if pa, ok := any(a).(PatchCarrier); ok {
		if pb, ok := any(b).(PatchCarrier); ok {
			return textDiffers(pa.PatchText(), pb.PatchText())
		}
	}
	if sa, ok := any(a).(string); ok {
		sb, _ := any(b).(string)
		return textDiffers(sa, sb)
	}
	return !reflect.DeepEqual(a, b)
}

func textDiffers(a, b string) bool {
	if a == b {
		return false
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			return true
		}
	}
	return false
}

// Key builds the cache-artifact key for a (repo, number) pair, matching
// the `{repo}_{pr}` pattern. A slash in repo ("owner/name") is flattened so
// the key stays a single path component.
func Key(repo string, number int) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(repo, "/", "_"), number)
}

// CommentsKey builds the companion comment-cache key, `{repo}_{pr}_comments`.
func CommentsKey(repo string, number int) string {
	return Key(repo, number) + "_comments"
}
