package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shhac/gh-rally/internal/cache"
)

func drain[T any](t *testing.T, ch <-chan DataState[T], timeout time.Duration) DataState[T] {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		t.Fatal("timed out waiting for state")
		return DataState[T]{}
	}
}

func TestLoadCacheMissFetches(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	calls := 0
	l := New[string](store, func(ctx context.Context) (string, error) {
		calls++
		return "fresh", nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	first := drain(t, sub.C, time.Second)
	if first.Kind != Loading {
		t.Fatalf("expected Loading first, got %v", first.Kind)
	}
	second := drain(t, sub.C, time.Second)
	if second.Kind != Loaded || second.Snap != "fresh" {
		t.Fatalf("expected Loaded(fresh), got %+v", second)
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch call, got %d", calls)
	}
}

func TestLoadFreshCacheHitFetchesNothing(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	if err := store.Put("k", "cached"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	calls := 0
	l := New[string](store, func(ctx context.Context) (string, error) {
		calls++
		return "other", nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	state := drain(t, sub.C, time.Second)
	if state.Kind != Loaded || state.Snap != "cached" {
		t.Fatalf("expected immediate Loaded(cached), got %+v", state)
	}

	// The entry is within TTL, so no revalidation subprocess runs at all.
	select {
	case s := <-sub.C:
		t.Fatalf("unexpected second emission on within-TTL hit: %+v", s)
	case <-time.After(150 * time.Millisecond):
	}
	if calls != 0 {
		t.Errorf("expected 0 fetch calls on within-TTL hit, got %d", calls)
	}
}

// seedStale writes a cache artifact whose fetched_at is far in the past, so a
// Load sees a hit that is past its TTL.
func seedStale(t *testing.T, store *cache.Store[string], key, payload string) {
	t.Helper()
	artifact := fmt.Sprintf("{\"fetched_at_unix_seconds\": 1000, \"payload\": %q}", payload)
	if err := os.MkdirAll(filepath.Dir(store.Path(key)), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(store.Path(key), []byte(artifact), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestStaleCacheHitRevalidatesAndEmitsOnChange(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	seedStale(t, store, "k", "old")

	l := New[string](store, func(ctx context.Context) (string, error) {
		return "new", nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	first := drain(t, sub.C, time.Second)
	if first.Snap != "old" {
		t.Fatalf("expected cached value first, got %+v", first)
	}
	second := drain(t, sub.C, 2*time.Second)
	if second.Kind != Loaded || second.Snap != "new" {
		t.Fatalf("expected revalidated Loaded(new), got %+v", second)
	}
}

func TestForceSkipsCacheHitShortCircuit(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	if err := store.Put("k", "cached"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	calls := 0
	l := New[string](store, func(ctx context.Context) (string, error) {
		calls++
		return "forced", nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", true)

	loading := drain(t, sub.C, time.Second)
	if loading.Kind != Loading {
		t.Fatalf("expected Loading with force=true, got %v", loading.Kind)
	}
	loaded := drain(t, sub.C, time.Second)
	if loaded.Kind != Loaded || loaded.Snap != "forced" {
		t.Fatalf("expected Loaded(forced), got %+v", loaded)
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch call, got %d", calls)
	}
}

func TestFetchErrorSurfacesAsErrored(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	l := New[string](store, func(ctx context.Context) (string, error) {
		return "", errors.New("not found")
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	loading := drain(t, sub.C, time.Second)
	if loading.Kind != Loading {
		t.Fatalf("expected Loading, got %v", loading.Kind)
	}
	errored := drain(t, sub.C, time.Second)
	if errored.Kind != Errored {
		t.Fatalf("expected Errored, got %+v", errored)
	}
}

// TestCorruptCacheFallsBackToFetch: a cache artifact that no longer parses
// reads as a miss, so Load performs a foreground fetch instead of
// broadcasting a blocking error.
func TestCorruptCacheFallsBackToFetch(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	if err := os.WriteFile(store.Path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt artifact: %v", err)
	}

	l := New[string](store, func(ctx context.Context) (string, error) {
		return "recovered", nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	loading := drain(t, sub.C, time.Second)
	if loading.Kind != Loading {
		t.Fatalf("expected Loading fallback, got %v", loading.Kind)
	}
	loaded := drain(t, sub.C, time.Second)
	if loaded.Kind != Loaded || loaded.Snap != "recovered" {
		t.Fatalf("expected Loaded(recovered), got %+v", loaded)
	}
}

// patchPayload exercises the PatchCarrier revalidation path the way
// forge.FileSet does in the running program.
type patchPayload struct {
	Name  string `json:"name"`
	Patch string `json:"patch"`
}

func (p patchPayload) PatchText() string { return p.Patch }

func TestRevalidateUsesPatchTextForPatchCarriers(t *testing.T) {
	store := cache.NewStore[patchPayload](t.TempDir())
	artifact := `{"fetched_at_unix_seconds": 1000, "payload": {"name": "a", "patch": "@@ -1 +1 @@\n-x\n+y\n"}}`
	if err := os.WriteFile(store.Path("k"), []byte(artifact), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Same patch text, different metadata: revalidation must stay silent
	// because the patch-level comparison sees no change.
	l := New[patchPayload](store, func(ctx context.Context) (patchPayload, error) {
		return patchPayload{Name: "renamed", Patch: "@@ -1 +1 @@\n-x\n+y\n"}, nil
	}, 300)

	sub := l.Subscribe("k")
	defer sub.Cancel()

	l.Load(context.Background(), "k", false)

	first := drain(t, sub.C, time.Second)
	if first.Kind != Loaded || first.Snap.Name != "a" {
		t.Fatalf("expected cached payload first, got %+v", first)
	}
	select {
	case s := <-sub.C:
		t.Fatalf("unexpected emission for unchanged patch text: %+v", s)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelClosesChannel(t *testing.T) {
	store := cache.NewStore[string](t.TempDir())
	l := New[string](store, func(ctx context.Context) (string, error) {
		return "x", nil
	}, 300)

	sub := l.Subscribe("k")
	sub.Cancel()

	_, ok := <-sub.C
	if ok {
		t.Error("expected channel closed after Cancel")
	}
}

func TestKeyHelpers(t *testing.T) {
	if got, want := Key("owner/repo", 42), "owner_repo_42"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if got, want := CommentsKey("owner/repo", 42), "owner_repo_42_comments"; got != want {
		t.Errorf("CommentsKey() = %q, want %q", got, want)
	}
}
