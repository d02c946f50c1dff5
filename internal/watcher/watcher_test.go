package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDiff = `diff --git a/foo.go b/foo.go
index 111..222 100644
--- a/foo.go
+++ b/foo.go
@@ -1,2 +1,3 @@
 package foo
-var x = 1
+var x = 2
+var y = 3
diff --git a/bar.go b/bar.go
index 333..444 100644
--- a/bar.go
+++ b/bar.go
@@ -1,1 +1,1 @@
-var z = 1
+var z = 2
`

func TestSynthesizeOrdersFilesByPath(t *testing.T) {
	runner := func(ctx context.Context, dir string, args ...string) (string, error) {
		return sampleDiff, nil
	}

	snap, err := Synthesize(context.Background(), "/repo", runner)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(snap.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(snap.Files))
	}
	if snap.Files[0].Filename != "bar.go" || snap.Files[1].Filename != "foo.go" {
		t.Errorf("files not ordered by path: %+v", snap.Files)
	}
	if snap.Files[1].Additions != 2 || snap.Files[1].Deletions != 1 {
		t.Errorf("foo.go counts wrong: +%d -%d", snap.Files[1].Additions, snap.Files[1].Deletions)
	}
}

func TestLocalSnapshotRefusesMutation(t *testing.T) {
	snap := &LocalSnapshot{}
	if err := snap.Comment("p", "RIGHT", 1, "body"); err != ErrUnsupportedInLocalMode {
		t.Errorf("Comment: expected ErrUnsupportedInLocalMode, got %v", err)
	}
	if err := snap.Submit("approve", "lgtm"); err != ErrUnsupportedInLocalMode {
		t.Errorf("Submit: expected ErrUnsupportedInLocalMode, got %v", err)
	}
	if err := snap.Reply("id", "body"); err != ErrUnsupportedInLocalMode {
		t.Errorf("Reply: expected ErrUnsupportedInLocalMode, got %v", err)
	}
}

func TestWatcherDebounceCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracked.txt")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w := New(dir, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("v"+string(rune('1'+i))), 0o644); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case ev := <-w.Events():
		if len(ev.Paths) == 0 {
			t.Error("expected at least one changed path")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced Changed event")
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("expected writes within the debounce window to coalesce into one event, got second: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnoresGitDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}

	w := New(dir, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: x"), 0o644); err != nil {
		t.Fatalf("write inside .git: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for .git writes, got %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}
