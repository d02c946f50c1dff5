package rally

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	session := newTestSession(5)
	session.State = ReviewerReviewing

	if err := store.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := store.LoadSession(session.Key())
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected loaded session, got nil")
	}
	if loaded.State != ReviewerReviewing {
		t.Errorf("State = %v, want %v", loaded.State, ReviewerReviewing)
	}
	if loaded.Number != session.Number {
		t.Errorf("Number = %d, want %d", loaded.Number, session.Number)
	}
}

func TestSessionStoreLoadMissingReturnsNil(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	loaded, err := store.LoadSession("github_o_r_99")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for missing session, got %+v", loaded)
	}
}

func TestSessionStoreAppendHistoryWritesFile(t *testing.T) {
	root := t.TempDir()
	store := NewSessionStore(root)
	session := newTestSession(5)

	if err := store.AppendHistory(session, IterationRecord{Iteration: 1, Phase: "review"}); err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	path := filepath.Join(root, session.Key(), "history", "001_review.json")
	if _, err := store.LoadSession(session.Key()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fileExists(path) {
		t.Errorf("expected history file at %s", path)
	}
}

func TestSessionStoreCleanRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	store := NewSessionStore(root)
	session := newTestSession(5)
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := store.Clean(session.Key()); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	loaded, err := store.LoadSession(session.Key())
	if err != nil {
		t.Fatalf("LoadSession after Clean failed: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected session gone after Clean, got %+v", loaded)
	}
}

func TestNormalizeForResumeReentersFixing(t *testing.T) {
	s := newTestSession(5)
	s.State = NeedsClarification
	s.Question = "which one?"

	NormalizeForResume(s)

	if s.State != RevieweeFixing {
		t.Errorf("State = %v, want %v", s.State, RevieweeFixing)
	}
	if s.Question != "" {
		t.Error("pending question should be cleared on resume")
	}

	s.State = ReviewerReviewing
	NormalizeForResume(s)
	if s.State != ReviewerReviewing {
		t.Error("non-prompt states should pass through unchanged")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
