package rally

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// SessionStore persists rally state under `rally/{forge+repo}_{number}/`
// session.json (rewritten on every transition, atomic-rename),
// context.json (immutable), history/{NNN}_{review,fix}.json (append-only),
// and logs/*.log.
type SessionStore struct {
	root string // the rally/ sessions directory
}

// NewSessionStore creates a store rooted at dir, the rally sessions
// directory (config.RallySessionsDir for the real binary).
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{root: dir}
}

func (s *SessionStore) dir(session *Session) string {
	return filepath.Join(s.root, session.Key())
}

// SaveSession atomically rewrites session.json, guarded by an advisory
// flock on the session directory so two `ghrally --ai-rally` processes
// against the same PR can't interleave writes.
func (s *SessionStore) SaveSession(session *Session) error {
	dir := s.dir(session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rally: create session dir: %w", err)
	}

	unlock, err := s.lock(dir)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("rally: marshal session: %w", err)
	}

	path := filepath.Join(dir, "session.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("rally: write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rally: rename session: %w", err)
	}
	return nil
}

// LoadSession reads session.json for the given key, returning nil if no
// session exists yet.
func (s *SessionStore) LoadSession(key string) (*Session, error) {
	path := filepath.Join(s.root, key, "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rally: read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("rally: parse session: %w", err)
	}
	return &session, nil
}

// SaveContext writes the immutable context.json once, at session creation.
func (s *SessionStore) SaveContext(session *Session, rc RunContext) error {
	dir := s.dir(session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rally: create session dir: %w", err)
	}
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return fmt.Errorf("rally: marshal context: %w", err)
	}
	path := filepath.Join(dir, "context.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("rally: write context: %w", err)
	}
	return os.Rename(tmp, path)
}

// AppendHistory writes history/{NNN}_{review,fix}.json for one completed
// iteration record.
func (s *SessionStore) AppendHistory(session *Session, rec IterationRecord) error {
	dir := filepath.Join(s.dir(session), "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rally: create history dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("rally: marshal history record: %w", err)
	}

	name := fmt.Sprintf("%03d_%s.json", rec.Iteration, historySuffix(rec.Phase))
	path := filepath.Join(dir, name)
	return os.WriteFile(path, data, 0o644)
}

func historySuffix(phase string) string {
	if phase == "fix" {
		return "fix"
	}
	return "review"
}

// LogPath returns the path to the rally log file for session, creating the
// logs/ directory if needed.
func (s *SessionStore) LogPath(session *Session) (string, error) {
	dir := filepath.Join(s.dir(session), "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("rally: create logs dir: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().UTC().Format("20060102T150405Z"))), nil
}

// NormalizeForResume maps substates that awaited an in-memory handle — a
// pending clarification or permission prompt — back to the start of
// RevieweeFixing. Resuming mid-prompt is not supported; the fix pass
// re-enters from its beginning and the reviewee re-asks if it still needs to.
func NormalizeForResume(s *Session) {
	switch s.State {
	case NeedsClarification, NeedsPermission:
		s.State = RevieweeFixing
		s.Question = ""
		s.PendingAction = ""
	}
}

// Clean removes the storage for one session key entirely, backing the
// `ghrally clean` subcommand.
func (s *SessionStore) Clean(key string) error {
	return os.RemoveAll(filepath.Join(s.root, key))
}

func (s *SessionStore) lock(dir string) (func(), error) {
	fl := flock.New(filepath.Join(dir, ".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("rally: acquire session lock: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}
