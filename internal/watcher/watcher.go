// Package watcher implements local-diff mode: it watches a working
// directory for uncommitted changes and synthesizes a pull-request-shaped
// snapshot from `git diff HEAD`, debouncing bursts of filesystem events into
// a single refresh.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shhac/gh-rally/internal/diff"
	"github.com/shhac/gh-rally/internal/forge"
	"github.com/shhac/gh-rally/internal/git"
)

// debounceWindow is the coalescing window: writes to the same
// path within this window collapse into one Changed emission.
const debounceWindow = 150 * time.Millisecond

// vcsDir is the metadata directory excluded from watching and from
// triggering emissions, per "events within the VCS metadata directory are
// ignored."
const vcsDir = ".git"

// ErrUnsupportedInLocalMode is returned by any comment/submit/reply call
// against a LocalSnapshot; local-diff mode has no forge identity to anchor
// comments to.
var ErrUnsupportedInLocalMode = errors.New("unsupported in local mode")

// CommandRunner executes git in dir and returns stdout. It aliases
// git.Runner so the watcher shares the module's one git injection point;
// tests pass a canned implementation, mirroring forge.Client's
// CommandRunner injection pattern.
type CommandRunner = git.Runner

// DefaultRunner shells out to the real git binary.
var DefaultRunner CommandRunner = git.DefaultRunner

// Changed is emitted when one or more tracked files changed, carrying the
// union of touched paths accumulated during the debounce window.
type Changed struct {
	Paths []string
}

// LocalSnapshot is the read-only forge.PRDetail substitute local-diff mode
// presents to the view: no comments, no submit/approve paths.
type LocalSnapshot struct {
	Files []forge.PRFile
}

// Comment always fails in local-diff mode: there is no forge PR to anchor
// a comment to.
func (s *LocalSnapshot) Comment(string, string, int, string) error {
	return ErrUnsupportedInLocalMode
}

// Submit always fails in local-diff mode.
func (s *LocalSnapshot) Submit(string, string) error {
	return ErrUnsupportedInLocalMode
}

// Reply always fails in local-diff mode.
func (s *LocalSnapshot) Reply(string, string) error {
	return ErrUnsupportedInLocalMode
}

// Watcher watches root for uncommitted changes and emits debounced Changed
// events on Events().
type Watcher struct {
	root   string
	runner CommandRunner

	fsw    *fsnotify.Watcher
	events chan Changed
	done   chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New creates a Watcher rooted at dir. Call Start to begin watching.
func New(dir string, runner CommandRunner) *Watcher {
	if runner == nil {
		runner = DefaultRunner
	}
	return &Watcher{
		root:    dir,
		runner:  runner,
		events:  make(chan Changed, 1),
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
	}
}

// Events returns the channel of debounced Changed events.
func (w *Watcher) Events() <-chan Changed {
	return w.events
}

// Start begins recursively watching root, skipping the VCS metadata
// directory by name.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create: %w", err)
	}
	w.fsw = fsw

	if err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == vcsDir {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	}); err != nil {
		fsw.Close()
		return fmt.Errorf("watcher: walk: %w", err)
	}

	go w.loop()
	return nil
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)
		case <-w.fsw.Errors:
			// The watcher degrades silently on transient fsnotify errors
			// rather than tearing down the TUI.
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	if isAccessOnly(ev.Op) {
		return
	}
	if withinVCSDir(ev.Name, w.root) {
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(debounceWindow, w.flush)
	} else {
		w.timer.Reset(debounceWindow)
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	select {
	case w.events <- Changed{Paths: paths}:
	default:
		// Coalesce: drop the stale pending emission, the next flush carries
		// a superset of meaningful state anyway.
		select {
		case <-w.events:
		default:
		}
		w.events <- Changed{Paths: paths}
	}
}

func isAccessOnly(op fsnotify.Op) bool {
	return op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0
}

func withinVCSDir(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for _, p := range parts {
		if p == vcsDir {
			return true
		}
	}
	return false
}

// Synthesize runs `git diff HEAD` against root and parses the unified
// output into a LocalSnapshot whose files are ordered by path.
func Synthesize(ctx context.Context, root string, runner CommandRunner) (*LocalSnapshot, error) {
	if runner == nil {
		runner = DefaultRunner
	}
	out, err := git.DiffHead(ctx, root, runner)
	if err != nil {
		return nil, fmt.Errorf("watcher: git diff HEAD: %w", err)
	}

	patches := splitFilePatches(out)
	sort.Slice(patches, func(i, j int) bool { return patches[i].path < patches[j].path })

	files := make([]forge.PRFile, 0, len(patches))
	for _, p := range patches {
		adds, dels := countChanges(p.patch)
		files = append(files, forge.PRFile{
			Filename:  p.path,
			Status:    "modified",
			Additions: adds,
			Deletions: dels,
			Patch:     p.patch,
		})
	}

	return &LocalSnapshot{Files: files}, nil
}

type filePatch struct {
	path  string
	patch string
}

// splitFilePatches breaks a multi-file `git diff` output into one patch per
// file, splitting on "diff --git " headers.
func splitFilePatches(out string) []filePatch {
	var patches []filePatch
	lines := strings.Split(out, "\n")

	var current strings.Builder
	var currentPath string

	flush := func() {
		if currentPath != "" {
			patches = append(patches, filePatch{path: currentPath, patch: current.String()})
		}
		current.Reset()
		currentPath = ""
	}

	for _, line := range lines {
		if diff.ClassifyLine(line) == diff.Header {
			flush()
			currentPath = extractPath(line)
		}
		if currentPath != "" {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}
	flush()

	return patches
}

// extractPath pulls the repo-relative path out of a "diff --git a/x b/x"
// header, preferring the b/ side (the post-change path, which also covers
// renames/adds since the a/ side may not exist).
func extractPath(header string) string {
	fields := strings.Fields(header)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.HasPrefix(fields[i], "b/") {
			return strings.TrimPrefix(fields[i], "b/")
		}
	}
	if len(fields) > 0 {
		return fields[len(fields)-1]
	}
	return ""
}

func countChanges(patch string) (adds, dels int) {
	for _, ln := range diff.AnnotatePatch(patch) {
		switch ln.Class {
		case diff.Added:
			adds++
		case diff.Removed:
			dels++
		}
	}
	return adds, dels
}
