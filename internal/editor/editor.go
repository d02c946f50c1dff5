// Package editor resolves and launches the external editor used to compose
// comment and suggestion bodies, the one interactive subshell the UI launches.
package editor

import (
	"fmt"
	"os"
	"os/exec"
)

// Resolve picks the editor command in fallback order: configured
// value, then $VISUAL, then $EDITOR, then "vi".
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// PrepareFile writes initial into a fresh temp file and returns its path.
// The caller is responsible for removing the file once the editor exits.
func PrepareFile(initial string) (string, error) {
	f, err := os.CreateTemp("", "gh-rally-comment-*.md")
	if err != nil {
		return "", fmt.Errorf("editor: create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("editor: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("editor: close temp file: %w", err)
	}
	return path, nil
}

// Command builds the editor subprocess for path, wired to the terminal's
// own stdio so tea.ExecProcess can suspend the alt-screen around it.
func Command(editorCmd, path string) *exec.Cmd {
	cmd := exec.Command(editorCmd, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// ReadResult reads back the edited file's contents.
func ReadResult(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("editor: read temp file: %w", err)
	}
	return string(data), nil
}
