package rally

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderTemplateSubstitutesVariables(t *testing.T) {
	got := RenderTemplate("Hello {{name}}, PR #{{number}}", map[string]string{
		"name":   "Ada",
		"number": "7",
	})
	want := "Hello Ada, PR #7"
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestRenderTemplateUndefinedExpandsEmpty(t *testing.T) {
	got := RenderTemplate("Value: [{{missing}}]", nil)
	want := "Value: []"
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

func TestLoadPromptSetOverridesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reviewer.md"), []byte("custom reviewer {{diff}}"), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	ps := LoadPromptSet(dir)
	if ps.Reviewer != "custom reviewer {{diff}}" {
		t.Errorf("Reviewer = %q, want the override", ps.Reviewer)
	}
	if ps.Reviewee != DefaultRevieweePrompt {
		t.Error("Reviewee should fall back to the built-in default")
	}
}

func TestLoadPromptSetMissingDirUsesDefaults(t *testing.T) {
	ps := LoadPromptSet(filepath.Join(t.TempDir(), "nope"))
	if ps.Reviewer != DefaultReviewerPrompt || ps.Reviewee != DefaultRevieweePrompt {
		t.Error("expected built-in defaults when no prompts directory exists")
	}
}

func TestRenderTemplateUnterminatedBraceIsCopiedVerbatim(t *testing.T) {
	// A known limitation: "{{" always starts a substitution with no
	// escape sequence; an unterminated "{{" falls through untouched.
	got := RenderTemplate("literal {{ not a var", nil)
	want := "literal {{ not a var"
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}
