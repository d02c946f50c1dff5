package rally

import (
	"os"
	"path/filepath"
	"strings"
)

// RenderTemplate performs a literal `{{variable}}` substitution: undefined
// variables expand to empty strings, and there is no escape for a literal
// `{{`. Known limitation, not a bug to fix here.
func RenderTemplate(tmpl string, vars map[string]string) string {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "{{")
		if start == -1 {
			out.WriteString(tmpl[i:])
			break
		}
		start += i
		out.WriteString(tmpl[i:start])

		end := strings.Index(tmpl[start:], "}}")
		if end == -1 {
			out.WriteString(tmpl[start:])
			break
		}
		end += start

		name := strings.TrimSpace(tmpl[start+2 : end])
		out.WriteString(vars[name])
		i = end + 2
	}
	return out.String()
}

// LoadPromptSet reads prompts/reviewer.md and prompts/reviewee.md overrides
// from dir, falling back to the built-in defaults for any file that is
// missing or unreadable.
func LoadPromptSet(dir string) PromptSet {
	ps := PromptSet{Reviewer: DefaultReviewerPrompt, Reviewee: DefaultRevieweePrompt}
	if data, err := os.ReadFile(filepath.Join(dir, "reviewer.md")); err == nil {
		ps.Reviewer = string(data)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "reviewee.md")); err == nil {
		ps.Reviewee = string(data)
	}
	return ps
}

// DefaultReviewerPrompt is the built-in reviewer prompt template, used when
// no `prompts/reviewer.md` override exists in the user config directory.
const DefaultReviewerPrompt = `You are reviewing PR #{{number}} in {{owner}}/{{repo}}: "{{title}}".

Diff:
{{diff}}

Review the change for correctness, security, and maintainability. Respond
with JSON matching the reviewer output schema: action (approve |
request_changes | comment), summary, comments (path/line/body/severity),
blocking_issues.`

// DefaultRevieweePrompt is the built-in reviewee prompt template.
const DefaultRevieweePrompt = `You are fixing PR #{{number}} in {{owner}}/{{repo}} based on this review:

{{review_summary}}

Blocking issues:
{{blocking_issues}}

Make the necessary changes and commit them. Respond with JSON matching the
reviewee output schema: status (completed | needs_clarification |
needs_permission | failed), summary, changed_files, commit_sha.`
