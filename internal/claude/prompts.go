package claude

import (
	"fmt"
	"os"
)

// -- Analysis prompts --

func buildAnalysisPrompt(promptsDir string, input AnalyzeInput) string {
	body := input.PRBody
	if body == "" {
		body = "No description provided."
	}

	customPrompt := loadCustomPrompt(promptsDir, input.Owner, input.Repo)

	return fmt.Sprintf(`You are reviewing PR #%d: "%s".

PR description:
%s

Instructions:
1. Run `+"`git diff origin/%s...origin/%s`"+` to see all changes in this PR.
2. For each changed file, read the full file on the %s branch to understand context — follow imports, check callers, understand the module's role.
3. Produce a thorough code review as structured JSON output.

Focus on: correctness, security, performance, maintainability, and test coverage. Be specific with line numbers when possible.
%s
IMPORTANT: Your final response must be ONLY valid JSON matching this schema (no markdown, no wrapping):
%s`,
		input.PRNumber, input.PRTitle,
		body,
		input.BaseBranch, input.HeadBranch,
		input.BaseBranch,
		customPrompt,
		analysisJSONSchema,
	)
}

func buildDiffAnalysisPrompt(promptsDir string, input AnalyzeDiffInput) string {
	body := input.PRBody
	if body == "" {
		body = "No description provided."
	}

	customPrompt := loadCustomPrompt(promptsDir, input.Owner, input.Repo)

	return fmt.Sprintf(`You are reviewing PR #%d in %s/%s: "%s".

PR description:
%s

Here is the complete diff for this PR:

%s

Instructions:
1. Review all changes shown in the diff above.
2. Produce a thorough code review as structured JSON output.

Focus on: correctness, security, performance, maintainability, and test coverage. Be specific with line numbers when possible.
%s
IMPORTANT: Your final response must be ONLY valid JSON matching this schema (no markdown, no wrapping):
%s`,
		input.PRNumber, input.Owner, input.Repo, input.PRTitle,
		body,
		input.DiffContent,
		customPrompt,
		analysisJSONSchema,
	)
}

func buildReviewPrompt(promptsDir string, input ReviewInput) string {
	body := input.PRBody
	if body == "" {
		body = "No description provided."
	}

	customPrompt := loadCustomPrompt(promptsDir, input.Owner, input.Repo)

	return fmt.Sprintf(`You are generating a GitHub pull request review for PR #%d in %s/%s: "%s".

PR description:
%s

Here is the complete diff for this PR:

%s

Instructions:
1. Review all changes shown in the diff above.
2. Decide whether to approve, comment, or request changes.
3. Write an overall review body summarizing your assessment.
4. For specific issues, add inline comments targeting the exact file path and line number.
   - Use the NEW file line number (right side of the diff) for added/modified lines.
   - Only comment on lines that actually appear in the diff.
   - Each comment should be actionable and specific.
   - Focus on bugs, security issues, and significant improvements. Skip trivial style nits.
%s
IMPORTANT: Your final response must be ONLY valid JSON matching this schema (no markdown, no wrapping):
%s`,
		input.PRNumber, input.Owner, input.Repo, input.PRTitle,
		body,
		input.DiffContent,
		customPrompt,
		reviewJSONSchema,
	)
}

func loadCustomPrompt(promptsDir, owner, repo string) string {
	if promptsDir == "" {
		return ""
	}
	path := fmt.Sprintf("%s/%s_%s.md", promptsDir, owner, repo)
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "\nAdditional review instructions:\n" + string(data)
}

// -- Chat prompts --

