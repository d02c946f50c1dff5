package rally

import "strings"

// PermissionPolicy computes the allowed-tool set passed to each adapter
// invocation: reviewer gets read-only forge/file operations,
// reviewee gets read+edit+commit but never push/force/reset/checkout/
// publish by default. The table may be extended from configuration.
type PermissionPolicy struct {
	allowed map[Role][]string
}

// DefaultPermissionPolicy returns the default reviewer/reviewee tool policy.
func DefaultPermissionPolicy() *PermissionPolicy {
	return &PermissionPolicy{
		allowed: map[Role][]string{
			RoleReviewer: {
				"Read", "Glob", "Grep",
				"gh pr view*", "gh pr diff*", "gh pr checks*",
			},
			RoleReviewee: {
				"Read", "Glob", "Grep", "Edit", "Write",
				"git add*", "git commit*", "git diff*", "git status*", "git log*",
			},
		},
	}
}

// Extend adds extra allowed-tool globs for role, as configuration might.
// Globs that could authorize an always-denied verb are refused outright, so
// a configured allow-list can widen the table but never punch through it.
func (p *PermissionPolicy) Extend(role Role, globs ...string) {
	for _, glob := range globs {
		if GlobPermitsDenied(glob) {
			continue
		}
		p.allowed[role] = append(p.allowed[role], glob)
	}
}

// AllowedTools returns the full allowed-tool list for role, suitable for
// passing to an AgentAdapter invocation. Entries that could authorize an
// always-denied verb never appear in the returned slice, whatever route
// they took into the table.
func (p *PermissionPolicy) AllowedTools(role Role) []string {
	out := make([]string, 0, len(p.allowed[role]))
	for _, glob := range p.allowed[role] {
		if GlobPermitsDenied(glob) {
			continue
		}
		out = append(out, glob)
	}
	return out
}

// deniedAlways lists tool prefixes that are never permitted for any role,
// regardless of configuration extension or operator grants: pushing, force
// operations, resets, checkouts, and publishes stay operator-gated.
var deniedAlways = []string{
	"git push", "git push --force", "git reset", "git checkout",
	"git publish", "gh pr create", "gh release",
}

// GlobPermitsDenied reports whether an allow-list entry could authorize one
// of the always-denied verbs: the entry itself names a denied verb, or its
// wildcard prefix is broad enough to match one (e.g. "git*").
func GlobPermitsDenied(glob string) bool {
	base := strings.TrimSuffix(glob, "*")
	for _, denied := range deniedAlways {
		if strings.HasPrefix(base, denied) {
			return true
		}
		if strings.HasSuffix(glob, "*") && strings.HasPrefix(denied, base) {
			return true
		}
	}
	return false
}

// Check reports whether tool is allowed for role. A tool matches a glob
// entry if the entry is an exact match or a "prefix*" wildcard prefix.
func (p *PermissionPolicy) Check(role Role, tool string) bool {
	for _, denied := range deniedAlways {
		if strings.HasPrefix(tool, denied) {
			return false
		}
	}

	for _, glob := range p.allowed[role] {
		if matchGlob(glob, tool) {
			return true
		}
	}
	return false
}

func matchGlob(glob, tool string) bool {
	if strings.HasSuffix(glob, "*") {
		return strings.HasPrefix(tool, strings.TrimSuffix(glob, "*"))
	}
	return glob == tool
}
