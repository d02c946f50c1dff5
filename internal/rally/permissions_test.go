package rally

import "testing"

func TestDefaultPolicyReviewerReadOnly(t *testing.T) {
	p := DefaultPermissionPolicy()
	if !p.Check(RoleReviewer, "Read") {
		t.Error("reviewer should be allowed Read")
	}
	if p.Check(RoleReviewer, "Edit") {
		t.Error("reviewer should not be allowed Edit")
	}
	if p.Check(RoleReviewer, "git push") {
		t.Error("reviewer should never be allowed git push")
	}
}

func TestDefaultPolicyRevieweeReadEditCommit(t *testing.T) {
	p := DefaultPermissionPolicy()
	if !p.Check(RoleReviewee, "Edit") {
		t.Error("reviewee should be allowed Edit")
	}
	if !p.Check(RoleReviewee, "git commit -m x") {
		t.Error("reviewee should be allowed git commit*")
	}
}

// TestPermissionContainment checks the permission-containment property:
// reviewee cannot cause a disallowed tool invocation to succeed regardless
// of configuration extension, for the operator-gated verbs. The deny-list
// holds both at Check time and in the allowed set handed to adapters.
func TestPermissionContainment(t *testing.T) {
	p := DefaultPermissionPolicy()
	p.Extend(RoleReviewee, "git push*", "git reset*")

	denied := []string{"git push origin main", "git push --force", "git reset --hard", "git checkout main", "gh pr create"}
	for _, tool := range denied {
		if p.Check(RoleReviewee, tool) {
			t.Errorf("expected %q to remain denied even after Extend", tool)
		}
	}

	for _, glob := range p.AllowedTools(RoleReviewee) {
		if GlobPermitsDenied(glob) {
			t.Errorf("AllowedTools leaked denied glob %q", glob)
		}
	}
}

func TestGlobPermitsDenied(t *testing.T) {
	tests := []struct {
		glob string
		want bool
	}{
		{"git push", true},
		{"git push*", true},
		{"git push origin*", true},
		{"git*", true}, // broad enough to match "git push ..."
		{"*", true},
		{"git commit*", false},
		{"git add*", false},
		{"Read", false},
		{"go test*", false},
	}
	for _, tt := range tests {
		if got := GlobPermitsDenied(tt.glob); got != tt.want {
			t.Errorf("GlobPermitsDenied(%q) = %v, want %v", tt.glob, got, tt.want)
		}
	}
}

func TestPolicyExtendAddsNewTools(t *testing.T) {
	p := DefaultPermissionPolicy()
	if p.Check(RoleReviewer, "gh pr comment") {
		t.Fatal("gh pr comment should not be allowed before Extend")
	}
	p.Extend(RoleReviewer, "gh pr comment*")
	if !p.Check(RoleReviewer, "gh pr comment --body x") {
		t.Error("Extend should add the new glob")
	}
}
