package ui

import "testing"

func TestResolveCommand(t *testing.T) {
	m := NewCommandModeModel()

	tests := []struct {
		input string
		want  string
	}{
		{"analyze", "analyze"},
		{"an", "analyze"},
		{"rev", "review"},
		{"ra", "rally"},
		{"settings", "config"},
		{"zo", "zoom"},
		{"nope", ""},
	}
	for _, tt := range tests {
		if got := m.resolveCommand(tt.input); got != tt.want {
			t.Errorf("resolveCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestQuickCommandsAllHaveKeys(t *testing.T) {
	for _, cmd := range quickCommands() {
		if cmd.QuickKey == "" {
			t.Errorf("quick command %q has no quick key", cmd.Name)
		}
	}
}

func TestFilterCommandsMatchesAliases(t *testing.T) {
	m := NewCommandModeModel()
	m.input.SetValue("tl")
	m.filterCommands()
	found := false
	for _, c := range m.filtered {
		if c.Name == "toggle left" {
			found = true
		}
	}
	if !found {
		t.Error("expected alias tl to surface toggle left")
	}
}
