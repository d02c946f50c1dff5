package diff

import "testing"

func TestAnnotatePatchMinimal(t *testing.T) {
	patch := "diff --git a/foo.go b/foo.go\n" +
		"@@ -1,1 +1,1 @@\n" +
		"-old line\n" +
		"+new line\n"

	lines := AnnotatePatch(patch)
	want := []struct {
		class   Classification
		oldLine int
		newLine int
	}{
		{Header, 0, 0},
		{HunkMeta, 0, 0},
		{Removed, 1, 0},
		{Added, 0, 1},
	}

	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i].Class != w.class {
			t.Errorf("line %d: class = %s, want %s", i, lines[i].Class, w.class)
		}
		if lines[i].OldLine != w.oldLine {
			t.Errorf("line %d: OldLine = %d, want %d", i, lines[i].OldLine, w.oldLine)
		}
		if lines[i].NewLine != w.newLine {
			t.Errorf("line %d: NewLine = %d, want %d", i, lines[i].NewLine, w.newLine)
		}
	}
}

func TestAnnotatePatchCounterResetsAcrossHunks(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n" +
		" ctx1\n" +
		" ctx2\n" +
		"@@ -50,2 +51,2 @@\n" +
		" ctx3\n" +
		" ctx4\n"

	lines := AnnotatePatch(patch)
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6", len(lines))
	}

	// First hunk's context lines count from 1.
	if lines[1].OldLine != 1 || lines[1].NewLine != 1 {
		t.Errorf("first hunk ctx1: old=%d new=%d, want old=1 new=1", lines[1].OldLine, lines[1].NewLine)
	}
	if lines[2].OldLine != 2 || lines[2].NewLine != 2 {
		t.Errorf("first hunk ctx2: old=%d new=%d, want old=2 new=2", lines[2].OldLine, lines[2].NewLine)
	}

	// Second hunk's header resets counters to its own start, not a continuation.
	if lines[4].OldLine != 50 || lines[4].NewLine != 51 {
		t.Errorf("second hunk ctx3: old=%d new=%d, want old=50 new=51", lines[4].OldLine, lines[4].NewLine)
	}
	if lines[5].OldLine != 51 || lines[5].NewLine != 52 {
		t.Errorf("second hunk ctx4: old=%d new=%d, want old=51 new=52", lines[5].OldLine, lines[5].NewLine)
	}

	if lines[0].HunkIndex != 0 || lines[3].HunkIndex != 1 {
		t.Errorf("hunk indices: %d, %d, want 0, 1", lines[0].HunkIndex, lines[3].HunkIndex)
	}
}

func TestAnnotatePatchLinesBeforeFirstHunkCarryNoLineNumbers(t *testing.T) {
	patch := "diff --git a/foo.go b/foo.go\n" +
		"index abc123..def456 100644\n" +
		"--- a/foo.go\n" +
		"+++ b/foo.go\n" +
		"@@ -1,1 +1,1 @@\n" +
		" unchanged\n"

	lines := AnnotatePatch(patch)
	for i := 0; i < 4; i++ {
		if lines[i].NewLine != 0 || lines[i].OldLine != 0 {
			t.Errorf("preamble line %d should carry no line numbers, got old=%d new=%d", i, lines[i].OldLine, lines[i].NewLine)
		}
		if lines[i].HunkIndex != -1 {
			t.Errorf("preamble line %d should have HunkIndex -1, got %d", i, lines[i].HunkIndex)
		}
	}
}

// TestAnnotatePatchLineNumberMonotonicity checks that, within each hunk,
// new-side numbers over Added+Context and old-side numbers over
// Removed+Context are strictly increasing.
func TestAnnotatePatchLineNumberMonotonicity(t *testing.T) {
	patch := "diff --git a/f b/f\n" +
		"@@ -10,4 +20,5 @@\n" +
		" ctx\n" +
		"-gone\n" +
		"+fresh1\n" +
		"+fresh2\n" +
		" tail\n" +
		"@@ -100,2 +200,2 @@\n" +
		"-x\n" +
		"+y\n" +
		" z\n"

	lines := AnnotatePatch(patch)

	lastNew := map[int]int{}
	lastOld := map[int]int{}
	for i, l := range lines {
		switch l.Class {
		case Added, Context:
			if l.NewLine != 0 {
				if prev, ok := lastNew[l.HunkIndex]; ok && l.NewLine <= prev {
					t.Errorf("line %d: new-line %d not strictly increasing after %d", i, l.NewLine, prev)
				}
				lastNew[l.HunkIndex] = l.NewLine
			}
		}
		switch l.Class {
		case Removed, Context:
			if l.OldLine != 0 {
				if prev, ok := lastOld[l.HunkIndex]; ok && l.OldLine <= prev {
					t.Errorf("line %d: old-line %d not strictly increasing after %d", i, l.OldLine, prev)
				}
				lastOld[l.HunkIndex] = l.OldLine
			}
		}
	}

	// The first Added after the second hunk meta carries that hunk's new start.
	for i, l := range lines {
		if l.HunkIndex == 1 && l.Class == Added {
			if l.NewLine != 200 {
				t.Errorf("line %d: first Added in second hunk has new-line %d, want 200", i, l.NewLine)
			}
			break
		}
	}
}

func TestParseHunkHeaderOmittedCounts(t *testing.T) {
	// "@@ -5 +5 @@" (no ",count") implies a single-line hunk.
	oldStart, newStart := parseHunkHeader("@@ -5 +5 @@")
	if oldStart != 5 || newStart != 5 {
		t.Errorf("got old=%d new=%d, want old=5 new=5", oldStart, newStart)
	}
}
