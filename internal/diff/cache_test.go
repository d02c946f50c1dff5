package diff

import "testing"

func samplePatch() string {
	return "diff --git a/foo.go b/foo.go\n" +
		"--- a/foo.go\n" +
		"+++ b/foo.go\n" +
		"@@ -1,2 +1,3 @@\n" +
		" package foo\n" +
		"-func old() {}\n" +
		"+func new() {}\n" +
		"+// trailing comment\n"
}

func TestBuildProducesOneRowPerLine(t *testing.T) {
	patch := samplePatch()
	c := Build(0, "foo.go", patch, 0, "dark", ChromaHighlighter{})

	lines := AnnotatePatch(patch)
	if c.Len() != len(lines) {
		t.Fatalf("cache has %d rows, want %d", c.Len(), len(lines))
	}
}

func TestRowSpansSliceThePinnedBuffer(t *testing.T) {
	patch := samplePatch()
	c := Build(0, "foo.go", patch, 0, "dark", NullHighlighter{})

	rows := c.Rows(0, c.Len())
	for i, r := range rows {
		if r.LineText.Start < 0 || r.LineText.End > len(c.Buffer()) || r.LineText.Start > r.LineText.End {
			t.Fatalf("row %d has invalid LineText span %+v for buffer of len %d", i, r.LineText, len(c.Buffer()))
		}
		for _, s := range r.Spans {
			if s.Start < r.LineText.Start || s.End > r.LineText.End {
				t.Fatalf("row %d span %+v escapes its line bounds %+v", i, s, r.LineText)
			}
		}
	}
}

func TestRowsViewportSafety(t *testing.T) {
	patch := samplePatch()
	c := Build(0, "foo.go", patch, 0, "dark", NullHighlighter{})

	// Height larger than remaining rows must clamp, not panic or overrun.
	rows := c.Rows(c.Len()-1, 100)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1 (clamped)", len(rows))
	}

	// top beyond the end returns nothing.
	if rows := c.Rows(c.Len()+10, 5); rows != nil {
		t.Errorf("out-of-range top should return nil, got %v", rows)
	}

	// Negative top clamps to 0 rather than panicking.
	if rows := c.Rows(-5, 2); len(rows) != 2 {
		t.Errorf("negative top should clamp to 0, got %d rows", len(rows))
	}

	// Zero or negative height returns nothing.
	if rows := c.Rows(0, 0); rows != nil {
		t.Errorf("zero height should return nil, got %v", rows)
	}
}

func TestBuildKeyReflectsInputs(t *testing.T) {
	patch := samplePatch()
	c1 := Build(2, "foo.go", patch, 7, "dark", ChromaHighlighter{})
	c2 := Build(2, "foo.go", patch, 7, "dark", ChromaHighlighter{})

	if c1.Key() != c2.Key() {
		t.Errorf("identical inputs should produce identical keys: %+v vs %+v", c1.Key(), c2.Key())
	}

	c3 := Build(2, "foo.go", patch, 8, "dark", ChromaHighlighter{})
	if c1.Key() == c3.Key() {
		t.Errorf("different comment fingerprints should produce different keys")
	}
}

// TestBuildIdempotent: building twice from identical inputs yields
// structurally equal row sequences.
func TestBuildIdempotent(t *testing.T) {
	patch := samplePatch()
	c1 := Build(0, "foo.go", patch, 3, "dark", ChromaHighlighter{})
	c2 := Build(0, "foo.go", patch, 3, "dark", ChromaHighlighter{})

	r1 := c1.Rows(0, c1.Len())
	r2 := c2.Rows(0, c2.Len())
	if len(r1) != len(r2) {
		t.Fatalf("row counts differ: %d vs %d", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i].Class != r2[i].Class || r1[i].LineText != r2[i].LineText ||
			r1[i].NewLine != r2[i].NewLine || r1[i].OldLine != r2[i].OldLine ||
			len(r1[i].Spans) != len(r2[i].Spans) {
			t.Fatalf("row %d differs between identical builds: %+v vs %+v", i, r1[i], r2[i])
		}
		for j := range r1[i].Spans {
			if r1[i].Spans[j] != r2[i].Spans[j] {
				t.Fatalf("row %d span %d differs: %+v vs %+v", i, j, r1[i].Spans[j], r2[i].Spans[j])
			}
		}
	}
}

func TestInvalidateHunkAndRebuildPreservesOtherRows(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n" +
		" ctx1\n" +
		"-old1\n" +
		"@@ -10,2 +10,2 @@\n" +
		" ctx2\n" +
		"-old2\n"

	c := Build(0, "foo.go", patch, 0, "dark", NullHighlighter{})
	before := append([]Row(nil), c.Rows(0, c.Len())...)

	c.InvalidateHunk(0)
	c.Rebuild(NullHighlighter{})

	after := c.Rows(0, c.Len())
	if len(after) != len(before) {
		t.Fatalf("row count changed after rebuild: %d vs %d", len(after), len(before))
	}
	// Rows in hunk 1 (untouched) keep identical content.
	for i, r := range after {
		if r.HunkIndex != 0 && r.LineText != before[i].LineText {
			t.Errorf("row %d outside the dirtied hunk changed: %+v vs %+v", i, r.LineText, before[i].LineText)
		}
	}
}

func TestMarkCommentRows(t *testing.T) {
	patch := samplePatch()
	c := Build(0, "foo.go", patch, 0, "dark", NullHighlighter{})
	c.MarkCommentRows(map[int]bool{2: true}, nil)

	found := false
	for _, r := range c.Rows(0, c.Len()) {
		if r.NewLine == 2 {
			if !r.Comment {
				t.Errorf("row with NewLine=2 should be marked Comment")
			}
			found = true
		} else if r.Comment {
			t.Errorf("row with NewLine=%d should not be marked Comment", r.NewLine)
		}
	}
	if !found {
		t.Fatalf("test patch has no row with NewLine=2; fixture is wrong")
	}
}

func TestCommentFingerprintStableAndSensitive(t *testing.T) {
	a := CommentFingerprint([]int{1, 2}, []int{3})
	b := CommentFingerprint([]int{1, 2}, []int{3})
	if a != b {
		t.Errorf("same inputs should fingerprint identically")
	}
	c := CommentFingerprint([]int{1, 2}, []int{4})
	if a == c {
		t.Errorf("different inputs should fingerprint differently")
	}
}
