package diff

import "testing"

func TestParseHunks(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n" +
		" ctx\n" +
		"-old\n" +
		"@@ -10,1 +11,2 @@\n" +
		"+new\n"

	hunks := ParseHunks(3, "foo.go", patch)
	if len(hunks) != 2 {
		t.Fatalf("got %d hunks, want 2", len(hunks))
	}
	if hunks[0].FileIndex != 3 || hunks[0].Filename != "foo.go" {
		t.Errorf("hunk 0 metadata wrong: %+v", hunks[0])
	}
	if hunks[0].Header != "@@ -1,2 +1,2 @@" {
		t.Errorf("hunk 0 header = %q", hunks[0].Header)
	}
	if len(hunks[0].Lines) != 3 {
		t.Errorf("hunk 0 has %d lines, want 3", len(hunks[0].Lines))
	}
	if hunks[1].Header != "@@ -10,1 +11,2 @@" {
		t.Errorf("hunk 1 header = %q", hunks[1].Header)
	}
}

func TestParseHunksNoHunks(t *testing.T) {
	hunks := ParseHunks(0, "foo.go", "diff --git a/foo.go b/foo.go\n")
	if len(hunks) != 0 {
		t.Errorf("got %d hunks, want 0", len(hunks))
	}
}

func TestGetLineInfo(t *testing.T) {
	patch := "@@ -1,1 +1,2 @@\n" +
		" ctx\n" +
		"+added\n"

	info := GetLineInfo(patch, 2)
	if !info.Found || info.NewLine != 2 {
		t.Errorf("GetLineInfo(row 2) = %+v, want Found NewLine=2", info)
	}

	info = GetLineInfo(patch, 0)
	if info.Found {
		t.Errorf("GetLineInfo(hunk header row) should not be Found, got %+v", info)
	}
}

func TestGetLineInfoOutOfRange(t *testing.T) {
	patch := "@@ -1,1 +1,1 @@\n ctx\n"
	if info := GetLineInfo(patch, -1); info.Found {
		t.Errorf("negative row should not be Found, got %+v", info)
	}
	if info := GetLineInfo(patch, 99); info.Found {
		t.Errorf("out-of-range row should not be Found, got %+v", info)
	}
}
