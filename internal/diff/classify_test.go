package diff

import "testing"

func TestClassifyLine(t *testing.T) {
	cases := []struct {
		name string
		line string
		want Classification
	}{
		{"empty", "", Context},
		{"file header", "diff --git a/foo.go b/foo.go", Header},
		{"hunk meta", "@@ -1,5 +1,6 @@ func main() {", HunkMeta},
		{"old file marker", "--- a/foo.go", MetaMinus},
		{"new file marker", "+++ b/foo.go", MetaPlus},
		{"added line", "+fmt.Println(\"hi\")", Added},
		{"removed line", "-fmt.Println(\"bye\")", Removed},
		{"context line", " unchanged code", Context},
		{"no-newline marker", "\\ No newline at end of file", Other},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyLine(tc.line); got != tc.want {
				t.Errorf("ClassifyLine(%q) = %s, want %s", tc.line, got, tc.want)
			}
		})
	}
}

func TestClassificationIsTotal(t *testing.T) {
	// Every line, no matter how unusual, must resolve to some classification
	// rather than panicking or requiring a caller-side default.
	inputs := []string{"", "   ", "++--", "@", "a normal line of code", "---", "+++"}
	for _, in := range inputs {
		_ = ClassifyLine(in) // must not panic
	}
}
