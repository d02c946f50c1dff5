package diff

import "strings"

// Hunk is a single "@@ ... @@" section of a file's patch, together with the
// raw lines it covers (including the header line itself).
type Hunk struct {
	FileIndex int
	Filename  string
	Header    string
	Lines     []string
}

// ParseHunks splits a file's patch string into its hunks.
func ParseHunks(fileIndex int, filename, patch string) []Hunk {
	lines := strings.Split(patch, "\n")
	var hunks []Hunk
	var current *Hunk

	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &Hunk{
				FileIndex: fileIndex,
				Filename:  filename,
				Header:    line,
				Lines:     []string{line},
			}
			continue
		}
		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}

	return hunks
}

// LineInfo describes what row a given patch line resolves to.
type LineInfo struct {
	NewLine int // 0 = none
	OldLine int // 0 = none
	Found   bool
}

// GetLineInfo annotates patch from its first line to recover the source line
// position for row. A linear scan; no index is persisted across calls.
func GetLineInfo(patch string, row int) LineInfo {
	lines := AnnotatePatch(patch)
	if row < 0 || row >= len(lines) {
		return LineInfo{}
	}
	l := lines[row]
	if l.NewLine == 0 && l.OldLine == 0 {
		return LineInfo{}
	}
	return LineInfo{NewLine: l.NewLine, OldLine: l.OldLine, Found: true}
}
