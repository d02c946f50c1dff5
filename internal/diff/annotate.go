package diff

import (
	"strconv"
	"strings"
)

// Line is the parser's output for a single line of a patch.
type Line struct {
	Text      string
	Class     Classification
	NewLine   int // 0 = not applicable
	OldLine   int // 0 = not applicable
	HunkIndex int // index into the hunk this line belongs to, -1 if none
}

// AnnotatePatch classifies every line of a patch in a single forward pass,
// assigning old/new line numbers per the counter rules: HunkMeta resets both
// counters from its "@@ -a,b +c,d @@" header; Added/Context advance the new
// counter; Removed/Context advance the old counter.
func AnnotatePatch(patch string) []Line {
	rawLines := strings.Split(patch, "\n")
	// strings.Split on a trailing newline yields one extra empty element;
	// patches built from PR file content almost always end in "\n" so drop it.
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}

	lines := make([]Line, 0, len(rawLines))
	oldNext, newNext := 0, 0
	hunkIdx := -1

	for _, text := range rawLines {
		class := ClassifyLine(text)
		ln := Line{Text: text, Class: class, HunkIndex: -1}

		switch class {
		case HunkMeta:
			a, c := parseHunkHeader(text)
			oldNext, newNext = a, c
			hunkIdx++
			ln.HunkIndex = hunkIdx
		case Added:
			ln.NewLine = newNext
			ln.HunkIndex = hunkIdx
			newNext++
		case Removed:
			ln.OldLine = oldNext
			ln.HunkIndex = hunkIdx
			oldNext++
		case Context:
			if hunkIdx >= 0 {
				ln.NewLine = newNext
				ln.OldLine = oldNext
				ln.HunkIndex = hunkIdx
				newNext++
				oldNext++
			}
		default:
			ln.HunkIndex = hunkIdx
		}

		lines = append(lines, ln)
	}

	return lines
}

// parseHunkHeader extracts the old-side start (a) and new-side start (c)
// from a "@@ -a,b +c,d @@" header. Either count may be omitted (implying 1).
func parseHunkHeader(header string) (oldStart, newStart int) {
	minusIdx := strings.Index(header, "-")
	plusIdx := strings.Index(header, "+")
	if minusIdx == -1 || plusIdx == -1 {
		return 0, 0
	}

	oldSpec := header[minusIdx+1:]
	if sp := strings.IndexAny(oldSpec, " ,"); sp != -1 {
		oldSpec = oldSpec[:sp]
	}
	newSpec := header[plusIdx+1:]
	if sp := strings.IndexAny(newSpec, " ,"); sp != -1 {
		newSpec = newSpec[:sp]
	}

	oldStart, _ = strconv.Atoi(strings.TrimSpace(oldSpec))
	newStart, _ = strconv.Atoi(strings.TrimSpace(newSpec))
	return oldStart, newStart
}
