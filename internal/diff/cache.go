package diff

import (
	"fmt"
	"hash/fnv"
)

// Span is a byte-offset pair into a RenderCache's pinned patch buffer. A Span
// never owns its bytes; callers slice the cache's Buffer() to materialize text.
type Span struct {
	Start, End int
	Style      string
}

// Row is one rendered terminal line: the classified patch line it came from,
// plus the styled spans a caller slices out of the cache's retained buffer.
// Row never copies patch text — Spans borrow into RenderCache.buf for as long
// as the cache lives, which is the zero-copy discipline the viewport relies on
// to stay allocation-free while scrolling.
type Row struct {
	Class     Classification
	NewLine   int
	OldLine   int
	HunkIndex int    // -1 for rows before the first hunk (file header lines)
	LineText  Span   // the full line, unstyled bounds
	Spans     []Span // styled sub-ranges within LineText, in order, non-overlapping
	Comment   bool   // true if a comment thread anchors to this row
}

// Key identifies a cached render so a second request for the same file at
// the same patch/comment/theme/highlighter state is served from cache
// instead of rebuilt.
type Key struct {
	FileIndex          int
	PatchFingerprint   uint64
	CommentFingerprint uint64
	ThemeID            string
	HighlighterID      string
}

func fingerprint(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// RenderCache holds one file's rendered rows plus the byte buffer they borrow
// from. A RenderCache is built once per (file, patch, comments, theme,
// highlighter) combination and discarded when any of those change — there is
// no partial invalidation across a Key change, only within it (see
// InvalidateHunk).
type RenderCache struct {
	key  Key
	ext  string // file extension, threaded through to the highlighter on every (re)render
	buf  []byte // pinned patch text; Rows borrow spans into this slice
	rows []Row

	hunks []Hunk
	dirty map[int]bool // hunk index -> needs re-render
}

// Buffer returns the pinned patch bytes that every Row's spans are offsets
// into. Callers slice this directly; never copy it per-row.
func (c *RenderCache) Buffer() []byte { return c.buf }

// Build renders a full patch into a new RenderCache. highlighter may be nil,
// meaning no syntax highlighting (NullHighlighter is used).
func Build(fileIndex int, filename, patch string, commentFingerprint uint64, themeID string, hl Highlighter) *RenderCache {
	if hl == nil {
		hl = NullHighlighter{}
	}
	ext := extOf(filename)
	resolved := resolveHighlighter(hl, ext, false)

	c := &RenderCache{
		key: Key{
			FileIndex:          fileIndex,
			PatchFingerprint:   fingerprint(patch),
			CommentFingerprint: commentFingerprint,
			ThemeID:            themeID,
			HighlighterID:      resolved.ID(),
		},
		ext:   ext,
		buf:   []byte(patch),
		hunks: ParseHunks(fileIndex, filename, patch),
		dirty: make(map[int]bool),
	}
	c.rows = c.renderAll(resolved)
	return c
}

// Key reports the cache's identity, for a caller to compare against a
// freshly computed Key before deciding whether to reuse or rebuild.
func (c *RenderCache) Key() Key { return c.key }

// renderAll walks the pinned buffer once, classifying and highlighting every
// line, and returns the full row set. Byte offsets are computed directly
// against c.buf so every Span is a genuine slice of the pinned buffer.
func (c *RenderCache) renderAll(hl Highlighter) []Row {
	lines := AnnotatePatch(string(c.buf))
	rows := make([]Row, 0, len(lines))

	offset := 0
	for _, l := range lines {
		lineStart := offset
		lineEnd := lineStart + len(l.Text)
		offset = lineEnd + 1 // +1 for the '\n' consumed by strings.Split

		row := Row{
			Class:     l.Class,
			NewLine:   l.NewLine,
			OldLine:   l.OldLine,
			HunkIndex: l.HunkIndex,
			LineText:  Span{Start: lineStart, End: lineEnd},
		}
		if l.Class == Added || l.Class == Removed || l.Class == Context {
			row.Spans = highlightLineSpans(c.buf, lineStart, lineEnd, hl, c.ext)
		}
		rows = append(rows, row)
	}
	return rows
}

// highlightLineSpans runs a highlighter over a single line's bytes and
// translates its 0-based token offsets back into absolute buffer offsets.
// ext is the file extension the cache was built for, so the highlighter can
// select a grammar instead of always falling back to plain text.
func highlightLineSpans(buf []byte, start, end int, hl Highlighter, ext string) []Span {
	content := buf[start:end]
	// Diff lines begin with a +/-/space marker; highlight only the payload.
	payloadStart := start
	if len(content) > 0 && (content[0] == '+' || content[0] == '-' || content[0] == ' ') {
		payloadStart++
		content = content[1:]
	}
	if len(content) == 0 {
		return nil
	}

	tokens := hl.Tokens(content, ext)
	spans := make([]Span, 0, len(tokens))
	for _, t := range tokens {
		spans = append(spans, Span{
			Start: payloadStart + t.Start,
			End:   payloadStart + t.End,
			Style: t.Style,
		})
	}
	return spans
}

// MarkCommentRows flags rows whose NewLine or OldLine matches a commented
// line, so the viewport can draw a gutter marker without re-deriving line
// info from the patch on every paint.
func (c *RenderCache) MarkCommentRows(newLines, oldLines map[int]bool) {
	for i := range c.rows {
		r := &c.rows[i]
		r.Comment = (r.NewLine != 0 && newLines[r.NewLine]) || (r.OldLine != 0 && oldLines[r.OldLine])
	}
}

// InvalidateHunk marks a single hunk dirty for the next Rebuild, without
// discarding the rest of the cache. Used when a comment is added or removed
// on a line within that hunk and the rest of the file's rows are unaffected.
func (c *RenderCache) InvalidateHunk(hunkIndex int) {
	c.dirty[hunkIndex] = true
}

// Rebuild re-renders the patch and replaces only the rows of hunks marked
// dirty by InvalidateHunk, leaving every other row (and its Spans, still
// pointing at the same pinned buffer) untouched. hl may be nil to reuse
// NullHighlighter.
func (c *RenderCache) Rebuild(hl Highlighter) {
	if len(c.dirty) == 0 {
		return
	}
	if hl == nil {
		hl = NullHighlighter{}
	}
	full := c.renderAll(hl)
	for i, r := range c.rows {
		if c.dirty[r.HunkIndex] {
			c.rows[i] = full[i]
		}
	}
	c.dirty = make(map[int]bool)
}

// Rows returns the viewport slice [top, top+height), clamped to the row
// count. Never panics on an out-of-range top or height, and never returns
// more than len(c.rows) rows — the Viewport-safety property.
func (c *RenderCache) Rows(top, height int) []Row {
	if height <= 0 || len(c.rows) == 0 {
		return nil
	}
	if top < 0 {
		top = 0
	}
	if top >= len(c.rows) {
		return nil
	}
	end := top + height
	if end > len(c.rows) {
		end = len(c.rows)
	}
	return c.rows[top:end]
}

// Len reports the total number of rendered rows.
func (c *RenderCache) Len() int { return len(c.rows) }

// String slices the pinned buffer for a Span, for callers (tests, renderers)
// that need the literal text rather than the offsets.
func (c *RenderCache) String(s Span) string {
	if s.Start < 0 || s.End > len(c.buf) || s.Start > s.End {
		return ""
	}
	return string(c.buf[s.Start:s.End])
}

// CommentFingerprint hashes a set of comment line numbers into the stable
// fingerprint a Key compares against, so the cache can detect "comments
// changed" without storing the comment set itself.
func CommentFingerprint(newLines, oldLines []int) uint64 {
	h := fnv.New64a()
	for _, n := range newLines {
		_, _ = fmt.Fprintf(h, "n%d;", n)
	}
	for _, n := range oldLines {
		_, _ = fmt.Fprintf(h, "o%d;", n)
	}
	return h.Sum64()
}
