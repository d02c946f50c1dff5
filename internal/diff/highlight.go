package diff

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Token is a styled slice of source text, expressed as a byte range so
// callers can keep borrowing from their own buffer instead of copying.
type Token struct {
	Start, End int    // byte offsets into the highlighted source
	Style      string // a chroma token-type name, used as a style lookup key
}

// Highlighter turns source bytes into a stream of styled token ranges.
// Implementations are resolved once at startup by file extension; the
// render cache never knows which variant produced a given token stream.
type Highlighter interface {
	// ID distinguishes highlighter variants for the render cache key.
	ID() string
	Tokens(src []byte, ext string) []Token
}

// NullHighlighter returns the entire input as a single unstyled token.
// Used when no grammar fits the file extension, or highlighting is disabled.
type NullHighlighter struct{}

func (NullHighlighter) ID() string { return "null" }

func (NullHighlighter) Tokens(src []byte, ext string) []Token {
	if len(src) == 0 {
		return nil
	}
	return []Token{{Start: 0, End: len(src), Style: "Text"}}
}

// ChromaHighlighter is the fast grammar-backed highlighter: it selects a
// chroma lexer by file extension and lifts chroma's token stream into
// byte-range tokens.
type ChromaHighlighter struct{}

func (ChromaHighlighter) ID() string { return "chroma" }

func (ChromaHighlighter) Tokens(src []byte, ext string) []Token {
	if len(src) == 0 {
		return nil
	}
	lexer := lexers.Match("file" + normalizeExt(ext))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iter, err := lexer.Tokenise(nil, string(src))
	if err != nil {
		return NullHighlighter{}.Tokens(src, ext)
	}

	var tokens []Token
	offset := 0
	for _, tok := range iter.Tokens() {
		n := len(tok.Value)
		if n == 0 {
			continue
		}
		tokens = append(tokens, Token{
			Start: offset,
			End:   offset + n,
			Style: tok.Type.String(),
		})
		offset += n
	}
	return tokens
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// RegexHighlighter is a slower fallback used for extensions chroma's lexer
// registry can't match confidently: a small fixed set of regex rules
// covering comments, strings, and keywords, good enough for a fallback pass.
type RegexHighlighter struct{}

func (RegexHighlighter) ID() string { return "regex" }

var regexRules = []struct {
	pattern *regexp.Regexp
	style   string
}{
	{regexp.MustCompile(`(?m)//[^\n]*`), "Comment"},
	{regexp.MustCompile(`(?m)#[^\n]*`), "Comment"},
	{regexp.MustCompile(`"(?:[^"\\]|\\.)*"`), "String"},
	{regexp.MustCompile(`'(?:[^'\\]|\\.)*'`), "String"},
	{regexp.MustCompile(`\b(func|function|def|class|struct|interface|return|if|else|for|while|import|package|const|var|let)\b`), "Keyword"},
}

func (RegexHighlighter) Tokens(src []byte, _ string) []Token {
	if len(src) == 0 {
		return nil
	}
	type span struct {
		start, end int
		style      string
	}
	var spans []span
	for _, rule := range regexRules {
		for _, m := range rule.pattern.FindAllIndex(src, -1) {
			spans = append(spans, span{m[0], m[1], rule.style})
		}
	}
	if len(spans) == 0 {
		return NullHighlighter{}.Tokens(src, "")
	}

	// Sort by start, drop overlaps (first match wins), fill gaps with Text.
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1].start > spans[j].start; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}

	var tokens []Token
	pos := 0
	for _, s := range spans {
		if s.start < pos {
			continue
		}
		if s.start > pos {
			tokens = append(tokens, Token{Start: pos, End: s.start, Style: "Text"})
		}
		tokens = append(tokens, Token{Start: s.start, End: s.end, Style: s.style})
		pos = s.end
	}
	if pos < len(src) {
		tokens = append(tokens, Token{Start: pos, End: len(src), Style: "Text"})
	}
	return tokens
}

// resolveHighlighter picks a highlighter for a file extension, honoring a
// disabled flag and falling back to the null highlighter when no grammar fits.
func resolveHighlighter(preferred Highlighter, ext string, disabled bool) Highlighter {
	if disabled || preferred == nil {
		return NullHighlighter{}
	}
	if ch, ok := preferred.(ChromaHighlighter); ok {
		if lexers.Match("file" + normalizeExt(ext)) == nil && ext != "" {
			return RegexHighlighter{}
		}
		return ch
	}
	return preferred
}

// extOf returns the lowercase file extension (without the dot) for a path.
func extOf(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
