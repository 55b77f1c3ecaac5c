// Package highlight turns source text into lipgloss-styled spans using chroma.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/LFroesch/teditor/internal/logger"
)

// maxHighlightSize is the largest content that gets tokenised; bigger files
// are shown plain.
const maxHighlightSize = 2 * 1024 * 1024

// Span is a run of text drawn with one style.
type Span struct {
	Text  string
	Style lipgloss.Style
}

// Highlighter tokenises text with the lexer chosen by file name and maps
// the theme's token styles to lipgloss. The last whole-file result is cached.
type Highlighter struct {
	style  *chroma.Style
	styles map[chroma.TokenType]lipgloss.Style
	plain  lipgloss.Style

	cacheKey   uint64
	cacheLines [][]Span
}

// New returns a highlighter for the named chroma style. Unknown names fall
// back to chroma's default style.
func New(theme string) *Highlighter {
	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}
	h := &Highlighter{
		style:  style,
		styles: make(map[chroma.TokenType]lipgloss.Style),
	}
	h.plain = h.styleFor(chroma.Text)
	return h
}

// StyleName returns the name of the chroma style in use.
func (h *Highlighter) StyleName() string { return h.style.Name }

func lexerFor(filename string) chroma.Lexer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Tokenize highlights a single line. Constructs that span lines lose their
// context here; use Lines for whole files.
func (h *Highlighter) Tokenize(line, filename string) []Span {
	lines := h.tokenise(line, filename)
	if len(lines) == 0 {
		return nil
	}
	return lines[0]
}

// Lines highlights content split on "\n". The result always has one entry
// per line of content and is cached until content or filename change.
func (h *Highlighter) Lines(content, filename string) [][]Span {
	d := xxhash.New()
	d.WriteString(filename)
	d.WriteString("\x00")
	d.WriteString(content)
	key := d.Sum64()
	if h.cacheLines != nil && key == h.cacheKey {
		return h.cacheLines
	}

	lines := h.tokenise(content, filename)
	h.cacheKey = key
	h.cacheLines = lines
	return lines
}

func (h *Highlighter) tokenise(content, filename string) [][]Span {
	want := strings.Count(content, "\n") + 1

	if len(content) > maxHighlightSize {
		return h.plainLines(content)
	}

	it, err := lexerFor(filename).Tokenise(nil, content)
	if err != nil {
		logger.Warn("Highlight %s: %v", filename, err)
		return h.plainLines(content)
	}

	lines := make([][]Span, 1, want)
	for tok := it(); tok != chroma.EOF; tok = it() {
		style := h.styleFor(tok.Type)
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part != "" {
				last := len(lines) - 1
				lines[last] = append(lines[last], Span{Text: part, Style: style})
			}
		}
	}

	// Lexers may add a trailing newline
	for len(lines) < want {
		lines = append(lines, nil)
	}
	return lines[:want]
}

func (h *Highlighter) plainLines(content string) [][]Span {
	raw := strings.Split(content, "\n")
	lines := make([][]Span, len(raw))
	for i, l := range raw {
		if l != "" {
			lines[i] = []Span{{Text: l, Style: h.plain}}
		}
	}
	return lines
}

func (h *Highlighter) styleFor(t chroma.TokenType) lipgloss.Style {
	if s, ok := h.styles[t]; ok {
		return s
	}

	entry := h.style.Get(t)
	s := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		s = s.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		s = s.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		s = s.Italic(true)
	}
	if entry.Underline == chroma.Yes {
		s = s.Underline(true)
	}
	h.styles[t] = s
	return s
}
