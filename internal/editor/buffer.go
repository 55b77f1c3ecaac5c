package editor

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// OpKind identifies an edit or cursor operation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpNewline
	OpBackspace
	OpDelete
	OpLeft
	OpRight
	OpUp
	OpDown
	OpHome
	OpEnd
	OpPageUp
	OpPageDown
	OpTop
	OpBottom
)

// Op is one operation applied to a Buffer. Text is used by OpInsert; N is a
// repeat count for moves and the page size for OpPageUp/OpPageDown.
type Op struct {
	Kind OpKind
	Text string
	N    int
}

func (o Op) count() int {
	if o.N < 1 {
		return 1
	}
	return o.N
}

// mutates reports whether the op can change the text.
func (o Op) mutates() bool {
	switch o.Kind {
	case OpInsert, OpNewline, OpBackspace, OpDelete:
		return true
	}
	return false
}

// Buffer holds the text of one file as lines of runes, the cursor and the
// hash of the last loaded or saved content.
type Buffer struct {
	path     string
	lines    [][]rune
	crlf     bool
	row, col int
	want     int // preferred column for vertical moves
	snapshot uint64
	dirty    bool
}

// NewBuffer loads content into a clean buffer. Files whose every line ends
// in CRLF are edited as LF and written back with CRLF; anything else keeps
// its bytes as they are, so an unedited buffer round-trips exactly.
func NewBuffer(path, content string) *Buffer {
	b := &Buffer{path: path}
	b.load(content)
	b.MarkSaved()
	return b
}

func (b *Buffer) load(content string) {
	n := strings.Count(content, "\n")
	b.crlf = n > 0 && strings.Count(content, "\r\n") == n

	sep := "\n"
	if b.crlf {
		sep = "\r\n"
	}
	parts := strings.Split(content, sep)
	b.lines = make([][]rune, len(parts))
	for i, p := range parts {
		b.lines[i] = []rune(p)
	}
}

// Path returns the file path the buffer was loaded from.
func (b *Buffer) Path() string { return b.path }

// Content returns the full text in the file's line-ending convention.
func (b *Buffer) Content() string {
	sep := "\n"
	if b.crlf {
		sep = "\r\n"
	}
	var sb strings.Builder
	for i, l := range b.lines {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(string(l))
	}
	return sb.String()
}

// Lines returns the text split into lines without line terminators.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = string(l)
	}
	return out
}

// Line returns line i, or "" when out of range.
func (b *Buffer) Line(i int) string {
	if i < 0 || i >= len(b.lines) {
		return ""
	}
	return string(b.lines[i])
}

// LineCount returns the number of lines; an empty buffer has one.
func (b *Buffer) LineCount() int { return len(b.lines) }

// CRLF reports whether the file uses CRLF line endings.
func (b *Buffer) CRLF() bool { return b.crlf }

// Cursor returns the cursor row and column, the column counted in runes.
func (b *Buffer) Cursor() (row, col int) { return b.row, b.col }

// SetCursor moves the cursor, clamping it into the text.
func (b *Buffer) SetCursor(row, col int) {
	b.row = clamp(row, 0, len(b.lines)-1)
	b.col = clamp(col, 0, len(b.lines[b.row]))
	b.want = b.col
}

// Dirty reports whether the content differs from the last saved snapshot.
func (b *Buffer) Dirty() bool { return b.dirty }

// Snapshot returns the hash of the last loaded or saved content.
func (b *Buffer) Snapshot() uint64 { return b.snapshot }

// MarkSaved makes the current content the snapshot.
func (b *Buffer) MarkSaved() {
	b.snapshot = xxhash.Sum64String(b.Content())
	b.dirty = false
}

// Reset replaces the content, keeps the cursor where it still fits and
// marks the buffer clean.
func (b *Buffer) Reset(content string) {
	row, col := b.row, b.col
	b.load(content)
	b.MarkSaved()
	b.SetCursor(row, col)
}

func (b *Buffer) updateDirty() {
	b.dirty = xxhash.Sum64String(b.Content()) != b.snapshot
}

// Apply performs op and recomputes the dirty flag if the text may have changed.
func (b *Buffer) Apply(op Op) {
	switch op.Kind {
	case OpInsert:
		b.insert(op.Text)
	case OpNewline:
		b.insert("\n")
	case OpBackspace:
		for i := 0; i < op.count(); i++ {
			b.backspace()
		}
	case OpDelete:
		for i := 0; i < op.count(); i++ {
			b.deleteForward()
		}
	case OpLeft:
		for i := 0; i < op.count(); i++ {
			b.left()
		}
		b.want = b.col
	case OpRight:
		for i := 0; i < op.count(); i++ {
			b.right()
		}
		b.want = b.col
	case OpUp, OpPageUp:
		b.vertical(-op.count())
	case OpDown, OpPageDown:
		b.vertical(op.count())
	case OpHome:
		b.home()
	case OpEnd:
		b.col = len(b.lines[b.row])
		b.want = b.col
	case OpTop:
		b.row, b.col, b.want = 0, 0, 0
	case OpBottom:
		b.row = len(b.lines) - 1
		b.col = len(b.lines[b.row])
		b.want = b.col
	}

	if op.mutates() {
		b.updateDirty()
	}
}

func (b *Buffer) insert(text string) {
	if text == "" {
		return
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")

	line := b.lines[b.row]
	head := append([]rune{}, line[:b.col]...)
	tail := append([]rune{}, line[b.col:]...)

	if len(parts) == 1 {
		ins := []rune(parts[0])
		b.lines[b.row] = append(append(head, ins...), tail...)
		b.col += len(ins)
		b.want = b.col
		return
	}

	newLines := make([][]rune, 0, len(parts))
	newLines = append(newLines, append(head, []rune(parts[0])...))
	for _, p := range parts[1 : len(parts)-1] {
		newLines = append(newLines, []rune(p))
	}
	last := []rune(parts[len(parts)-1])
	newLines = append(newLines, append(append([]rune{}, last...), tail...))

	rest := append([][]rune{}, b.lines[b.row+1:]...)
	b.lines = append(append(b.lines[:b.row], newLines...), rest...)
	b.row += len(parts) - 1
	b.col = len(last)
	b.want = b.col
}

func (b *Buffer) backspace() {
	if b.col > 0 {
		line := b.lines[b.row]
		b.lines[b.row] = append(line[:b.col-1:b.col-1], line[b.col:]...)
		b.col--
	} else if b.row > 0 {
		prev := b.lines[b.row-1]
		b.col = len(prev)
		b.lines[b.row-1] = append(append([]rune{}, prev...), b.lines[b.row]...)
		b.lines = append(b.lines[:b.row], b.lines[b.row+1:]...)
		b.row--
	}
	b.want = b.col
}

func (b *Buffer) deleteForward() {
	line := b.lines[b.row]
	if b.col < len(line) {
		b.lines[b.row] = append(line[:b.col:b.col], line[b.col+1:]...)
	} else if b.row < len(b.lines)-1 {
		b.lines[b.row] = append(append([]rune{}, line...), b.lines[b.row+1]...)
		b.lines = append(b.lines[:b.row+1], b.lines[b.row+2:]...)
	}
	b.want = b.col
}

func (b *Buffer) left() {
	if b.col > 0 {
		b.col--
	} else if b.row > 0 {
		b.row--
		b.col = len(b.lines[b.row])
	}
}

func (b *Buffer) right() {
	if b.col < len(b.lines[b.row]) {
		b.col++
	} else if b.row < len(b.lines)-1 {
		b.row++
		b.col = 0
	}
}

func (b *Buffer) vertical(delta int) {
	b.row = clamp(b.row+delta, 0, len(b.lines)-1)
	b.col = clamp(b.want, 0, len(b.lines[b.row]))
}

// home jumps to the first non-blank rune, or to column 0 when already there.
func (b *Buffer) home() {
	indent := 0
	for _, r := range b.lines[b.row] {
		if !unicode.IsSpace(r) {
			break
		}
		indent++
	}
	if b.col == indent {
		indent = 0
	}
	b.col = indent
	b.want = b.col
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
