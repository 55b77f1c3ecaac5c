package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/skratchdot/open-golang/open"

	"github.com/LFroesch/teditor/internal/editor"
	"github.com/LFroesch/teditor/internal/logger"
)

// Helper functions

type externalOpenMsg struct {
	path string
	err  error
}

func (m *model) setStatus(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusErr = false
	m.statusExpiry = time.Now().Add(m.config.StatusDuration)
}

// setError shows a notice for longer than a plain status and logs it
func (m *model) setError(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusErr = true
	m.statusExpiry = time.Now().Add(2 * m.config.StatusDuration)
	logger.Warn("%s", m.statusMsg)
}

// openExternal hands path to the system's default application
func (m *model) openExternal(path string) tea.Cmd {
	return func() tea.Msg {
		return externalOpenMsg{path: path, err: open.Start(path)}
	}
}

func (m *model) copyPath(path string) {
	// Use clipboard library for cross-platform support
	if err := clipboard.WriteAll(path); err != nil {
		m.setError("Failed to copy: %v", err)
		return
	}
	m.setStatus("Copied: %s", path)
}

func (m *model) handleExternalOpen(msg externalOpenMsg) {
	if msg.err != nil {
		m.setError("Failed to open %s: %v", filepath.Base(msg.path), msg.err)
		return
	}
	m.setStatus("Opened %s externally", filepath.Base(msg.path))
}

// editOpForKey maps a key press in Edit mode to a buffer operation. page is
// the number of lines PgUp/PgDn move.
func editOpForKey(msg tea.KeyMsg, page int) (editor.Op, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) == 0 {
			return editor.Op{}, false
		}
		return editor.Op{Kind: editor.OpInsert, Text: string(msg.Runes)}, true
	case tea.KeySpace:
		return editor.Op{Kind: editor.OpInsert, Text: " "}, true
	case tea.KeyTab:
		return editor.Op{Kind: editor.OpInsert, Text: "\t"}, true
	case tea.KeyEnter:
		return editor.Op{Kind: editor.OpNewline}, true
	case tea.KeyBackspace:
		return editor.Op{Kind: editor.OpBackspace}, true
	case tea.KeyDelete:
		return editor.Op{Kind: editor.OpDelete}, true
	case tea.KeyLeft:
		return editor.Op{Kind: editor.OpLeft}, true
	case tea.KeyRight:
		return editor.Op{Kind: editor.OpRight}, true
	case tea.KeyUp:
		return editor.Op{Kind: editor.OpUp}, true
	case tea.KeyDown:
		return editor.Op{Kind: editor.OpDown}, true
	case tea.KeyHome:
		return editor.Op{Kind: editor.OpHome}, true
	case tea.KeyEnd:
		return editor.Op{Kind: editor.OpEnd}, true
	case tea.KeyPgUp:
		return editor.Op{Kind: editor.OpPageUp, N: page}, true
	case tea.KeyPgDown:
		return editor.Op{Kind: editor.OpPageDown, N: page}, true
	case tea.KeyCtrlHome:
		return editor.Op{Kind: editor.OpTop}, true
	case tea.KeyCtrlEnd:
		return editor.Op{Kind: editor.OpBottom}, true
	}
	return editor.Op{}, false
}

// tabAdvance returns the width of a tab starting at display column x
func tabAdvance(x, tabWidth int) int {
	if tabWidth < 1 {
		tabWidth = 1
	}
	return tabWidth - x%tabWidth
}

// controlGlyph returns the caret form drawn for a control rune so raw
// escape bytes never reach the terminal. Tab is not a control here.
func controlGlyph(r rune) (string, bool) {
	switch {
	case r == '\t':
		return "", false
	case r < 0x20:
		return "^" + string(r+'@'), true
	case r == 0x7f:
		return "^?", true
	case r >= 0x80 && r < 0xa0:
		return fmt.Sprintf("<%02x>", r), true
	}
	return "", false
}

// cellWidth is the number of screen columns r takes at display column x
func cellWidth(r rune, x, tabWidth int) int {
	if r == '\t' {
		return tabAdvance(x, tabWidth)
	}
	if glyph, ok := controlGlyph(r); ok {
		return len(glyph)
	}
	return runewidth.RuneWidth(r)
}

// displayColumn returns the screen column of rune index col in line
func displayColumn(line string, col, tabWidth int) int {
	x := 0
	i := 0
	for _, r := range line {
		if i >= col {
			break
		}
		x += cellWidth(r, x, tabWidth)
		i++
	}
	return x
}

// columnForDisplay is the inverse of displayColumn: the rune index under
// screen column target, clamped to the end of the line.
func columnForDisplay(line string, target, tabWidth int) int {
	if target <= 0 {
		return 0
	}
	x := 0
	i := 0
	for _, r := range line {
		w := cellWidth(r, x, tabWidth)
		if target < x+w {
			return i
		}
		x += w
		i++
	}
	return i
}
