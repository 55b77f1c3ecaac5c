package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/LFroesch/teditor/internal/editor"
	"github.com/LFroesch/teditor/internal/highlight"
	"github.com/LFroesch/teditor/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Background(lipgloss.Color("235"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("57")).
			Foreground(lipgloss.Color("230"))

	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Background(lipgloss.Color("240")).Bold(true)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("105")).Bold(true)
	gutterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	gutterCurrent = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

func (m *model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var mainContent string
	switch m.mode {
	case modeEdit:
		mainContent = m.renderEditor()
	default:
		mainContent = m.renderSearch()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		mainContent,
		m.renderStatusBar(),
	)
}

func (m *model) renderHeader() string {
	width := m.getSafeWidth()

	title := fmt.Sprintf("📝 teditor - %s", m.root)
	if m.mode == modeEdit && m.session.IsOpen() {
		title = fmt.Sprintf("📝 %s", m.relPath(m.session.Path()))
		if m.session.Dirty() {
			title += " [+]"
		}
	}

	right := m.mode.String()
	if m.gitBranch != "" {
		right = fmt.Sprintf(" %s | %s", m.gitBranch, right)
	}

	titleWidth := width - lipgloss.Width(right) - 3
	if titleWidth < 10 {
		titleWidth = 10
	}
	title = ansi.Truncate(title, titleWidth, "…")
	pad := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	line := " " + title + strings.Repeat(" ", pad) + right + " "
	return headerStyle.Render(ansi.Truncate(line, width, ""))
}

// Search screen

func (m *model) renderSearch() string {
	width := m.getSafeWidth()
	var rows []string

	query := m.queryInput.View()
	if m.indexing {
		query += dimStyle.Render("  Indexing...")
	}
	rows = append(rows, ansi.Truncate(query, width, ""))

	if m.prompt {
		base := "./"
		if m.createBase != "" {
			base = m.createBase + "/"
		}
		line := promptStyle.Render("New in "+base+": ") + m.createInput.View()
		rows = append(rows, ansi.Truncate(line, width, ""))
	}

	height := m.listHeight()
	matches := m.engine.Matches()
	if len(matches) == 0 {
		msg := "Empty directory"
		if m.engine.Query() != "" {
			msg = "No matches"
		} else if m.indexing {
			msg = ""
		}
		rows = append(rows, dimStyle.Render("  "+msg))
	}

	end := m.scrollOffset + height
	if end > len(matches) {
		end = len(matches)
	}
	for i := m.scrollOffset; i < end; i++ {
		rows = append(rows, m.renderMatch(i, width))
	}

	// Query line, prompt and list fill everything between header and status bar
	return lipgloss.NewStyle().Height(m.getSafeHeight() - editOverhead).Render(strings.Join(rows, "\n"))
}

func (m *model) renderMatch(i, width int) string {
	match := m.engine.Matches()[i]
	entry := match.Entry
	icon := utils.GetFileIcon(entry.Name, entry.IsDir())

	var left string
	if m.engine.Query() == "" {
		// Tree listing
		arrow := "  "
		if entry.IsDir() {
			arrow = "▸ "
			if m.walker.IsExpanded(entry.RelPath) {
				arrow = "▾ "
			}
		}
		name := entry.Name
		if entry.Hidden {
			name = dimStyle.Render(name)
		}
		left = strings.Repeat("  ", entry.Depth) + arrow + icon + " " + name
	} else {
		left = icon + " " + utils.HighlightMatches(entry.RelPath, match.Positions, lipgloss.NewStyle(), matchStyle)
	}
	if entry.IsDir() {
		left += "/"
	}
	if m.gitModified[entry.RelPath] {
		left += " " + modifiedStyle.Render("[M]")
	}

	sizeStr := ""
	if !entry.IsDir() {
		sizeStr = utils.FormatFileSizeColored(entry.Size)
	}

	totalWidth := width - 2
	maxLeft := totalWidth - lipgloss.Width(sizeStr) - 1
	if maxLeft < 10 {
		maxLeft = 10
	}
	left = ansi.Truncate(left, maxLeft, "…")
	padding := totalWidth - lipgloss.Width(left) - lipgloss.Width(sizeStr)
	if padding < 1 {
		padding = 1
	}
	line := " " + left + strings.Repeat(" ", padding) + sizeStr + " "

	if i == m.engine.Selected() {
		return selectedStyle.Render(line)
	}
	return normalStyle.Render(line)
}

// Edit screen

type cell struct {
	text   string
	width  int
	span   int // index into the line's spans, -1 for padding
	cursor bool
	ctrl   bool // caret form of a control rune
}

func (m *model) renderEditor() string {
	buf := m.session.Buffer()
	height := m.editorHeight()
	if buf == nil {
		return lipgloss.NewStyle().Height(height).Render("")
	}

	width := m.getSafeWidth()
	textWidth := width - gutterWidth
	lines := m.highlighter.Lines(strings.Join(buf.Lines(), "\n"), buf.Path())
	row, col := buf.Cursor()

	var out []string
	for r := m.editTop; r < m.editTop+height; r++ {
		if r >= buf.LineCount() {
			out = append(out, gutterStyle.Render(fmt.Sprintf("%*s ", gutterWidth-1, "~")))
			continue
		}

		gutter := gutterStyle
		if r == row {
			gutter = gutterCurrent
		}
		num := gutter.Render(fmt.Sprintf("%*d ", gutterWidth-1, r+1))

		var spans []highlight.Span
		if r < len(lines) {
			spans = lines[r]
		}
		cursor := -1
		if r == row {
			cursor = col
		}
		out = append(out, num+m.renderLine(spans, cursor, textWidth))
	}
	return strings.Join(out, "\n")
}

// renderLine draws one buffer line scrolled by editLeft and clipped to
// width. cursor is the rune index of the cursor, or -1.
func (m *model) renderLine(spans []highlight.Span, cursor, width int) string {
	tabWidth := m.config.TabWidth

	var cells []cell
	x, idx := 0, 0
	for si, span := range spans {
		for _, r := range span.Text {
			isCursor := idx == cursor
			if r == '\t' {
				n := tabAdvance(x, tabWidth)
				for k := 0; k < n; k++ {
					cells = append(cells, cell{text: " ", width: 1, span: si, cursor: isCursor && k == 0})
				}
				x += n
			} else if glyph, ok := controlGlyph(r); ok {
				for k, g := range glyph {
					cells = append(cells, cell{text: string(g), width: 1, span: si, cursor: isCursor && k == 0, ctrl: true})
				}
				x += len(glyph)
			} else {
				w := runewidth.RuneWidth(r)
				cells = append(cells, cell{text: string(r), width: w, span: si, cursor: isCursor})
				x += w
			}
			idx++
		}
	}
	if cursor >= idx {
		cells = append(cells, cell{text: " ", width: 1, span: -1, cursor: true})
	}

	// Clip to [editLeft, editLeft+width)
	var visible []cell
	pos := 0
	for _, c := range cells {
		start, end := pos, pos+c.width
		pos = end
		if end <= m.editLeft {
			continue
		}
		if start >= m.editLeft+width {
			break
		}
		if start < m.editLeft || end > m.editLeft+width {
			// Wide rune cut by an edge
			c = cell{text: " ", width: 1, span: -1, cursor: c.cursor}
		}
		visible = append(visible, c)
	}

	var b strings.Builder
	for i := 0; i < len(visible); {
		j := i + 1
		for j < len(visible) && visible[j].span == visible[i].span &&
			visible[j].cursor == visible[i].cursor && visible[j].ctrl == visible[i].ctrl {
			j++
		}
		var text strings.Builder
		for _, c := range visible[i:j] {
			text.WriteString(c.text)
		}

		style := lipgloss.NewStyle()
		if s := visible[i].span; s >= 0 {
			style = spans[s].Style
		}
		if visible[i].ctrl {
			style = dimStyle
		}
		if visible[i].cursor {
			style = style.Reverse(true)
		}
		b.WriteString(style.Render(text.String()))
		i = j
	}
	return b.String()
}

func (m *model) renderStatusBar() string {
	width := m.getSafeWidth()

	var statusText string
	var help []key.Binding
	switch m.mode {
	case modeEdit:
		statusText = m.describeOpen()
		if buf := m.session.Buffer(); buf != nil && buf.CRLF() {
			statusText += " | CRLF"
		}
		statusText += " | " + m.highlighter.StyleName()
		switch m.session.DiskStatus() {
		case editor.DiskChanged:
			statusText += " | " + modifiedStyle.Render("changed on disk")
		case editor.DiskRemoved:
			statusText += " | " + modifiedStyle.Render("deleted on disk")
		}
		help = []key.Binding{keys.Save, keys.Reload, keys.Exit, keys.Discard}
	default:
		if n := m.engine.Len(); n > 0 {
			statusText = fmt.Sprintf("%d/%d", m.engine.Selected()+1, n)
		} else {
			statusText = "0/0"
		}
		if m.walker.ShowHidden() {
			statusText += " | hidden shown"
		}
		if m.prompt {
			help = []key.Binding{keys.Activate, keys.Cancel}
		} else {
			help = []key.Binding{keys.Activate, keys.Create, keys.ToggleHidden, keys.CopyPath, keys.Quit}
		}
	}

	if m.statusMsg != "" {
		if m.statusErr {
			statusText += " | " + errorStyle.Render(m.statusMsg)
		} else {
			statusText += " | " + m.statusMsg
		}
	}

	var hints []string
	for _, b := range help {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	rightSide := strings.Join(hints, " | ")

	totalWidth := width - 2 // Account for padding
	padding := totalWidth - lipgloss.Width(statusText) - lipgloss.Width(rightSide)
	if padding < 1 {
		// Drop the hints before the status message
		rightSide = ""
		padding = totalWidth - lipgloss.Width(statusText)
		if padding < 0 {
			padding = 0
		}
	}
	line := " " + statusText + strings.Repeat(" ", padding) + rightSide + " "
	return statusStyle.Render(ansi.Truncate(line, width, "…"))
}
