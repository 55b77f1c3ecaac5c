package main

import (
	"errors"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LFroesch/teditor/internal/editor"
	"github.com/LFroesch/teditor/internal/fileops"
	"github.com/LFroesch/teditor/internal/git"
	"github.com/LFroesch/teditor/internal/logger"
	"github.com/LFroesch/teditor/internal/tree"
)

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("teditor - "+filepath.Base(m.root)),
		m.scanTree(),
		m.loadGitStatus(),
		m.waitForFileChange(),
		m.waitForTreeChange(),
		textinput.Blink,
	)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Clear expired status messages
	if m.statusMsg != "" && time.Now().After(m.statusExpiry) {
		m.statusMsg = ""
		m.statusErr = false
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width == m.width && msg.Height == m.height {
			return m, nil
		}
		m.width = msg.Width
		m.height = msg.Height
		if m.width < minTerminalWidth {
			m.width = minTerminalWidth
		}
		if m.height < minTerminalHeight {
			m.height = minTerminalHeight
		}
		m.queryInput.Width = m.width - 10
		m.createInput.Width = m.width - 20
		m.ensureSelectionVisible()
		m.ensureCursorVisible()
		return m, nil

	case treeScannedMsg:
		m.indexing = false
		m.engine.Install(msg.entries)
		if msg.err != nil {
			m.reportWalkError(msg.err)
		} else if m.statusMsg == "Indexing..." {
			m.statusMsg = ""
		}
		if m.treeStale && m.mode == modeSearch && !m.prompt {
			m.refreshTree()
		}
		if m.pendingReveal != "" {
			m.engine.Reveal(m.pendingReveal)
			m.pendingReveal = ""
		}
		m.ensureSelectionVisible()
		return m, nil

	case gitStatusMsg:
		m.gitModified = msg.modified
		m.gitBranch = msg.branch
		return m, nil

	case fileChangedMsg:
		m.handleFileChange(msg)
		return m, m.waitForFileChange()

	case treeChangedMsg:
		if m.mode == modeSearch && !m.prompt && !m.indexing {
			m.refreshTree()
		} else {
			m.treeStale = true
		}
		return m, tea.Batch(m.waitForTreeChange(), m.loadGitStatus())

	case externalOpenMsg:
		m.handleExternalOpen(msg)
		return m, nil

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		if m.prompt {
			return m.handlePromptKey(msg)
		}
		switch m.mode {
		case modeEdit:
			return m.handleEditKey(msg)
		default:
			return m.handleSearchKey(msg)
		}
	}

	// Cursor blink and other widget messages
	var cmd tea.Cmd
	if m.prompt {
		m.createInput, cmd = m.createInput.Update(msg)
	} else if m.mode == modeSearch {
		m.queryInput, cmd = m.queryInput.Update(msg)
	}
	return m, cmd
}

func (m *model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, m.quit()
	case key.Matches(msg, keys.Activate):
		return m, m.activate()
	case key.Matches(msg, keys.Create):
		return m, m.startCreate()
	case key.Matches(msg, keys.ToggleHidden):
		m.toggleHidden()
	case key.Matches(msg, keys.Up):
		m.engine.MoveSelection(-1)
	case key.Matches(msg, keys.Down):
		m.engine.MoveSelection(1)
	case key.Matches(msg, keys.PageUp):
		m.engine.MoveSelection(-m.listHeight())
	case key.Matches(msg, keys.PageDown):
		m.engine.MoveSelection(m.listHeight())
	case key.Matches(msg, keys.CopyPath):
		if sel, ok := m.engine.SelectedMatch(); ok {
			m.copyPath(sel.Entry.Path)
		}
	case key.Matches(msg, keys.OpenSystem):
		if sel, ok := m.engine.SelectedMatch(); ok {
			return m, m.openExternal(sel.Entry.Path)
		}
	default:
		var cmd tea.Cmd
		prev := m.queryInput.Value()
		m.queryInput, cmd = m.queryInput.Update(msg)
		if q := m.queryInput.Value(); q != prev {
			m.engine.SetQuery(q)
			m.scrollOffset = 0
		}
		m.ensureSelectionVisible()
		return m, cmd
	}
	m.ensureSelectionVisible()
	return m, nil
}

func (m *model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.cancelCreate()
		return m, nil
	case key.Matches(msg, keys.Activate):
		m.applyCreate()
		return m, nil
	}
	var cmd tea.Cmd
	m.createInput, cmd = m.createInput.Update(msg)
	return m, cmd
}

func (m *model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Save):
		if m.explicitSave() {
			return m, m.loadGitStatus()
		}
		return m, nil
	case key.Matches(msg, keys.Reload):
		m.explicitReload()
		return m, nil
	case key.Matches(msg, keys.Exit):
		return m, m.exitToSearch()
	case key.Matches(msg, keys.Discard):
		return m, m.discardQuit()
	}

	if op, ok := editOpForKey(msg, m.editorHeight()); ok {
		m.overwriteArmed = false
		m.session.Apply(op)
		m.ensureCursorVisible()
	}
	return m, nil
}

// Search transitions

// activate opens the selected file or toggles the selected directory.
func (m *model) activate() tea.Cmd {
	entry, ok := m.engine.Activate()
	if !ok {
		return nil
	}
	if entry.IsDir() {
		if m.indexing {
			m.setStatus("Indexing...")
			return nil
		}
		if err := m.engine.Expand(entry.RelPath); err != nil {
			m.reportWalkError(err)
		}
		m.ensureSelectionVisible()
		return nil
	}
	if m.openFile(entry.Path) {
		return tea.SetWindowTitle("teditor - " + entry.Name)
	}
	return nil
}

// openFile asks the session to load path and enters Edit on success. On
// failure the mode is unchanged and the error is shown.
func (m *model) openFile(path string) bool {
	if err := m.session.Open(path); err != nil {
		m.setError("%v", fileops.FormatError(err, path, "Open"))
		return false
	}

	m.mode = modeEdit
	m.editTop, m.editLeft = 0, 0
	m.overwriteArmed = false
	m.queryInput.Blur()
	if err := m.session.WatchErr(); err != nil {
		m.setError("Not watching %s for changes: %v", filepath.Base(path), err)
	} else {
		m.setStatus("Opened %s", m.relPath(m.session.Path()))
	}
	return true
}

func (m *model) quit() tea.Cmd {
	m.shutdown()
	return tea.Quit
}

func (m *model) startCreate() tea.Cmd {
	if m.indexing {
		m.setStatus("Indexing...")
		return nil
	}
	m.prompt = true
	m.createBase = m.selectedDir()
	m.createInput.Reset()
	m.queryInput.Blur()
	m.ensureSelectionVisible()
	return m.createInput.Focus()
}

func (m *model) cancelCreate() {
	m.prompt = false
	m.createInput.Blur()
	m.createInput.Reset()
	m.queryInput.Focus()
	if m.treeStale {
		m.refreshTree()
	}
}

// applyCreate creates what the prompt names. On failure the prompt stays
// open with the input intact.
func (m *model) applyCreate() {
	rel, kind, err := tree.ResolveCreatePath(m.createBase, m.createInput.Value())
	if err != nil {
		m.setError("Create: %v", err)
		return
	}

	entry, err := m.walker.Create(rel, kind)
	if err != nil {
		m.setError("%v", fileops.FormatError(err, rel, "Create"))
		return
	}

	m.treeStale = false
	m.prompt = false
	m.createInput.Blur()
	m.createInput.Reset()
	m.queryInput.Focus()
	m.engine.Reveal(entry.RelPath)
	m.ensureSelectionVisible()

	if entry.Hidden {
		m.setStatus("Created %s: %s (hidden)", kind, entry.RelPath)
	} else {
		m.setStatus("Created %s: %s", kind, entry.RelPath)
	}
}

// selectedDir is the directory new entries go into: the selected directory,
// or the parent of the selected file.
func (m *model) selectedDir() string {
	sel, ok := m.engine.SelectedMatch()
	if !ok {
		return ""
	}
	if sel.Entry.IsDir() {
		return sel.Entry.RelPath
	}
	if dir := path.Dir(sel.Entry.RelPath); dir != "." {
		return dir
	}
	return ""
}

func (m *model) toggleHidden() {
	if m.indexing {
		m.setStatus("Indexing...")
		return
	}
	err := m.engine.ToggleHidden()
	state := "HIDDEN"
	if m.walker.ShowHidden() {
		state = "SHOWN"
	}
	if err != nil {
		m.reportWalkError(err)
		return
	}
	m.setStatus("Hidden files: %s", state)
}

func (m *model) refreshTree() {
	m.treeStale = false
	if err := m.engine.Refresh(); err != nil {
		m.reportWalkError(err)
	}
	m.ensureSelectionVisible()
}

func (m *model) reportWalkError(err error) {
	var pe *tree.PartialError
	if errors.As(err, &pe) {
		if len(pe.Paths) == 1 {
			m.setError("Could not read %s", pe.Paths[0])
		} else {
			m.setError("Could not read %d folders", len(pe.Paths))
		}
		return
	}
	m.setError("Listing failed: %v", err)
}

// Edit transitions

// explicitSave writes the buffer. A file changed on disk needs a second
// Ctrl+S before it is overwritten.
func (m *model) explicitSave() bool {
	if m.session.ExternallyChanged() && !m.overwriteArmed {
		m.armOverwrite("Ctrl+S", false)
		return false
	}
	return m.save()
}

func (m *model) save() bool {
	path := m.session.Path()
	if err := m.session.Save(); err != nil {
		m.setError("%v", fileops.FormatError(err, path, "Save"))
		return false
	}
	m.overwriteArmed = false
	m.setStatus("Saved %s", m.relPath(path))
	return true
}

// armOverwrite makes the next save write over the disk state. On exit the
// notice also names Ctrl+Q since leaving without saving is the other way out.
func (m *model) armOverwrite(again string, exiting bool) {
	m.overwriteArmed = true
	discard := ""
	if exiting {
		discard = ", Ctrl+Q to discard"
	}
	if m.session.DiskStatus() == editor.DiskRemoved {
		m.setError("File deleted on disk: press %s again to write it back%s", again, discard)
		return
	}
	m.setError("Changed on disk: press %s again to overwrite, Ctrl+R to reload%s", again, discard)
}

func (m *model) explicitReload() {
	m.overwriteArmed = false
	path := m.session.Path()
	if err := m.session.Reload(); err != nil {
		m.setError("%v", fileops.FormatError(err, path, "Reload"))
		return
	}
	m.ensureCursorVisible()
	m.setStatus("File reloaded")
}

// exitToSearch saves a dirty buffer and goes back to Search. When the save
// fails Edit stays active so nothing is lost.
func (m *model) exitToSearch() tea.Cmd {
	if !m.session.Dirty() {
		return m.closeToSearch()
	}
	if m.session.ExternallyChanged() && !m.overwriteArmed {
		m.armOverwrite("Esc", true)
		return nil
	}
	if !m.save() {
		return nil
	}
	return tea.Batch(m.closeToSearch(), m.loadGitStatus())
}

// discardQuit drops the buffer without saving, dirty or not.
func (m *model) discardQuit() tea.Cmd {
	dirty := m.session.Dirty()
	cmd := m.closeToSearch()
	if dirty {
		m.setStatus("Changes discarded")
	}
	return cmd
}

func (m *model) closeToSearch() tea.Cmd {
	m.session.Close()
	m.mode = modeSearch
	m.overwriteArmed = false
	if m.treeStale && !m.indexing {
		m.refreshTree()
	}
	m.ensureSelectionVisible()
	return tea.Batch(
		m.queryInput.Focus(),
		tea.SetWindowTitle("teditor - "+filepath.Base(m.root)),
	)
}

func (m *model) handleFileChange(ev fileChangedMsg) {
	if !m.session.OnExternalChange(ev.Path) {
		return
	}
	logger.Info("External change to %s (removed=%v)", ev.Path, ev.Removed)
	switch {
	case m.session.DiskStatus() == editor.DiskRemoved:
		m.setError("File deleted on disk")
	case m.session.Dirty():
		m.setError("External change detected (unsaved edits)")
	default:
		m.setError("File changed on disk: Ctrl+R to reload")
	}
}

// Mouse

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionPress {
		return nil
	}

	wheel := 0
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		wheel = -wheelStep
	case tea.MouseButtonWheelDown:
		wheel = wheelStep
	}

	if m.mode == modeEdit {
		if !m.session.IsOpen() {
			return nil
		}
		switch {
		case wheel < 0:
			m.session.Apply(editor.Op{Kind: editor.OpUp, N: -wheel})
		case wheel > 0:
			m.session.Apply(editor.Op{Kind: editor.OpDown, N: wheel})
		case msg.Button == tea.MouseButtonLeft:
			row := m.editTop + msg.Y - 1
			buf := m.session.Buffer()
			if row < 0 || row >= buf.LineCount() {
				return nil
			}
			col := columnForDisplay(buf.Line(row), msg.X-gutterWidth+m.editLeft, m.config.TabWidth)
			buf.SetCursor(row, col)
		}
		m.ensureCursorVisible()
		return nil
	}

	if m.prompt {
		return nil
	}
	if wheel != 0 {
		m.engine.MoveSelection(wheel)
		m.ensureSelectionVisible()
		return nil
	}
	if msg.Button == tea.MouseButtonLeft {
		// Header and query line sit above the list
		row := msg.Y - 2
		idx := m.scrollOffset + row
		if row < 0 || row >= m.listHeight() || idx >= m.engine.Len() {
			return nil
		}
		m.engine.Select(idx)
		return m.activate()
	}
	return nil
}

// Scrolling

func (m *model) ensureSelectionVisible() {
	visible := m.listHeight()
	sel := m.engine.Selected()
	if sel < m.scrollOffset {
		m.scrollOffset = sel
	}
	if sel >= m.scrollOffset+visible {
		m.scrollOffset = sel - visible + 1
	}
	maxScroll := m.engine.Len() - visible
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scrollOffset > maxScroll {
		m.scrollOffset = maxScroll
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *model) ensureCursorVisible() {
	if !m.session.IsOpen() {
		return
	}
	buf := m.session.Buffer()
	row, col := buf.Cursor()

	visible := m.editorHeight()
	if row < m.editTop {
		m.editTop = row
	}
	if row >= m.editTop+visible {
		m.editTop = row - visible + 1
	}

	textWidth := m.getSafeWidth() - gutterWidth
	x := displayColumn(buf.Line(row), col, m.config.TabWidth)
	if x < m.editLeft {
		m.editLeft = x
	}
	if x >= m.editLeft+textWidth {
		m.editLeft = x - textWidth + 1
	}
}

// Commands

func (m *model) scanTree() tea.Cmd {
	w := m.walker
	return func() tea.Msg {
		entries, err := w.Scan()
		return treeScannedMsg{entries: entries, err: err}
	}
}

func (m *model) loadGitStatus() tea.Cmd {
	root := m.root
	return func() tea.Msg {
		return gitStatusMsg{
			modified: git.GetModifiedFiles(root),
			branch:   git.GetBranch(root),
		}
	}
}

// waitForFileChange blocks on the file watcher and re-arms after each event.
func (m *model) waitForFileChange() tea.Cmd {
	if m.fileWatcher == nil {
		return nil
	}
	ch := m.fileWatcher.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return fileChangedMsg(ev)
	}
}

func (m *model) waitForTreeChange() tea.Cmd {
	if m.treeWatcher == nil {
		return nil
	}
	ch := m.treeWatcher.Events()
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return treeChangedMsg{}
	}
}
