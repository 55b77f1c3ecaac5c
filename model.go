package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/LFroesch/teditor/internal/config"
	"github.com/LFroesch/teditor/internal/editor"
	"github.com/LFroesch/teditor/internal/highlight"
	"github.com/LFroesch/teditor/internal/logger"
	"github.com/LFroesch/teditor/internal/search"
	"github.com/LFroesch/teditor/internal/tree"
	"github.com/LFroesch/teditor/internal/watch"
)

type mode int

const (
	modeSearch mode = iota
	modeEdit
)

func (md mode) String() string {
	if md == modeEdit {
		return "EDIT"
	}
	return "SEARCH"
}

// Terminal size constants
const (
	minTerminalWidth  = 40
	minTerminalHeight = 8
	searchOverhead    = 3 // header + query line + status bar
	editOverhead      = 2 // header + status bar
	gutterWidth       = 6
	wheelStep         = 3
)

type keyMap struct {
	Quit         key.Binding
	Activate     key.Binding
	Create       key.Binding
	ToggleHidden key.Binding
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	CopyPath     key.Binding
	OpenSystem   key.Binding
	Save         key.Binding
	Reload       key.Binding
	Exit         key.Binding
	Discard      key.Binding
	Cancel       key.Binding
}

var keys = keyMap{
	Quit:         key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	Activate:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/expand")),
	Create:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("^n", "new")),
	ToggleHidden: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "hidden")),
	Up:           key.NewBinding(key.WithKeys("up")),
	Down:         key.NewBinding(key.WithKeys("down")),
	PageUp:       key.NewBinding(key.WithKeys("pgup")),
	PageDown:     key.NewBinding(key.WithKeys("pgdown")),
	CopyPath:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("^y", "copy path")),
	OpenSystem:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("^o", "open externally")),
	Save:         key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^s", "save")),
	Reload:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^r", "reload")),
	Exit:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "save & back")),
	Discard:      key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("^q", "discard")),
	Cancel:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

type model struct {
	mode        mode
	root        string
	config      *config.Config
	walker      *tree.Walker
	engine      *search.Engine
	session     *editor.Session
	highlighter *highlight.Highlighter
	fileWatcher *watch.FileWatcher
	treeWatcher *watch.TreeWatcher

	queryInput  textinput.Model
	createInput textinput.Model
	prompt      bool   // Create prompt open (Search only)
	createBase  string // Directory the create prompt resolves against

	overwriteArmed bool // Next save overwrites a file changed on disk
	indexing       bool // Initial scan still running
	treeStale      bool // Tree changed on disk while editing
	pendingReveal  string

	width        int
	height       int
	scrollOffset int // First visible row of the search list
	editTop      int // First visible buffer line
	editLeft     int // First visible display column

	gitModified map[string]bool
	gitBranch   string

	statusMsg    string
	statusErr    bool
	statusExpiry time.Time
}

// Messages

type treeScannedMsg struct {
	entries []tree.Entry
	err     error
}

type fileChangedMsg watch.Event

type treeChangedMsg struct{}

type gitStatusMsg struct {
	modified map[string]bool
	branch   string
}

// initialModel builds the controller for root. When openPath is set that
// file is opened in Edit mode straight away.
func initialModel(root string, cfg *config.Config, openPath string) model {
	if cfg == nil {
		cfg = config.Default()
	}

	walker := tree.NewWalker(root, tree.Options{
		ShowHidden:  cfg.ShowHidden,
		MaxEntries:  cfg.MaxEntries,
		ExtraIgnore: cfg.ExtraIgnore,
	})

	qi := textinput.New()
	qi.Placeholder = "Type to search..."
	qi.Prompt = "🔍 "
	qi.CharLimit = 256
	qi.Width = 50
	qi.Focus()

	ci := textinput.New()
	ci.Placeholder = "name, or name/ for a folder"
	ci.CharLimit = 256
	ci.Width = 50

	m := model{
		mode:        modeSearch,
		root:        root,
		config:      cfg,
		walker:      walker,
		engine:      search.NewEngine(walker, search.NewRanker(cfg.Matcher)),
		highlighter: highlight.New(cfg.Theme),
		queryInput:  qi,
		createInput: ci,
		indexing:    true,
		gitModified: map[string]bool{},
	}

	var watcher editor.Watcher
	if fw, err := watch.NewFileWatcher(cfg.WatchDebounce); err != nil {
		logger.Warn("File watcher unavailable: %v", err)
		m.setError("File watching unavailable: %v", err)
	} else {
		m.fileWatcher = fw
		watcher = fw
	}
	m.session = editor.NewSession(watcher, editor.Options{AtomicSave: cfg.AtomicSave})

	if tw, err := watch.NewTreeWatcher(root, walker.IsIgnored, cfg.WatchDebounce); err != nil {
		logger.Warn("Tree watcher unavailable for %s: %v", root, err)
	} else {
		m.treeWatcher = tw
	}

	if openPath != "" {
		m.openFile(openPath)
		if rel, err := filepath.Rel(root, m.session.Path()); err == nil && m.session.IsOpen() {
			m.pendingReveal = filepath.ToSlash(rel)
		}
	}
	if m.statusMsg == "" {
		m.setStatus("Indexing...")
	}
	return m
}

// shutdown releases the watchers. The session is never saved here.
func (m *model) shutdown() {
	if m.fileWatcher != nil {
		m.fileWatcher.Close()
	}
	if m.treeWatcher != nil {
		m.treeWatcher.Close()
	}
}

// Helper methods for safe dimensions
func (m *model) getSafeWidth() int {
	if m.width < minTerminalWidth {
		return minTerminalWidth
	}
	return m.width
}

func (m *model) getSafeHeight() int {
	if m.height < minTerminalHeight {
		return minTerminalHeight
	}
	return m.height
}

// listHeight returns the rows available to the search list
func (m *model) listHeight() int {
	h := m.getSafeHeight() - searchOverhead
	if m.prompt {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

// editorHeight returns the rows available to the buffer
func (m *model) editorHeight() int {
	h := m.getSafeHeight() - editOverhead
	if h < 1 {
		h = 1
	}
	return h
}

func (m *model) relPath(abs string) string {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func (m *model) describeOpen() string {
	if !m.session.IsOpen() {
		return ""
	}
	buf := m.session.Buffer()
	row, col := buf.Cursor()
	return fmt.Sprintf("Ln %d, Col %d", row+1, col+1)
}
