// Package search filters and ranks the tree listing against a query and
// tracks the selected row.
package search

import (
	"path"
	"sort"

	"github.com/LFroesch/teditor/internal/tree"
)

// Match is an entry scored against the current query.
// Positions index runes of Entry.RelPath.
type Match struct {
	Entry     tree.Entry
	Score     int
	Positions []int
}

// Engine owns the query, the ranked matches and the selection. The selection
// is -1 exactly when there are no matches.
type Engine struct {
	walker   *tree.Walker
	ranker   Ranker
	query    string
	matches  []Match
	selected int
}

// NewEngine builds an engine over w's current listing.
func NewEngine(w *tree.Walker, r Ranker) *Engine {
	if r == nil {
		r = FuzzyRanker{}
	}
	e := &Engine{walker: w, ranker: r, selected: -1}
	e.refilter()
	e.restore("", 0)
	return e
}

// Walker returns the underlying tree walker.
func (e *Engine) Walker() *tree.Walker { return e.walker }

// SetQuery re-ranks the listing. Changing the text moves the selection to
// the first match; setting the same text again changes nothing.
func (e *Engine) SetQuery(q string) {
	if q == e.query {
		e.refilterKeep()
		return
	}
	e.query = q
	e.refilter()
	e.restore("", 0)
}

// Query returns the current query text.
func (e *Engine) Query() string { return e.query }

// Matches returns the current ranked sequence.
func (e *Engine) Matches() []Match { return e.matches }

// Len returns the number of matches.
func (e *Engine) Len() int { return len(e.matches) }

// Selected returns the selected index, or -1 when there are no matches.
func (e *Engine) Selected() int { return e.selected }

// SelectedMatch returns the selected match.
func (e *Engine) SelectedMatch() (Match, bool) {
	if e.selected < 0 || e.selected >= len(e.matches) {
		return Match{}, false
	}
	return e.matches[e.selected], true
}

// MoveSelection moves the selection by delta, clamped to the match list.
func (e *Engine) MoveSelection(delta int) {
	if len(e.matches) == 0 {
		e.selected = -1
		return
	}
	e.Select(e.selected + delta)
}

// Select moves the selection to i, clamped to the match list.
func (e *Engine) Select(i int) {
	if len(e.matches) == 0 {
		e.selected = -1
		return
	}
	e.selected = clamp(i, 0, len(e.matches)-1)
}

// Activate returns the selected entry.
func (e *Engine) Activate() (tree.Entry, bool) {
	m, ok := e.SelectedMatch()
	return m.Entry, ok
}

// ToggleHidden flips the hidden-file filter and re-walks the tree.
func (e *Engine) ToggleHidden() error {
	e.walker.SetShowHidden(!e.walker.ShowHidden())
	return e.Refresh()
}

// Expand toggles a directory, re-walks the tree and re-filters with the same
// query. The selection stays on the same path when it is still listed.
func (e *Engine) Expand(rel string) error {
	if ent, ok := e.walker.Lookup(rel); !ok || !ent.IsDir() {
		return nil
	}
	e.walker.Toggle(rel)
	return e.Refresh()
}

// Refresh re-walks the tree and re-filters, keeping the selection by path.
// A partial listing is still applied and its error returned.
func (e *Engine) Refresh() error {
	err := e.walker.Refresh()
	e.refilterKeep()
	return err
}

// Install applies a listing produced by Walker.Scan off the main loop.
func (e *Engine) Install(entries []tree.Entry) {
	e.walker.Install(entries)
	e.refilterKeep()
}

// Reveal expands the ancestors of rel and selects it if it is listed.
func (e *Engine) Reveal(rel string) {
	e.walker.Reveal(rel)
	e.refilterKeep()
	if i := e.indexOf(rel); i >= 0 {
		e.selected = i
	}
}

func (e *Engine) refilterKeep() {
	prev, idx := "", e.selected
	if m, ok := e.SelectedMatch(); ok {
		prev = m.Entry.RelPath
	}
	e.refilter()
	e.restore(prev, idx)
}

func (e *Engine) refilter() {
	if e.query == "" {
		visible := e.walker.Visible()
		e.matches = make([]Match, len(visible))
		for i, ent := range visible {
			e.matches[i] = Match{Entry: ent}
		}
		return
	}

	entries := e.walker.Entries()
	matches := make([]Match, 0, len(entries))
	for _, ent := range entries {
		score, positions, ok := e.ranker.Score(e.query, ent.RelPath)
		if !ok {
			continue
		}
		matches = append(matches, Match{Entry: ent, Score: score, Positions: positions})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	e.matches = matches
}

// restore puts the selection back on prev, or on its nearest listed
// ancestor, or clamps the old index.
func (e *Engine) restore(prev string, idx int) {
	if len(e.matches) == 0 {
		e.selected = -1
		return
	}
	for p := prev; p != "" && p != "." && p != "/"; p = path.Dir(p) {
		if i := e.indexOf(p); i >= 0 {
			e.selected = i
			return
		}
	}
	e.selected = clamp(idx, 0, len(e.matches)-1)
}

func (e *Engine) indexOf(rel string) int {
	for i, m := range e.matches {
		if m.Entry.RelPath == rel {
			return i
		}
	}
	return -1
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
