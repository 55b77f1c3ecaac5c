// Package ignore evaluates gitignore rules for paths under a root directory.
package ignore

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/LFroesch/teditor/internal/logger"
)

type rule struct {
	globs    []glob.Glob
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
}

// Matcher answers IsIgnored for slash-separated paths relative to root.
// .gitignore files are read lazily, once per directory, through Load.
type Matcher struct {
	root string

	mu     sync.Mutex
	global []rule            // extra patterns and .git/info/exclude, lowest precedence
	rules  map[string][]rule // keyed by the relative directory of the .gitignore
	loaded map[string]bool
}

// New builds a matcher for root. extra patterns behave like lines of a
// .gitignore at the root with lower precedence than any real .gitignore.
func New(root string, extra []string) *Matcher {
	m := &Matcher{
		root:   root,
		rules:  make(map[string][]rule),
		loaded: make(map[string]bool),
	}
	for _, line := range extra {
		if r, ok := parseLine(line); ok {
			m.global = append(m.global, r)
		}
	}
	m.global = append(m.global, readRules(filepath.Join(root, ".git", "info", "exclude"))...)
	m.Load("")
	return m
}

// Load reads the .gitignore in the relative directory dir if it has not been
// read yet. The walker calls it before listing each directory.
func (m *Matcher) Load(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked(dir)
}

func (m *Matcher) loadLocked(dir string) {
	if m.loaded[dir] {
		return
	}
	m.loaded[dir] = true
	rules := readRules(filepath.Join(m.root, filepath.FromSlash(dir), ".gitignore"))
	if len(rules) > 0 {
		m.rules[dir] = rules
	}
}

// Reset forgets every loaded .gitignore so the next Load re-reads them.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make(map[string][]rule)
	m.loaded = make(map[string]bool)
	m.loadLocked("")
}

// IsIgnored reports whether rel is excluded by the loaded rules. A path
// inside an ignored directory is ignored as well.
func (m *Matcher) IsIgnored(rel string, isDir bool) bool {
	rel = strings.Trim(path.Clean("/"+rel), "/")
	if rel == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchLocked(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.matchLocked(rel, isDir)
}

// matchLocked evaluates rules for a single path; the last matching rule wins
// and deeper .gitignore files take precedence over shallower ones.
func (m *Matcher) matchLocked(rel string, isDir bool) bool {
	ignored := false
	apply := func(rules []rule, base string) {
		sub := rel
		if base != "" {
			sub = strings.TrimPrefix(rel, base+"/")
		}
		name := path.Base(rel)
		for _, r := range rules {
			if r.dirOnly && !isDir {
				continue
			}
			target := name
			if r.anchored {
				target = sub
			}
			if r.match(target) {
				ignored = !r.negate
			}
		}
	}

	apply(m.global, "")

	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	bases := []string{""}
	if dir != "" {
		parts := strings.Split(dir, "/")
		for i := range parts {
			bases = append(bases, strings.Join(parts[:i+1], "/"))
		}
	}
	for _, base := range bases {
		m.loadLocked(base)
		if rules, ok := m.rules[base]; ok {
			apply(rules, base)
		}
	}
	return ignored
}

func readRules(file string) []rule {
	f, err := os.Open(file)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read ignore file %s: %v", file, err)
		}
		return nil
	}
	defer f.Close()

	var rules []rule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if r, ok := parseLine(scanner.Text()); ok {
			rules = append(rules, r)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Failed to read ignore file %s: %v", file, err)
	}
	return rules
}

// parseLine turns one gitignore line into a rule.
func parseLine(line string) (rule, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.HasSuffix(line, `\ `) {
		line = strings.TrimRight(line[:len(line)-2], " ") + `\ `
	} else {
		line = strings.TrimRight(line, " ")
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	r := rule{raw: line}
	switch {
	case strings.HasPrefix(line, "!"):
		r.negate = true
		line = line[1:]
	case strings.HasPrefix(line, `\!`), strings.HasPrefix(line, `\#`):
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.Contains(line, "/") {
		r.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if line == "" {
		return rule{}, false
	}

	for _, alt := range expand(line) {
		g, err := glob.Compile(alt, '/')
		if err != nil {
			logger.Warn("Invalid ignore pattern %q: %v", r.raw, err)
			return rule{}, false
		}
		r.globs = append(r.globs, g)
	}
	return r, true
}

func (r rule) match(target string) bool {
	for _, g := range r.globs {
		if g.Match(target) {
			return true
		}
	}
	return false
}

// expand rewrites the gitignore "**" forms that may match zero directories
// into separate gobwas/glob patterns. Braces are literal in gitignore.
func expand(pattern string) []string {
	pattern = strings.NewReplacer("{", `\{`, "}", `\}`).Replace(pattern)
	return expandStars(pattern)
}

func expandStars(pattern string) []string {
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		var out []string
		for _, t := range expandStars(rest) {
			out = append(out, t, "**/"+t)
		}
		return out
	}
	head, tail, ok := strings.Cut(pattern, "/**/")
	if !ok {
		return []string{pattern}
	}
	var out []string
	for _, t := range expandStars(tail) {
		out = append(out, head+"/"+t, head+"/**/"+t)
	}
	return out
}
