package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LFroesch/teditor/internal/logger"
)

// Config holds all teditor settings. Nothing is persisted; every field comes
// from a TEDITOR_* environment variable or its default.
type Config struct {
	ShowHidden     bool
	Theme          string
	TabWidth       int
	MaxEntries     int
	Matcher        string
	AtomicSave     bool
	ExtraIgnore    []string
	StatusDuration time.Duration
	WatchDebounce  time.Duration
	LogPath        string
}

// Environment variable names
const (
	EnvShowHidden     = "TEDITOR_SHOW_HIDDEN"
	EnvTheme          = "TEDITOR_THEME"
	EnvTabWidth       = "TEDITOR_TAB_WIDTH"
	EnvMaxEntries     = "TEDITOR_MAX_ENTRIES"
	EnvMatcher        = "TEDITOR_MATCHER"
	EnvAtomicSave     = "TEDITOR_ATOMIC_SAVE"
	EnvIgnore         = "TEDITOR_IGNORE"
	EnvStatusSeconds  = "TEDITOR_STATUS_SECONDS"
	EnvWatchDebounce  = "TEDITOR_WATCH_DEBOUNCE_MS"
	EnvLog            = "TEDITOR_LOG"
	MatcherFuzzy      = "fuzzy"
	MatcherSubstring  = "substring"
	defaultTheme      = "monokai"
	defaultTabWidth   = 4
	defaultMaxEntries = 100000
)

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		ShowHidden:     false,
		Theme:          defaultTheme,
		TabWidth:       defaultTabWidth,
		MaxEntries:     defaultMaxEntries,
		Matcher:        MatcherFuzzy,
		AtomicSave:     true,
		StatusDuration: 3 * time.Second,
		WatchDebounce:  100 * time.Millisecond,
	}
}

// Load reads the configuration from the process environment.
func Load() *Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through getenv, applying defaults and bounds.
func LoadFrom(getenv func(string) string) *Config {
	config := Default()

	config.ShowHidden = parseBool(getenv, EnvShowHidden, config.ShowHidden)
	config.AtomicSave = parseBool(getenv, EnvAtomicSave, config.AtomicSave)

	if theme := strings.TrimSpace(getenv(EnvTheme)); theme != "" {
		config.Theme = theme
	}

	switch m := strings.ToLower(strings.TrimSpace(getenv(EnvMatcher))); m {
	case "":
	case MatcherFuzzy, MatcherSubstring:
		config.Matcher = m
	default:
		logger.Warn("Unknown matcher %q, using %s", m, MatcherFuzzy)
	}

	config.TabWidth = parseInt(getenv, EnvTabWidth, config.TabWidth, 1, 16)
	config.MaxEntries = parseInt(getenv, EnvMaxEntries, config.MaxEntries, 1000, 1000000)

	seconds := parseInt(getenv, EnvStatusSeconds, int(config.StatusDuration/time.Second), 1, 30)
	config.StatusDuration = time.Duration(seconds) * time.Second

	ms := parseInt(getenv, EnvWatchDebounce, int(config.WatchDebounce/time.Millisecond), 10, 2000)
	config.WatchDebounce = time.Duration(ms) * time.Millisecond

	config.ExtraIgnore = splitList(getenv(EnvIgnore))
	config.LogPath = LogPath(getenv)

	return config
}

// LogPath returns the log file named by TEDITOR_LOG. It is read apart from
// LoadFrom so logging can start before the rest is parsed.
func LogPath(getenv func(string) string) string {
	return strings.TrimSpace(getenv(EnvLog))
}

func parseBool(getenv func(string) string, name string, def bool) bool {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("Invalid %s value %q, using default %v", name, raw, def)
		return def
	}
	return v
}

func parseInt(getenv func(string) string, name string, def, min, max int) int {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Invalid %s value %q, using default %d", name, raw, def)
		return def
	}
	if v < min {
		logger.Warn("%s too low (%d), using minimum of %d", name, v, min)
		return min
	}
	if v > max {
		logger.Warn("%s too high (%d), using maximum of %d", name, v, max)
		return max
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" && !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
