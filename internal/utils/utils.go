package utils

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GetFileIcon returns an emoji icon for an entry based on its kind and extension
func GetFileIcon(name string, isDir bool) string {
	if isDir {
		return "📁"
	}
	switch strings.ToLower(name) {
	case "makefile", "dockerfile":
		return "🔧"
	case "go.mod", "go.sum", "package.json", "cargo.toml":
		return "📦"
	}

	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".go":
		return "🐹"
	case ".js", ".ts", ".jsx", ".tsx":
		return "📜"
	case ".py":
		return "🐍"
	case ".rb":
		return "💎"
	case ".java":
		return "☕"
	case ".rs":
		return "🦀"
	case ".cpp", ".c", ".h":
		return "⚙️"
	case ".html", ".htm":
		return "🌐"
	case ".css", ".scss", ".sass":
		return "🎨"
	case ".json", ".yaml", ".yml", ".toml":
		return "📋"
	case ".md", ".markdown":
		return "📝"
	case ".txt", ".log":
		return "📄"
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico":
		return "🖼️"
	case ".mp4", ".avi", ".mov", ".mkv":
		return "🎬"
	case ".mp3", ".wav", ".flac", ".ogg":
		return "🎵"
	case ".zip", ".tar", ".gz", ".rar", ".7z":
		return "📦"
	case ".pdf":
		return "📕"
	case ".doc", ".docx":
		return "📘"
	case ".xls", ".xlsx":
		return "📊"
	case ".sh", ".bash", ".zsh":
		return "🖥️"
	case ".git", ".gitignore":
		return "🔀"
	default:
		return "📄"
	}
}

// FormatFileSize formats a file size in bytes to a human-readable string
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatFileSizeColored returns a color-styled file size string based on size ranges
func FormatFileSizeColored(size int64) string {
	sizeStr := FormatFileSize(size)

	const (
		KB    = 1024
		MB    = 1024 * KB
		MB100 = 100 * MB
	)

	var style lipgloss.Style
	switch {
	case size < KB:
		// < 1 KB: dim gray for tiny files
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	case size < MB:
		// 1 KB - 1 MB: normal color for typical files
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	case size < MB100:
		// 1 MB - 100 MB: yellow/orange for large files
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	default:
		// > 100 MB: red bold for very large files
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	}

	return style.Render(sizeStr)
}

// CommandExists checks if a command is available in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// HighlightMatches renders text with base, drawing the runes at the given
// positions with hl. Adjacent highlighted runes are rendered as one run.
func HighlightMatches(text string, positions []int, base, hl lipgloss.Style) string {
	runes := []rune(text)
	if len(positions) == 0 {
		return base.Render(text)
	}

	matchMap := make(map[int]bool, len(positions))
	for _, idx := range positions {
		if idx >= 0 && idx < len(runes) {
			matchMap[idx] = true
		}
	}

	var result strings.Builder
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && matchMap[i] == matchMap[start] {
			continue
		}
		style := base
		if matchMap[start] {
			style = hl
		}
		result.WriteString(style.Render(string(runes[start:i])))
		start = i
	}
	return result.String()
}
