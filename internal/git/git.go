package git

import (
	"os/exec"
	"path"
	"strings"

	"github.com/LFroesch/teditor/internal/utils"
)

// GetModifiedFiles returns the files git reports as changed or untracked,
// keyed by slash-separated path relative to dir. Parent directories of a
// changed file are marked too. Outside a repository the map is empty.
func GetModifiedFiles(dir string) map[string]bool {
	modified := make(map[string]bool)
	if !utils.CommandExists("git") {
		return modified
	}

	// Porcelain paths are relative to the repository root; strip the
	// prefix of dir inside the repository
	cmd := exec.Command("git", "rev-parse", "--show-prefix")
	cmd.Dir = dir
	prefix, err := cmd.Output()
	if err != nil {
		return modified
	}

	cmd = exec.Command("git", "status", "--porcelain", "--untracked-files=all", "--", ".")
	cmd.Dir = dir
	cmd.Env = append(cmd.Environ(), "GIT_OPTIONAL_LOCKS=0")
	output, err := cmd.Output()
	if err != nil {
		return modified
	}

	return parsePorcelain(string(output), strings.TrimSpace(string(prefix)))
}

func parsePorcelain(output, prefix string) map[string]bool {
	modified := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		if len(line) <= 3 {
			continue
		}
		// Status is in first two characters, filename starts at position 3
		name := strings.TrimSpace(line[3:])
		if _, to, ok := strings.Cut(name, " -> "); ok {
			name = to
		}
		name = strings.Trim(name, `"`)
		name = strings.TrimSuffix(name, "/")
		if prefix != "" {
			rel, ok := strings.CutPrefix(name, prefix)
			if !ok {
				continue
			}
			name = rel
		}
		if name == "" {
			continue
		}
		modified[name] = true
		for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
			modified[dir] = true
		}
	}
	return modified
}

// GetBranch returns the current git branch name
func GetBranch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
