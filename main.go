package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/LFroesch/teditor/internal/config"
	"github.com/LFroesch/teditor/internal/logger"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "teditor [path]",
		Short:         "Browse a directory with fuzzy search and edit files in place",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			root, openPath, err := resolveStartPath(arg)
			if err != nil {
				return err
			}
			return run(root, openPath)
		},
	}
}

// resolveStartPath turns the CLI argument into an absolute root. A file
// argument roots the tree at its directory and opens the file.
func resolveStartPath(arg string) (root, openPath string, err error) {
	if arg == "" {
		if arg, err = os.Getwd(); err != nil {
			return "", "", err
		}
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%s: no such file or directory", arg)
		}
		return "", "", err
	}
	if !info.IsDir() {
		return filepath.Dir(abs), abs, nil
	}
	return abs, "", nil
}

// setup starts logging before parsing the rest of the configuration so
// warnings about bad values reach the log.
func setup(getenv func(string) string) *config.Config {
	if err := logger.Init(config.LogPath(getenv)); err != nil {
		fmt.Fprintf(os.Stderr, "teditor: logging disabled: %v\n", err)
	}
	return config.LoadFrom(getenv)
}

func run(root, openPath string) error {
	cfg := setup(os.Getenv)
	defer logger.Close()
	logger.Info("Starting in %s", root)

	m := initialModel(root, cfg, openPath)
	defer m.shutdown()

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "teditor: %v\n", err)
		os.Exit(1)
	}
}
