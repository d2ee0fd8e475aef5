package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	HistoryPath string
	// CrateRoots maps crate names to absolute root files.
	CrateRoots map[string]string
}

// ResolvePaths anchors relative paths at the project root. Without an
// explicit project root, base is walked upwards for a project marker.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}

	projectRoot := strings.TrimSpace(cfg.Paths.ProjectRoot)
	if projectRoot != "" {
		projectRoot = ResolveRelative(base, projectRoot)
	} else {
		root, err := DetectProjectRoot([]string{base})
		if err != nil {
			return ResolvedPaths{}, err
		}
		projectRoot = root
	}

	stateDir := ResolveRelative(projectRoot, cfg.Paths.StateDir)
	historyPath := strings.TrimSpace(cfg.History.Path)
	if filepath.IsAbs(historyPath) {
		historyPath = filepath.Clean(historyPath)
	} else {
		historyPath = filepath.Join(stateDir, historyPath)
	}

	roots := make(map[string]string, len(cfg.Crates))
	for _, c := range cfg.Crates {
		roots[c.Name] = ResolveRelative(projectRoot, filepath.FromSlash(c.Root))
	}
	return ResolvedPaths{
		ProjectRoot: filepath.Clean(projectRoot),
		StateDir:    stateDir,
		HistoryPath: historyPath,
		CrateRoots:  roots,
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFile,
		"Cargo.toml",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}
		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
