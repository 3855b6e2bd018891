package app

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"astanon/internal/shared/util"
)

// Target pairs a source file with the output path it mirrors to.
type Target struct {
	Source string
	Output string
}

// ScanTargets walks paths and maps every supported, non-excluded source file
// into outDir. Directory roots keep their relative layout; file roots land
// directly in outDir.
func (a *App) ScanTargets(paths []string, outDir string) ([]Target, error) {
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, root := range paths {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if a.accepts(absRoot) {
				targets = append(targets, Target{Source: absRoot, Output: filepath.Join(absOut, filepath.Base(absRoot))})
			}
			continue
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != absRoot && (util.Within(path, absOut) || a.excludedDir(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !a.accepts(path) {
				return nil
			}
			rel, err := filepath.Rel(absRoot, path)
			if err != nil {
				return err
			}
			targets = append(targets, Target{Source: path, Output: filepath.Join(absOut, rel)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// AnonymizePaths anonymizes every file found under paths into the
// configured output directory. Per-file failures are reported in the summary;
// only a failed scan returns an error.
func (a *App) AnonymizePaths(ctx context.Context, paths []string) (Summary, error) {
	start := time.Now()
	cfg, _ := a.snapshot()
	if len(paths) == 0 {
		paths = cfg.Input.Paths
	}

	targets, err := a.ScanTargets(paths, cfg.Output.Dir)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := a.AnonymizeFile(ctx, target.Source, target.Output)
		if err != nil {
			slog.Warn("failed to anonymize file", "path", target.Source, "error", err)
		}
		summary.add(result)
	}
	summary.Duration = time.Since(start)
	return summary, nil
}

// outputFor maps a changed file back to its output path using the
// configured input roots.
func (a *App) outputFor(path string) (string, bool) {
	cfg, _ := a.snapshot()
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	absOut, err := filepath.Abs(cfg.Output.Dir)
	if err != nil {
		return "", false
	}
	for _, root := range cfg.Input.Paths {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if absPath == absRoot {
			return filepath.Join(absOut, filepath.Base(absPath)), true
		}
		if util.Within(absPath, absRoot) {
			rel, err := filepath.Rel(absRoot, absPath)
			if err != nil {
				continue
			}
			return filepath.Join(absOut, rel), true
		}
	}
	return "", false
}

func (a *App) accepts(path string) bool {
	if !a.codeParser.IsSupportedPath(path) {
		return false
	}
	cfg, _ := a.snapshot()
	if !slices.Contains(cfg.Input.Extensions, strings.ToLower(filepath.Ext(path))) {
		return false
	}
	return !a.excludedFile(path)
}

func (a *App) excludedDir(path string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	base := filepath.Base(path)
	for _, g := range a.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (a *App) excludedFile(path string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	base := filepath.Base(path)
	for _, g := range a.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}
