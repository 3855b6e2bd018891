package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"astanon/internal/core/config"
	"astanon/internal/core/watcher"
)

// StartWatcher re-anonymizes changed files under the configured inputs.
// The output directory is never watched.
func (a *App) StartWatcher(ctx context.Context) error {
	cfg, _ := a.snapshot()
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Exclude.Dirs,
		cfg.Exclude.Files,
		func(paths []string) {
			a.HandleChanges(ctx, paths)
		},
	)
	if err != nil {
		return err
	}
	w.SetExtensions(cfg.Input.Extensions)
	w.SkipRoots(cfg.Output.Dir)

	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()
	return w.Watch(cfg.Input.Paths)
}

// WatchConfig applies edits of the config file at path while running.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	w := config.NewWatcher(path, func(cfg *config.Config) {
		if err := a.UpdateConfig(cfg); err != nil {
			slog.Warn("ignoring reloaded configuration", "path", path, "error", err)
		}
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.watchMu.Lock()
	a.configWatcher = w
	a.watchMu.Unlock()
	return nil
}

// HandleChanges anonymizes a batch of changed paths, throttled by the
// configured rate limit. Deleted files are dropped from the cache.
func (a *App) HandleChanges(ctx context.Context, paths []string) Summary {
	start := time.Now()
	a.mu.RLock()
	limiter := a.limiter
	a.mu.RUnlock()

	var summary Summary
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			a.cache.forget(cacheKey(path))
			slog.Debug("source removed", "path", path)
			continue
		}
		if !a.accepts(path) {
			continue
		}
		dst, ok := a.outputFor(path)
		if !ok {
			slog.Debug("changed file outside input roots", "path", path)
			continue
		}
		if err := limiter.Wait(ctx, 1); err != nil {
			slog.Debug("watch batch interrupted", "error", err)
			break
		}

		result, err := a.AnonymizeFile(ctx, path, dst)
		if err != nil {
			slog.Warn("failed to anonymize changed file", "path", path, "error", err)
		} else if !result.Cached {
			slog.Info("anonymized", "path", path, "output", dst, "renamed", result.Renamed)
		}
		summary.add(result)
	}
	summary.Duration = time.Since(start)
	return summary
}
