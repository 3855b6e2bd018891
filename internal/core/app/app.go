package app

import (
	"fmt"
	"log/slog"
	"sync"

	"astanon/internal/core/config"
	"astanon/internal/core/ports"
	"astanon/internal/core/watcher"
	"astanon/internal/data/provenance"
	"astanon/internal/engine/anonymize"
	"astanon/internal/engine/parser"
	"astanon/internal/shared/util"

	"github.com/gobwas/glob"
)

// App wires the parser, the anonymizer and the provenance store into the
// file level operations used by the CLI and watch mode.
type App struct {
	codeParser ports.CodeParser
	store      ports.ProvenanceStore
	cache      *contentCache

	mu           sync.RWMutex
	config       *config.Config
	anonymizer   *anonymize.Anonymizer
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	limiter      *util.Limiter

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
	configWatcher *config.Watcher
}

type Option func(*App)

func WithParser(p ports.CodeParser) Option {
	return func(a *App) {
		a.codeParser = p
	}
}

// WithStore enables persisted provenance. Without a store files are still
// anonymized but cannot be restored.
func WithStore(s ports.ProvenanceStore) Option {
	return func(a *App) {
		a.store = s
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &App{codeParser: parser.NewParser()}
	for _, opt := range opts {
		opt(a)
	}

	cache, err := newContentCache(cfg.Cache.Entries)
	if err != nil {
		return nil, err
	}
	a.cache = cache

	if err := a.applyConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenStore opens the provenance database configured in cfg, resolving a
// relative path against baseDir. It returns a nil store when persistence is
// disabled.
func OpenStore(cfg *config.Config, baseDir string) (ports.ProvenanceStore, error) {
	if cfg == nil || !cfg.DB.Enabled {
		return nil, nil
	}
	store, err := provenance.OpenWithTimeout(config.ResolveRelative(baseDir, cfg.DB.Path), cfg.DB.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open provenance store: %w", err)
	}
	return store, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) HasStore() bool {
	return a.store != nil
}

// UpdateConfig swaps in a reloaded configuration. Cached digests are
// invalidated because anonymizer settings may have changed.
func (a *App) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	if err := a.applyConfig(cfg); err != nil {
		return err
	}
	a.cache.invalidate()

	a.watchMu.Lock()
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	a.watchMu.Unlock()

	slog.Info("configuration reloaded",
		"exempt_names", cfg.Anonymize.ExemptNames,
		"resolve_enclosing_scopes", cfg.Anonymize.EnclosingScopes(),
		"record_provenance", cfg.Anonymize.Record(),
	)
	return nil
}

func (a *App) applyConfig(cfg *config.Config) error {
	dirs, err := compileGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return err
	}
	files, err := compileGlobs(cfg.Exclude.Files)
	if err != nil {
		return err
	}
	an := anonymize.New(
		anonymize.WithExemptNames(cfg.Anonymize.ExemptNames...),
		anonymize.WithEnclosingScopeResolution(cfg.Anonymize.EnclosingScopes()),
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = cfg
	a.anonymizer = an
	a.excludeDirs = dirs
	a.excludeFiles = files
	a.limiter = util.NewLimiter(cfg.Watch.RateLimit, cfg.Watch.Burst)
	return nil
}

func (a *App) snapshot() (*config.Config, *anonymize.Anonymizer) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config, a.anonymizer
}

// Close stops any watchers and closes the store.
func (a *App) Close() error {
	a.watchMu.Lock()
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
		a.activeWatcher = nil
	}
	if a.configWatcher != nil {
		a.configWatcher.Stop()
		a.configWatcher = nil
	}
	a.watchMu.Unlock()

	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}
