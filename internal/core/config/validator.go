package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate reports every problem in cfg rather than stopping at the first.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateAnonymize,
		validateInput,
		validateExclude,
		validateOutput,
		validateDatabase,
		validateWatch,
		validateCache,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf("unsupported config version %d; supported version is %d", cfg.Version, CurrentVersion)
	}
	return nil
}

func validateAnonymize(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Anonymize.ExemptNames))
	for i, name := range cfg.Anonymize.ExemptNames {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("anonymize.exempt_names[%d] %q is not an identifier", i, name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate exempt name %q", name)
		}
		seen[name] = true
	}
	return nil
}

func validateInput(cfg *Config) error {
	for i, p := range cfg.Input.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("input.paths[%d] must not be empty", i)
		}
	}
	for i, ext := range cfg.Input.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("input.extensions[%d] %q must start with a dot", i, ext)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, dir := range cfg.Exclude.Dirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("exclude.dirs[%d] must not be empty", i)
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	dir := strings.TrimSpace(cfg.Output.Dir)
	if dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	report := strings.ToLower(strings.TrimSpace(cfg.Output.Report))
	if report != "summary" && report != "detailed" {
		return fmt.Errorf("output.report must be one of: summary, detailed")
	}
	out := filepath.Clean(dir)
	for _, in := range cfg.Input.Paths {
		if filepath.Clean(in) == out {
			return fmt.Errorf("output.dir %q must differ from input path %q", dir, in)
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled=true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.RateLimit <= 0 {
		return fmt.Errorf("watch.rate_limit must be > 0")
	}
	if cfg.Watch.Burst < 1 {
		return fmt.Errorf("watch.burst must be >= 1")
	}
	return nil
}

func validateCache(cfg *Config) error {
	if cfg.Cache.Entries < 0 {
		return fmt.Errorf("cache.entries must not be negative")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	o := cfg.Observability
	if o.Enabled && (o.Port < 1 || o.Port > 65535) {
		return fmt.Errorf("observability.port must be between 1 and 65535")
	}
	if o.EnableTracing && strings.TrimSpace(o.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must be set when enable_tracing=true")
	}
	return nil
}
