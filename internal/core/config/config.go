package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFile  = "astanon.toml"
	ExampleConfigFile  = "astanon.example.toml"
	CurrentVersion     = 1
	defaultDebounce    = 500 * time.Millisecond
	defaultBusyTimeout = 5 * time.Second
)

type Config struct {
	Version       int           `toml:"version"`
	Anonymize     Anonymize     `toml:"anonymize"`
	Input         Input         `toml:"input"`
	Exclude       Exclude       `toml:"exclude"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Cache         Cache         `toml:"cache"`
	Observability Observability `toml:"observability"`
}

type Anonymize struct {
	ExemptNames            []string `toml:"exempt_names"`
	ResolveEnclosingScopes *bool    `toml:"resolve_enclosing_scopes"`
	RecordProvenance       *bool    `toml:"record_provenance"`
}

type Input struct {
	Paths      []string `toml:"paths"`
	Extensions []string `toml:"extensions"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // glob patterns matched against the base name
}

type Output struct {
	Dir       string `toml:"dir"`
	Overwrite bool   `toml:"overwrite"`
	Report    string `toml:"report"` // summary or detailed
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce  time.Duration `toml:"debounce"`
	RateLimit float64       `toml:"rate_limit"` // files per second
	Burst     int           `toml:"burst"`
}

type Cache struct {
	Entries int `toml:"entries"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	OTLPInsecure  bool   `toml:"otlp_insecure"`
}

func (a Anonymize) EnclosingScopes() bool {
	if a.ResolveEnclosingScopes == nil {
		return true
	}
	return *a.ResolveEnclosingScopes
}

func (a Anonymize) Record() bool {
	if a.RecordProvenance == nil {
		return true
	}
	return *a.RecordProvenance
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load decodes path, fills defaults, applies ASTANON_* overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return finish(&cfg)
}

// LoadOrDefault loads path, falling back to the example file next to it and
// then to DefaultConfig when neither exists. The returned string is the file
// actually read, or empty.
func LoadOrDefault(path string) (*Config, string, error) {
	candidates := []string{path}
	if filepath.Base(path) == DefaultConfigFile {
		candidates = append(candidates, filepath.Join(filepath.Dir(path), ExampleConfigFile))
	}
	for _, candidate := range candidates {
		cfg, err := Load(candidate)
		if err == nil {
			return cfg, candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}
	cfg, err := finish(&Config{})
	return cfg, "", err
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}

	if cfg.Anonymize.ExemptNames == nil {
		cfg.Anonymize.ExemptNames = []string{"self", "cls"}
	}

	if len(cfg.Input.Paths) == 0 {
		cfg.Input.Paths = []string{"."}
	}
	if len(cfg.Input.Extensions) == 0 {
		cfg.Input.Extensions = []string{".py"}
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules"}
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "anonymized"
	}
	if strings.TrimSpace(cfg.Output.Report) == "" {
		cfg.Output.Report = "summary"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/astanon.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = defaultBusyTimeout
	}
	if !cfg.DB.Enabled && cfg.Version <= 1 {
		// Restores need the stored tables, so v1 always persists them.
		cfg.DB.Enabled = true
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
	if cfg.Watch.RateLimit == 0 {
		cfg.Watch.RateLimit = 10
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 20
	}

	if cfg.Cache.Entries == 0 {
		cfg.Cache.Entries = 512
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
}

// ResolveRelative joins value onto base unless value is absolute or empty.
func ResolveRelative(base, value string) string {
	value = strings.TrimSpace(value)
	if value == "" || filepath.IsAbs(value) || base == "" {
		return value
	}
	return filepath.Join(base, value)
}
