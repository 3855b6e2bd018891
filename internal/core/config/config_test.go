package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "astanon.toml", `
version = 1

[anonymize]
exempt_names = ["self", "cls", "this"]
resolve_enclosing_scopes = false

[input]
paths = ["src"]

[exclude]
dirs = [".git", "build"]
files = ["*_pb2.py"]

[output]
dir = "out"
report = "detailed"

[db]
path = "state/prov.db"

[watch]
debounce = "1s"
rate_limit = 2.5
burst = 4

[cache]
entries = 64
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"self", "cls", "this"}, cfg.Anonymize.ExemptNames)
	assert.False(t, cfg.Anonymize.EnclosingScopes())
	assert.True(t, cfg.Anonymize.Record())
	assert.Equal(t, []string{"src"}, cfg.Input.Paths)
	assert.Equal(t, []string{".py"}, cfg.Input.Extensions)
	assert.Equal(t, []string{"*_pb2.py"}, cfg.Exclude.Files)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "detailed", cfg.Output.Report)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "state/prov.db", cfg.DB.Path)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 2.5, cfg.Watch.RateLimit)
	assert.Equal(t, 4, cfg.Watch.Burst)
	assert.Equal(t, 64, cfg.Cache.Entries)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, []string{"self", "cls"}, cfg.Anonymize.ExemptNames)
	assert.True(t, cfg.Anonymize.EnclosingScopes())
	assert.Equal(t, []string{"."}, cfg.Input.Paths)
	assert.Equal(t, "anonymized", cfg.Output.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 512, cfg.Cache.Entries)
	assert.Empty(t, Validate(cfg))
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("falls back to example file", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ExampleConfigFile, "[output]\ndir = \"from-example\"\n")

		cfg, used, err := LoadOrDefault(filepath.Join(dir, DefaultConfigFile))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ExampleConfigFile), used)
		assert.Equal(t, "from-example", cfg.Output.Dir)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		cfg, used, err := LoadOrDefault(filepath.Join(t.TempDir(), DefaultConfigFile))
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, "anonymized", cfg.Output.Dir)
	})

	t.Run("reports decode errors", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, DefaultConfigFile, "[output\n")
		_, _, err := LoadOrDefault(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad exempt name", func(c *Config) { c.Anonymize.ExemptNames = []string{"not valid"} }, "exempt_names"},
		{"duplicate exempt name", func(c *Config) { c.Anonymize.ExemptNames = []string{"self", "self"} }, "duplicate exempt"},
		{"bad extension", func(c *Config) { c.Input.Extensions = []string{"py"} }, "must start with a dot"},
		{"bad glob", func(c *Config) { c.Exclude.Files = []string{"[unclosed"} }, "not a valid glob"},
		{"output equals input", func(c *Config) { c.Output.Dir = "." }, "must differ"},
		{"bad report", func(c *Config) { c.Output.Report = "verbose" }, "output.report"},
		{"zero rate", func(c *Config) { c.Watch.RateLimit = -1 }, "rate_limit"},
		{"tracing without endpoint", func(c *Config) { c.Observability.EnableTracing = true }, "otlp_endpoint"},
		{"future version", func(c *Config) { c.Version = 9 }, "unsupported config version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := Validate(cfg)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.want)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ASTANON_OUTPUT_DIR", "env-out")
	t.Setenv("ASTANON_ANONYMIZE_EXEMPT_NAMES", "self, cls ,me")
	t.Setenv("ASTANON_ANONYMIZE_RESOLVE_ENCLOSING_SCOPES", "false")
	t.Setenv("ASTANON_WATCH_DEBOUNCE", "250ms")
	t.Setenv("ASTANON_CACHE_ENTRIES", "not-a-number")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "env-out", cfg.Output.Dir)
	assert.Equal(t, []string{"self", "cls", "me"}, cfg.Anonymize.ExemptNames)
	assert.False(t, cfg.Anonymize.EnclosingScopes())
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 512, cfg.Cache.Entries, "unparsable values are ignored")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeConfig(t, dir, ".env", "ASTANON_TEST_DOTENV_VALUE=from-file\n")
	t.Setenv("ASTANON_TEST_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("ASTANON_TEST_DOTENV_VALUE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("ASTANON_TEST_DOTENV_VALUE"))
}

func TestResolveRelative(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "db.sqlite"), ResolveRelative("base", "db.sqlite"))
	assert.Equal(t, "/abs/db.sqlite", ResolveRelative("base", "/abs/db.sqlite"))
	assert.Equal(t, "", ResolveRelative("base", " "))
	assert.Equal(t, "x", ResolveRelative("", "x"))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, DefaultConfigFile, "[output]\ndir = \"first\"\n")

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, w.Start(t.Context()))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[output]\ndir = \"second\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "second", cfg.Output.Dir)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
