package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: ASTANON_[SECTION]_[KEY] (e.g., ASTANON_OUTPUT_DIR).
func ApplyEnvOverrides(cfg *Config) {
	// Anonymize
	setEnvList(&cfg.Anonymize.ExemptNames, "ASTANON_ANONYMIZE_EXEMPT_NAMES")
	setEnvBoolPtr(&cfg.Anonymize.ResolveEnclosingScopes, "ASTANON_ANONYMIZE_RESOLVE_ENCLOSING_SCOPES")
	setEnvBoolPtr(&cfg.Anonymize.RecordProvenance, "ASTANON_ANONYMIZE_RECORD_PROVENANCE")

	// Input / output
	setEnvList(&cfg.Input.Paths, "ASTANON_INPUT_PATHS")
	setEnvString(&cfg.Output.Dir, "ASTANON_OUTPUT_DIR")
	setEnvBool(&cfg.Output.Overwrite, "ASTANON_OUTPUT_OVERWRITE")
	setEnvString(&cfg.Output.Report, "ASTANON_OUTPUT_REPORT")

	// Database
	setEnvBool(&cfg.DB.Enabled, "ASTANON_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "ASTANON_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "ASTANON_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "ASTANON_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RateLimit, "ASTANON_WATCH_RATE_LIMIT")
	setEnvInt(&cfg.Watch.Burst, "ASTANON_WATCH_BURST")

	// Cache
	setEnvInt(&cfg.Cache.Entries, "ASTANON_CACHE_ENTRIES")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "ASTANON_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "ASTANON_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "ASTANON_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "ASTANON_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.OTLPInsecure, "ASTANON_OBSERVABILITY_OTLP_INSECURE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma separated value; an empty value clears the list.
func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	slog.Debug("applying env override", "key", key, "value", val)
	out := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*target = out
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
