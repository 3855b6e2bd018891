package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"astanon/internal/core/app"
	"astanon/internal/core/config"
	"astanon/internal/shared/observability"
	"astanon/internal/shared/version"
	"astanon/internal/ui/report"
)

const defaultConfigPath = "./" + config.DefaultConfigFile

type options struct {
	configPath  string
	verbose     bool
	version     bool
	restore     bool
	watch       bool
	outDir      string
	toStdout    bool
	noRecord    bool
	metricsAddr string
	paths       []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("astanon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVar(&opts.restore, "restore", false, "Restore previously anonymized files")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and re-anonymize changed files")
	fs.StringVar(&opts.outDir, "out", "", "Output directory (overrides output.dir)")
	fs.BoolVar(&opts.toStdout, "stdout", false, "Write a single result to stdout instead of a file")
	fs.BoolVar(&opts.noRecord, "no-record", false, "Do not persist rename tables")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.paths = fs.Args()
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	logOutput := stdout
	if opts.toStdout || opts.restore {
		// stdout carries file content in these modes.
		logOutput = stderr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel})))

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, usedConfig, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if usedConfig != "" {
		slog.Debug("loaded config", "path", usedConfig)
	}
	applyFlags(cfg, opts)

	baseDir := "."
	if usedConfig != "" {
		baseDir = filepath.Dir(usedConfig)
	}
	store, err := app.OpenStore(cfg, baseDir)
	if err != nil {
		slog.Error("failed to open provenance store", "error", err)
		return 1
	}
	var appOpts []app.Option
	if store != nil {
		appOpts = append(appOpts, app.WithStore(store))
	}
	a, err := app.New(cfg, appOpts...)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		if store != nil {
			_ = store.Close()
		}
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	shutdown := startObservability(ctx, cfg, opts.metricsAddr)
	defer shutdown()

	switch {
	case opts.restore:
		return restoreFiles(ctx, a, opts, stdout)
	case opts.toStdout:
		return anonymizeToStdout(ctx, a, opts, stdout)
	}

	summary, err := a.AnonymizePaths(ctx, nil)
	if err != nil {
		slog.Error("anonymization failed", "error", err)
		return 1
	}
	if err := report.Write(stdout, summary, cfg.Output.Report); err != nil {
		slog.Warn("failed to write report", "error", err)
	}
	if !opts.watch {
		if summary.Failed > 0 {
			return 1
		}
		return 0
	}

	if err := a.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	if usedConfig != "" {
		if err := a.WatchConfig(ctx, usedConfig); err != nil {
			slog.Warn("config hot-reload disabled", "error", err)
		}
	}
	slog.Info("watching for changes", "paths", cfg.Input.Paths, "output", cfg.Output.Dir)
	<-ctx.Done()
	return 0
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.noRecord {
		disabled := false
		cfg.Anonymize.RecordProvenance = &disabled
	}
	if len(opts.paths) > 0 && !opts.restore {
		cfg.Input.Paths = opts.paths
	}
}

func anonymizeToStdout(ctx context.Context, a *app.App, opts options, stdout io.Writer) int {
	if len(opts.paths) != 1 {
		slog.Error("-stdout requires exactly one file argument")
		return 2
	}
	path := opts.paths[0]
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read file", "path", path, "error", err)
		return 1
	}
	res, err := a.AnonymizeSource(ctx, path, content, false)
	if err != nil {
		slog.Error("anonymization failed", "path", path, "error", err)
		return 1
	}
	if _, err := stdout.Write(res.Output); err != nil {
		return 1
	}
	return 0
}

// restoreFiles writes restored files into -out when given, else to stdout.
func restoreFiles(ctx context.Context, a *app.App, opts options, stdout io.Writer) int {
	if len(opts.paths) == 0 {
		slog.Error("-restore requires at least one anonymized file")
		return 2
	}
	failed := 0
	for _, path := range opts.paths {
		if opts.outDir != "" && !opts.toStdout {
			dst := filepath.Join(opts.outDir, filepath.Base(path))
			if _, err := a.RestoreFile(ctx, path, dst); err != nil {
				slog.Error("restore failed", "path", path, "error", err)
				failed++
				continue
			}
			slog.Info("restored", "path", path, "output", dst)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			slog.Error("failed to read file", "path", path, "error", err)
			failed++
			continue
		}
		restored, err := a.RestoreSource(ctx, path, content)
		if err != nil {
			slog.Error("restore failed", "path", path, "error", err)
			failed++
			continue
		}
		if _, err := stdout.Write(restored); err != nil {
			return 1
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func startObservability(ctx context.Context, cfg *config.Config, metricsAddr string) func() {
	var closers []func(context.Context) error

	if metricsAddr == "" && cfg.Observability.Enabled {
		metricsAddr = fmt.Sprintf(":%d", cfg.Observability.Port)
	}
	if metricsAddr != "" {
		srv := observability.NewMetricsServer(metricsAddr)
		srv.Start()
		closers = append(closers, srv.Stop)
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.OTLPInsecure)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			closers = append(closers, shutdown)
		}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, c := range closers {
			if err := c(shutdownCtx); err != nil {
				slog.Warn("shutdown failed", "error", err)
			}
		}
	}
}
