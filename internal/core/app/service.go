package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"astanon/internal/core/errors"
	"astanon/internal/data/provenance"
	"astanon/internal/engine/anonymize"
	"astanon/internal/engine/tree"
	"astanon/internal/shared/observability"
	"astanon/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	operationAnonymize = "anonymize"
	operationRestore   = "restore"
)

// Result is one anonymized source.
type Result struct {
	Output  []byte
	Entries []anonymize.Entry
	Renamed int
}

// FileResult describes what happened to one file.
type FileResult struct {
	Source  string
	Output  string
	Renamed int
	Cached  bool
	RunID   string
	Err     error
}

// AnonymizeSource parses source as the language implied by path and returns
// the anonymized text. With record set the rename table is returned too.
func (a *App) AnonymizeSource(ctx context.Context, path string, source []byte, record bool) (Result, error) {
	_, span := observability.Tracer.Start(ctx, "app.AnonymizeSource",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	_, an := a.snapshot()
	t, err := a.codeParser.ParseFile(path, source)
	if err != nil {
		failSpan(span, err)
		return Result{}, err
	}

	before := t.Labels()
	an.Apply(t, record)
	renamed := countChanged(before, t.Labels())

	var entries []anonymize.Entry
	if record {
		entries = an.Provenance(t).Entries()
		an.Release(t)
	}

	out, err := tree.Render(source, t)
	if err != nil {
		err = errors.Wrap(err, errors.CodeInternal, "render anonymized source")
		failSpan(span, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.Int("renamed", renamed))
	return Result{Output: out, Entries: entries, Renamed: renamed}, nil
}

// RestoreSource undoes an earlier anonymization of content using the run
// stored under the content's digest.
func (a *App) RestoreSource(ctx context.Context, path string, content []byte) ([]byte, error) {
	_, span := observability.Tracer.Start(ctx, "app.RestoreSource",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	if a.store == nil {
		err := errors.Newf(errors.CodeNotSupported, "provenance store is disabled").
			WithContext(errors.CtxPath, path)
		failSpan(span, err)
		return nil, err
	}

	run, err := a.store.LoadByOutputDigest(provenance.Digest(content))
	if err != nil {
		err = errors.AddContext(err, errors.CtxPath, path)
		failSpan(span, err)
		return nil, err
	}

	t, err := a.codeParser.ParseFile(path, content)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	table, err := anonymize.ProvenanceFromEntries(run.Entries)
	if err != nil {
		err = errors.AddContext(err, errors.CtxPath, path)
		failSpan(span, err)
		return nil, err
	}

	_, an := a.snapshot()
	an.Attach(t, table)
	if err := an.InverseApply(t); err != nil {
		an.Release(t)
		err = errors.AddContext(err, errors.CtxPath, path)
		failSpan(span, err)
		return nil, err
	}

	out, err := tree.Render(content, t)
	if err != nil {
		err = errors.Wrap(err, errors.CodeInternal, "render restored source")
		failSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("run_id", run.ID), attribute.Int("restored", len(run.Entries)))
	return out, nil
}

// AnonymizeFile anonymizes src into dst and persists the rename table when
// recording is enabled. Sources whose content was already written to dst in
// this process are skipped.
func (a *App) AnonymizeFile(ctx context.Context, src, dst string) (FileResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.AnonymizeFile",
		trace.WithAttributes(attribute.String("source", src), attribute.String("output", dst)))
	defer span.End()

	result := FileResult{Source: src, Output: dst}
	cfg, _ := a.snapshot()

	content, err := os.ReadFile(src)
	if err != nil {
		return a.fileFailed(span, operationAnonymize, result, err)
	}
	digest := provenance.Digest(content)
	key := cacheKey(src)

	if a.cache.unchanged(key, digest) && fileExists(dst) {
		observability.CacheHitsTotal.Inc()
		observability.FilesProcessedTotal.WithLabelValues(operationAnonymize, "cached").Inc()
		result.Cached = true
		return result, nil
	}
	if !cfg.Output.Overwrite && !a.cache.known(key) && fileExists(dst) {
		err := errors.Newf(errors.CodeValidationError, "output file already exists").
			WithContext(errors.CtxPath, dst)
		return a.fileFailed(span, operationAnonymize, result, err)
	}

	record := cfg.Anonymize.Record() && a.store != nil
	res, err := a.AnonymizeSource(ctx, src, content, record)
	if err != nil {
		return a.fileFailed(span, operationAnonymize, result, err)
	}
	result.Renamed = res.Renamed

	if err := util.WriteFileAtomic(dst, res.Output, 0o644); err != nil {
		return a.fileFailed(span, operationAnonymize, result, err)
	}

	if record {
		run, err := a.store.SaveRun(provenance.Run{
			SourcePath:   src,
			SourceDigest: digest,
			OutputDigest: provenance.Digest(res.Output),
			Entries:      res.Entries,
		})
		if err != nil {
			return a.fileFailed(span, operationAnonymize, result, err)
		}
		result.RunID = run.ID
	}

	a.cache.remember(key, digest)
	observability.FilesProcessedTotal.WithLabelValues(operationAnonymize, "ok").Inc()
	return result, nil
}

// RestoreFile restores the anonymized file src into dst.
func (a *App) RestoreFile(ctx context.Context, src, dst string) (FileResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RestoreFile",
		trace.WithAttributes(attribute.String("source", src), attribute.String("output", dst)))
	defer span.End()

	result := FileResult{Source: src, Output: dst}
	content, err := os.ReadFile(src)
	if err != nil {
		return a.fileFailed(span, operationRestore, result, err)
	}
	restored, err := a.RestoreSource(ctx, src, content)
	if err != nil {
		return a.fileFailed(span, operationRestore, result, err)
	}
	if err := util.WriteFileAtomic(dst, restored, 0o644); err != nil {
		return a.fileFailed(span, operationRestore, result, err)
	}
	observability.FilesProcessedTotal.WithLabelValues(operationRestore, "ok").Inc()
	return result, nil
}

// Summary aggregates the results of one batch.
type Summary struct {
	Files    []FileResult
	Renamed  int
	Cached   int
	Failed   int
	Duration time.Duration
}

func (s *Summary) add(r FileResult) {
	s.Files = append(s.Files, r)
	s.Renamed += r.Renamed
	if r.Cached {
		s.Cached++
	}
	if r.Err != nil {
		s.Failed++
	}
}

func (a *App) fileFailed(span trace.Span, operation string, result FileResult, err error) (FileResult, error) {
	failSpan(span, err)
	observability.FilesProcessedTotal.WithLabelValues(operation, "error").Inc()
	result.Err = err
	return result, err
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func countChanged(before, after []string) int {
	changed := 0
	for i := range before {
		if i < len(after) && before[i] != after[i] {
			changed++
		}
	}
	return changed
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
