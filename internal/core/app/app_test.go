package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"astanon/internal/core/config"
	"astanon/internal/core/errors"
	"astanon/internal/data/provenance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `import os


def greet(name, punctuation="!"):
    message = "hello " + name
    return message + punctuation


class Counter:
    def __init__(self, start=0):
        self.value = start

    def bump(self):
        self.value += 1
        return self.value


total = greet("world")
print(total, os.sep)
`

type fixture struct {
	app   *App
	cfg   *config.Config
	store *provenance.Store
	src   string
	out   string
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) fixture {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{src}
	cfg.Output.Dir = out
	cfg.DB.Path = filepath.Join(root, "provenance.db")
	for _, m := range mutate {
		m(cfg)
	}

	store, err := provenance.Open(cfg.DB.Path)
	require.NoError(t, err)

	a, err := New(cfg, WithStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return fixture{app: a, cfg: cfg, store: store, src: src, out: out}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAnonymizeSource(t *testing.T) {
	f := newFixture(t)

	res, err := f.app.AnonymizeSource(context.Background(), "x.py", []byte("x = 1\ny = x\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "v1 = 1\nv2 = v1\n", string(res.Output))
	assert.Equal(t, 3, res.Renamed)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "x", res.Entries[0].Old)
	assert.Equal(t, "v1", res.Entries[0].New)

	res, err = f.app.AnonymizeSource(context.Background(), "x.py", []byte("x = 1\n"), false)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 1, res.Renamed)
}

func TestAnonymizeSourceRejectsUnsupportedAndBrokenInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.AnonymizeSource(context.Background(), "main.go", []byte("package main\n"), true)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))

	_, err = f.app.AnonymizeSource(context.Background(), "bad.py", []byte("def (:\n"), true)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestAnonymizePathsAndRestore(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "ignored")
		cfg.Exclude.Files = []string{"skip_*.py"}
	})
	writeFile(t, filepath.Join(f.src, "pkg", "app.py"), sampleSource)
	writeFile(t, filepath.Join(f.src, "main.py"), "value = 2\nprint(value)\n")
	writeFile(t, filepath.Join(f.src, "ignored", "other.py"), "x = 1\n")
	writeFile(t, filepath.Join(f.src, "skip_me.py"), "x = 1\n")
	writeFile(t, filepath.Join(f.src, "notes.txt"), "x = 1\n")

	summary, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, summary.Files, 2)
	assert.Zero(t, summary.Failed)
	assert.Positive(t, summary.Renamed)

	assert.Equal(t, "v1 = 2\nprint(v1)\n", readFile(t, filepath.Join(f.out, "main.py")))
	anonymized := readFile(t, filepath.Join(f.out, "pkg", "app.py"))
	assert.Contains(t, anonymized, "def f1(f1_a1, f1_a2=\"!\"):")
	assert.Contains(t, anonymized, "class c1:")
	assert.Contains(t, anonymized, "import os")
	assert.NotContains(t, anonymized, "greet")
	assert.NoFileExists(t, filepath.Join(f.out, "ignored", "other.py"))
	assert.NoFileExists(t, filepath.Join(f.out, "skip_me.py"))

	runs, err := f.store.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 2, runs)

	restoredPath := filepath.Join(t.TempDir(), "restored.py")
	result, err := f.app.RestoreFile(context.Background(), filepath.Join(f.out, "pkg", "app.py"), restoredPath)
	require.NoError(t, err)
	assert.NoError(t, result.Err)
	assert.Equal(t, sampleSource, readFile(t, restoredPath))
}

func TestAnonymizePathsSkipsUnchangedFiles(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.src, "main.py")
	writeFile(t, path, "a = 1\n")

	first, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, first.Cached)

	second, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, 1, f.app.cache.len())

	writeFile(t, path, "a = 1\nb = a\n")
	third, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, third.Cached)
	assert.Equal(t, "v1 = 1\nv2 = v1\n", readFile(t, filepath.Join(f.out, "main.py")))
}

func TestAnonymizeFileOverwrite(t *testing.T) {
	t.Run("refuses existing output", func(t *testing.T) {
		f := newFixture(t)
		src := filepath.Join(f.src, "main.py")
		dst := filepath.Join(f.out, "main.py")
		writeFile(t, src, "a = 1\n")
		writeFile(t, dst, "keep me\n")

		result, err := f.app.AnonymizeFile(context.Background(), src, dst)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError))
		assert.Equal(t, err, result.Err)
		assert.Equal(t, "keep me\n", readFile(t, dst))
	})

	t.Run("replaces existing output", func(t *testing.T) {
		f := newFixture(t, func(cfg *config.Config) { cfg.Output.Overwrite = true })
		src := filepath.Join(f.src, "main.py")
		dst := filepath.Join(f.out, "main.py")
		writeFile(t, src, "a = 1\n")
		writeFile(t, dst, "stale\n")

		result, err := f.app.AnonymizeFile(context.Background(), src, dst)
		require.NoError(t, err)
		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, "v1 = 1\n", readFile(t, dst))
	})
}

func TestAnonymizeWithoutRecording(t *testing.T) {
	disabled := false
	f := newFixture(t, func(cfg *config.Config) { cfg.Anonymize.RecordProvenance = &disabled })
	writeFile(t, filepath.Join(f.src, "main.py"), "a = 1\n")

	summary, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Empty(t, summary.Files[0].RunID)

	runs, err := f.store.CountRuns()
	require.NoError(t, err)
	assert.Zero(t, runs)

	_, err = f.app.RestoreFile(context.Background(), filepath.Join(f.out, "main.py"), filepath.Join(t.TempDir(), "r.py"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestRestoreSourceWithoutStore(t *testing.T) {
	a, err := New(config.DefaultConfig())
	require.NoError(t, err)
	assert.False(t, a.HasStore())

	_, err = a.RestoreSource(context.Background(), "x.py", []byte("v1 = 1\n"))
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestRestoreSourceRejectsEditedOutput(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.src, "main.py")
	writeFile(t, src, "a = 1\n")
	_, err := f.app.AnonymizeFile(context.Background(), src, filepath.Join(f.out, "main.py"))
	require.NoError(t, err)

	_, err = f.app.RestoreSource(context.Background(), "main.py", []byte("v1 = 2\n"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.src, "main.py")
	writeFile(t, src, "this = 1\nthat = this\n")
	_, err := f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "v1 = 1\nv2 = v1\n", readFile(t, filepath.Join(f.out, "main.py")))

	next := *f.cfg
	next.Anonymize.ExemptNames = []string{"this"}
	require.NoError(t, f.app.UpdateConfig(&next))
	assert.False(t, f.app.cache.unchanged(cacheKey(src), provenance.Digest([]byte("this = 1\nthat = this\n"))))
	assert.True(t, f.app.cache.known(cacheKey(src)))
	assert.Equal(t, []string{"this"}, f.app.Config().Anonymize.ExemptNames)

	_, err = f.app.AnonymizePaths(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "this = 1\nv1 = this\n", readFile(t, filepath.Join(f.out, "main.py")))

	bad := *f.cfg
	bad.Exclude.Dirs = []string{"[unclosed"}
	assert.Error(t, f.app.UpdateConfig(&bad))
}

func TestScanTargets(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.src, "a.py"), "a = 1\n")
	writeFile(t, filepath.Join(f.src, "nested", "b.pyi"), "b: int\n")
	writeFile(t, filepath.Join(f.src, "__pycache__", "c.py"), "c = 1\n")

	targets, err := f.app.ScanTargets([]string{f.src}, f.out)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, filepath.Join(f.out, "a.py"), targets[0].Output)

	targets, err = f.app.ScanTargets([]string{filepath.Join(f.src, "a.py")}, f.out)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, filepath.Join(f.out, "a.py"), targets[0].Output)

	_, err = f.app.ScanTargets([]string{filepath.Join(f.src, "missing")}, f.out)
	assert.Error(t, err)
}

func TestScanTargetsSkipsOutputInsideInput(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.src, "a.py"), "a = 1\n")
	out := filepath.Join(f.src, "anonymized")
	writeFile(t, filepath.Join(out, "a.py"), "v1 = 1\n")

	targets, err := f.app.ScanTargets([]string{f.src}, out)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, filepath.Join(f.src, "a.py"), targets[0].Source)
}

func TestHandleChanges(t *testing.T) {
	f := newFixture(t)
	changed := filepath.Join(f.src, "pkg", "mod.py")
	writeFile(t, changed, "n = 1\n")
	removed := filepath.Join(f.src, "gone.py")
	outside := filepath.Join(t.TempDir(), "elsewhere.py")
	writeFile(t, outside, "x = 1\n")

	summary := f.app.HandleChanges(context.Background(), []string{changed, removed, outside, filepath.Join(f.src, "README.md")})
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "v1 = 1\n", readFile(t, filepath.Join(f.out, "pkg", "mod.py")))

	summary = f.app.HandleChanges(context.Background(), []string{changed})
	require.Len(t, summary.Files, 1)
	assert.True(t, summary.Files[0].Cached)
}

func TestOpenStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DB.Path = "nested/provenance.db"
	base := t.TempDir()

	store, err := OpenStore(cfg, base)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	assert.FileExists(t, filepath.Join(base, "nested", "provenance.db"))

	cfg.DB.Enabled = false
	store, err = OpenStore(cfg, base)
	require.NoError(t, err)
	assert.Nil(t, store)
}
