package scan_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/smellscan/pkg/scan"
	"github.com/Sumatoshi-tech/smellscan/pkg/smell"
	"github.com/Sumatoshi-tech/smellscan/pkg/syntax"
)

const nestedScript = "import os\n" +
	"\n" +
	"for i in range(3):\n" +
	"    for j in range(3):\n" +
	"        print(i, j)\n"

const cleanScript = "import sys\n" +
	"\n" +
	"for arg in sys.argv:\n" +
	"    print(arg)\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestScanSource_Findings(t *testing.T) {
	t.Parallel()

	res, err := scan.New().ScanSource(context.Background(), "nested.py", []byte(nestedScript))
	require.NoError(t, err)

	assert.Equal(t, "nested.py", res.File)
	assert.Equal(t, len(nestedScript), res.Bytes)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, smell.CategoryNestedLoop, res.Findings[0].Category)
	assert.Equal(t, "Unused import: os", res.Findings[1].Message)
}

func TestScanSource_SyntaxErrorPropagates(t *testing.T) {
	t.Parallel()

	res, err := scan.New().ScanSource(context.Background(), "broken.py", []byte("def broken(:\n"))
	require.ErrorIs(t, err, syntax.ErrSyntax)
	assert.ErrorIs(t, res.Err, syntax.ErrSyntax)
	assert.Empty(t, res.Findings)
}

func TestScanSource_WithAnalyzer(t *testing.T) {
	t.Parallel()

	scanner := scan.New(scan.WithAnalyzer(smell.NewAnalyzer(smell.Options{
		Rules: []smell.Category{smell.CategoryUnusedImport},
	})))

	res, err := scanner.ScanSource(context.Background(), "nested.py", []byte(nestedScript))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, smell.CategoryUnusedImport, res.Findings[0].Category)
}

func TestScanSource_Cache(t *testing.T) {
	t.Parallel()

	scanner := scan.New(scan.WithCache(8))
	ctx := context.Background()

	first, err := scanner.ScanSource(ctx, "a.py", []byte(nestedScript))
	require.NoError(t, err)

	first.Findings[0].Message = "mutated"

	second, err := scanner.ScanSource(ctx, "b.py", []byte(nestedScript))
	require.NoError(t, err)
	assert.Equal(t, "b.py", second.File)
	assert.Equal(t, "Inefficient nested loop found at line 3", second.Findings[0].Message)

	_, err = scanner.ScanSource(ctx, "c.py", []byte("def broken(:\n"))
	require.ErrorIs(t, err, syntax.ErrSyntax)

	_, err = scanner.ScanSource(ctx, "c.py", []byte("def broken(:\n"))
	require.ErrorIs(t, err, syntax.ErrSyntax)

	stats := scanner.CacheStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

func TestScanSource_NoCacheByDefault(t *testing.T) {
	t.Parallel()

	scanner := scan.New()

	_, err := scanner.ScanSource(context.Background(), "a.py", []byte(cleanScript))
	require.NoError(t, err)
	assert.Zero(t, scanner.CacheStats().Entries)
}

func TestScanFile_LoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scanner := scan.New()
	ctx := context.Background()

	_, err := scanner.ScanFile(ctx, "")
	require.ErrorIs(t, err, scan.ErrEmptyPath)

	_, err = scanner.ScanFile(ctx, "bad\x00name.py")
	require.ErrorIs(t, err, scan.ErrPathContainsNUL)

	_, err = scanner.ScanFile(ctx, dir)
	require.ErrorIs(t, err, scan.ErrDirectoryPath)

	res, err := scanner.ScanFile(ctx, filepath.Join(dir, "missing.py"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, filepath.Join(dir, "missing.py"), res.File)
}

func TestScanFile_SizeLimit(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "big.py", nestedScript)

	_, err := scan.New(scan.WithMaxFileSize(8)).ScanFile(context.Background(), path)
	require.ErrorIs(t, err, scan.ErrFileTooLarge)

	res, err := scan.New(scan.WithMaxFileSize(0)).ScanFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, res.Findings, 2)
}

func TestScanFiles_OrderAndFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.py", nestedScript),
		writeFile(t, dir, "b.py", "def broken(:\n"),
		filepath.Join(dir, "missing.py"),
		writeFile(t, dir, "c.py", cleanScript),
	}

	results, err := scan.New(scan.WithWorkers(2)).ScanFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	for idx, res := range results {
		assert.Equal(t, paths[idx], res.File)
	}

	assert.Len(t, results[0].Findings, 2)
	assert.ErrorIs(t, results[1].Err, syntax.ErrSyntax)
	assert.ErrorIs(t, results[2].Err, fs.ErrNotExist)
	require.NoError(t, results[3].Err)
	assert.Empty(t, results[3].Findings)

	assert.Equal(t, 2, scan.CountFindings(results))
	assert.Len(t, scan.Failed(results), 2)
}

func TestScanFiles_Canceled(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "a.py", cleanScript)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := scan.New(scan.WithWorkers(1)).ScanFiles(ctx, []string{path, path})
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	scanner := scan.New()

	clean, err := scanner.ScanSource(context.Background(), "clean.py", []byte(cleanScript))
	require.NoError(t, err)

	sum := scan.Summarize([]scan.Result{clean})
	assert.True(t, sum.Clean())
	assert.Equal(t, scan.NoIssuesLine, sum.Header())

	nested, err := scanner.ScanSource(context.Background(), "nested.py", []byte(nestedScript))
	require.NoError(t, err)

	sum = scan.Summarize([]scan.Result{clean, nested})
	assert.False(t, sum.Clean())
	assert.Equal(t, scan.IssuesHeader, sum.Header())
	require.Len(t, sum.Findings, 2)
	assert.Equal(t, "nested.py", sum.Findings[0].File)
	assert.Equal(t, "Inefficient nested loop found at line 3", sum.Findings[0].Message)
	assert.Equal(t, "Unused import: os", sum.Findings[1].Message)
}

func TestSummarize_FailureOnly(t *testing.T) {
	t.Parallel()

	broken, err := scan.New().ScanSource(context.Background(), "bad.py", []byte("def f(:\n    pass\n"))
	require.Error(t, err)

	sum := scan.Summarize([]scan.Result{broken})
	assert.False(t, sum.Clean())
	assert.Empty(t, sum.Header())
	assert.Empty(t, sum.Findings)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "bad.py", sum.Failures[0].File)
}

func TestScanner_Derive(t *testing.T) {
	t.Parallel()

	base := scan.New(scan.WithCache(4))
	derived := base.Derive(smell.Options{Rules: []smell.Category{smell.CategoryUnusedImport}})

	res, err := derived.ScanSource(context.Background(), "nested.py", []byte(nestedScript))
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, smell.CategoryUnusedImport, res.Findings[0].Category)

	assert.Nil(t, base.AnalyzerOptions().Rules)
	assert.Zero(t, base.CacheStats().Misses, "derived scans bypass the base cache")
	assert.Zero(t, derived.CacheStats().Entries)
}
