package walker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/walker"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(files []walker.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestGetSkipsHiddenFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "visible.txt"), "hi")
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "nope")
	writeFile(t, filepath.Join(dir, ".git", "config"), "nope")

	files, err := walker.New(dir).Get(context.Background())
	require.NoError(t, err)
	require.Contains(t, paths(files), "visible.txt")
	require.NotContains(t, paths(files), ".hidden.txt")
	for _, p := range paths(files) {
		require.NotContains(t, p, ".git")
	}
}

func TestGetHonoursGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n*.log\n")
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "debug.log"), "trace")
	writeFile(t, filepath.Join(dir, "build", "out.bin"), "binary")

	files, err := walker.New(dir).Get(context.Background())
	require.NoError(t, err)
	require.Contains(t, paths(files), "main.go")
	require.NotContains(t, paths(files), "debug.log")
	for _, p := range paths(files) {
		require.NotContains(t, p, "build")
	}
}

func TestGetHonoursNestedGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", ".gitignore"), "secret.txt\n")
	writeFile(t, filepath.Join(dir, "sub", "secret.txt"), "shh")
	writeFile(t, filepath.Join(dir, "sub", "public.txt"), "ok")

	files, err := walker.New(dir).Get(context.Background())
	require.NoError(t, err)
	require.Contains(t, paths(files), filepath.Join("sub", "public.txt"))
	require.NotContains(t, paths(files), filepath.Join("sub", "secret.txt"))
}

func TestGetWithMaxDepthStopsDescending(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "c", "deep.txt"), "x")

	files, err := walker.New(dir).WithMaxDepth(2).Get(context.Background())
	require.NoError(t, err)
	for _, p := range paths(files) {
		require.NotContains(t, p, "deep.txt")
	}
}

func TestGetReportsDirectoriesWithIsDirTrue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pkg", "file.go"), "package pkg")

	files, err := walker.New(dir).Get(context.Background())
	require.NoError(t, err)

	var sawDir bool
	for _, f := range files {
		if f.Path == "pkg" {
			sawDir = true
			require.True(t, f.IsDir)
		}
	}
	require.True(t, sawDir)
}

func TestPathAllowedRejectsHiddenPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "nope")
	writeFile(t, filepath.Join(dir, "visible.txt"), "ok")

	w := walker.New(dir)
	require.False(t, w.PathAllowed(".hidden.txt"))
	require.True(t, w.PathAllowed("visible.txt"))
}

func TestPathAllowedRejectsGitignoredPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", ".gitignore"), "secret.txt\n")
	writeFile(t, filepath.Join(dir, "sub", "secret.txt"), "shh")
	writeFile(t, filepath.Join(dir, "sub", "public.txt"), "ok")

	w := walker.New(dir)
	require.False(t, w.PathAllowed(filepath.Join("sub", "secret.txt")))
	require.True(t, w.PathAllowed(filepath.Join("sub", "public.txt")))
}

func TestPathAllowedRejectsEscapingCwd(t *testing.T) {
	dir := t.TempDir()
	w := walker.New(dir)
	require.False(t, w.PathAllowed(filepath.Join("..", "etc", "passwd")))
}

func TestGetCanceledContextReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "file.txt"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := walker.New(dir).Get(ctx)
	require.Error(t, err)
}
