// Package walker implements the Filesystem Walker (C11): a gitignore-aware
// directory scan used to bound what the agent can see and edit. Grounded on
// original_source/crates/forge_walker/src/walker.rs's Walker/File and its
// ignore-crate-backed get_blocking, adapted to github.com/sabhiram/go-gitignore
// (the gitignore library carried by the rest of the example pack) and a
// goroutine instead of spawn_blocking for off-executor traversal.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// File describes one walked filesystem entry, relative to the Walker's cwd.
type File struct {
	Path  string
	IsDir bool
}

// Walker scans a directory tree honouring .gitignore, the global gitignore,
// .ignore files, and hidden-file skipping, down to an optional depth.
type Walker struct {
	cwd      string
	maxDepth int
	hasDepth bool
}

// New constructs a Walker rooted at cwd with no depth limit.
func New(cwd string) Walker {
	return Walker{cwd: cwd}
}

// WithMaxDepth returns a copy of w bounded to maxDepth levels below cwd.
func (w Walker) WithMaxDepth(maxDepth int) Walker {
	w.maxDepth = maxDepth
	w.hasDepth = true
	return w
}

// Get walks the tree, returning every visible file and directory relative to
// cwd. The walk runs on its own goroutine so a caller can bound it with
// ctx's deadline; ctx cancellation stops the walk early and returns ctx.Err.
func (w Walker) Get(ctx context.Context) ([]File, error) {
	type result struct {
		files []File
		err   error
	}
	done := make(chan result, 1)

	go func() {
		files, err := w.walkBlocking(ctx)
		done <- result{files: files, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.files, r.err
	}
}

// PathAllowed reports whether path (absolute, or relative to cwd) would be
// visible to Get: no path segment is hidden-by-convention, and no ancestor
// directory's .gitignore/.ignore (or the global gitignore) excludes it.
// Wired into edit.Apply's PathAllowed predicate (MODULE ADDITIONS: the
// hidden-file / hidden-path tool guard) so the structured edit tool rejects
// writes outside what the agent can see.
func (w Walker) PathAllowed(path string) bool {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.cwd, path)
	}
	rel, err := filepath.Rel(w.cwd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if isHidden(seg) {
			return false
		}
	}

	var matchers []matcher
	if global := loadGlobalGitignore(); global != nil {
		matchers = append(matchers, matcher{base: w.cwd, set: global})
	}
	if root := loadDirIgnores(w.cwd); root != nil {
		matchers = append(matchers, matcher{base: w.cwd, set: root})
	}

	dir := w.cwd
	for _, seg := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if seg == "." {
			break
		}
		dir = filepath.Join(dir, seg)
		if m := loadDirIgnores(dir); m != nil {
			matchers = append(matchers, matcher{base: dir, set: m})
		}
	}

	info, statErr := os.Stat(abs)
	isDir := statErr == nil && info.IsDir()
	return !ignoredBy(matchers, abs, isDir)
}

// matcher pairs a compiled ignore set with the directory it was loaded from,
// since go-gitignore matches paths relative to that directory, not cwd.
type matcher struct {
	base string
	set  *gitignore.GitIgnore
}

func (w Walker) walkBlocking(ctx context.Context) ([]File, error) {
	var files []File
	var matchers []matcher

	if global := loadGlobalGitignore(); global != nil {
		matchers = append(matchers, matcher{base: w.cwd, set: global})
	}
	if root := loadDirIgnores(w.cwd); root != nil {
		matchers = append(matchers, matcher{base: w.cwd, set: root})
	}

	err := filepath.WalkDir(w.cwd, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path == w.cwd {
			return nil
		}

		rel, relErr := filepath.Rel(w.cwd, path)
		if relErr != nil {
			return relErr
		}

		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if w.hasDepth && depthOf(rel) > w.maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if ignoredBy(matchers, path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if m := loadDirIgnores(path); m != nil {
				matchers = append(matchers, matcher{base: path, set: m})
			}
		}

		files = append(files, File{Path: rel, IsDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func depthOf(rel string) int {
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func ignoredBy(matchers []matcher, path string, isDir bool) bool {
	for _, m := range matchers {
		rel, err := filepath.Rel(m.base, path)
		if err != nil {
			continue
		}
		check := filepath.ToSlash(rel)
		if isDir {
			check += "/"
		}
		if m.set.MatchesPath(check) {
			return true
		}
	}
	return false
}

// loadDirIgnores compiles dir's .gitignore and .ignore files, if present,
// into a single matcher scoped to dir.
func loadDirIgnores(dir string) *gitignore.GitIgnore {
	var lines []string
	for _, name := range []string{".gitignore", ".ignore"} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(content), "\n")...)
	}
	if len(lines) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(lines...)
}

// loadGlobalGitignore reads the user's global excludes file from
// ~/.config/git/ignore, the location git uses when core.excludesFile is
// unset; core.excludesFile itself is not consulted.
func loadGlobalGitignore() *gitignore.GitIgnore {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".config", "git", "ignore")
	set, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return set
}
