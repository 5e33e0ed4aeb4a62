// Package discover finds notation files under a directory.
package discover

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/proforma/internal/lang"
)

// FileEntry is a notation file found under the walk root.
type FileEntry struct {
	Path   string // relative to root
	Format string
}

// ignoredDirs are skipped along with every dot directory.
var ignoredDirs = []string{"build", "dist", "node_modules", "testdata", "vendor"}

// gitTimeout bounds the git ls-files call.
const gitTimeout = 10 * time.Second

// exclusion reports whether a root-relative path is left out.
type exclusion func(rel string) bool

// Files returns the notation files under root sorted by path. A non-empty
// formats list keeps only files of those formats.
func Files(root string, formats []string) ([]FileEntry, error) {
	excluded := exclusionFor(root)

	var found []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == root {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if hidden(name) || slices.Contains(ignoredDirs, name) {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinks and other special files are not followed.
		if hidden(name) || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil || excluded(rel) {
			return nil
		}
		if format := lang.Resolve(name, formats); format != "" {
			found = append(found, FileEntry{Path: rel, Format: format})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(found, func(a, b FileEntry) int {
		return strings.Compare(a.Path, b.Path)
	})
	return found, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// exclusionFor uses the git index when root is a work tree and falls back to
// root/.gitignore otherwise.
func exclusionFor(root string) exclusion {
	if tracked, ok := gitFiles(root); ok {
		return func(rel string) bool {
			_, ok := tracked[filepath.ToSlash(rel)]
			return !ok
		}
	}

	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return func(string) bool { return false }
	}
	return gi.MatchesPath
}

// gitFiles lists tracked and untracked-but-not-ignored files under root.
// It reports false when root is not a work tree or git is unavailable.
func gitFiles(root string) (map[string]struct{}, bool) {
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, false
	}

	files := make(map[string]struct{})
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			files[string(p)] = struct{}{}
		}
	}
	return files, true
}
