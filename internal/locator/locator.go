// Package locator enumerates the source files a run analyzes.
package locator

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/spectra/internal/errors"
)

// DefaultMaxFileSize bounds how large a single source file may be
const DefaultMaxFileSize int64 = 2 << 20

// DefaultIgnoredDirs are never descended into
var DefaultIgnoredDirs = []string{
	".git", ".svn", ".hg",
	"node_modules", "vendor", "venv", ".venv", "__pycache__",
	"dist", "build", "target", ".mvn", ".gradle", ".idea",
}

// Options configures a walk
type Options struct {
	Extensions  []string
	IgnoredDirs []string
	MaxFileSize int64
}

// Source is one file selected for analysis
type Source struct {
	Path    string
	RelPath string
	Content []byte
}

// Skip records a file that was left out and why
type Skip struct {
	Path   string
	Reason errors.SpectraError
}

// Result is the ordered outcome of a walk
type Result struct {
	Root    string
	Sources []Source
	Skipped []Skip
}

// Locate walks root and returns every matching file ordered by relative path.
// Only a missing or non-directory root is fatal; unreadable or oversized
// files are recorded in Skipped.
func Locate(root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.WrapFileAccessError("open project root", root, err)
	}
	if !info.IsDir() {
		return nil, errors.WrapFileAccessError("open project root", root, fmt.Errorf("not a directory"))
	}

	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	ignored := opts.IgnoredDirs
	if ignored == nil {
		ignored = DefaultIgnoredDirs
	}
	skipDirs := make(map[string]bool, len(ignored))
	for _, d := range ignored {
		skipDirs[d] = true
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	result := &Result{Root: root}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			result.Skipped = append(result.Skipped, Skip{Path: path, Reason: errors.WrapFileAccessError("walk", path, err)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Path: path, Reason: errors.WrapFileAccessError("stat", path, err)})
			return nil
		}
		if fi.Size() > opts.MaxFileSize {
			reason := errors.WrapFileAccessError("read", path,
				fmt.Errorf("file size %d exceeds limit %d", fi.Size(), opts.MaxFileSize))
			result.Skipped = append(result.Skipped, Skip{Path: path, Reason: reason})
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Path: path, Reason: errors.WrapFileAccessError("read", path, err)})
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		result.Sources = append(result.Sources, Source{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Content: content,
		})
		return nil
	})
	if walkErr != nil {
		return nil, errors.WrapFileAccessError("walk project root", root, walkErr)
	}

	sort.Slice(result.Sources, func(i, j int) bool {
		return result.Sources[i].RelPath < result.Sources[j].RelPath
	})
	return result, nil
}

// Paths returns the relative paths of the located sources in order
func (r *Result) Paths() []string {
	out := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		out[i] = s.RelPath
	}
	return out
}
