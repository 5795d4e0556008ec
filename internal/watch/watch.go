// Package watch reports batches of changed source files under a directory
// tree, debounced so editors that write in bursts trigger one rebuild.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/toyz/spectra/internal/locator"
)

// DefaultDebounce is the quiet period used when none is configured
const DefaultDebounce = 250 * time.Millisecond

// Options configures a watch
type Options struct {
	// Extensions limits which file changes are reported; empty reports all
	Extensions []string
	Debounce   time.Duration
	// Ready, when set, is called once every directory is being watched
	Ready func()
}

// Watch blocks until ctx is done, calling onChange with the sorted absolute
// paths that changed during each debounce window
func Watch(ctx context.Context, root string, opts Options, onChange func(changed []string)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absRoot = filepath.Clean(absRoot)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, absRoot, absRoot); err != nil {
		return err
	}
	if opts.Ready != nil {
		opts.Ready()
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	pendingPaths := map[string]bool{}

	resetDebounce := func(path string) {
		pendingPaths[path] = true
		if pending && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if ignoredFile(path) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if !skipDir(absRoot, path, filepath.Base(path)) {
						_ = addRecursive(watcher, path, absRoot)
						// files created together with the directory never raise their own event
						resetDebounce(path)
					}
					continue
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(path))] {
				continue
			}
			resetDebounce(path)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			changed := make([]string, 0, len(pendingPaths))
			for path := range pendingPaths {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pendingPaths = map[string]bool{}
			onChange(changed)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, dir, root string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if skipDir(root, path, entry.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipDir mirrors the directories the locator never descends into
func skipDir(root, path, name string) bool {
	if path == root {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range locator.DefaultIgnoredDirs {
		if name == ignored {
			return true
		}
	}
	return false
}

func ignoredFile(path string) bool {
	base := filepath.Base(path)
	return base == ".DS_Store" ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, "~") ||
		strings.HasPrefix(base, ".#")
}
