package platform

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/furrow/pkg/core"
	"github.com/aretw0/furrow/pkg/dataset"
)

// DefaultDebounce is how long Watch waits after the last file event before re-seeding.
const DefaultDebounce = 200 * time.Millisecond

// Watch seeds every dataset under dir matching pattern, then re-seeds a file each
// time it is created or written. It blocks until ctx is canceled.
//
// A dataset that fails to load or write is logged and skipped; the loop keeps running.
func Watch(ctx context.Context, store core.Store, dir, pattern string, opts ...Option) error {
	o := applyOptions(opts)
	if pattern == "" {
		pattern = dataset.DefaultPattern
	}
	debounce := DefaultDebounce
	if d, ok := o.config["debounce"].(time.Duration); ok && d > 0 {
		debounce = d
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, dir); err != nil {
		return err
	}

	initial, err := dataset.Match(dir, pattern)
	if err != nil {
		return err
	}
	for _, path := range initial {
		seedFile(ctx, store, path, o, opts)
	}

	changed := make(chan string)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		return forwardChanges(ctx, watcher, dir, pattern, changed, o)
	}, lifecycle.WithErrorHandler(func(err error) {
		if o.logger != nil {
			o.logger.Error("watch panic", "error", err)
		}
	}))

	if o.logger != nil {
		o.logger.Info("watching datasets", "dir", dir, "pattern", pattern)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changed:
			pending[path] = struct{}{}
			timer.Reset(debounce)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				seedFile(ctx, store, p, o, opts)
			}
		}
	}
}

// forwardChanges turns raw fsnotify events into dataset paths.
func forwardChanges(ctx context.Context, watcher *fsnotify.Watcher, dir, pattern string, out chan<- string, o *options) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if o.logger != nil {
				o.logger.Debug("event received", "name", event.Name, "op", event.Op.String())
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil && o.logger != nil {
						o.logger.Error("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !dataset.Matches(dir, event.Name, pattern) {
				continue
			}
			select {
			case out <- event.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if o.logger != nil {
				o.logger.Error("watcher error", "error", err)
			}
		}
	}
}

func seedFile(ctx context.Context, store core.Store, path string, o *options, opts []Option) {
	b, err := dataset.LoadFile(path, dataset.WithClock(o.now))
	if err != nil {
		if o.logger != nil {
			o.logger.Error("failed to load dataset", "path", path, "error", err)
		}
		return
	}
	if _, err := Seed(ctx, store, []dataset.Batch{b}, opts...); err != nil && o.logger != nil {
		o.logger.Error("failed to seed dataset", "path", path, "error", err)
	}
}

// addRecursive watches root and every directory below it, skipping hidden ones.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
