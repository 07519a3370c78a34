package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written or replaced and passes the
// result to fn. Invalid files are reported through fn's error and the
// previous settings stay in effect at the caller's discretion. Watch blocks
// until ctx ends.
//
// The parent directory is watched rather than the file, so editors that save
// by renaming a temporary file are followed.
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fn(Load(abs))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(Config{}, fmt.Errorf("watch %s: %w", path, err))
		}
	}
}
