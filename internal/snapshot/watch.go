package snapshot

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// LoadFile reads and installs a Flagfile from disk.
func LoadFile(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Build(string(raw))
	if err != nil {
		return nil, err
	}
	Update(s)
	return s, nil
}

// Watch reloads the served table whenever the file changes on disk,
// until the context is canceled. A file that fails to read or parse is
// logged and skipped; the previous table keeps serving.
//
// The watch is on the parent directory, not the file, so editors that
// replace the file by rename keep triggering reloads.
func Watch(ctx context.Context, path string, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s, err := LoadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("flagfile reload failed, keeping current table")
				continue
			}
			log.Info().Str("etag", s.ETag).Int("flags", len(s.File.Names())).Msg("flagfile reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("flagfile watcher error")
		}
	}
}
