package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"client-report-card/internal/logging"
)

// File returns the config file Load would read, or "" when there is none.
func File() string {
	return findConfigFile()
}

// Watch reloads the configuration whenever path is written and passes the
// result to onChange. A reload that fails to parse or validate is logged and
// skipped. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logging.Info().Str("path", path).Msg("watching config file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves show up as a create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load()
			if err != nil {
				logging.Error().Err(err).Str("path", path).Msg("config reload failed, keeping previous config")
				continue
			}
			logging.Info().Str("path", path).Msg("config reloaded")
			onChange(cfg)

			// The inode changes on atomic save.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}
