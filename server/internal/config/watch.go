package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Change is one server setting that differs between two configs.
type Change struct {
	Field    string
	Old, New string
	// Live is false for settings only read at startup (ports, store, auth,
	// stats interval); they take effect after a restart.
	Live bool
}

type watchedField struct {
	name string
	live bool
	get  func(ServerConfig) any
}

var watchedFields = []watchedField{
	{"log_level", true, func(s ServerConfig) any { return s.LogLevel }},
	{"flush.interval", true, func(s ServerConfig) any { return s.Flush.Interval }},
	{"retention.version_life_days", true, func(s ServerConfig) any { return s.Retention.VersionLifeDays }},
	{"retention.prune_interval", true, func(s ServerConfig) any { return s.Retention.PruneInterval }},
	{"grpc_port", false, func(s ServerConfig) any { return s.GRPCPort }},
	{"http_port", false, func(s ServerConfig) any { return s.HTTPPort }},
	{"auth.mode", false, func(s ServerConfig) any { return s.Auth.Mode }},
	{"auth.key_env", false, func(s ServerConfig) any { return s.Auth.KeyEnv }},
	{"auth.header", false, func(s ServerConfig) any { return s.Auth.EffectiveHeader() }},
	{"store.driver", false, func(s ServerConfig) any { return s.Store.Driver }},
	{"store.dir", false, func(s ServerConfig) any { return s.Store.Dir }},
	{"store.sqlite_path", false, func(s ServerConfig) any { return s.Store.SQLitePath }},
	{"store.s3", false, func(s ServerConfig) any { return s.Store.S3 }},
	{"stats.interval", false, func(s ServerConfig) any { return s.Stats.Interval }},
}

// Diff lists the settings that differ from prev to next, in a fixed order.
// A nil prev reports nothing.
func Diff(prev, next *Config) []Change {
	if prev == nil || next == nil {
		return nil
	}
	var out []Change
	for _, f := range watchedFields {
		o, n := f.get(prev.Server), f.get(next.Server)
		if o == n {
			continue
		}
		out = append(out, Change{
			Field: f.name,
			Old:   fmt.Sprintf("%v", o),
			New:   fmt.Sprintf("%v", n),
			Live:  f.live,
		})
	}
	return out
}

func loadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch monitors path and calls onChange with the reloaded, env-overlaid
// Config whenever a save changes at least one setting. Saves that leave the
// settings as they were are ignored, so editors that fire several events per
// save trigger one call. It runs until ctx is cancelled.
//
// A reload that fails validation is logged and the previous config stays in
// effect. Changed settings that need a restart are logged as warnings.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	current, err := loadWithEnv(path)
	if err != nil {
		slog.Warn("config: current file invalid, first valid save is applied", "path", path, "err", err)
	}
	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves replace the file, which shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

			next, err := loadWithEnv(path)
			if err != nil {
				slog.Error("config: reload rejected, keeping previous settings", "path", path, "err", err)
				continue
			}
			changes := Diff(current, next)
			if current != nil && len(changes) == 0 {
				continue
			}
			current = next

			fields := make([]string, 0, len(changes))
			for _, c := range changes {
				fields = append(fields, c.Field)
				if !c.Live {
					slog.Warn("config: setting changed, restart to apply",
						"field", c.Field, "old", c.Old, "new", c.New)
				}
			}
			slog.Info("config: reloaded",
				"path", path,
				"changed", fields,
				"flush_interval", next.Server.Flush.Interval,
				"prune_interval", next.Server.Retention.PruneInterval,
				"version_life_days", next.Server.Retention.VersionLifeDays,
			)
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
