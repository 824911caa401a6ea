package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yshengliao/routekit/app"
	"github.com/yshengliao/routekit/config"
)

type serveOptions struct {
	configPath string
	dotEnvPath string
	loader     string
	watch      bool
}

// configLoader returns the loader named by opts.loader. The simple loader
// reads no .env file.
func configLoader(opts serveOptions) (config.Loader, error) {
	switch opts.loader {
	case "bofry", "":
		return config.NewBofryLoader().
			WithYAMLFile(opts.configPath).
			WithDotEnvFile(opts.dotEnvPath), nil
	case "simple":
		return config.NewSimpleLoader().WithYAMLFile(opts.configPath), nil
	default:
		return nil, fmt.Errorf("unknown config loader %q, want bofry or simple", opts.loader)
	}
}

// debounceDuration groups the bursts of events editors produce on save.
var debounceDuration = 500 * time.Millisecond

func runServe(ctx context.Context, opts serveOptions) error {
	loader, err := configLoader(opts)
	if err != nil {
		return err
	}
	cfg := &config.Config{}
	if err := loader.Load(cfg); err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	build := func(ctx context.Context) (*app.App, error) {
		return newServer(ctx, cfg, store, logger)
	}

	if !opts.watch {
		srv, err := build(ctx)
		if err != nil {
			return err
		}
		return srv.Start(ctx)
	}
	return serveWatched(ctx, cfg, build)
}

// serveWatched runs the server and rebuilds it whenever a route or schema
// file changes. A rebuild that fails keeps the server down until the next
// change.
func serveWatched(ctx context.Context, cfg *config.Config, build func(context.Context) (*app.App, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{cfg.Routes.Dir, cfg.Routes.SchemasDir} {
		if err := addWatchDir(watcher, dir); err != nil {
			fmt.Printf("Warning: failed to watch directory %s: %v\n", dir, err)
		}
	}

	for {
		runCtx, stop := context.WithCancel(ctx)

		var running chan error
		srv, err := build(runCtx)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			fmt.Println("Waiting for changes...")
		} else {
			running = make(chan error, 1)
			go func() { running <- srv.Start(runCtx) }()
		}

		changed, serverErr := waitForChange(ctx, watcher, running)
		stop()
		if running != nil && serverErr == nil {
			serverErr = <-running
		}

		switch {
		case changed:
			fmt.Println("🔄 Restarting server...")
		case serverErr != nil:
			return serverErr
		default:
			return nil
		}
	}
}

// waitForChange blocks until a relevant file settled, ctx is done or the
// server stopped on its own.
func waitForChange(ctx context.Context, watcher *fsnotify.Watcher, running <-chan error) (bool, error) {
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return false, nil

		case err := <-running:
			if err == nil {
				err = fmt.Errorf("server stopped unexpectedly")
			}
			return false, err

		case event, ok := <-watcher.Events:
			if !ok {
				return false, nil
			}
			if !isRouteFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fmt.Printf("📝 File changed: %s\n", event.Name)
			settled = time.After(debounceDuration)

		case err, ok := <-watcher.Errors:
			if ok {
				fmt.Printf("❌ Watcher error: %v\n", err)
			}

		case <-settled:
			return true, nil
		}
	}
}

func isRouteFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func addWatchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories
		if info.IsDir() && path != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}

		if info.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
}
