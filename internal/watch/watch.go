// Package watch implements the dev-mode rebuild loop: build once, then
// watch the frontend inputs and rebuild after a quiet period whenever a
// relevant file changes.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/macbundler/internal/config"
	"git.home.luguber.info/inful/macbundler/internal/errors"
	"git.home.luguber.info/inful/macbundler/internal/pipeline"
	"git.home.luguber.info/inful/macbundler/internal/ui"
	"git.home.luguber.info/inful/macbundler/internal/workspace"
)

// Watcher rebuilds the app bundle when frontend inputs change. Backend and
// wrapper stages never run here: watch mode always applies the dev-mode
// configuration, which also disables signing.
type Watcher struct {
	cfg      config.Config
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	rebuild chan struct{}
}

// New creates a Watcher over the project root. The configuration is forced
// into dev mode.
func New(cfg config.Config, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.InternalError("create file watcher", err)
	}

	cfg.DevMode = true
	cfg.SkipBackend = true
	cfg.SkipWrapper = true
	cfg.CodesignIdentity = ""

	return &Watcher{
		cfg:      cfg,
		root:     root,
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
		rebuild:  make(chan struct{}, 1),
	}, nil
}

// Run builds once, then loops until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addWatches(); err != nil {
		return err
	}

	if err := w.build(ctx); err != nil {
		// The first build failing is not fatal; the user gets another
		// attempt on the next save.
		ui.Warn("Initial build failed: %v", err)
	}

	go w.eventLoop(ctx)

	ui.Headline("Watching for frontend changes (Ctrl-C to stop)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.rebuild:
			if err := w.build(ctx); err != nil {
				ui.Warn("Rebuild failed: %v", err)
			}
		}
	}
}

// addWatches registers the frontend input trees. Directories are watched
// recursively; fsnotify does not descend on its own.
func (w *Watcher) addWatches() error {
	frontend := filepath.Join(w.root, workspace.FrontendDirName)

	// Top-level files (package.json, index.html, vite configs) are covered
	// by watching the directory itself.
	roots := []string{
		frontend,
		filepath.Join(frontend, "src"),
		filepath.Join(frontend, "public"),
	}

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		})
		if err != nil {
			return errors.FilesystemError("register watch directories", err)
		}
	}
	return nil
}

// eventLoop coalesces bursts of filesystem events into single rebuild
// requests.
func (w *Watcher) eventLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}
			slog.Debug("Change detected", "path", event.Name, "op", event.Op.String())

			// New directories need watches of their own.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(filepath.Base(event.Name)) {
					_ = w.watcher.Add(event.Name)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case w.rebuild <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) build(ctx context.Context) error {
	return pipeline.New(w.cfg, w.root).Build(ctx)
}

// relevantEvent filters out events the build does not care about: chmods,
// editor temp files, and anything under the build output itself.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	if strings.Contains(event.Name, string(filepath.Separator)+"dist"+string(filepath.Separator)) ||
		strings.HasSuffix(event.Name, string(filepath.Separator)+"dist") {
		return false
	}
	return true
}

// skipDir names directories that never feed the build.
func skipDir(name string) bool {
	switch name {
	case "node_modules", "dist", ".git", ".mac_build":
		return true
	}
	return false
}
