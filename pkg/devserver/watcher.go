package devserver

import (
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watcherPair owns the two recursive watchers the dev server needs: one on
// the source tree (triggers a bundler rebuild) and one on the client output
// directory (triggers a module cache clear, manifest reload, and an SSE
// broadcast). A setup failure on either degrades hot-reload rather than
// aborting the server.
type watcherPair struct {
	src *fsnotify.Watcher
	out *fsnotify.Watcher
}

func newWatcherPair(srcDir, outDir string, logger *slog.Logger, onSrcChange, onOutChange func()) *watcherPair {
	wp := &watcherPair{}

	src, err := watchRecursive(srcDir)
	if err != nil {
		logger.Warn("hot-reload disabled: failed to watch source tree", "dir", srcDir, "error", err)
	} else {
		wp.src = src
		go drain(src, onSrcChange, logger)
	}

	out, err := watchRecursive(outDir)
	if err != nil {
		logger.Warn("hot-reload disabled: failed to watch output directory", "dir", outDir, "error", err)
	} else {
		wp.out = out
		go drain(out, onOutChange, logger)
	}

	return wp
}

func drain(w *fsnotify.Watcher, onEvent func(), logger *slog.Logger) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				onEvent()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func watchRecursive(root string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(w, root); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// Close cancels both watchers; owned and called once by the server on
// shutdown.
func (wp *watcherPair) Close() {
	if wp.src != nil {
		wp.src.Close()
	}
	if wp.out != nil {
		wp.out.Close()
	}
}
