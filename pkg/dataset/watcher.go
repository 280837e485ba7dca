package dataset

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
)

// Watcher invalidates cached races when one of their source files
// changes on disk. Directories are watched instead of the files
// themselves since editors and exports typically replace files by
// rename, which would silently drop a file watch.
type Watcher struct {
	cache   *Cache
	watcher *fsnotify.Watcher
	// byFile maps a cleaned source path to the races depending on it
	byFile map[string][]string
	l      *log.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWatcher(cache *Cache, catalog *config.Catalog) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ret := &Watcher{
		cache:   cache,
		watcher: w,
		byFile:  make(map[string][]string),
		l:       log.Default().Named("dataset.watcher"),
	}
	for i := range catalog.Races {
		race := &catalog.Races[i]
		for _, f := range race.SourceFiles() {
			clean := filepath.Clean(f)
			ret.byFile[clean] = append(ret.byFile[clean], race.ID)
		}
	}
	return ret, nil
}

// Start begins watching. It returns after the watch goroutine is up;
// Close (or ctx cancellation) stops it.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for f := range w.byFile {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.l.Error("could not watch source directory",
				log.String("dir", dir), log.ErrorField(err))
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	w.l.Info("watching race sources",
		log.Int("files", len(w.byFile)), log.Int("dirs", len(dirs)))
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.l.Debug("context done, stopping source watch")
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.l.Info("watcher events channel closed, stopping source watch")
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			races, hit := w.byFile[filepath.Clean(event.Name)]
			if !hit {
				continue
			}
			w.l.Info("race source changed",
				log.String("file", event.Name), log.Any("event", event.Op))
			for _, raceID := range races {
				w.cache.Invalidate(ctx, raceID)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.l.Info("watcher errors channel closed, stopping source watch")
				return
			}
			w.l.Error("watcher error", log.ErrorField(err))
		}
	}
}

// Close stops the watch goroutine and releases the inotify handle.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
