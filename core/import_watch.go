package core

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const importWatchDefaultDebounce = 2 * time.Second

var importWatchDefaultExtensions = []string{".ged", ".gedcom"}

// WatchDir encua els fitxers GEDCOM que apareixen o canvien a dir. Cada
// fitxer s'encua quan fa debounce que no rep escriptures.
func (a *App) WatchDir(ctx context.Context, dir, tree string, opts Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	exts := parseCSVDefault(a.Config["IMPORT_WATCH_EXTENSIONS"], importWatchDefaultExtensions)
	debounce := time.Duration(parseIntDefault(a.Config["IMPORT_WATCH_DEBOUNCE_MS"], int(importWatchDefaultDebounce/time.Millisecond))) * time.Millisecond
	if debounce <= 0 {
		debounce = importWatchDefaultDebounce
	}

	var mu sync.Mutex
	timers := map[string]*time.Timer{}
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	Infof("vigilant %s per a l'arbre %s", dir, tree)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !watchedExtension(event.Name, exts) {
				continue
			}
			name := event.Name
			mu.Lock()
			if t, ok := timers[name]; ok {
				t.Reset(debounce)
			} else {
				timers[name] = time.AfterFunc(debounce, func() {
					mu.Lock()
					delete(timers, name)
					mu.Unlock()
					if ctx.Err() != nil {
						return
					}
					if _, _, err := a.QueueImport(ctx, name, tree, opts); err != nil {
						Errorf("no s'ha pogut encuar %s: %v", name, err)
					}
				})
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			Errorf("vigilància de %s: %v", dir, err)
		}
	}
}

func watchedExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}
