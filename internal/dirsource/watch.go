package dirsource

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"dirview/internal/fileitem"
	"dirview/internal/loop"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher forwards fsnotify events to the owner goroutine as the URL of the
// directory that changed.
type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

func newWatcher(sched loop.Scheduler, onDirty func(dir, name string), log *zap.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}
				name := fileitem.CleanURL(ev.Name)
				dir := fileitem.ParentURL(name)
				sched.Post(func() { onDirty(dir, name) })
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Debug("watch error", zap.Error(err))
			}
		}
	}()
	return w, nil
}

func (w *watcher) add(dir string) error { return w.fs.Add(dir) }

func (w *watcher) remove(dir string) { _ = w.fs.Remove(dir) }

func (w *watcher) close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

// onFSEvent marks the directory holding name dirty. A watched directory that
// is itself removed also marks its own listing dirty.
func (l *Lister) onFSEvent(dir, name string) {
	if ls, ok := l.listings[name]; ok && !ls.running {
		l.markDirty(ls)
	}
	if ls, ok := l.listings[dir]; ok && !ls.running {
		l.markDirty(ls)
	}
}

func (l *Lister) markDirty(ls *listing) {
	if ls.dirty == nil {
		url := ls.url
		ls.dirty = l.sched.NewTimer(DirtyDelay, func() { l.rescan(url) })
	}
	ls.dirty.Start()
}

// Rescan re-reads a listed directory and reports the difference. It is what
// a dirty notification triggers, and can be called directly.
func (l *Lister) Rescan(url string) { l.rescan(fileitem.CleanURL(url)) }

func (l *Lister) rescan(url string) {
	ls, ok := l.listings[url]
	if !ok || ls.running {
		return
	}
	gen := ls.gen
	go func() {
		fresh, err := readAll(url)
		l.sched.Post(func() { l.applyRescan(url, gen, fresh, err) })
	}()
}

func readAll(url string) (map[string]*fileitem.Item, error) {
	entries, err := os.ReadDir(url)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*fileitem.Item, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		it := fileitem.FromFileInfo(filepath.Join(url, e.Name()), info)
		out[it.URL()] = it
	}
	return out, nil
}

func (l *Lister) applyRescan(url string, gen uint64, fresh map[string]*fileitem.Item, err error) {
	ls := l.current(url, gen)
	if ls == nil || ls.running {
		return
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.log.Info("rescan failed", zap.String("url", url), zap.Error(err))
			return
		}
		var gone []*fileitem.Item
		for _, it := range ls.items {
			if l.visible(it) {
				gone = append(gone, it)
			}
		}
		if url == l.root {
			gone = append(gone, fileitem.New(fileitem.Attrs{URL: url, Dir: true}))
		}
		l.forget(url)
		if len(gone) > 0 {
			l.events.ItemsDeleted(gone)
		}
		return
	}

	var added, deleted []*fileitem.Item
	var changed []Change
	for u, old := range ls.items {
		it, ok := fresh[u]
		switch {
		case !ok:
			if l.visible(old) {
				deleted = append(deleted, old)
			}
		case !fileitem.Same(old, it):
			if l.visible(it) {
				changed = append(changed, Change{Old: old, New: it})
			}
		default:
			// Keep the instance the model already holds.
			fresh[u] = old
		}
	}
	for u, it := range fresh {
		if _, ok := ls.items[u]; !ok && l.visible(it) {
			added = append(added, it)
		}
	}
	ls.items = fresh

	if len(deleted) > 0 {
		l.events.ItemsDeleted(deleted)
	}
	if len(added) > 0 {
		l.events.ItemsAdded(url, added)
	}
	if len(changed) > 0 {
		l.events.ItemsRefreshed(changed)
	}
}
