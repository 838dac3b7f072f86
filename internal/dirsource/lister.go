package dirsource

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"dirview/internal/fileitem"
	"dirview/internal/logging"
	"dirview/internal/loop"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 200
	// DirtyDelay coalesces bursts of filesystem notifications per directory.
	DirtyDelay = 300 * time.Millisecond
)

type Options struct {
	BatchSize  int
	ShowHidden bool
	DirsOnly   bool
	// Watch enables fsnotify based updates of listed directories.
	Watch  bool
	Logger *zap.Logger
}

// listing is the state of one opened directory. It is only touched on the
// owner goroutine.
type listing struct {
	url     string
	gen     uint64
	cancel  context.CancelFunc
	running bool
	items   map[string]*fileitem.Item // by URL, hidden ones included
	dirty   *loop.Timer
}

// Lister lists directories and keeps them up to date.
type Lister struct {
	sched  loop.Scheduler
	log    *zap.Logger
	events Events

	batchSize  int
	showHidden bool
	dirsOnly   bool
	// Visibility flags as of the last emitted state.
	emittedHidden   bool
	emittedDirsOnly bool

	root     string
	gen      uint64
	listings map[string]*listing
	watch    *watcher
}

func New(sched loop.Scheduler, opts Options) *Lister {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	l := &Lister{
		sched:           sched,
		log:             logging.OrGlobal(opts.Logger, "dirsource"),
		batchSize:       opts.BatchSize,
		showHidden:      opts.ShowHidden,
		dirsOnly:        opts.DirsOnly,
		emittedHidden:   opts.ShowHidden,
		emittedDirsOnly: opts.DirsOnly,
		listings:        map[string]*listing{},
	}
	if opts.Watch {
		w, err := newWatcher(sched, l.onFSEvent, l.log)
		if err != nil {
			l.log.Warn("filesystem watching unavailable", zap.Error(err))
		} else {
			l.watch = w
		}
	}
	return l
}

// SetEvents installs the receiver of listing events.
func (l *Lister) SetEvents(e Events) { l.events = e }

// URL returns the root that was opened with Reload.
func (l *Lister) URL() string { return l.root }

func (l *Lister) ShowHidden() bool { return l.showHidden }

func (l *Lister) SetShowHidden(show bool) { l.showHidden = show }

func (l *Lister) DirsOnly() bool { return l.dirsOnly }

func (l *Lister) SetDirsOnly(dirsOnly bool) { l.dirsOnly = dirsOnly }

// IsListing reports whether any directory is still being read.
func (l *Lister) IsListing() bool {
	for _, ls := range l.listings {
		if ls.running {
			return true
		}
	}
	return false
}

// Close stops everything and releases the watcher.
func (l *Lister) Close() error {
	for url := range l.listings {
		l.forget(url)
	}
	if l.watch != nil {
		return l.watch.close()
	}
	return nil
}

// Open lists url. With Reload every previously listed directory is dropped
// and Cleared is sent first.
func (l *Lister) Open(url string, mode OpenMode) {
	url = fileitem.CleanURL(url)
	if mode == Reload {
		for u := range l.listings {
			l.forget(u)
		}
		l.root = url
		if l.events != nil {
			l.events.Cleared()
		}
	} else if ls, ok := l.listings[url]; ok {
		if ls.running {
			return
		}
		// Already listed: replay what is known.
		l.events.Started(url)
		if items := l.visibleItems(ls); len(items) > 0 {
			l.events.ItemsAdded(url, items)
		}
		l.events.Completed()
		return
	}

	l.gen++
	ctx, cancel := context.WithCancel(context.Background())
	ls := &listing{
		url:     url,
		gen:     l.gen,
		cancel:  cancel,
		running: true,
		items:   map[string]*fileitem.Item{},
	}
	l.listings[url] = ls

	l.log.Debug("listing started", zap.String("url", url), zap.Bool("reload", mode == Reload))
	l.events.Started(url)
	go l.read(ctx, url, ls.gen)
}

// Stop cancels the listing of url and stops watching it.
func (l *Lister) Stop(url string) {
	url = fileitem.CleanURL(url)
	ls, ok := l.listings[url]
	if !ok {
		return
	}
	wasRunning := ls.running
	l.forget(url)
	if wasRunning && !l.IsListing() {
		l.events.Canceled()
	}
}

// StopAll cancels every running listing.
func (l *Lister) StopAll() {
	canceled := false
	for _, ls := range l.listings {
		if ls.running {
			ls.cancel()
			ls.running = false
			canceled = true
		}
	}
	if canceled {
		l.events.Canceled()
	}
}

func (l *Lister) forget(url string) {
	ls, ok := l.listings[url]
	if !ok {
		return
	}
	ls.cancel()
	if ls.dirty != nil {
		ls.dirty.Stop()
	}
	if l.watch != nil {
		l.watch.remove(url)
	}
	delete(l.listings, url)
}

func (l *Lister) visible(it *fileitem.Item) bool {
	return (l.showHidden || !it.IsHidden()) && (!l.dirsOnly || it.IsDir())
}

func (l *Lister) visibleItems(ls *listing) []*fileitem.Item {
	var out []*fileitem.Item
	for _, it := range ls.items {
		if l.visible(it) {
			out = append(out, it)
		}
	}
	return out
}

// read runs on its own goroutine and posts batches back to the owner.
func (l *Lister) read(ctx context.Context, url string, gen uint64) {
	fi, err := os.Stat(url)
	if err != nil {
		l.sched.Post(func() { l.fail(url, gen, err) })
		return
	}
	if !fi.IsDir() {
		l.sched.Post(func() { l.notDir(url, gen) })
		return
	}
	if resolved, err := filepath.EvalSymlinks(url); err == nil {
		if resolved = fileitem.CleanURL(resolved); resolved != url {
			l.sched.Post(func() {
				if l.current(url, gen) != nil {
					l.events.Redirected(url, resolved)
				}
			})
		}
	}

	entries, err := os.ReadDir(url)
	if err != nil && len(entries) == 0 {
		l.sched.Post(func() { l.fail(url, gen, err) })
		return
	}

	total := len(entries)
	batch := make([]*fileitem.Item, 0, l.batchSize)
	for i, e := range entries {
		if ctx.Err() != nil {
			return
		}
		info, err := e.Info()
		if err != nil {
			// Vanished between ReadDir and Lstat.
			continue
		}
		batch = append(batch, fileitem.FromFileInfo(filepath.Join(url, e.Name()), info))
		if len(batch) == l.batchSize {
			items, percent := batch, (i+1)*100/total
			l.sched.Post(func() { l.deliver(url, gen, items, percent) })
			batch = make([]*fileitem.Item, 0, l.batchSize)
		}
	}
	items := batch
	l.sched.Post(func() {
		if len(items) > 0 {
			l.deliver(url, gen, items, 100)
		}
		l.finish(url, gen)
	})
}

// current returns the listing if gen is still the live generation for url.
func (l *Lister) current(url string, gen uint64) *listing {
	ls, ok := l.listings[url]
	if !ok || ls.gen != gen {
		return nil
	}
	return ls
}

func (l *Lister) deliver(url string, gen uint64, items []*fileitem.Item, percent int) {
	ls := l.current(url, gen)
	if ls == nil || !ls.running {
		return
	}
	var shown []*fileitem.Item
	for _, it := range items {
		ls.items[it.URL()] = it
		if l.visible(it) {
			shown = append(shown, it)
		}
	}
	if len(shown) > 0 {
		l.events.ItemsAdded(url, shown)
	}
	if url == l.root {
		l.events.Progress(percent)
	}
}

func (l *Lister) finish(url string, gen uint64) {
	ls := l.current(url, gen)
	if ls == nil || !ls.running {
		return
	}
	ls.running = false
	if l.watch != nil {
		if err := l.watch.add(url); err != nil {
			l.log.Debug("watch failed", zap.String("url", url), zap.Error(err))
		}
	}
	l.log.Debug("listing completed", zap.String("url", url), zap.Int("items", len(ls.items)))
	if !l.IsListing() {
		l.events.Completed()
	}
}

func (l *Lister) fail(url string, gen uint64, err error) {
	ls := l.current(url, gen)
	if ls == nil {
		return
	}
	l.log.Info("listing failed", zap.String("url", url), zap.Error(err))
	l.forget(url)
	l.events.ErrorMessage(err.Error())
	if !l.IsListing() {
		l.events.Canceled()
	}
}

func (l *Lister) notDir(url string, gen uint64) {
	if l.current(url, gen) == nil {
		return
	}
	l.forget(url)
	l.events.URLIsFile(url)
	if !l.IsListing() {
		l.events.Canceled()
	}
}

// EmitChanges re-evaluates every listed item against the hidden and
// dirs-only flags and reports items that appeared or disappeared.
func (l *Lister) EmitChanges() {
	if l.emittedHidden == l.showHidden && l.emittedDirsOnly == l.dirsOnly {
		return
	}
	wasVisible := func(it *fileitem.Item) bool {
		return (l.emittedHidden || !it.IsHidden()) && (!l.emittedDirsOnly || it.IsDir())
	}

	var deleted []*fileitem.Item
	for _, ls := range l.listings {
		var added []*fileitem.Item
		for _, it := range ls.items {
			before, now := wasVisible(it), l.visible(it)
			switch {
			case now && !before:
				added = append(added, it)
			case before && !now:
				deleted = append(deleted, it)
			}
		}
		if len(added) > 0 {
			l.events.ItemsAdded(ls.url, added)
		}
	}
	if len(deleted) > 0 {
		l.events.ItemsDeleted(deleted)
	}
	l.emittedHidden, l.emittedDirsOnly = l.showHidden, l.dirsOnly
}
