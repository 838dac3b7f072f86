package dircount

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dirview/internal/fileitem"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func (c *Counter) run() {
	defer close(c.done)
	for {
		req, ok := c.next()
		if !ok {
			return
		}
		res, counted := count(c.ctx, req.path, req.flags)
		if c.ctx.Err() != nil {
			return
		}
		c.sched.Post(func() { c.finish(req, res, counted) })
	}
}

// next blocks until work is queued or the counter is closed.
func (c *Counter) next() (request, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			req := c.queue[0]
			c.queue = c.queue[1:]
			delete(c.queued, req.path)
			c.inFlight++
			c.mu.Unlock()
			return req, true
		}
		c.mu.Unlock()

		select {
		case <-c.ctx.Done():
			return request{}, false
		case <-c.wake:
		}
	}
}

func count(ctx context.Context, dir string, f Flags) (Result, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, false
	}
	res := Result{Path: dir, Size: -1}
	for _, e := range entries {
		if !f.ShowHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if f.DirsOnly && !e.IsDir() {
			continue
		}
		res.Count++
	}
	if f.SumSizes {
		res.Size = sumSizes(ctx, dir, f.ShowHidden)
	}
	return res, true
}

// sumSizes adds up the sizes of the regular files below dir. Symbolic links
// are not followed and unreadable subdirectories are skipped.
func sumSizes(ctx context.Context, dir string, showHidden bool) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p != dir && !showHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

func (c *Counter) startWatching() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watch = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}
				name := fileitem.CleanURL(ev.Name)
				gone := ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
				c.sched.Post(func() { c.changed(name, gone) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Debug("watch error", zap.Error(err))
			}
		}
	}()
	return nil
}

// watchDir reports whether dir is watched, adding a watch if there is room.
func (c *Counter) watchDir(dir string) bool {
	if c.watch == nil {
		return false
	}
	if c.watched[dir] {
		return true
	}
	if len(c.watched) >= MaxWatchedDirs {
		return false
	}
	if err := c.watch.Add(dir); err != nil {
		c.log.Debug("cannot watch", zap.String("path", dir), zap.Error(err))
		return false
	}
	c.watched[dir] = true
	return true
}

// changed drops the cached result of the directory holding name and counts
// it again. A watched directory that disappears is forgotten.
func (c *Counter) changed(name string, gone bool) {
	if gone && c.watched[name] {
		delete(c.watched, name)
		_ = c.watch.Remove(name)
		c.cache.Del(name)
	}
	dir := fileitem.ParentURL(name)
	if !c.watched[dir] {
		return
	}
	c.cache.Del(dir)
	c.log.Debug("directory changed", zap.String("path", dir))
	c.ScanDirectory(dir, High)
}
