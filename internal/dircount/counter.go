// Package dircount counts the contents of directories on a background
// worker. Results are cached and the counted directories are watched, so a
// cached count is dropped and refreshed as soon as the directory changes.
package dircount

import (
	"context"
	"slices"
	"sync"

	"dirview/internal/fileitem"
	"dirview/internal/logging"
	"dirview/internal/loop"

	"github.com/dgraph-io/ristretto"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Priority int

const (
	Normal Priority = iota
	// High work is taken before any queued normal work.
	High
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "normal"
}

// MaxWatchedDirs bounds the number of directories watched for changes.
// Directories beyond it are counted but not cached.
const MaxWatchedDirs = 4096

// Result is the outcome of counting one directory.
type Result struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
	// Size is the recursive size of the content, -1 unless sizes are summed.
	Size int64 `json:"size"`
}

// Flags select what is counted.
type Flags struct {
	ShowHidden bool
	DirsOnly   bool
	// SumSizes walks the whole tree and sums the sizes of regular files.
	SumSizes bool
}

type Options struct {
	Flags
	// Watch drops cached results of directories that change.
	Watch  bool
	Logger *zap.Logger
}

type request struct {
	path  string
	flags Flags
	gen   uint64
}

// Counter owns a single worker goroutine. Its methods must be called from
// the scheduler's goroutine; results are delivered there too.
type Counter struct {
	sched    loop.Scheduler
	log      *zap.Logger
	onResult func(Result)
	flags    Flags

	cache   *ristretto.Cache
	watch   *fsnotify.Watcher
	watched map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mu       sync.Mutex
	gen      uint64
	queue    []request
	queued   map[string]bool
	inFlight int
}

func New(sched loop.Scheduler, opts Options) *Counter {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Counter{
		sched:   sched,
		log:     logging.OrGlobal(opts.Logger, "dircount"),
		flags:   opts.Flags,
		watched: map[string]bool{},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		queued:  map[string]bool{},
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * MaxWatchedDirs,
		MaxCost:     MaxWatchedDirs,
		BufferItems: 64,
	})
	if err != nil {
		c.log.Warn("count cache unavailable", zap.Error(err))
	} else {
		c.cache = cache
	}

	if opts.Watch && c.cache != nil {
		if err := c.startWatching(); err != nil {
			c.log.Warn("directory watching unavailable", zap.Error(err))
		}
	}

	go c.run()
	return c
}

// SetOnResult installs the receiver of results.
func (c *Counter) SetOnResult(fn func(Result)) { c.onResult = fn }

func (c *Counter) Flags() Flags { return c.flags }

// SetFlags changes what is counted. Cached results and queued work counted
// with other flags are dropped.
func (c *Counter) SetFlags(f Flags) {
	if f == c.flags {
		return
	}
	c.flags = f
	c.Stop()
	if c.cache != nil {
		c.cache.Clear()
	}
}

// ScanDirectory counts path. A cached result is reported before it returns;
// otherwise the directory is queued. An unreadable directory never produces
// a result.
func (c *Counter) ScanDirectory(path string, p Priority) {
	path = fileitem.CleanURL(path)
	if c.cache != nil {
		if v, ok := c.cache.Get(path); ok {
			c.log.Debug("count cached", zap.String("path", path))
			c.deliver(v.(Result))
			return
		}
	}

	c.mu.Lock()
	req := request{path: path, flags: c.flags, gen: c.gen}
	switch {
	case !c.queued[path]:
		c.queued[path] = true
		if p == High {
			c.queue = slices.Insert(c.queue, 0, req)
		} else {
			c.queue = append(c.queue, req)
		}
	case p == High:
		// Already queued: move it to the front.
		if i := slices.IndexFunc(c.queue, func(r request) bool { return r.path == path }); i > 0 {
			c.queue = slices.Delete(c.queue, i, i+1)
			c.queue = slices.Insert(c.queue, 0, req)
		}
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Stop drops all queued work. A directory being counted right now is
// finished but its result is discarded.
func (c *Counter) Stop() {
	c.mu.Lock()
	c.gen++
	c.queue = nil
	clear(c.queued)
	c.mu.Unlock()
}

// Pending returns the number of queued directories.
func (c *Counter) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Busy reports whether a directory is queued or being counted.
func (c *Counter) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) > 0 || c.inFlight > 0
}

// Close stops the worker and releases the watcher and the cache.
func (c *Counter) Close() error {
	c.Stop()
	c.cancel()
	<-c.done

	var err error
	if c.watch != nil {
		err = c.watch.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
	return err
}

// finish runs on the scheduler goroutine with the worker's result.
func (c *Counter) finish(req request, res Result, ok bool) {
	c.mu.Lock()
	c.inFlight--
	stale := req.gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}
	if !ok {
		c.log.Debug("directory not countable", zap.String("path", req.path))
		return
	}
	if c.cache != nil && c.watchDir(res.Path) {
		c.cache.Set(res.Path, res, 1)
		c.cache.Wait()
	}
	c.deliver(res)
}

func (c *Counter) deliver(res Result) {
	if c.onResult != nil {
		c.onResult(res)
	}
}
