package preview

import (
	"context"
	"errors"
	"runtime"

	"dirview/internal/fileitem"
	"dirview/internal/logging"
	"dirview/internal/loop"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request describes the previews one job generates.
type Request struct {
	Items []*fileitem.Item
	// Size is the edge of the square previews fit into, in pixels.
	Size    int
	Plugins []string
	// EnlargeSmall scales images smaller than Size up.
	EnlargeSmall bool
	// MaxFileSize fails larger files with ErrTooLarge. 0 means no limit.
	MaxFileSize       int64
	IgnoreMaximumSize bool
}

// Handlers receive a job's results on the scheduler's goroutine, in the
// order of the request's items.
type Handlers struct {
	OnGot      func(it *fileitem.Item, p Preview)
	OnFailed   func(it *fileitem.Item)
	OnFinished func()
}

type RunnerOptions struct {
	// Workers bounds concurrent generation per job, GOMAXPROCS by default.
	Workers int
	Cache   *Cache
	Logger  *zap.Logger
}

// Runner starts preview jobs.
type Runner struct {
	sched   loop.Scheduler
	workers int
	cache   *Cache
	log     *zap.Logger
}

func NewRunner(sched loop.Scheduler, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		sched:   sched,
		workers: opts.Workers,
		cache:   opts.Cache,
		log:     logging.OrGlobal(opts.Logger, "preview"),
	}
}

// Job is a running preview job.
type Job struct {
	cancel context.CancelFunc
	// killed is only touched on the scheduler's goroutine.
	killed bool
}

// Kill stops the job. No handler runs after Kill returns. It must be called
// on the scheduler's goroutine.
func (j *Job) Kill() {
	if j == nil || j.killed {
		return
	}
	j.killed = true
	j.cancel()
}

type slot struct {
	p    Preview
	err  error
	done chan struct{}
}

// Start runs req in the background. It must be called on the scheduler's
// goroutine.
func (r *Runner) Start(req Request, h Handlers) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{cancel: cancel}
	go r.run(ctx, j, req, h)
	return j
}

func (r *Runner) run(ctx context.Context, j *Job, req Request, h Handlers) {
	defer j.cancel()

	slots := make([]slot, len(req.Items))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	go func() {
		for i, it := range req.Items {
			s := &slots[i]
			g.Go(func() error {
				defer close(s.done)
				s.p, s.err = r.generate(ctx, it, req)
				return nil
			})
		}
	}()

	// Deliver in item order, as soon as each one is ready.
	for i, it := range req.Items {
		s := &slots[i]
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
		if s.err != nil && !errors.Is(s.err, ErrUnsupported) && !errors.Is(s.err, context.Canceled) {
			r.log.Debug("preview failed", zap.String("url", it.URL()), zap.Error(s.err))
		}
		p, err := s.p, s.err
		r.sched.Post(func() {
			if j.killed {
				return
			}
			if err != nil {
				if h.OnFailed != nil {
					h.OnFailed(it)
				}
				return
			}
			if h.OnGot != nil {
				h.OnGot(it, p)
			}
		})
	}
	r.sched.Post(func() {
		if !j.killed && h.OnFinished != nil {
			h.OnFinished()
		}
	})
}

func (r *Runner) generate(ctx context.Context, it *fileitem.Item, req Request) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}
	if it.IsDir() {
		return Preview{}, ErrUnsupported
	}
	if !req.IgnoreMaximumSize && req.MaxFileSize > 0 && it.Size() > req.MaxFileSize {
		return Preview{}, ErrTooLarge
	}
	g := generatorFor(it.MimeType(), req.Plugins)
	if g == nil {
		return Preview{}, ErrUnsupported
	}

	key := Key{Path: it.URL(), ModTime: it.ModTime(), Size: it.Size(), Edge: req.Size, Plugin: g.Name()}
	if r.cache != nil {
		p, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn("preview cache read failed", zap.Error(err))
		} else if ok {
			return r.finish(p, req)
		}
	}

	p, err := g.Generate(ctx, it, req.Size)
	if err != nil {
		return Preview{}, err
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, key, p); err != nil {
			r.log.Warn("preview cache write failed", zap.Error(err))
		}
	}
	return r.finish(p, req)
}

func (r *Runner) finish(p Preview, req Request) (Preview, error) {
	if req.EnlargeSmall {
		return enlarge(p, req.Size)
	}
	return p, nil
}
