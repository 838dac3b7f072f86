// Package session wires a model to the filesystem: a directory lister, the
// roles updater with its directory counter and preview runner, all driven by
// one loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"dirview/internal/config"
	"dirview/internal/dircount"
	"dirview/internal/dirsource"
	"dirview/internal/logging"
	"dirview/internal/loop"
	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"
	"dirview/internal/rolesupdater"

	"go.uber.org/zap"
)

// BaseRoles are requested in every session.
var BaseRoles = []string{role.Text, role.IsDir, role.IsLink, role.IsHidden}

// TreeRoles are added when directories can be expanded in place.
var TreeRoles = []string{role.IsExpanded, role.IsExpandable, role.ExpandedParentsCount}

type Options struct {
	Config *config.View
	// Watch keeps listed directories up to date.
	Watch bool
	// Tree requests the roles needed to expand directories.
	Tree bool
	// CachePath of the preview database. Empty disables the cache.
	CachePath string
	Logger    *zap.Logger
}

// Session owns everything needed to show one directory. The goroutine that
// pumps the loop, through Wait or by calling Loop.RunPending, is the only one
// allowed to use it.
type Session struct {
	Loop    *loop.Loop
	Lister  *dirsource.Lister
	Model   *model.Model
	Counter *dircount.Counter
	Runner  *preview.Runner
	Cache   *preview.Cache
	Updater *rolesupdater.Updater
	Status  *Status

	log         *zap.Logger
	unsubscribe func()
}

// DefaultCachePath is the preview database below preview.CacheDir.
func DefaultCachePath() (string, error) {
	dir, err := preview.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "previews.db"), nil
}

func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	log := logging.OrGlobal(opts.Logger, "session")

	s := &Session{Loop: loop.New(), log: log, Status: &Status{}}

	if opts.CachePath != "" {
		c, err := preview.OpenCache(ctx, opts.CachePath)
		if err != nil {
			// Previews still work, they are just generated every time.
			log.Warn("preview cache unavailable", zap.String("path", opts.CachePath), zap.Error(err))
		} else {
			s.Cache = c
		}
	}

	s.Lister = dirsource.New(s.Loop, dirsource.Options{
		ShowHidden: cfg.ShowHidden,
		DirsOnly:   cfg.DirsOnly,
		Watch:      opts.Watch,
		Logger:     log.Named("dirsource"),
	})
	s.Model = model.New(s.Loop, s.Lister, log.Named("model"))
	s.Counter = dircount.New(s.Loop, dircount.Options{
		Flags: dircount.Flags{
			ShowHidden: cfg.ShowHidden,
			DirsOnly:   cfg.DirsOnly,
			SumSizes:   cfg.DirectorySizeMode == "size",
		},
		Watch:  opts.Watch,
		Logger: log.Named("dircount"),
	})
	s.Runner = preview.NewRunner(s.Loop, preview.RunnerOptions{
		Cache:  s.Cache,
		Logger: log.Named("preview"),
	})
	s.Updater = rolesupdater.New(s.Loop, s.Model, rolesupdater.Options{
		Counter: s.Counter,
		StartPreview: func(req preview.Request, h preview.Handlers) rolesupdater.PreviewJob {
			return s.Runner.Start(req, h)
		},
		Plugins:                   cfg.EnabledPlugins,
		LocalFileSizePreviewLimit: cfg.MaximumPreviewSize,
		Logger:                    log.Named("rolesupdater"),
	})
	s.unsubscribe = s.Model.Subscribe(s.Status)

	roles := role.NewSet(BaseRoles...)
	roles.Add(cfg.Roles...)
	if opts.Tree {
		roles.Add(TreeRoles...)
	}
	s.Apply(cfg, roles)
	return s, nil
}

// Apply sets up sorting, grouping and previews from cfg, and requests roles.
func (s *Session) Apply(cfg *config.View, roles role.Set) {
	m := s.Model
	m.SetRoles(roles)
	if cfg.SortRole != "" {
		m.SetSortRole(cfg.SortRole, true)
	}
	order := model.Ascending
	if cfg.SortOrder == "descending" {
		order = model.Descending
	}
	m.SetSortOrder(order)
	m.SetSortDirectoriesFirst(cfg.SortDirsFirst)
	m.SetSortHiddenLast(cfg.SortHiddenLast)
	m.SetNaturalSorting(cfg.NaturalSorting)
	m.SetGroupedSorting(cfg.Grouped)
	mode := model.ContentCount
	if cfg.DirectorySizeMode == "size" {
		mode = model.ContentSize
	}
	m.SetDirectorySizeMode(mode)

	u := s.Updater
	u.SetIconSize(cfg.IconSize)
	u.SetEnabledPlugins(cfg.EnabledPlugins)
	u.SetLocalFileSizePreviewLimit(cfg.MaximumPreviewSize)
	u.SetPreviewsShown(cfg.Previews)
	u.SetRoles(m.Roles())
}

// SetRoles requests roles from the model and the updater alike.
func (s *Session) SetRoles(roles role.Set) {
	s.Model.SetRoles(roles)
	s.Updater.SetRoles(s.Model.Roles())
}

// SetSortRole sorts by name, which may request it as a new role.
func (s *Session) SetSortRole(name string) {
	s.Model.SetSortRole(name, true)
	s.Updater.SetRoles(s.Model.Roles())
}

// Load starts listing url.
func (s *Session) Load(url string) {
	s.Status.reset()
	s.Model.Load(url)
}

// Settled reports whether loading is done and no role is being resolved.
func (s *Session) Settled() bool {
	return s.Status.Err() != nil ||
		(!s.Lister.IsListing() &&
			s.Updater.State() == rolesupdater.Idle &&
			!s.Counter.Busy() &&
			!s.Model.ResortPending())
}

// Wait runs the loop on the calling goroutine until done returns true.
func (s *Session) Wait(ctx context.Context, done func() bool) error {
	for {
		s.Loop.RunPending()
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Loop.Ready():
		}
	}
}

// LoadAndSettle loads url and waits until every item has its roles. A
// listing error is returned.
func (s *Session) LoadAndSettle(ctx context.Context, url string) error {
	s.Load(url)
	listed := func() bool { return s.Status.Err() != nil || !s.Lister.IsListing() }
	if err := s.Wait(ctx, listed); err != nil {
		return err
	}
	return s.settleAll(ctx)
}

// settleAll marks every item visible, so none is left out of resolving, and
// waits for the roles.
func (s *Session) settleAll(ctx context.Context) error {
	if err := s.Status.Err(); err != nil {
		return err
	}
	count := s.Model.Count()
	s.Updater.SetMaximumVisibleItems(max(count, 1))
	s.Updater.SetVisibleIndexRange(0, count)
	if err := s.Wait(ctx, s.Settled); err != nil {
		return err
	}
	return s.Status.Err()
}

// ExpandAll expands directories until depth levels are shown, waiting for
// each level to settle.
func (s *Session) ExpandAll(ctx context.Context, depth int) error {
	for level := 0; level < depth; level++ {
		expanded := false
		for i := 0; i < s.Model.Count(); i++ {
			if s.Model.ExpandedParentsCount(i) == level && s.Model.SetExpanded(i, true) {
				expanded = true
			}
		}
		if !expanded {
			return nil
		}
		listed := func() bool { return s.Status.Err() != nil || !s.Lister.IsListing() }
		if err := s.Wait(ctx, listed); err != nil {
			return err
		}
		if err := s.settleAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops all background work.
func (s *Session) Close() error {
	s.unsubscribe()
	s.Updater.Close()
	s.Model.Close()
	errs := []error{s.Lister.Close(), s.Counter.Close()}
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}
	return errors.Join(errs...)
}

// Status follows the model's loading notifications.
type Status struct {
	model.BaseObserver

	Loading      bool
	Progress     int
	SortProgress int
	Message      string
	err          error
}

func (st *Status) reset() {
	st.Loading = true
	st.Progress = 0
	st.SortProgress = 100
	st.Message = ""
	st.err = nil
}

// Err returns the error that ended the last load.
func (st *Status) Err() error { return st.err }

func (st *Status) DirectoryLoadingStarted() { st.Loading = true }

func (st *Status) DirectoryLoadingProgress(percent int) { st.Progress = percent }

func (st *Status) DirectoryLoadingCompleted() {
	st.Loading = false
	st.Progress = 100
}

func (st *Status) DirectoryLoadingCanceled() { st.Loading = false }

func (st *Status) DirectorySortingProgress(percent int) { st.SortProgress = percent }

func (st *Status) ErrorMessage(text string) {
	st.Loading = false
	st.Message = text
	st.err = errors.New(text)
}

func (st *Status) URLIsFileError(url string) {
	st.Loading = false
	st.err = fmt.Errorf("%s: %w", url, dirsource.ErrNotDirectory)
}

func (st *Status) DirectoryRedirection(oldURL, newURL string) {
	st.Message = fmt.Sprintf("%s moved to %s", oldURL, newURL)
}

func (st *Status) CurrentDirectoryRemoved() {
	st.Message = "the current directory was removed"
}
