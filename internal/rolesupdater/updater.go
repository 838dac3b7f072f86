// Package rolesupdater resolves the expensive roles of a model's items in
// the background: MIME types and icons, previews and directory counts.
// Visible items go first. Work done on the owner goroutine is time boxed,
// everything else is handed to a preview job or a directory counter.
package rolesupdater

import (
	"slices"
	"time"

	"dirview/internal/dircount"
	"dirview/internal/fileitem"
	"dirview/internal/logging"
	"dirview/internal/loop"
	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"

	"go.uber.org/zap"
)

const (
	// MaxBlockTimeout bounds every synchronous pass over the items.
	MaxBlockTimeout = 200 * time.Millisecond
	// ResolveAllItemsLimit is the number of items resolved per update
	// outside the visible range.
	ResolveAllItemsLimit = 500
	// ReadAheadPages of items before and after the visible range are
	// resolved too.
	ReadAheadPages = 5

	DefaultMaximumVisibleItems = 50

	recentlyChangedDelay = 100 * time.Millisecond

	// SizeCounting marks a directory whose content is being counted.
	SizeCounting = -2
)

type State int

const (
	Idle State = iota
	Paused
	ResolvingSortRole
	ResolvingAllRoles
	PreviewJobRunning
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case ResolvingSortRole:
		return "resolving sort role"
	case ResolvingAllRoles:
		return "resolving all roles"
	case PreviewJobRunning:
		return "preview job running"
	}
	return "idle"
}

// DirectoryCounter counts directory contents in the background. Results
// are delivered on the scheduler's goroutine. *dircount.Counter implements
// it.
type DirectoryCounter interface {
	SetOnResult(fn func(dircount.Result))
	SetFlags(f dircount.Flags)
	ScanDirectory(path string, p dircount.Priority)
	Stop()
}

// PreviewJob is a running preview job. After Kill no handler of the job may
// run.
type PreviewJob interface {
	Kill()
}

// PreviewStarter starts a preview job reporting through h.
type PreviewStarter func(req preview.Request, h preview.Handlers) PreviewJob

type Options struct {
	Counter      DirectoryCounter
	StartPreview PreviewStarter
	// Plugins enabled for previews, preview.DefaultPlugins() when nil.
	Plugins []string
	// LocalFileSizePreviewLimit skips previews of larger files. 0 means no
	// limit.
	LocalFileSizePreviewLimit int64
	Logger                    *zap.Logger
}

// Updater watches a model and writes resolved roles back into it. Like the
// model it must only be used from the scheduler's goroutine.
type Updater struct {
	model        *model.Model
	sched        loop.Scheduler
	log          *zap.Logger
	counter      DirectoryCounter
	startPreview PreviewStarter
	hooks        *hooks
	unsubscribe  func()
	closed       bool

	state                        State
	previewChangedDuringPausing  bool
	iconSizeChangedDuringPausing bool
	rolesChangedDuringPausing    bool
	previewShown                 bool
	enlargeSmallPreviews         bool
	clearPreviews                bool

	iconSize                  int
	firstVisible              int
	lastVisible               int
	maximumVisibleItems       int
	roles                     role.Set
	resolvableRoles           role.Set
	enabledPlugins            []string
	localFileSizePreviewLimit int64

	finished urlSet
	// Items whose sort role is still unknown, in arrival order.
	sortQueue   []string
	sortPending urlSet
	pending     []int
	previews    []*fileitem.Item
	previewJob  PreviewJob

	recentlyChangedTimer *loop.Timer
	recentlyChanged      urlSet
	changed              urlSet

	updateQueued      bool
	sortRoleQueued    bool
	pendingRolesQueue bool
	ignoreMoves       bool
}

// New attaches an updater to m. Close detaches it again.
func New(sched loop.Scheduler, m *model.Model, opts Options) *Updater {
	u := &Updater{
		model:                     m,
		sched:                     sched,
		log:                       logging.OrGlobal(opts.Logger, "rolesupdater"),
		counter:                   opts.Counter,
		startPreview:              opts.StartPreview,
		enlargeSmallPreviews:      true,
		lastVisible:               -1,
		maximumVisibleItems:       DefaultMaximumVisibleItems,
		roles:                     role.Set{},
		resolvableRoles:           role.NewSet(role.Size, role.Type, role.IsExpandable),
		enabledPlugins:            slices.Clone(opts.Plugins),
		localFileSizePreviewLimit: opts.LocalFileSizePreviewLimit,
		finished:                  urlSet{},
		sortPending:               urlSet{},
		recentlyChanged:           urlSet{},
		changed:                   urlSet{},
	}
	if u.enabledPlugins == nil {
		u.enabledPlugins = preview.DefaultPlugins()
	}
	if u.startPreview == nil {
		u.startPreview = failingPreviews(sched)
	}
	u.recentlyChangedTimer = sched.NewTimer(recentlyChangedDelay, u.resolveRecentlyChangedItems)
	if u.counter != nil {
		u.counter.SetOnResult(func(r dircount.Result) {
			if !u.closed {
				u.directoryContentsCountReceived(r)
			}
		})
	}
	u.hooks = &hooks{u: u}
	u.unsubscribe = m.Subscribe(u.hooks)
	return u
}

// Close stops all work and detaches the updater from the model.
func (u *Updater) Close() {
	if u.closed {
		return
	}
	u.closed = true
	u.unsubscribe()
	u.killPreviewJob()
	u.recentlyChangedTimer.Stop()
	if u.counter != nil {
		u.counter.Stop()
	}
}

func (u *Updater) State() State { return u.state }

// SetIconSize sets the edge of item icons in pixels. With previews shown
// every preview is generated again.
func (u *Updater) SetIconSize(size int) {
	if size == u.iconSize {
		return
	}
	u.iconSize = size
	if u.state == Paused {
		u.iconSizeChangedDuringPausing = true
	} else if u.previewShown {
		clear(u.finished)
		u.startUpdating()
	}
}

func (u *Updater) IconSize() int { return u.iconSize }

// SetVisibleIndexRange tells the updater which items are on screen.
func (u *Updater) SetVisibleIndexRange(index, count int) {
	index = max(index, 0)
	count = max(count, 0)
	if index == u.firstVisible && count == u.lastVisible-u.firstVisible+1 {
		return
	}
	u.firstVisible = index
	u.lastVisible = min(index+count-1, u.model.Count()-1)
	u.startUpdating()
}

// VisibleIndexRange returns the first and last visible index. last is -1
// before a range was set.
func (u *Updater) VisibleIndexRange() (first, last int) { return u.firstVisible, u.lastVisible }

// SetMaximumVisibleItems sets how many items fit on screen at most. It
// sizes the read ahead.
func (u *Updater) SetMaximumVisibleItems(count int) { u.maximumVisibleItems = count }

func (u *Updater) MaximumVisibleItems() int { return u.maximumVisibleItems }

// SetPreviewsShown switches previews on or off. Switching them off clears
// the previews already set.
func (u *Updater) SetPreviewsShown(show bool) {
	if show == u.previewShown {
		return
	}
	u.previewShown = show
	if !show {
		u.clearPreviews = true
	}
	u.updateAllPreviews()
}

func (u *Updater) PreviewsShown() bool { return u.previewShown }

func (u *Updater) SetEnlargeSmallPreviews(enlarge bool) {
	if enlarge == u.enlargeSmallPreviews {
		return
	}
	u.enlargeSmallPreviews = enlarge
	if u.previewShown {
		u.updateAllPreviews()
	}
}

func (u *Updater) EnlargeSmallPreviews() bool { return u.enlargeSmallPreviews }

func (u *Updater) SetEnabledPlugins(plugins []string) {
	if slices.Equal(plugins, u.enabledPlugins) {
		return
	}
	u.enabledPlugins = slices.Clone(plugins)
	if u.previewShown {
		u.updateAllPreviews()
	}
}

func (u *Updater) EnabledPlugins() []string { return slices.Clone(u.enabledPlugins) }

// SetPaused stops all work, killing a running preview job, or resumes it.
// Changes made while paused are applied on resume.
func (u *Updater) SetPaused(paused bool) {
	if paused == (u.state == Paused) {
		return
	}
	if paused {
		u.state = Paused
		u.killPreviewJob()
		return
	}

	updatePreviews := (u.iconSizeChangedDuringPausing && u.previewShown) || u.previewChangedDuringPausing
	if updatePreviews || u.rolesChangedDuringPausing {
		clear(u.finished)
	}
	u.iconSizeChangedDuringPausing = false
	u.previewChangedDuringPausing = false
	u.rolesChangedDuringPausing = false

	if len(u.sortQueue) > 0 {
		u.state = ResolvingSortRole
		u.resolveNextSortRole()
	} else {
		u.state = Idle
	}
	u.startUpdating()
}

func (u *Updater) IsPaused() bool { return u.state == Paused }

// SetRoles sets the roles to resolve. It should match the model's roles.
func (u *Updater) SetRoles(roles role.Set) {
	if u.roles.Equal(roles) {
		return
	}
	u.roles = roles.Clone()
	if u.state == Paused {
		u.rolesChangedDuringPausing = true
	} else {
		u.startUpdating()
	}
}

func (u *Updater) Roles() role.Set { return u.roles.Clone() }

func (u *Updater) SetLocalFileSizePreviewLimit(size int64) { u.localFileSizePreviewLimit = size }

func (u *Updater) LocalFileSizePreviewLimit() int64 { return u.localFileSizePreviewLimit }

func (u *Updater) updateAllPreviews() {
	if u.state == Paused {
		u.previewChangedDuringPausing = true
		return
	}
	clear(u.finished)
	u.startUpdating()
}

// setData writes values without hearing about it as a change.
func (u *Updater) setData(index int, values model.Values) {
	if len(values) == 0 {
		return
	}
	u.model.Suspend(u.hooks)
	u.model.SetData(index, values)
	u.model.Resume(u.hooks)
}

func (u *Updater) elapsed(start time.Time) time.Duration {
	return u.sched.Now().Sub(start)
}

type urlSet map[string]struct{}

func (s urlSet) add(url string) { s[url] = struct{}{} }

func (s urlSet) has(url string) bool {
	_, ok := s[url]
	return ok
}
