// Package model keeps the ordered, filtered and optionally expanded list of
// items of a directory, and tells observers about every change as ranges of
// indexes.
//
// A Model is owned by a single goroutine, the one running its
// loop.Scheduler. All methods must be called from there.
package model

import (
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"dirview/internal/dirsource"
	"dirview/internal/fileitem"
	"dirview/internal/filter"
	"dirview/internal/logging"
	"dirview/internal/loop"
	"dirview/internal/rangeset"
	"dirview/internal/role"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
)

const (
	// MaximumUpdateInterval bounds how long added items wait in the insert
	// buffer while a listing is still running.
	MaximumUpdateInterval = 2000 * time.Millisecond
	// ResortAllItemsDelay coalesces resorts caused by value changes.
	ResortAllItemsDelay = 100 * time.Millisecond
	// FirstBatchSize items arriving for an empty model are shown at once.
	FirstBatchSize = dirsource.DefaultBatchSize

	indexBlockSize = 1000
	// mimeTypeBudget bounds synchronous MIME detection while sorting by type.
	mimeTypeBudget = 200 * time.Millisecond

	previouslyExpandedChildren = "previouslyExpandedChildren"
)

type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// DirectorySizeMode selects what the size role means for directories.
type DirectorySizeMode int

const (
	// ContentCount sorts directories by their number of entries and keeps them
	// in front when sorting by size.
	ContentCount DirectorySizeMode = iota
	// ContentSize sorts directories by the recursive size of their content.
	ContentSize
)

// Lister is the directory source the model reads from.
type Lister interface {
	SetEvents(e dirsource.Events)
	Open(url string, mode dirsource.OpenMode)
	Stop(url string)
	StopAll()
	URL() string
	ShowHidden() bool
	SetShowHidden(show bool)
	DirsOnly() bool
	SetDirsOnly(dirsOnly bool)
	EmitChanges()
}

// entry is an item plus its cached values. parent is nil for items of the
// root directory; it never owns the parent.
type entry struct {
	item   *fileitem.Item
	values Values
	parent *entry
}

func (e *entry) level() int {
	n := 0
	for p := e.parent; p != nil; p = p.parent {
		n++
	}
	return n
}

type removeBehavior int

const (
	deleteItemData removeBehavior = iota
	keepItemData
	deleteItemDataIfUnfiltered
)

type Model struct {
	sched  loop.Scheduler
	lister Lister
	log    *zap.Logger

	sortRole       string
	sortKind       role.Kind
	sortOrder      SortOrder
	sortDirsFirst  bool
	sortHiddenLast bool
	groupedSorting bool
	naturalSorting bool
	dirSizeMode    DirectorySizeMode
	sortProgress   int

	roles   role.Set
	request map[role.Kind]bool

	entries []*entry
	// index maps URLs to positions for the first indexed entries only.
	index   map[string]int
	indexed int

	filter   filter.Filter
	filtered map[string]*entry
	pending  []*entry
	groups   []Group

	expandedDirs map[string]string
	urlsToExpand map[string]struct{}

	updateTimer *loop.Timer
	resortTimer *loop.Timer

	collators sync.Pool
	groupColl *collate.Collator

	observers []*subscriber
}

// New creates a model reading from lister. The model installs itself as the
// lister's event receiver.
func New(sched loop.Scheduler, lister Lister, log *zap.Logger) *Model {
	m := &Model{
		sched:          sched,
		lister:         lister,
		log:            logging.OrGlobal(log, "model"),
		sortRole:       role.Text,
		sortKind:       role.NameRole,
		sortDirsFirst:  true,
		naturalSorting: true,
		sortProgress:   -1,
		index:          map[string]int{},
		filtered:       map[string]*entry{},
		expandedDirs:   map[string]string{},
		urlsToExpand:   map[string]struct{}{},
	}
	m.collators.New = func() any { return newNaturalCollator() }
	m.updateTimer = sched.NewTimer(MaximumUpdateInterval, m.dispatchPendingItemsToInsert)
	m.resortTimer = sched.NewTimer(ResortAllItemsDelay, m.resortAllItems)
	m.applyRoles(role.NewSet(role.Text, role.IsDir, role.IsLink, role.IsHidden))
	lister.SetEvents(&listerEvents{m: m})
	return m
}

func (m *Model) Count() int { return len(m.entries) }

// Data returns a copy of the values of the item at index, nil when out of
// range.
func (m *Model) Data(index int) Values {
	if index < 0 || index >= len(m.entries) {
		return nil
	}
	return maps.Clone(m.values(m.entries[index]))
}

// values returns the cached values of e, retrieving them first if needed.
func (m *Model) values(e *entry) Values {
	switch {
	case len(e.values) == 0:
		e.values = m.retrieveData(e.item, e.parent)
	case onlyExpansionState(e.values):
		// Hidden while its values were dropped: only the expansion state
		// survived.
		m.rebuildValues(e, e.values)
	}
	return e.values
}

// rebuildValues retrieves the values of e again and keeps state on top of
// them. Retrieved values win over kept ones.
func (m *Model) rebuildValues(e *entry, state Values) {
	e.values = m.retrieveData(e.item, e.parent)
	for k, v := range state {
		if _, ok := e.values[k]; !ok {
			e.values[k] = v
		}
	}
}

func (m *Model) Item(index int) *fileitem.Item {
	if index < 0 || index >= len(m.entries) {
		return nil
	}
	return m.entries[index].item
}

// ItemForURL returns the item with the given URL, nil if it is not shown.
func (m *Model) ItemForURL(url string) *fileitem.Item {
	if i := m.Index(url); i >= 0 {
		return m.entries[i].item
	}
	return nil
}

func (m *Model) IndexOfItem(it *fileitem.Item) int {
	if it == nil {
		return -1
	}
	return m.Index(it.URL())
}

// Index returns the position of the item with url, or -1. The URL index is
// filled lazily in blocks until the url is found.
func (m *Model) Index(url string) int {
	if url == "" {
		return -1
	}
	url = path.Clean(url)
	if i, ok := m.index[url]; ok {
		return i
	}
	for m.indexed < len(m.entries) {
		end := min(m.indexed+indexBlockSize, len(m.entries))
		for i := m.indexed; i < end; i++ {
			m.index[m.entries[i].item.URL()] = i
		}
		m.indexed = end
		if i, ok := m.index[url]; ok {
			return i
		}
	}
	return -1
}

func (m *Model) resetIndex() {
	clear(m.index)
	m.indexed = 0
}

// RootItem returns the item of the loaded directory.
func (m *Model) RootItem() *fileitem.Item {
	url := m.lister.URL()
	if url == "" {
		return nil
	}
	it, err := fileitem.FromPath(url)
	if err != nil {
		m.log.Debug("root item unavailable", zap.String("url", url), zap.Error(err))
		return nil
	}
	return it
}

// URL is the directory currently loaded.
func (m *Model) URL() string { return m.lister.URL() }

// FileItems returns the items covered by ranges.
func (m *Model) FileItems(ranges rangeset.List) []*fileitem.Item {
	var out []*fileitem.Item
	for _, i := range ranges.Values() {
		if it := m.Item(i); it != nil {
			out = append(out, it)
		}
	}
	return out
}

// IndexForKeyboardSearch returns the first item at or after start whose text
// starts with text, ignoring case, wrapping around at the end. -1 if none.
func (m *Model) IndexForKeyboardSearch(text string, start int) int {
	start = max(0, start)
	prefix := strings.ToLower(text)
	matches := func(i int) bool {
		return strings.HasPrefix(strings.ToLower(m.entries[i].item.Text()), prefix)
	}
	for i := start; i < len(m.entries); i++ {
		if matches(i) {
			return i
		}
	}
	for i := 0; i < min(start, len(m.entries)); i++ {
		if matches(i) {
			return i
		}
	}
	return -1
}

func (m *Model) Roles() role.Set { return m.roles.Clone() }
func (m *Model) SortRole() string { return m.sortRole }
func (m *Model) SortOrder() SortOrder { return m.sortOrder }
func (m *Model) SortDirectoriesFirst() bool { return m.sortDirsFirst }
func (m *Model) SortHiddenLast() bool { return m.sortHiddenLast }
func (m *Model) GroupedSorting() bool { return m.groupedSorting }
func (m *Model) NaturalSorting() bool { return m.naturalSorting }
func (m *Model) DirectorySizeMode() DirectorySizeMode { return m.dirSizeMode }
func (m *Model) ShowHiddenFiles() bool { return m.lister.ShowHidden() }
func (m *Model) ShowDirectoriesOnly() bool { return m.lister.DirsOnly() }
func (m *Model) NameFilter() string { return m.filter.Pattern() }
func (m *Model) MimeTypeFilters() []string { return m.filter.MimeTypes() }

// Load lists url, replacing everything shown so far.
func (m *Model) Load(url string) {
	m.lister.Open(url, dirsource.Reload)
}

// Refresh lists url again. Expanded directories are expanded again once the
// new listing completes.
func (m *Model) Refresh(url string) {
	for _, u := range m.expandedDirs {
		m.urlsToExpand[u] = struct{}{}
	}
	m.lister.Open(url, dirsource.Reload)
}

// Cancel stops every running listing.
func (m *Model) Cancel() { m.lister.StopAll() }

// SetSortRole changes the sort role. The role is added to the requested
// roles when needed. With resort false the items keep their order until the
// next resort.
func (m *Model) SetSortRole(name string, resort bool) {
	if name == m.sortRole {
		return
	}
	previous := m.sortRole
	m.sortRole = name
	m.sortKind = role.KindOf(name)
	if !m.request[m.sortKind] {
		roles := m.roles.Clone()
		roles.Add(name)
		m.SetRoles(roles)
	}
	if resort {
		m.resortAllItems()
	}
	m.notify(func(o Observer) { o.SortRoleChanged(name, previous) })
}

func (m *Model) SetSortOrder(order SortOrder) {
	if order == m.sortOrder {
		return
	}
	previous := m.sortOrder
	m.sortOrder = order
	m.resortAllItems()
	m.notify(func(o Observer) { o.SortOrderChanged(order, previous) })
}

func (m *Model) SetSortDirectoriesFirst(dirsFirst bool) {
	if dirsFirst != m.sortDirsFirst {
		m.sortDirsFirst = dirsFirst
		m.resortAllItems()
	}
}

func (m *Model) SetSortHiddenLast(hiddenLast bool) {
	if hiddenLast != m.sortHiddenLast {
		m.sortHiddenLast = hiddenLast
		m.resortAllItems()
	}
}

// SetNaturalSorting switches between digit aware collation and plain case
// insensitive comparison.
func (m *Model) SetNaturalSorting(natural bool) {
	if natural != m.naturalSorting {
		m.naturalSorting = natural
		m.resortAllItems()
	}
}

func (m *Model) SetDirectorySizeMode(mode DirectorySizeMode) {
	if mode != m.dirSizeMode {
		m.dirSizeMode = mode
		m.groups = nil
		m.resortAllItems()
	}
}

func (m *Model) SetGroupedSorting(grouped bool) {
	if grouped != m.groupedSorting {
		m.groupedSorting = grouped
		m.groups = nil
	}
}

func (m *Model) SetShowHiddenFiles(show bool) {
	m.lister.SetShowHidden(show)
	m.lister.EmitChanges()
	if show {
		m.dispatchPendingItemsToInsert()
	}
}

func (m *Model) SetShowDirectoriesOnly(dirsOnly bool) {
	m.lister.SetDirsOnly(dirsOnly)
	m.lister.EmitChanges()
}

// SetRoles sets the roles that are retrieved for every item. Dropping
// expandedParentsCount collapses everything.
func (m *Model) SetRoles(roles role.Set) {
	if m.roles.Equal(roles) {
		return
	}
	changed := role.SymmetricDifference(m.roles, roles)

	if len(m.entries) > 0 && m.request[role.ExpandedParentsCountRole] && !roles.Has(role.ExpandedParentsCount) {
		m.removeExpandedItems()
	}
	m.groups = nil
	m.applyRoles(roles)

	// Expanded directories stay expanded as long as the tree is shown.
	tree := m.request[role.ExpandedParentsCountRole]
	keep := func(e *entry) Values {
		if !tree {
			return nil
		}
		return expansionState(e.values)
	}
	if len(m.entries) > 0 {
		for _, e := range m.entries {
			m.rebuildValues(e, keep(e))
		}
		ranges := rangeset.Single(0, len(m.entries))
		m.notify(func(o Observer) { o.ItemsChanged(ranges, changed) })
	}

	// Filtered items get their values again when they are shown.
	for _, e := range m.filtered {
		e.values = keep(e)
	}
}

func (m *Model) applyRoles(roles role.Set) {
	m.roles = roles.Clone()
	m.request = make(map[role.Kind]bool, len(roles))
	for name := range roles {
		m.request[role.KindOf(name)] = true
	}
}

// SetData merges values into the item at index and reports the roles that
// actually changed. Renaming through the text role moves the item's URL.
func (m *Model) SetData(index int, values Values) bool {
	if index < 0 || index >= len(m.entries) {
		return false
	}
	e := m.entries[index]
	current := m.values(e)

	changed := role.Set{}
	for name, v := range values {
		if old, ok := current[name]; !ok || !valueEqual(old, v) {
			current[name] = v
			changed.Add(name)
		}
	}
	if len(changed) == 0 {
		return false
	}

	if changed.Has(role.Text) {
		oldURL := e.item.URL()
		newURL := path.Join(path.Dir(oldURL), valueString(current[role.Text]))
		e.item = e.item.WithURL(newURL)
		if index < m.indexed {
			delete(m.index, oldURL)
			m.index[newURL] = index
		}
		if !changed.Has(role.URL) {
			changed.Add(role.URL)
			current[role.URL] = newURL
		}
	}

	m.emitItemsChangedAndTriggerResorting(rangeset.Single(index, 1), changed)
	return true
}

// EmitSortProgress reports how many items already have their sort role
// resolved. Reaching the item count runs a pending resort at once.
func (m *Model) EmitSortProgress(resolved int) {
	count := len(m.entries)
	if resolved >= count {
		m.sortProgress = -1
		if m.resortTimer.Active() {
			m.resortTimer.Stop()
			m.resortAllItems()
		}
		m.notify(func(o Observer) { o.DirectorySortingProgress(100) })
		return
	}
	if count > 0 {
		resolved = max(0, resolved)
		progress := resolved * 100 / count
		if progress != m.sortProgress {
			m.sortProgress = progress
			m.notify(func(o Observer) { o.DirectorySortingProgress(progress) })
		}
	}
}

// ResortPending reports whether a resort caused by value changes is still
// waiting for its timer.
func (m *Model) ResortPending() bool { return m.resortTimer.Active() }

// Close stops the model's timers. The lister is left to its owner.
func (m *Model) Close() {
	m.updateTimer.Stop()
	m.resortTimer.Stop()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
