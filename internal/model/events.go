package model

import (
	"path"
	"slices"

	"dirview/internal/dirsource"
	"dirview/internal/fileitem"
	"dirview/internal/rangeset"
	"dirview/internal/role"

	"go.uber.org/zap"
)

// listerEvents feeds directory source events into the model. It is a
// separate type so the handlers stay out of the model's API.
type listerEvents struct{ m *Model }

var _ dirsource.Events = (*listerEvents)(nil)

func (ev *listerEvents) Started(url string) {
	ev.m.log.Info("loading", zap.String("url", url))
	ev.m.notify(func(o Observer) { o.DirectoryLoadingStarted() })
}

func (ev *listerEvents) Progress(percent int) {
	ev.m.notify(func(o Observer) { o.DirectoryLoadingProgress(percent) })
}

func (ev *listerEvents) Completed() {
	m := ev.m
	m.updateTimer.Stop()
	m.dispatchPendingItemsToInsert()

	if len(m.urlsToExpand) > 0 {
		// A directory can only be expanded once its parent is. Expand the
		// first one that is visible; this runs again when it completes.
		for _, url := range sortedKeys(m.urlsToExpand) {
			if i := m.Index(url); i >= 0 {
				delete(m.urlsToExpand, url)
				if m.SetExpanded(i, true) {
					return
				}
			}
		}
		// The rest no longer exists.
		clear(m.urlsToExpand)
	}

	m.log.Info("loading completed", zap.Int("items", len(m.entries)))
	m.notify(func(o Observer) { o.DirectoryLoadingCompleted() })
}

func (ev *listerEvents) Canceled() {
	m := ev.m
	m.updateTimer.Stop()
	m.dispatchPendingItemsToInsert()
	m.notify(func(o Observer) { o.DirectoryLoadingCanceled() })
}

func (ev *listerEvents) ItemsAdded(dirURL string, items []*fileitem.Item) {
	m := ev.m
	if len(items) == 0 {
		return
	}
	dirURL = path.Clean(dirURL)
	parentURL := dirURL
	if u, ok := m.expandedDirs[dirURL]; ok {
		parentURL = u
	}

	if m.request[role.ExpandedParentsCountRole] {
		// Expanding, collapsing and expanding again quickly can deliver the
		// same children twice.
		if m.Index(items[0].URL()) >= 0 {
			return
		}
		if dirURL != m.URL() {
			// The parent may still wait in the insert buffer.
			m.dispatchPendingItemsToInsert()
		}
		if i := m.Index(parentURL); i >= 0 && !isTrue(m.entries[i].values[role.IsExpanded]) {
			return
		}
	}

	entries := m.createEntries(parentURL, items)
	if !m.filter.HasSetFilters() {
		m.pending = append(m.pending, entries...)
	} else {
		parents := map[*entry]bool{}
		for _, e := range entries {
			if m.filter.Matches(e.item) {
				m.pending = append(m.pending, e)
				if e.parent != nil {
					parents[e.parent] = true
				}
			} else {
				m.filtered[e.item.URL()] = e
			}
		}
		// Whole ancestor chains of matching items must be shown.
		for p := range parents {
			for ; p != nil && m.filtered[p.item.URL()] == p; p = p.parent {
				delete(m.filtered, p.item.URL())
				m.pending = append(m.pending, p)
			}
		}
	}

	if len(m.entries) == 0 && len(m.pending) >= FirstBatchSize {
		m.updateTimer.Stop()
		m.dispatchPendingItemsToInsert()
		return
	}
	m.updateTimer.StartIfInactive()
}

func (ev *listerEvents) ItemsDeleted(items []*fileitem.Item) {
	m := ev.m
	m.dispatchPendingItemsToInsert()

	var indexes []int
	var hidden []*entry
	current := m.URL()
	for _, it := range items {
		if it.URL() == current {
			m.notify(func(o Observer) { o.CurrentDirectoryRemoved() })
			return
		}
		if i := m.Index(it.URL()); i >= 0 {
			indexes = append(indexes, i)
		} else if e, ok := m.filtered[it.URL()]; ok {
			delete(m.filtered, it.URL())
			m.forgetExpanded(e)
			hidden = append(hidden, e)
		}
	}
	slices.Sort(indexes)

	if m.request[role.ExpandedParentsCountRole] && len(m.expandedDirs) > 0 {
		// Removing a directory removes its shown descendants too.
		var withChildren []int
		for _, i := range indexes {
			withChildren = append(withChildren, i)
			level := m.entries[i].level()
			for c := i + 1; c < len(m.entries) && m.entries[c].level() > level; c++ {
				withChildren = append(withChildren, c)
			}
		}
		slices.Sort(withChildren)
		indexes = withChildren
	}

	ranges := rangeset.FromSortedSequence(indexes)
	for _, i := range ranges.Values() {
		m.forgetExpanded(m.entries[i])
	}
	m.removeFilteredChildren(ranges, hidden...)
	ranges, parents := m.filterChildlessParents(ranges, nil)
	behavior := deleteItemData
	if parents > 0 {
		// The ranges now mix deleted items with parents that are only hidden.
		behavior = deleteItemDataIfUnfiltered
	}
	m.removeItems(ranges, behavior)
}

func (ev *listerEvents) ItemsRefreshed(changes []dirsource.Change) {
	m := ev.m
	if len(changes) == 0 {
		return
	}

	var indexes []int
	changedRoles := role.Set{}
	changedEntries := map[*entry]bool{}
	var newFiltered []int
	var newVisible []*entry

	for _, c := range changes {
		oldURL, newItem := c.Old.URL(), c.New
		matches := m.filter.Matches(newItem)
		if i := m.Index(oldURL); i >= 0 {
			e := m.entries[i]
			e.item = newItem
			// Keep values that are not cheap to compute until the roles
			// updater replaces them.
			if e.values == nil {
				e.values = Values{}
			}
			for name, v := range m.retrieveData(newItem, e.parent) {
				if old, ok := e.values[name]; !ok || !valueEqual(old, v) {
					e.values[name] = v
					changedRoles.Add(name)
				}
			}
			delete(m.index, oldURL)
			m.index[newItem.URL()] = i

			keptByChild := isTrue(e.values[role.IsExpanded]) && i+1 < len(m.entries) && m.entries[i+1].parent == e
			if matches || keptByChild {
				changedEntries[e] = true
				indexes = append(indexes, i)
			} else {
				newFiltered = append(newFiltered, i)
				m.filtered[newItem.URL()] = e
			}
			continue
		}

		e, ok := m.filtered[oldURL]
		if !ok {
			continue
		}
		e.item = newItem
		// Values are retrieved again when shown; only the expansion state
		// must survive.
		e.values = expansionState(e.values)
		delete(m.filtered, oldURL)
		if matches {
			newVisible = append(newVisible, e)
		} else {
			m.filtered[newItem.URL()] = e
		}
	}
	slices.Sort(newFiltered)

	// Ancestors of newly visible items are shown no matter what.
	keep := map[*entry]bool{}
	for _, e := range newVisible {
		for p := e.parent; p != nil && !keep[p]; p = p.parent {
			keep[p] = true
		}
	}
	for p := range keep {
		url := p.item.URL()
		if m.filtered[url] != p {
			continue
		}
		delete(m.filtered, url)
		newVisible = append(newVisible, p)
		if i := m.Index(url); i >= 0 {
			if pos, found := slices.BinarySearch(newFiltered, i); found {
				newFiltered = slices.Delete(newFiltered, pos, pos+1)
			}
		}
	}

	removed, _ := m.filterChildlessParents(rangeset.FromSortedSequence(newFiltered), keep)
	m.removeItems(removed, keepItemData)
	m.insertItems(newVisible)

	if len(indexes) == 0 {
		return
	}
	if len(newVisible) > 0 || len(removed) > 0 {
		// Positions moved; find the changed items again.
		indexes = indexes[:0]
		for i, e := range m.entries {
			if changedEntries[e] {
				indexes = append(indexes, i)
			}
		}
	} else {
		slices.Sort(indexes)
	}
	m.emitItemsChangedAndTriggerResorting(rangeset.FromSortedSequence(indexes), changedRoles)
}

func (ev *listerEvents) Cleared() {
	m := ev.m
	clear(m.filtered)
	m.groups = nil
	m.updateTimer.Stop()
	m.resortTimer.Stop()
	m.pending = nil

	if n := len(m.entries); n > 0 {
		m.entries = nil
		m.resetIndex()
		m.notify(func(o Observer) { o.ItemsRemoved(rangeset.Single(0, n)) })
	}
	clear(m.expandedDirs)
}

func (ev *listerEvents) ErrorMessage(text string) {
	ev.m.log.Warn("listing error", zap.String("error", text))
	ev.m.notify(func(o Observer) { o.ErrorMessage(text) })
}

func (ev *listerEvents) Redirected(oldURL, newURL string) {
	ev.m.notify(func(o Observer) { o.DirectoryRedirection(oldURL, newURL) })
}

func (ev *listerEvents) URLIsFile(url string) {
	ev.m.notify(func(o Observer) { o.URLIsFileError(url) })
}
