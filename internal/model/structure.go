package model

import (
	"slices"
	"time"

	"dirview/internal/fileitem"
	"dirview/internal/rangeset"
	"dirview/internal/role"

	"go.uber.org/zap"
)

func (m *Model) dispatchPendingItemsToInsert() {
	if len(m.pending) > 0 {
		pending := m.pending
		m.pending = nil
		m.insertItems(pending)
	}
}

// insertItems sorts the new entries and merges them into the list from the
// back, collecting the inserted ranges on the way.
func (m *Model) insertItems(newItems []*entry) {
	if len(newItems) == 0 {
		return
	}
	start := time.Now()

	m.groups = nil
	m.prepareItemsForSorting(newItems)
	m.presort(newItems)
	m.sortEntries(newItems)

	var ranges rangeset.List
	existing := len(m.entries)
	if existing == 0 {
		m.entries = newItems
		ranges = rangeset.Single(0, len(newItems))
	} else {
		total := existing + len(newItems)
		m.entries = slices.Grow(m.entries, len(newItems))[:total]

		target := total - 1
		srcExisting := existing - 1
		srcNew := len(newItems) - 1
		rangeCount := 0
		for srcNew >= 0 {
			newItem := newItems[srcNew]
			if srcExisting >= 0 && m.lessThan(newItem, m.entries[srcExisting]) {
				if rangeCount > 0 {
					ranges = append(ranges, rangeset.Range{Index: srcExisting + 1, Count: rangeCount})
					rangeCount = 0
				}
				m.entries[target] = m.entries[srcExisting]
				srcExisting--
			} else {
				rangeCount++
				m.entries[target] = newItem
				srcNew--
			}
			target--
		}
		if rangeCount > 0 {
			ranges = append(ranges, rangeset.Range{Index: srcExisting + 1, Count: rangeCount})
		}
		ranges = ranges.Reverse()
	}

	m.resetIndex()
	m.log.Debug("items inserted", zap.Int("count", len(newItems)), zap.Int("ranges", len(ranges)),
		zap.Duration("elapsed", time.Since(start)))
	m.notify(func(o Observer) { o.ItemsInserted(ranges) })
}

// removeItems drops the items in ranges, which must be sorted and disjoint,
// compacting the list in one forward pass.
func (m *Model) removeItems(ranges rangeset.List, behavior removeBehavior) {
	if len(ranges) == 0 {
		return
	}
	m.groups = nil

	removed := 0
	for _, r := range ranges {
		removed += r.Count
		for i := r.Index; i < r.End(); i++ {
			e := m.entries[i]
			if behavior == deleteItemData || (behavior == deleteItemDataIfUnfiltered && m.filtered[e.item.URL()] != e) {
				e.values = nil
			}
			m.entries[i] = nil
		}
	}

	target := ranges[0].Index
	source := ranges[0].End()
	next := 1
	for source < len(m.entries) {
		if next < len(ranges) && source == ranges[next].Index {
			source += ranges[next].Count
			next++
			continue
		}
		m.entries[target] = m.entries[source]
		target++
		source++
	}
	clear(m.entries[len(m.entries)-removed:])
	m.entries = m.entries[:len(m.entries)-removed]

	m.resetIndex()
	m.notify(func(o Observer) { o.ItemsRemoved(ranges) })
}

// resortAllItems sorts everything again and reports the band of items that
// moved. Unchanged items at both ends are left out of the band.
func (m *Model) resortAllItems() {
	m.resortTimer.Stop()
	count := len(m.entries)
	if count == 0 {
		return
	}

	oldURLs := make([]string, count)
	for i, e := range m.entries {
		oldURLs[i] = e.item.URL()
	}

	m.sortEntries(m.entries)
	clear(m.index)
	for i, e := range m.entries {
		m.index[e.item.URL()] = i
	}
	m.indexed = count

	first := 0
	for first < count && m.index[oldURLs[first]] == first {
		first++
	}
	if first < count {
		m.groups = nil
		last := count - 1
		for last > first && m.index[oldURLs[last]] == last {
			last--
		}
		moved := rangeset.Range{Index: first, Count: last - first + 1}
		newPositions := make([]int, 0, moved.Count)
		for i := first; i <= last; i++ {
			newPositions = append(newPositions, m.index[oldURLs[i]])
		}
		m.log.Debug("items moved", zap.Stringer("range", moved))
		m.notify(func(o Observer) { o.ItemsMoved(moved, newPositions) })
	} else if m.groupedSorting {
		old := m.groups
		m.groups = nil
		if !slices.Equal(m.Groups(), old) {
			m.notify(func(o Observer) { o.GroupsChanged() })
		}
	}
}

func (m *Model) scheduleResortAllItems() {
	m.resortTimer.StartIfInactive()
}

// emitItemsChangedAndTriggerResorting reports changed values and schedules
// a resort when a changed item is now out of order.
func (m *Model) emitItemsChangedAndTriggerResorting(ranges rangeset.List, changed role.Set) {
	m.notify(func(o Observer) { o.ItemsChanged(ranges, changed) })

	if changed.Has(m.sortRole) || changed.Has(role.Text) || (changed.Has(role.Count) && m.sortRole == role.Size) {
		for _, r := range ranges {
			if m.outOfOrder(r.Index, r.Last()) {
				m.scheduleResortAllItems()
				break
			}
		}
	}

	if m.groupedSorting && changed.Has(m.sortRole) {
		// The item may have crossed a group boundary without moving.
		m.resortTimer.Start()
	}
}

// outOfOrder reports whether an item in [first, last] sorts before its
// predecessor or after the next item that is not one of its descendants.
func (m *Model) outOfOrder(first, last int) bool {
	if first > 0 && m.lessThan(m.entries[first], m.entries[first-1]) {
		return true
	}
	for i := first; i < last; i++ {
		if m.lessThan(m.entries[i+1], m.entries[i]) {
			return true
		}
	}
	next, level := last+1, m.entries[last].level()
	for next < len(m.entries) && m.entries[next].level() > level {
		next++
	}
	return next < len(m.entries) && m.lessThan(m.entries[next], m.entries[last])
}

// createEntries wraps items listed in parentURL. The parent is looked up
// among the shown and the filtered items.
func (m *Model) createEntries(parentURL string, items []*fileitem.Item) []*entry {
	if m.sortKind == role.TypeRole {
		// Sorting by type needs the real types to avoid reordering later.
		determineMimeTypes(items, mimeTypeBudget)
	}

	var parent *entry
	if i := m.Index(parentURL); i >= 0 {
		parent = m.entries[i]
	} else {
		parent = m.filtered[parentURL]
	}

	out := make([]*entry, len(items))
	for i, it := range items {
		out[i] = &entry{item: it, parent: parent}
	}
	return out
}

// prepareItemsForSorting fills the values the comparator reads for roles
// that are cheap to compute.
func (m *Model) prepareItemsForSorting(es []*entry) {
	switch m.sortKind {
	case role.ExtensionRole, role.PermissionsRole, role.OwnerRole, role.GroupRole,
		role.DestinationRole, role.PathRole, role.DeletionTimeRole:
		for _, e := range es {
			m.values(e)
		}
	case role.TypeRole:
		for _, e := range es {
			if e.item.IsDir() || e.item.IsMimeTypeKnown() {
				m.values(e)
			}
		}
	}
}

func determineMimeTypes(items []*fileitem.Item, budget time.Duration) {
	start := time.Now()
	for _, it := range items {
		if !it.IsDir() {
			it.DetermineMimeType()
		}
		if time.Since(start) > budget {
			return
		}
	}
}

// removeExpandedItems drops every item below the top level, shown or
// filtered.
func (m *Model) removeExpandedItems() {
	var indexes []int
	for i, e := range m.entries {
		if e.parent != nil {
			indexes = append(indexes, i)
		}
	}
	m.removeItems(rangeset.FromSortedSequence(indexes), deleteItemData)
	clear(m.expandedDirs)

	for url, e := range m.filtered {
		if e.parent != nil {
			delete(m.filtered, url)
		}
	}
}
