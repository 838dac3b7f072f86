package model

import (
	"slices"

	"dirview/internal/rangeset"
)

// SetNameFilter shows only items whose text matches pattern. Expanded
// directories stay visible while any descendant matches.
func (m *Model) SetNameFilter(pattern string) {
	if m.filter.Pattern() != pattern {
		m.dispatchPendingItemsToInsert()
		m.filter.SetPattern(pattern)
		m.applyFilters()
	}
}

// SetMimeTypeFilters shows only items of the given MIME types. Entries may
// end in "/*" to match a whole media type.
func (m *Model) SetMimeTypeFilters(types []string) {
	if !slices.Equal(m.filter.MimeTypes(), types) {
		m.dispatchPendingItemsToInsert()
		m.filter.SetMimeTypes(types)
		m.applyFilters()
	}
}

// applyFilters moves items between the list and the filtered table after a
// filter change.
func (m *Model) applyFilters() {
	// Hide what no longer matches. Walking backwards tells whether the next
	// shown item is a child, which keeps its expanded parent visible.
	var newFiltered []int
	var shownBelow *entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if m.filter.Matches(e.item) || (shownBelow != nil && shownBelow.parent == e) {
			shownBelow = e
			continue
		}
		newFiltered = append(newFiltered, i)
		m.filtered[e.item.URL()] = e
	}
	slices.Reverse(newFiltered)
	m.removeItems(rangeset.FromSortedSequence(newFiltered), keepItemData)

	// Show what matches now, together with its filtered ancestors.
	var newVisible []*entry
	ancestors := map[*entry]bool{}
	for url, e := range m.filtered {
		if !m.filter.Matches(e.item) {
			continue
		}
		newVisible = append(newVisible, e)
		for p := e.parent; p != nil && !ancestors[p] && m.filtered[p.item.URL()] == p; p = p.parent {
			ancestors[p] = true
		}
		delete(m.filtered, url)
	}
	for p := range ancestors {
		url := p.item.URL()
		if m.filtered[url] == p {
			delete(m.filtered, url)
			newVisible = append(newVisible, p)
		}
	}

	m.insertItems(newVisible)
}

// filterChildlessParents extends removed ranges by the expanded parents that
// would be left without any visible child and do not match the filter
// themselves. Those parents move to the filtered table. Parents in keep are
// left alone. It returns the updated ranges and how many parents were added.
func (m *Model) filterChildlessParents(removed rangeset.List, keep map[*entry]bool) (rangeset.List, int) {
	added := 0
	// Deepest directories come first so their parents are revisited.
	for i := len(removed) - 1; i >= 0; i-- {
		r := removed[i]
		firstInRange := m.entries[r.Index]
		var above, below *entry
		if r.Index > 0 {
			above = m.entries[r.Index-1]
		}
		if r.End() < len(m.entries) {
			below = m.entries[r.End()]
		}

		if above == nil || firstInRange.parent != above || m.filter.Matches(above.item) ||
			(below != nil && below.parent == above) || keep[above] {
			continue
		}

		m.filtered[above.item.URL()] = above
		r.Index--
		r.Count++
		added++
		if i > 0 && removed[i-1].End() == r.Index {
			removed[i-1].Count += r.Count
			removed = slices.Delete(removed, i, i+1)
		} else {
			removed[i] = r
			// Look at the extended range again.
			i++
		}
	}
	return removed, added
}
