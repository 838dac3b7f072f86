package model

import (
	"path"
	"slices"
	"strings"

	"dirview/internal/dirsource"
	"dirview/internal/rangeset"
	"dirview/internal/role"

	"go.uber.org/zap"
)

// SetExpanded expands or collapses the directory at index. It returns false
// when the item is not expandable or already in the requested state.
//
// Expanding starts listing the directory; the children arrive later.
// Collapsing removes all descendants at once and remembers which of them
// were expanded, so expanding again restores them.
func (m *Model) SetExpanded(index int, expanded bool) bool {
	if !m.IsExpandable(index) || m.IsExpanded(index) == expanded {
		return false
	}
	if !m.SetData(index, Values{role.IsExpanded: expanded}) {
		return false
	}

	e := m.entries[index]
	url := e.item.URL()
	if expanded {
		m.expandedDirs[url] = url
		m.lister.Open(url, dirsource.Keep)
		for _, u := range urlList(e.values[previouslyExpandedChildren]) {
			m.urlsToExpand[u] = struct{}{}
		}
		m.log.Debug("expanded", zap.String("url", url))
		return true
	}

	// Pending children must be inserted now, otherwise they would show up
	// later without their parent.
	m.dispatchPendingItemsToInsert()
	if index >= len(m.entries) || m.entries[index] != e {
		index = m.Index(url)
	}

	delete(m.expandedDirs, url)
	m.lister.Stop(url)

	parentLevel := e.level()
	first := index + 1
	child := first
	var expandedChildren []string
	for child < len(m.entries) && m.entries[child].level() > parentLevel {
		if c := m.entries[child]; m.forgetExpanded(c) {
			expandedChildren = append(expandedChildren, c.item.URL())
		}
		child++
	}
	childCount := child - first

	hidden := m.removeFilteredChildren(rangeset.Single(index, 1+childCount))
	expandedChildren = append(expandedChildren, hidden...)
	if childCount > 0 {
		m.removeItems(rangeset.Single(first, childCount), deleteItemData)
	}
	m.values(e)[previouslyExpandedChildren] = expandedChildren
	m.log.Debug("collapsed", zap.String("url", url), zap.Int("removed", childCount))
	return true
}

func (m *Model) IsExpanded(index int) bool {
	if index < 0 || index >= len(m.entries) {
		return false
	}
	return isTrue(m.entries[index].values[role.IsExpanded])
}

func (m *Model) IsExpandable(index int) bool {
	if index < 0 || index >= len(m.entries) {
		return false
	}
	return isTrue(m.values(m.entries[index])[role.IsExpandable])
}

// ExpandedParentsCount is the nesting level of the item at index, 0 for
// items of the loaded directory.
func (m *Model) ExpandedParentsCount(index int) int {
	if index < 0 || index >= len(m.entries) {
		return 0
	}
	return m.entries[index].level()
}

// ExpandedDirectories returns the URLs of all expanded directories, sorted.
func (m *Model) ExpandedDirectories() []string {
	out := make([]string, 0, len(m.expandedDirs))
	for _, url := range sortedKeys(m.expandedDirs) {
		out = append(out, m.expandedDirs[url])
	}
	return out
}

// RestoreExpandedDirectories makes the model expand urls as soon as they
// show up while loading.
func (m *Model) RestoreExpandedDirectories(urls []string) {
	m.urlsToExpand = make(map[string]struct{}, len(urls))
	for _, u := range urls {
		m.urlsToExpand[path.Clean(u)] = struct{}{}
	}
}

// ExpandParentDirectories expands every directory between the loaded
// directory and url, so that url becomes visible. Directories expand one
// after the other as their listings complete.
func (m *Model) ExpandParentDirectories(url string) {
	root := m.lister.URL()
	rel := strings.TrimPrefix(path.Clean(url), root)

	var subDirs []string
	for _, s := range strings.Split(rel, "/") {
		if s != "" {
			subDirs = append(subDirs, s)
		}
	}
	toExpand := root
	for i := 0; i < len(subDirs)-1; i++ {
		toExpand = path.Join(toExpand, subDirs[i])
		m.urlsToExpand[toExpand] = struct{}{}
	}

	for _, u := range sortedKeys(m.urlsToExpand) {
		if i := m.Index(u); i >= 0 && !m.IsExpanded(i) {
			m.SetExpanded(i, true)
			break
		}
	}
}

// removeFilteredChildren forgets filtered items that descend from an item
// in ranges or from one of roots, at any depth. Expanded ones among them
// stop listing; their URLs are returned sorted.
func (m *Model) removeFilteredChildren(ranges rangeset.List, roots ...*entry) []string {
	if len(m.filtered) == 0 || !m.request[role.ExpandedParentsCountRole] {
		return nil
	}
	removed := make(map[*entry]bool, len(roots))
	for _, i := range ranges.Values() {
		removed[m.entries[i]] = true
	}
	for _, e := range roots {
		removed[e] = true
	}
	var expanded []string
	for url, e := range m.filtered {
		for p := e.parent; p != nil; p = p.parent {
			if !removed[p] {
				continue
			}
			delete(m.filtered, url)
			if m.forgetExpanded(e) {
				expanded = append(expanded, url)
			}
			break
		}
	}
	slices.Sort(expanded)
	return expanded
}

// forgetExpanded stops listing e and drops it from the expanded
// directories. It reports whether e was expanded.
func (m *Model) forgetExpanded(e *entry) bool {
	if !isTrue(e.values[role.IsExpanded]) {
		return false
	}
	url := e.item.URL()
	delete(m.expandedDirs, url)
	m.lister.Stop(url)
	return true
}
