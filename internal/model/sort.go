package model

import (
	"strings"

	"dirview/internal/mergesort"
	"dirview/internal/role"
)

// isRoleValueNatural reports whether values of the role are compared as
// display strings.
func isRoleValueNatural(k role.Kind) bool {
	switch k {
	case role.TypeRole, role.ExtensionRole, role.TagsRole, role.CommentRole, role.TitleRole,
		role.ArtistRole, role.GenreRole, role.AlbumRole, role.PathRole, role.DestinationRole,
		role.OriginURLRole, role.OwnerRole, role.GroupRole:
		return true
	}
	return false
}

// lessThan is the model's order. Items with different parents are compared
// through their ancestors at the same depth, and an ancestor always comes
// before its descendants.
func (m *Model) lessThan(a, b *entry) bool {
	if a.parent != b.parent {
		levelA, levelB := a.level(), b.level()
		for i := levelB; i > levelA; i-- {
			if b.parent == a {
				return true
			}
			b = b.parent
		}
		for i := levelA; i > levelB; i-- {
			if a.parent == b {
				return false
			}
			a = a.parent
		}
		for a.parent != b.parent {
			a, b = a.parent, b.parent
		}
	}

	if m.sortHiddenLast {
		hiddenA, hiddenB := a.item.IsHidden(), b.item.IsHidden()
		if hiddenA != hiddenB {
			return hiddenB
		}
	}

	if m.sortDirsFirst || (m.dirSizeMode == ContentCount && m.sortKind == role.SizeRole) {
		dirA, dirB := a.item.IsDir(), b.item.IsDir()
		if dirA != dirB {
			return dirA
		}
	}

	r := m.sortRoleCompare(a, b)
	if m.sortOrder == Ascending {
		return r < 0
	}
	return r > 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sortRoleCompare never returns 0 for distinct items: ties fall back to the
// text, the name and finally the URL.
func (m *Model) sortRoleCompare(a, b *entry) int {
	itemA, itemB := a.item, b.item
	result := 0

	switch m.sortKind {
	case role.NameRole:
		// Handled by the fallbacks.

	case role.SizeRole:
		if m.dirSizeMode == ContentCount && itemA.IsDir() {
			// Both are directories here, lessThan put them in front.
			countA, hasA := a.values[role.Count]
			countB, hasB := b.values[role.Count]
			switch {
			case !hasA && hasB:
				return -1
			case hasA && !hasB:
				return 1
			case hasA && hasB:
				if r := cmpInt64(valueInt(countA), valueInt(countB)); r != 0 {
					return r
				}
			}
			break
		}
		sizeA, sizeB := itemA.Size(), itemB.Size()
		if itemA.IsDir() {
			sizeA = valueInt(a.values[role.Size])
		}
		if itemB.IsDir() {
			sizeB = valueInt(b.values[role.Size])
		}
		if r := cmpInt64(sizeA, sizeB); r != 0 {
			return r
		}

	case role.ModificationTimeRole:
		if r := cmpInt64(timeStamp(itemA.ModTime()), timeStamp(itemB.ModTime())); r != 0 {
			return r
		}

	case role.AccessTimeRole:
		if r := cmpInt64(timeStamp(itemA.AccessTime()), timeStamp(itemB.AccessTime())); r != 0 {
			return r
		}

	case role.CreationTimeRole:
		if r := cmpInt64(timeStamp(itemA.BirthTime()), timeStamp(itemB.BirthTime())); r != 0 {
			return r
		}

	case role.DeletionTimeRole:
		ta, tb := valueTime(a.values[role.DeletionTime]), valueTime(b.values[role.DeletionTime])
		if r := cmpInt64(timeStamp(ta), timeStamp(tb)); r != 0 {
			return r
		}

	case role.RatingRole, role.WidthRole, role.HeightRole, role.PublisherRole, role.PageCountRole,
		role.WordCountRole, role.LineCountRole, role.TrackRole, role.ReleaseYearRole:
		result = cmpInt64(valueInt(a.values[m.sortRole]), valueInt(b.values[m.sortRole]))

	case role.DimensionsRole:
		dimA, _ := a.values[m.sortRole].(Dimensions)
		dimB, _ := b.values[m.sortRole].(Dimensions)
		if dimA.Width == dimB.Width {
			result = dimA.Height - dimB.Height
		} else {
			result = dimA.Width - dimB.Width
		}

	default:
		valueA, valueB := valueString(a.values[m.sortRole]), valueString(b.values[m.sortRole])
		switch {
		case valueA != "" && valueB == "":
			return -1
		case valueA == "" && valueB != "":
			return 1
		case isRoleValueNatural(m.sortKind):
			result = m.stringCompare(valueA, valueB)
		default:
			result = strings.Compare(valueA, valueB)
		}
	}

	if result != 0 {
		return result
	}
	if r := m.stringCompare(itemA.Text(), itemB.Text()); r != 0 {
		return r
	}
	if r := m.stringCompare(itemA.Name(), itemB.Name()); r != 0 {
		return r
	}
	return strings.Compare(itemA.URL(), itemB.URL())
}

// sortEntries sorts es in place with the model's order. String roles are
// expensive to compare and use every CPU; everything else sorts on the
// calling goroutine.
func (m *Model) sortEntries(es []*entry) {
	if m.sortKind == role.NameRole || isRoleValueNatural(m.sortKind) {
		mergesort.ParallelSort(es, m.lessThan, 0)
		return
	}
	mergesort.Sort(es, m.lessThan)
}

// presort orders a batch by plain string comparison. Natural sorting is much
// faster on input that is already mostly in order.
func (m *Model) presort(es []*entry) {
	if !m.naturalSorting {
		return
	}
	switch {
	case m.sortKind == role.NameRole:
		mergesort.ParallelSort(es, func(a, b *entry) bool {
			return a.item.Text() < b.item.Text()
		}, 0)
	case isRoleValueNatural(m.sortKind):
		mergesort.ParallelSort(es, func(a, b *entry) bool {
			return valueString(a.values[m.sortRole]) < valueString(b.values[m.sortRole])
		}, 0)
	}
}
