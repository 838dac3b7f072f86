package model

import (
	"fmt"
	"strings"
	"time"

	"dirview/internal/fileitem"
	"dirview/internal/role"
)

// Group starts at Index and lasts until the next group. Value is a string
// title, or the rating for the rating role.
type Group struct {
	Index int `json:"index"`
	Value any `json:"value"`
}

const (
	smallFileLimit  = 5 * 1024 * 1024
	mediumFileLimit = 10 * 1024 * 1024
)

// Groups returns the groups of the current sort role. Children of expanded
// directories belong to the group of their top level ancestor.
func (m *Model) Groups() []Group {
	if len(m.entries) == 0 || m.groups != nil {
		return m.groups
	}
	switch m.sortKind {
	case role.NameRole:
		m.groups = m.nameRoleGroups()
	case role.SizeRole:
		m.groups = m.sizeRoleGroups()
	case role.ModificationTimeRole:
		m.groups = m.timeRoleGroups(func(e *entry) time.Time { return e.item.ModTime() })
	case role.CreationTimeRole:
		m.groups = m.timeRoleGroups(func(e *entry) time.Time { return e.item.BirthTime() })
	case role.AccessTimeRole:
		m.groups = m.timeRoleGroups(func(e *entry) time.Time { return e.item.AccessTime() })
	case role.DeletionTimeRole:
		m.groups = m.timeRoleGroups(func(e *entry) time.Time { return valueTime(e.values[role.DeletionTime]) })
	case role.PermissionsRole:
		m.groups = m.permissionRoleGroups()
	case role.RatingRole:
		m.groups = m.ratingRoleGroups()
	default:
		m.groups = m.genericStringRoleGroups(m.sortRole)
	}
	return m.groups
}

func (m *Model) isChildItem(i int) bool { return m.entries[i].parent != nil }

func (m *Model) nameRoleGroups() []Group {
	groups := []Group{}
	var value, firstChar string
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		name := e.item.Text()
		if name == "" {
			continue
		}
		first, group := m.letterGroup(name)
		if first == firstChar {
			continue
		}
		firstChar = first
		if group != value {
			value = group
			groups = append(groups, Group{Index: i, Value: group})
		}
	}
	return groups
}

func (m *Model) sizeRoleGroups() []Group {
	groups := []Group{}
	var value string
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		size := e.item.Size()
		group := ""
		if e.item.IsDir() {
			if m.dirSizeMode == ContentCount || m.sortDirsFirst {
				group = "Folders"
			} else {
				size = valueInt(e.values[role.Size])
			}
		}
		if group == "" {
			switch {
			case size < smallFileLimit:
				group = "Small"
			case size < mediumFileLimit:
				group = "Medium"
			default:
				group = "Big"
			}
		}
		if group != value {
			value = group
			groups = append(groups, Group{Index: i, Value: group})
		}
	}
	return groups
}

func dateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// timeGroup names the bucket of t relative to now: days and weeks inside
// the current month, relative weeks inside the previous month, month and
// year before that.
func timeGroup(t, now time.Time) string {
	t = t.In(now.Location())
	fileDate, today := dateOf(t), dateOf(now)
	days := int(today.Sub(fileDate).Hours() / 24)
	monthYear := t.Format("January, 2006")

	if today.Year() == fileDate.Year() && today.Month() == fileDate.Month() {
		switch weeks := days / 7; {
		case weeks == 0 && days == 0:
			return "Today"
		case weeks == 0 && days == 1:
			return "Yesterday"
		case weeks == 0:
			return t.Weekday().String()
		case weeks == 1:
			return "One Week Ago"
		case weeks == 2:
			return "Two Weeks Ago"
		case weeks == 3:
			return "Three Weeks Ago"
		case weeks == 4 || weeks == 5:
			return "Earlier this Month"
		}
		return monthYear
	}

	lastMonth := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	if lastMonth.Year() == fileDate.Year() && lastMonth.Month() == fileDate.Month() {
		switch {
		case days == 1:
			return "Yesterday (" + monthYear + ")"
		case days <= 7:
			return t.Weekday().String() + " (" + monthYear + ")"
		case days <= 7*2:
			return "One Week Ago (" + monthYear + ")"
		case days <= 7*3:
			return "Two Weeks Ago (" + monthYear + ")"
		case days <= 7*4:
			return "Three Weeks Ago (" + monthYear + ")"
		}
		return "Earlier on " + monthYear
	}
	return monthYear
}

func (m *Model) timeRoleGroups(timeOf func(e *entry) time.Time) []Group {
	groups := []Group{}
	now := m.sched.Now()
	var value string
	var previousDate time.Time
	first := true
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		t := timeOf(e)
		date := dateOf(t.In(now.Location()))
		if !first && date.Equal(previousDate) {
			continue
		}
		first = false
		previousDate = date

		group := timeGroup(t, now)
		if group != value {
			value = group
			groups = append(groups, Group{Index: i, Value: group})
		}
	}
	return groups
}

// accessPhrase lists the granted permissions of one class, e.g.
// "Read, Write", or "Forbidden" when none is granted.
func accessPhrase(it *fileitem.Item, c fileitem.Class) string {
	var parts []string
	if it.Permission(c, fileitem.Read) {
		parts = append(parts, "Read")
	}
	if it.Permission(c, fileitem.Write) {
		parts = append(parts, "Write")
	}
	if it.Permission(c, fileitem.Execute) {
		parts = append(parts, "Execute")
	}
	if len(parts) == 0 {
		return "Forbidden"
	}
	return strings.Join(parts, ", ")
}

func (m *Model) permissionRoleGroups() []Group {
	groups := []Group{}
	var value, permissions string
	first := true
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		p := valueString(e.values[role.Permissions])
		if !first && p == permissions {
			continue
		}
		first = false
		permissions = p

		group := fmt.Sprintf("User: %s | Group: %s | Others: %s",
			accessPhrase(e.item, fileitem.User),
			accessPhrase(e.item, fileitem.GroupClass),
			accessPhrase(e.item, fileitem.Others))
		if group != value {
			value = group
			groups = append(groups, Group{Index: i, Value: group})
		}
	}
	return groups
}

func (m *Model) ratingRoleGroups() []Group {
	groups := []Group{}
	value := -1
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		rating := int(valueInt(e.values[role.Rating]))
		if rating != value {
			value = rating
			groups = append(groups, Group{Index: i, Value: rating})
		}
	}
	return groups
}

// genericStringRoleGroups starts a group at the first item even when its
// value is empty.
func (m *Model) genericStringRoleGroups(name string) []Group {
	groups := []Group{}
	var value string
	first := true
	for i, e := range m.entries {
		if m.isChildItem(i) {
			continue
		}
		v := valueString(e.values[name])
		if first || v != value {
			value = v
			groups = append(groups, Group{Index: i, Value: v})
			first = false
		}
	}
	return groups
}
