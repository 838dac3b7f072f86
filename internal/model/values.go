package model

import (
	"fmt"
	"os"
	"path"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"dirview/internal/fileitem"
	"dirview/internal/role"
)

// Values maps role names to the values known for an item.
type Values map[string]any

// Dimensions is the value of the dimensions role.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string { return fmt.Sprintf("%d x %d", d.Width, d.Height) }

var homeDir = sync.OnceValue(func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return fileitem.CleanURL(home)
})

// retrieveData returns the roles that are cheap to compute from the item
// alone. Everything expensive is left to the roles updater.
func (m *Model) retrieveData(it *fileitem.Item, parent *entry) Values {
	d := Values{role.URL: it.URL()}
	isDir := it.IsDir()

	if m.request[role.IsDirRole] && isDir {
		d[role.IsDir] = true
	}
	if m.request[role.IsLinkRole] && it.IsLink() {
		d[role.IsLink] = true
	}
	if m.request[role.IsHiddenRole] {
		d[role.IsHidden] = it.IsHidden()
	}
	if m.request[role.NameRole] {
		d[role.Text] = it.Text()
	}
	if m.request[role.ExtensionRole] && !isDir {
		d[role.Extension] = it.Suffix()
	}
	if m.request[role.SizeRole] && !isDir {
		d[role.Size] = it.Size()
	}
	if m.request[role.ModificationTimeRole] {
		d[role.ModificationTime] = it.ModTime()
	}
	if m.request[role.CreationTimeRole] {
		d[role.CreationTime] = it.BirthTime()
	}
	if m.request[role.AccessTimeRole] {
		d[role.AccessTime] = it.AccessTime()
	}
	if m.request[role.PermissionsRole] {
		d[role.Permissions] = it.PermissionsString()
	}
	if m.request[role.OwnerRole] {
		d[role.Owner] = it.Owner()
	}
	if m.request[role.GroupRole] {
		d[role.Group] = it.Group()
	}
	if m.request[role.DestinationRole] {
		dest := it.LinkDest()
		if dest == "" {
			dest = "-"
		}
		d[role.Destination] = dest
	}
	if m.request[role.PathRole] {
		dir := path.Dir(it.URL())
		if home := homeDir(); home != "" && (dir == home || strings.HasPrefix(dir, home+"/")) {
			dir = "~" + dir[len(home):]
		}
		d[role.Path] = dir
	}
	if m.request[role.DeletionTimeRole] {
		d[role.DeletionTime] = time.Time{}
	}
	if m.request[role.IsExpandableRole] && isDir {
		d[role.IsExpandable] = true
	}
	if m.request[role.ExpandedParentsCountRole] && parent != nil {
		d[role.ExpandedParentsCount] = parent.level() + 1
	}

	if it.IsMimeTypeKnown() {
		d[role.IconName] = it.IconName()
		if m.request[role.TypeRole] {
			d[role.Type] = it.MimeComment()
		}
	} else if m.request[role.TypeRole] && isDir {
		d[role.Type] = it.MimeComment()
	}
	return d
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// expansionKeys are the values that describe expansion. They are not
// retrieved from the item, so they survive every rebuild of the rest.
var expansionKeys = []string{role.IsExpanded, role.ExpandedParentsCount, previouslyExpandedChildren}

// expansionState returns the expansion values of v, or nil if it has none.
func expansionState(v Values) Values {
	var out Values
	for _, k := range expansionKeys {
		if x, ok := v[k]; ok {
			if out == nil {
				out = Values{}
			}
			out[k] = x
		}
	}
	return out
}

// onlyExpansionState reports whether v holds nothing but expansion values.
func onlyExpansionState(v Values) bool {
	for k := range v {
		if !slices.Contains(expansionKeys, k) {
			return false
		}
	}
	return len(v) > 0
}

func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// valueString renders a value the way string comparison and generic groups
// see it. Missing values are "".
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func valueInt(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func valueTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

// timeStamp orders unknown times before every known one.
func timeStamp(t time.Time) int64 {
	if t.IsZero() {
		return -1
	}
	return t.UnixNano()
}

func urlList(v any) []string {
	urls, _ := v.([]string)
	return urls
}
