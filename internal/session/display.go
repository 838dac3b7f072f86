package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dirview/internal/model"
	"dirview/internal/role"
	"dirview/internal/rolesupdater"

	"github.com/dustin/go-humanize"
)

// TimeLayout is how time roles are shown.
const TimeLayout = "2006-01-02 15:04"

// DisplayValue is the text shown for role name of an item with values v.
func DisplayValue(name string, v model.Values, isDir bool) string {
	x, ok := v[name]
	if !ok {
		return ""
	}
	if name == role.Size {
		return displaySize(v, isDir)
	}
	switch x := x.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return ""
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Local().Format(TimeLayout)
	case []string:
		return strings.Join(x, ", ")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// displaySize shows files in bytes and directories by their content: a
// count, a summed size, or an ellipsis while that is unknown.
func displaySize(v model.Values, isDir bool) string {
	size, _ := v[role.Size].(int64)
	if !isDir {
		return humanize.IBytes(uint64(max(size, 0)))
	}
	switch {
	case size == rolesupdater.SizeCounting:
		return "…"
	case size >= 0:
		return humanize.IBytes(uint64(size))
	}
	n, ok := v[role.Count].(int)
	switch {
	case !ok:
		return ""
	case n == 1:
		return "1 item"
	default:
		return humanize.Comma(int64(n)) + " items"
	}
}

// SetShowHiddenFiles shows or hides dot files in the listing and in
// directory counts.
func (s *Session) SetShowHiddenFiles(show bool) {
	s.Model.SetShowHiddenFiles(show)
	f := s.Counter.Flags()
	f.ShowHidden = show
	s.Counter.SetFlags(f)
}
