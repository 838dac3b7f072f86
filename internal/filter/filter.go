// Package filter decides which items stay visible under a name pattern and a
// MIME type allow-list.
package filter

import (
	"regexp"
	"slices"
	"strings"
)

// Matchable is the view of an item the filter needs.
type Matchable interface {
	Text() string
	MimeType() string
}

// Filter matches items against an optional name pattern and an optional list
// of MIME types. An empty filter matches everything.
type Filter struct {
	pattern      string
	lowerPattern string
	rx           *regexp.Regexp

	mimeTypes []string
}

// SetPattern sets the name pattern. Patterns containing '*', '?' or '[' are
// anchored, case-insensitive wildcards; anything else is a case-insensitive
// substring.
func (f *Filter) SetPattern(p string) {
	f.pattern = p
	f.lowerPattern = strings.ToLower(p)
	f.rx = nil
	if strings.ContainsAny(p, "*?[") {
		// An invalid pattern falls back to substring matching.
		f.rx, _ = compileWildcard(p)
	}
}

func (f *Filter) Pattern() string { return f.pattern }

// SetMimeTypes sets the allowed MIME types. Entries may be exact ("image/png")
// or cover a whole top-level type ("image/*").
func (f *Filter) SetMimeTypes(types []string) { f.mimeTypes = slices.Clone(types) }

func (f *Filter) MimeTypes() []string { return slices.Clone(f.mimeTypes) }

// HasSetFilters reports whether a pattern or MIME list is active.
func (f *Filter) HasSetFilters() bool {
	return f.pattern != "" || len(f.mimeTypes) > 0
}

// Matches reports whether the item passes every active constraint.
func (f *Filter) Matches(m Matchable) bool {
	hasPattern := f.pattern != ""
	hasTypes := len(f.mimeTypes) > 0

	switch {
	case hasPattern && hasTypes:
		return f.MatchesPattern(m) && f.MatchesType(m)
	case hasPattern:
		return f.MatchesPattern(m)
	case hasTypes:
		return f.MatchesType(m)
	default:
		return true
	}
}

func (f *Filter) MatchesPattern(m Matchable) bool {
	if f.rx != nil {
		return f.rx.MatchString(m.Text())
	}
	return strings.Contains(strings.ToLower(m.Text()), f.lowerPattern)
}

func (f *Filter) MatchesType(m Matchable) bool {
	if len(f.mimeTypes) == 0 {
		return true
	}
	mt := m.MimeType()
	for _, want := range f.mimeTypes {
		if mt == want {
			return true
		}
		if prefix, ok := strings.CutSuffix(want, "/*"); ok && strings.HasPrefix(mt, prefix+"/") {
			return true
		}
	}
	return false
}

// compileWildcard translates a shell wildcard into an anchored,
// case-insensitive regexp. An unterminated '[' is taken literally.
func compileWildcard(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")

	rs := []rune(glob)
	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := closingBracket(rs, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := rs[i+1 : end]
			b.WriteByte('[')
			if len(class) > 0 && class[0] == '!' {
				b.WriteByte('^')
				class = class[1:]
			}
			for _, r := range class {
				if r == '\\' || r == '[' || r == ']' || r == '^' {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
			b.WriteByte(']')
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

func closingBracket(rs []rune, open int) int {
	i := open + 1
	if i < len(rs) && rs[i] == '!' {
		i++
	}
	// A ']' right after the opening bracket belongs to the class.
	if i < len(rs) && rs[i] == ']' {
		i++
	}
	for ; i < len(rs); i++ {
		if rs[i] == ']' {
			return i
		}
	}
	return -1
}
