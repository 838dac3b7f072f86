package model

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// A collator keeps per call state, so concurrent sorts take one each from
// the model's pool.
func newNaturalCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
}

// baseName is the part of a name before its first dot. Leading dots belong
// to the base, so ".bashrc" has no extension.
func baseName(s string) string {
	lead := len(s) - len(strings.TrimLeft(s, "."))
	if i := strings.IndexByte(s[lead:], '.'); i >= 0 {
		return s[:lead+i]
	}
	return s
}

// stringCompare orders display strings. Natural sorting compares base names
// with a digit aware collator before the extensions; otherwise strings are
// compared ignoring case, then by their bytes.
func (m *Model) stringCompare(a, b string) int {
	if m.naturalSorting {
		c := m.collators.Get().(*collate.Collator)
		defer m.collators.Put(c)

		baseA, baseB := baseName(a), baseName(b)
		r := c.CompareString(baseA, baseB)
		if r != 0 || (len(baseA) == len(a) && len(baseB) == len(b)) {
			return r
		}
		return c.CompareString(a[len(baseA):], b[len(baseB):])
	}
	if r := strings.Compare(strings.ToLower(a), strings.ToLower(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

var lettersAtoZ = func() []string {
	out := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}()

// letterGroup maps the first character of name to its group title: the
// nearest plain letter A to Z for Latin letters (so "Ä" joins "A"), the
// letter itself for other scripts, "0 - 9" for digits and "Others" for the
// rest.
func (m *Model) letterGroup(name string) (first, group string) {
	name = norm.NFC.String(name)
	r, size := utf8.DecodeRuneInString(name)
	if r == '~' && len(name) > size {
		r, _ = utf8.DecodeRuneInString(name[size:])
	}
	first = cases.Upper(language.Und).String(string(r))

	switch {
	case unicode.IsLetter(r):
		if m.groupColl == nil {
			m.groupColl = collate.New(language.Und)
		}
		c := m.groupColl
		if c.CompareString(first, "A") < 0 || c.CompareString(first, "Z") > 0 {
			return first, first
		}
		i, found := slices.BinarySearchFunc(lettersAtoZ, first, func(letter, target string) int {
			return c.CompareString(letter, target)
		})
		if !found && i > 0 {
			i--
		}
		return first, lettersAtoZ[min(i, len(lettersAtoZ)-1)]
	case r >= '0' && r <= '9':
		return first, "0 - 9"
	}
	return first, "Others"
}
