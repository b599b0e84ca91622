// Package country maps file-name fragments to ISO 3166-1 countries.
//
// A Table is built once at process start and passed to whatever needs it.
// Resolution runs an ordered list of strategies and records which one
// matched, or every one that was tried when nothing did.
package country

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/biter777/countries"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Country is one ISO 3166-1 entry.
type Country struct {
	Alpha2  string `json:"alpha2"`
	Alpha3  string `json:"alpha3"`
	Name    string `json:"name"`
	Numeric int    `json:"numeric"`
}

// Area is the lowercase alpha-2 code used in manifests.
func (c Country) Area() string {
	return strings.ToLower(c.Alpha2)
}

// Table is an immutable ISO 3166-1 lookup table.
type Table struct {
	all       []Country
	byAlpha2  map[string]Country
	byAlpha3  map[string]Country
	byNumeric map[int]Country
	byName    map[string]Country
	names     []string
}

// NewTable indexes the given countries. Later duplicates lose to earlier ones.
func NewTable(entries []Country) *Table {
	t := &Table{
		byAlpha2:  make(map[string]Country, len(entries)),
		byAlpha3:  make(map[string]Country, len(entries)),
		byNumeric: make(map[int]Country, len(entries)),
		byName:    make(map[string]Country, len(entries)),
	}
	for _, c := range entries {
		c.Alpha2 = strings.ToUpper(c.Alpha2)
		c.Alpha3 = strings.ToUpper(c.Alpha3)
		if _, dup := t.byAlpha2[c.Alpha2]; dup {
			continue
		}
		t.all = append(t.all, c)
		t.byAlpha2[c.Alpha2] = c
		if c.Alpha3 != "" {
			t.byAlpha3[c.Alpha3] = c
		}
		if c.Numeric > 0 {
			t.byNumeric[c.Numeric] = c
		}
		if key := foldName(c.Name); key != "" {
			if _, dup := t.byName[key]; !dup {
				t.byName[key] = c
				t.names = append(t.names, key)
			}
		}
	}
	sort.Slice(t.all, func(i, j int) bool { return t.all[i].Alpha2 < t.all[j].Alpha2 })
	sort.Strings(t.names)
	return t
}

// NewISOTable builds the table from the ISO 3166-1 data shipped with
// github.com/biter777/countries.
func NewISOTable() *Table {
	var entries []Country
	for _, c := range countries.All() {
		if !c.IsValid() || len(c.Alpha2()) != 2 {
			continue
		}
		entries = append(entries, Country{
			Alpha2:  c.Alpha2(),
			Alpha3:  c.Alpha3(),
			Name:    c.String(),
			Numeric: int(c),
		})
	}
	return NewTable(entries)
}

// Len returns the number of countries in the table.
func (t *Table) Len() int { return len(t.all) }

// All returns the countries sorted by alpha-2 code.
func (t *Table) All() []Country {
	return append([]Country(nil), t.all...)
}

// Alpha2 looks up a two-letter code, case-insensitively.
func (t *Table) Alpha2(code string) (Country, bool) {
	c, ok := t.byAlpha2[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Alpha3 looks up a three-letter code, case-insensitively.
func (t *Table) Alpha3(code string) (Country, bool) {
	c, ok := t.byAlpha3[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Numeric looks up a numeric code given as decimal text.
func (t *Table) Numeric(code string) (Country, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return Country{}, false
	}
	c, ok := t.byNumeric[n]
	return c, ok
}

// Name looks up an English short name, ignoring case and diacritics.
func (t *Table) Name(name string) (Country, bool) {
	c, ok := t.byName[foldName(name)]
	return c, ok
}

// Get accepts any exact identifier: alpha-2, alpha-3, numeric or name.
func (t *Table) Get(s string) (Country, bool) {
	r := ExactResolver(t).Resolve(s)
	return r.Country, r.OK
}

// foldName normalises a country name for comparison: diacritics removed,
// case folded, underscores treated as spaces and whitespace collapsed.
func foldName(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(tr, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	out = strings.ReplaceAll(out, "_", " ")
	return strings.Join(strings.Fields(out), " ")
}
