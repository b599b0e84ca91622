package country

import (
	"strings"

	"github.com/biter777/countries"
)

// Strategy is one way of turning a string into a country.
type Strategy struct {
	Name    string
	resolve func(t *Table, s string) (Country, bool)
}

var (
	// ByAlpha2 matches a two-letter code.
	ByAlpha2 = Strategy{Name: "alpha2", resolve: func(t *Table, s string) (Country, bool) {
		return t.Alpha2(s)
	}}
	// ByAlpha3 matches a three-letter code.
	ByAlpha3 = Strategy{Name: "alpha3", resolve: func(t *Table, s string) (Country, bool) {
		return t.Alpha3(s)
	}}
	// ByNumeric matches an ISO numeric code.
	ByNumeric = Strategy{Name: "numeric", resolve: func(t *Table, s string) (Country, bool) {
		return t.Numeric(s)
	}}
	// ByName matches the full English short name.
	ByName = Strategy{Name: "name", resolve: func(t *Table, s string) (Country, bool) {
		return t.Name(s)
	}}
	// BySubstring matches when s is contained in exactly one country name.
	// Ambiguous input (contained in several names) does not match.
	BySubstring = Strategy{Name: "substring", resolve: func(t *Table, s string) (Country, bool) {
		needle := foldName(s)
		if needle == "" {
			return Country{}, false
		}
		var found Country
		hits := 0
		for _, name := range t.names {
			if strings.Contains(name, needle) {
				hits++
				found = t.byName[name]
			}
		}
		return found, hits == 1
	}}
	// ByAlias asks the countries library, which knows common alternative
	// spellings ("Czech Republic", "Russia", ...). The hit must exist in t.
	ByAlias = Strategy{Name: "alias", resolve: func(t *Table, s string) (Country, bool) {
		code := countries.ByName(strings.ReplaceAll(s, "_", " "))
		if !code.IsValid() {
			return Country{}, false
		}
		return t.Alpha2(code.Alpha2())
	}}
)

// Resolution is the outcome of running a Resolver.
type Resolution struct {
	Input    string
	Country  Country
	OK       bool
	Strategy string   // name of the matching strategy when OK
	Tried    []string // strategies attempted, in order
}

// Area is the lowercase alpha-2 code, or "" when nothing matched.
func (r Resolution) Area() string {
	if !r.OK {
		return ""
	}
	return r.Country.Area()
}

// Resolver tries strategies in order and stops at the first match.
type Resolver struct {
	table      *Table
	strategies []Strategy
}

// NewResolver returns a resolver over t using the given strategies.
func NewResolver(t *Table, strategies ...Strategy) *Resolver {
	return &Resolver{table: t, strategies: strategies}
}

// ExactResolver accepts only exact identifiers, like an ISO table lookup.
func ExactResolver(t *Table) *Resolver {
	return NewResolver(t, ByAlpha2, ByAlpha3, ByNumeric, ByName)
}

// FuzzyResolver adds substring and alias matching for free-form names such
// as legacy waypoint file names ("Czech_Republic", "Bosnia").
func FuzzyResolver(t *Table) *Resolver {
	return NewResolver(t, ByAlpha2, ByAlpha3, ByNumeric, ByName, BySubstring, ByAlias)
}

// Table returns the table the resolver searches.
func (r *Resolver) Table() *Table { return r.table }

// Resolve runs every strategy until one matches.
func (r *Resolver) Resolve(s string) Resolution {
	res := Resolution{Input: s}
	if strings.TrimSpace(s) == "" {
		return res
	}
	for _, st := range r.strategies {
		res.Tried = append(res.Tried, st.Name)
		if c, ok := st.resolve(r.table, s); ok {
			res.Country = c
			res.OK = true
			res.Strategy = st.Name
			return res
		}
	}
	return res
}

// AreaPrefix returns the first token of a file stem, splitting on '.', '_'
// and '-': "FR-ASP-National" -> "FR", "USA_PG_REG1" -> "USA", "de.cup" -> "de".
func AreaPrefix(stem string) string {
	if i := strings.IndexAny(stem, "._-"); i >= 0 {
		return stem[:i]
	}
	return stem
}

// GuessArea resolves the area prefix of a file stem.
func (r *Resolver) GuessArea(stem string) Resolution {
	res := r.Resolve(AreaPrefix(stem))
	res.Input = stem
	return res
}
