// Package manifest models the flat-file repository manifest: blank-line
// separated blocks of key=value lines, grouped under "# Data location"
// comments.
package manifest

import "fmt"

// Known record keys, in rendering order.
const (
	KeyName        = "name"
	KeyURI         = "uri"
	KeyType        = "type"
	KeyArea        = "area"
	KeyDescription = "description"
	KeyUpdate      = "update"
	KeyBBox        = "bbox"
)

// Record is one catalogued artefact.
type Record struct {
	Name        string `json:"name" yaml:"name"`
	URI         string `json:"uri" yaml:"uri"`
	Type        string `json:"type" yaml:"type"`
	Area        string `json:"area,omitempty" yaml:"area,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Update      string `json:"update" yaml:"update"`
	BBox        string `json:"bbox,omitempty" yaml:"bbox,omitempty"`

	// Extra holds unrecognised lines from a parsed manifest, verbatim.
	Extra []string `json:"-" yaml:"-"`
}

// Section is a group of records sharing data location, type and geography.
type Section struct {
	Location  string
	Type      string
	Geography string
	Records   []Record
}

// Comment is the section header without the leading "# ".
func (s Section) Comment() string {
	return fmt.Sprintf("Data location: %s, type: %s, geography: %s.", s.Location, s.Type, s.Geography)
}

// Flatten returns every record of every section, in order.
func Flatten(sections []Section) []Record {
	var out []Record
	for _, s := range sections {
		out = append(out, s.Records...)
	}
	return out
}
