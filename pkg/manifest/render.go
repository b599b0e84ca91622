package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the manifest encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q (want text, json or yaml)", s)
	}
}

// Block renders one record as newline-terminated key=value lines. Empty
// area, description and bbox are left out entirely.
func Block(r Record) string {
	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	line(KeyName, r.Name)
	line(KeyURI, r.URI)
	line(KeyType, r.Type)
	if r.Area != "" {
		line(KeyArea, r.Area)
	}
	if r.Description != "" {
		line(KeyDescription, r.Description)
	}
	line(KeyUpdate, r.Update)
	if r.BBox != "" {
		line(KeyBBox, r.BBox)
	}
	for _, x := range r.Extra {
		b.WriteString(x)
		b.WriteByte('\n')
	}
	return b.String()
}

// Text renders records without section comments, each followed by a blank line.
func Text(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(Block(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// SectionsText renders sections, writing the "# Data location" comment
// before the first record of each non-empty section.
func SectionsText(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		if len(s.Records) == 0 {
			continue
		}
		b.WriteString("# ")
		b.WriteString(s.Comment())
		b.WriteString("\n\n")
		b.WriteString(Text(s.Records))
	}
	return b.String()
}

// Document is the JSON/YAML form of a manifest.
type Document struct {
	Title   string   `json:"title" yaml:"title"`
	Records []Record `json:"records" yaml:"records"`
}

// Encode writes sections to w in the requested format.
func Encode(w io.Writer, format Format, title string, sections []Section) error {
	switch format {
	case FormatText, "":
		_, err := io.WriteString(w, SectionsText(sections))
		return err
	case FormatJSON:
		doc := Document{Title: title, Records: nonNil(Flatten(sections))}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatYAML:
		doc := Document{Title: title, Records: nonNil(Flatten(sections))}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown manifest format %q", format)
	}
}

func nonNil(r []Record) []Record {
	if r == nil {
		return []Record{}
	}
	return r
}
