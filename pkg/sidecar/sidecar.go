// Package sidecar reads the JSON metadata files that sit next to (or stand
// in for) repository data files.
package sidecar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/fulmenhq/aerorepo/pkg/geo"
	"github.com/go-git/go-billy/v5"
)

// Ext is the sidecar file extension.
const Ext = ".json"

// Daily is the update token replaced by the current UTC date.
const Daily = "daily"

// DateLayout is the manifest update format.
const DateLayout = "2006-01-02"

// ErrNoURI is returned for remote sidecars without a uri.
var ErrNoURI = errors.New("sidecar has no uri")

// Sidecar is the decoded metadata document. Box fields stay raw because
// both string and list forms occur in the wild.
type Sidecar struct {
	URI         string          `json:"uri,omitempty"`
	Update      string          `json:"update,omitempty"`
	Description string          `json:"description,omitempty"`
	BBox        json.RawMessage `json:"bbox,omitempty"`
	BoundingBox json.RawMessage `json:"bounding_box,omitempty"`
}

// Decode parses a sidecar document.
func Decode(data []byte) (*Sidecar, error) {
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}
	s.URI = strings.TrimSpace(s.URI)
	s.Update = strings.TrimSpace(s.Update)
	return &s, nil
}

// Load reads and decodes the sidecar at name on fs.
func Load(fs billy.Filesystem, name string) (*Sidecar, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// Find looks up the sidecar for a data file: X.ext.json first, then X.json.
func Find(fs billy.Filesystem, dataFile string) (string, bool) {
	candidates := []string{dataFile + Ext}
	if ext := path.Ext(dataFile); ext != "" && ext != Ext {
		candidates = append(candidates, strings.TrimSuffix(dataFile, ext)+Ext)
	}
	for _, c := range candidates {
		if fi, err := fs.Stat(c); err == nil && !fi.IsDir() {
			return c, true
		}
	}
	return "", false
}

// RequireURI reports ErrNoURI when the sidecar cannot stand in for a file.
func (s *Sidecar) RequireURI() error {
	if s.URI == "" {
		return ErrNoURI
	}
	return nil
}

// ResolveUpdate returns the update date, with "daily" replaced by the UTC
// date of now. The second result is false when no update is set.
func (s *Sidecar) ResolveUpdate(now time.Time) (string, bool) {
	switch {
	case s.Update == "":
		return "", false
	case strings.EqualFold(s.Update, Daily):
		return now.UTC().Format(DateLayout), true
	default:
		return s.Update, true
	}
}

// ErrNoBox is returned by BBoxText when neither bounding_box nor bbox is set.
var ErrNoBox = errors.New("sidecar has no bounding box")

// Box returns the precomputed bounding box, preferring bounding_box over
// bbox. bbox may be a 4-number list or a "a,b,c,d" string. A box that is
// malformed, not ordered min to max or outside WGS84 is skipped.
func (s *Sidecar) Box() (geo.Box, bool) {
	b, _, err := s.box()
	return b, err == nil
}

// BBoxText returns the manifest bbox= value. A string bbox is used as
// written once it parses; list forms are rendered from the box.
func (s *Sidecar) BBoxText() (string, error) {
	_, text, err := s.box()
	return text, err
}

func (s *Sidecar) box() (geo.Box, string, error) {
	err := ErrNoBox
	for _, raw := range []json.RawMessage{s.BoundingBox, s.BBox} {
		b, text, derr := decodeBox(raw)
		switch {
		case errors.Is(derr, ErrNoBox):
			continue
		case derr != nil:
			err = derr
		case !b.Valid():
			err = fmt.Errorf("bbox %s is not ordered min_lon,min_lat,max_lon,max_lat within WGS84", text)
		default:
			return b, text, nil
		}
	}
	return geo.Box{}, "", err
}

func decodeBox(raw json.RawMessage) (geo.Box, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return geo.Box{}, "", ErrNoBox
	}
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil {
		b, err := geo.FromSlice(list)
		if err != nil {
			return geo.Box{}, "", err
		}
		return b, b.String(), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		b, err := geo.ParseBox(str)
		if err != nil {
			return geo.Box{}, "", err
		}
		return b, strings.TrimSpace(str), nil
	}
	return geo.Box{}, "", fmt.Errorf("unsupported box %s", raw)
}

// Encode renders s as indented JSON with a trailing newline.
func Encode(s *Sidecar) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// BoxJSON returns a 4-number list suitable for bbox or bounding_box.
func BoxJSON(b geo.Box) json.RawMessage {
	data, _ := json.Marshal(b.Slice())
	return data
}
