// Package cup reads the waypoint section of SeeYou .cup files.
//
// Only the fields aerorepo needs are decoded: identity, position, elevation,
// style and description. The task section after "-----Related Tasks-----"
// is not read.
package cup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// TaskMarker separates waypoints from tasks.
const TaskMarker = "-----Related Tasks-----"

// Header is the column line written by the OpenAIP exports.
const Header = "name,code,country,lat,lon,elev,style,rwdir,rwlen,rwwidth,freq,desc"

// Waypoint is one decoded .cup line.
type Waypoint struct {
	Name        string
	Code        string
	Country     string
	Latitude    float64
	Longitude   float64
	Elevation   string
	Style       string
	Description string
	Line        int
}

// ParseError reports a malformed waypoint line.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: invalid %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	latPattern = regexp.MustCompile(`^(\d{2})(\d{2}(?:\.\d+)?)([NnSs])$`)
	lonPattern = regexp.MustCompile(`^(\d{3})(\d{2}(?:\.\d+)?)([EeWw])$`)

	errFormat  = errors.New("expected DDMM.mmm[NS] / DDDMM.mmm[EW]")
	errMinutes = errors.New("minutes out of range")
	errColumns = errors.New("too few columns")
	errRange   = errors.New("coordinate out of range")
)

type columns struct {
	name, code, country, lat, lon, elev, style, desc int
}

var defaultColumns = columns{name: 0, code: 1, country: 2, lat: 3, lon: 4, elev: 5, style: 6, desc: 10}

// Read decodes every waypoint in r. The first malformed line aborts the
// read with a *ParseError, mirroring a strict format check.
func Read(r io.Reader) ([]Waypoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	cols := defaultColumns
	first := true
	var out []Waypoint

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return out, &ParseError{Line: pe.Line, Err: pe.Err}
			}
			return out, err
		}
		line, _ := cr.FieldPos(0)

		if len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		if blank(rec) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(rec[0]), TaskMarker) {
			break
		}
		if first {
			first = false
			if hc, ok := headerColumns(rec); ok {
				cols = hc
				continue
			}
		}

		wp, err := decode(rec, cols, line)
		if err != nil {
			return out, err
		}
		out = append(out, wp)
	}
	return out, nil
}

func decode(rec []string, cols columns, line int) (Waypoint, error) {
	if len(rec) <= cols.lon || len(rec) <= cols.lat {
		return Waypoint{}, &ParseError{Line: line, Err: errColumns}
	}
	lat, err := ParseLatitude(rec[cols.lat])
	if err != nil {
		return Waypoint{}, &ParseError{Line: line, Field: "latitude", Value: rec[cols.lat], Err: err}
	}
	lon, err := ParseLongitude(rec[cols.lon])
	if err != nil {
		return Waypoint{}, &ParseError{Line: line, Field: "longitude", Value: rec[cols.lon], Err: err}
	}
	return Waypoint{
		Name:        field(rec, cols.name),
		Code:        field(rec, cols.code),
		Country:     field(rec, cols.country),
		Latitude:    lat,
		Longitude:   lon,
		Elevation:   field(rec, cols.elev),
		Style:       field(rec, cols.style),
		Description: field(rec, cols.desc),
		Line:        line,
	}, nil
}

func headerColumns(rec []string) (columns, bool) {
	idx := map[string]int{}
	for i, f := range rec {
		idx[strings.ToLower(strings.TrimSpace(f))] = i
	}
	lat, okLat := idx["lat"]
	lon, okLon := idx["lon"]
	name, okName := idx["name"]
	if !okLat || !okLon || !okName {
		return columns{}, false
	}
	get := func(k string) int {
		if i, ok := idx[k]; ok {
			return i
		}
		return -1
	}
	return columns{
		name: name, code: get("code"), country: get("country"),
		lat: lat, lon: lon, elev: get("elev"), style: get("style"), desc: get("desc"),
	}, true
}

// ParseLatitude decodes DDMM.mmm[NS].
func ParseLatitude(s string) (float64, error) {
	return parseCoord(latPattern, s, "Ss", 90)
}

// ParseLongitude decodes DDDMM.mmm[EW].
func ParseLongitude(s string) (float64, error) {
	return parseCoord(lonPattern, s, "Ww", 180)
}

func parseCoord(re *regexp.Regexp, s, negative string, limit float64) (float64, error) {
	m := re.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errFormat
	}
	deg, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	if minutes >= 60 {
		return 0, errMinutes
	}
	v := deg + minutes/60
	if v > limit {
		return 0, errRange
	}
	if strings.Contains(negative, m[3]) {
		v = -v
	}
	return v, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
