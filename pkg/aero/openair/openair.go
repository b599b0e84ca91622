// Package openair reads airspace definitions in the OpenAir text format.
//
// Records start at an AC line. Geometry is kept as declared (points,
// circles and arcs around the current V X= center); arcs are not expanded
// into polylines. A malformed record is reported and skipped while the
// remaining records are still returned.
package openair

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Coord is a position in decimal degrees.
type Coord struct {
	Lat float64
	Lon float64
}

// ElementKind classifies a geometry element.
type ElementKind string

const (
	KindPoint  ElementKind = "point"
	KindCircle ElementKind = "circle"
	KindArc    ElementKind = "arc"
)

// Element is one DP/DY, DC, DA or DB command.
type Element struct {
	Kind      ElementKind
	Location  Coord   // point
	Center    Coord   // circle, arc
	Radius    float64 // nautical miles; circle and DA arcs
	Start     Coord   // DB arcs
	End       Coord   // DB arcs
	Clockwise bool
}

// Airspace is one AC record.
type Airspace struct {
	Class    string
	Name     string
	Floor    string
	Ceiling  string
	Labels   []Coord
	Elements []Element
	Line     int
}

// RecordError reports why a record was skipped.
type RecordError struct {
	Line int
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("airspace %q (line %d): %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("airspace at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

var (
	ErrNoCenter = errors.New("arc or circle without V X= center")
	errCoord    = errors.New("invalid coordinate")
)

type parser struct {
	out       []Airspace
	errs      []error
	cur       *Airspace
	curErr    error
	errLine   int
	center    *Coord
	clockwise bool
}

// Read parses all records in r. Per-record problems are returned in errs;
// err is non-nil only when r itself cannot be read.
func Read(r io.Reader) (airspaces []Airspace, errs []error, err error) {
	p := &parser{clockwise: true}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		p.line(lineNo, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return p.out, p.errs, err
	}
	p.finish()
	return p.out, p.errs, nil
}

func (p *parser) line(n int, raw string) {
	line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if line == "" || strings.HasPrefix(line, "*") {
		return
	}
	cmd, rest, _ := strings.Cut(line, " ")
	cmd = strings.ToUpper(cmd)
	rest = strings.TrimSpace(rest)

	if cmd == "AC" {
		p.finish()
		p.cur = &Airspace{Class: rest, Line: n}
		p.center = nil
		p.clockwise = true
		return
	}
	if p.cur == nil || p.curErr != nil {
		return
	}

	var err error
	switch cmd {
	case "AN":
		p.cur.Name = rest
	case "AL":
		p.cur.Floor = rest
	case "AH":
		p.cur.Ceiling = rest
	case "AT":
		var c Coord
		if c, err = ParseCoord(rest); err == nil {
			p.cur.Labels = append(p.cur.Labels, c)
		}
	case "V":
		err = p.variable(rest)
	case "DP", "DY":
		var c Coord
		if c, err = ParseCoord(rest); err == nil {
			p.cur.Elements = append(p.cur.Elements, Element{Kind: KindPoint, Location: c})
		}
	case "DC":
		err = p.circle(rest)
	case "DA":
		err = p.arcAngles(rest)
	case "DB":
		err = p.arcPoints(rest)
	}
	if err != nil {
		p.curErr = fmt.Errorf("%s %s: %w", cmd, rest, err)
		p.errLine = n
	}
}

func (p *parser) variable(rest string) error {
	key, val, ok := strings.Cut(rest, "=")
	if !ok {
		return fmt.Errorf("expected key=value")
	}
	switch strings.ToUpper(strings.TrimSpace(key)) {
	case "X":
		c, err := ParseCoord(val)
		if err != nil {
			return err
		}
		p.center = &c
	case "D":
		p.clockwise = strings.TrimSpace(val) != "-"
	}
	return nil
}

func (p *parser) circle(rest string) error {
	if p.center == nil {
		return ErrNoCenter
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return err
	}
	p.cur.Elements = append(p.cur.Elements, Element{Kind: KindCircle, Center: *p.center, Radius: r})
	return nil
}

func (p *parser) arcAngles(rest string) error {
	if p.center == nil {
		return ErrNoCenter
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 3 {
		return fmt.Errorf("DA wants radius, start, end")
	}
	vals := make([]float64, 3)
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	p.cur.Elements = append(p.cur.Elements, Element{
		Kind: KindArc, Center: *p.center, Radius: vals[0], Clockwise: p.clockwise,
	})
	return nil
}

func (p *parser) arcPoints(rest string) error {
	if p.center == nil {
		return ErrNoCenter
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 2 {
		return fmt.Errorf("DB wants two coordinates")
	}
	start, err := ParseCoord(parts[0])
	if err != nil {
		return err
	}
	end, err := ParseCoord(parts[1])
	if err != nil {
		return err
	}
	p.cur.Elements = append(p.cur.Elements, Element{
		Kind: KindArc, Center: *p.center, Start: start, End: end, Clockwise: p.clockwise,
	})
	return nil
}

func (p *parser) finish() {
	if p.cur == nil {
		return
	}
	if p.curErr != nil {
		p.errs = append(p.errs, &RecordError{Line: p.errLine, Name: p.cur.Name, Err: p.curErr})
	} else {
		p.out = append(p.out, *p.cur)
	}
	p.cur = nil
	p.curErr = nil
}

// ParseCoord decodes "48:10:30 N 011:20:00 E", "48:10.5N 011:20.25E" and
// similar DMS / decimal-minute forms.
func ParseCoord(s string) (Coord, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := strings.IndexAny(s, "NS")
	if i < 0 {
		return Coord{}, errCoord
	}
	lat, err := parseDMS(s[:i], 90)
	if err != nil {
		return Coord{}, err
	}
	if s[i] == 'S' {
		lat = -lat
	}

	rest := strings.TrimSpace(s[i+1:])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))
	j := strings.IndexAny(rest, "EW")
	if j < 0 {
		return Coord{}, errCoord
	}
	lon, err := parseDMS(rest[:j], 180)
	if err != nil {
		return Coord{}, err
	}
	if rest[j] == 'W' {
		lon = -lon
	}
	return Coord{Lat: lat, Lon: lon}, nil
}

func parseDMS(s string, limit float64) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return 0, errCoord
	}
	var v float64
	scale := 1.0
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f < 0 {
			return 0, errCoord
		}
		if i > 0 && f >= 60 {
			return 0, errCoord
		}
		v += f / scale
		scale *= 60
	}
	if v > limit {
		return 0, errCoord
	}
	return v, nil
}
