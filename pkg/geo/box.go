// Package geo computes geographic bounding boxes for manifest records.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoPoints is returned when a bounding box is requested over no coordinates.
var ErrNoPoints = errors.New("no coordinates")

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Box is a bounding box in the manifest's min_lon,min_lat,max_lon,max_lat order.
type Box struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// String renders the box as it appears on a manifest bbox= line.
func (b Box) String() string {
	return strings.Join([]string{
		FormatCoord(b.MinLon), FormatCoord(b.MinLat),
		FormatCoord(b.MaxLon), FormatCoord(b.MaxLat),
	}, ",")
}

// Slice returns the box as a four-element list.
func (b Box) Slice() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// Valid reports whether the box is ordered and within WGS84 limits.
func (b Box) Valid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 && b.MinLat >= -90 && b.MaxLat <= 90
}

// FromSlice builds a box from [min_lon, min_lat, max_lon, max_lat].
func FromSlice(v []float64) (Box, error) {
	if len(v) != 4 {
		return Box{}, fmt.Errorf("bbox needs 4 values, got %d", len(v))
	}
	return Box{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
}

// ParseBox parses "min_lon,min_lat,max_lon,max_lat".
func ParseBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, fmt.Errorf("bbox %q: want 4 comma separated values", s)
	}
	v := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Box{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return FromSlice(v)
}

// FormatCoord prints the shortest representation that round-trips, always
// with a decimal point: 10 -> "10.0", 7.25 -> "7.25".
func FormatCoord(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Collector accumulates points and reports their bounding box.
type Collector struct {
	box   Box
	count int
}

// Add extends the box to cover p.
func (c *Collector) Add(p Point) {
	if c.count == 0 {
		c.box = Box{MinLon: p.Lon, MinLat: p.Lat, MaxLon: p.Lon, MaxLat: p.Lat}
	} else {
		c.box.MinLon = math.Min(c.box.MinLon, p.Lon)
		c.box.MinLat = math.Min(c.box.MinLat, p.Lat)
		c.box.MaxLon = math.Max(c.box.MaxLon, p.Lon)
		c.box.MaxLat = math.Max(c.box.MaxLat, p.Lat)
	}
	c.count++
}

// Count is the number of points added.
func (c *Collector) Count() int { return c.count }

// Box returns the bounding box, or ErrNoPoints if nothing was added.
func (c *Collector) Box() (Box, error) {
	if c.count == 0 {
		return Box{}, ErrNoPoints
	}
	return c.box, nil
}

// Mean is the arithmetic mean of a point set (used for waypoint index centroids).
type Mean struct {
	sumLat, sumLon float64
	n              int
}

// Add includes p in the mean.
func (m *Mean) Add(p Point) {
	m.sumLat += p.Lat
	m.sumLon += p.Lon
	m.n++
}

// Point returns the mean position, or ErrNoPoints.
func (m *Mean) Point() (Point, error) {
	if m.n == 0 {
		return Point{}, ErrNoPoints
	}
	return Point{Lat: m.sumLat / float64(m.n), Lon: m.sumLon / float64(m.n)}, nil
}
