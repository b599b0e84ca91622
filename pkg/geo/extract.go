package geo

import (
	"fmt"
	"io"

	"github.com/fulmenhq/aerorepo/pkg/aero/cup"
	"github.com/fulmenhq/aerorepo/pkg/aero/openair"
)

// FromCUP bounds every waypoint in a SeeYou file.
func FromCUP(r io.Reader) (Box, error) {
	wps, err := cup.Read(r)
	if err != nil {
		return Box{}, fmt.Errorf("read waypoints: %w", err)
	}
	var c Collector
	for _, wp := range wps {
		c.Add(Point{Lat: wp.Latitude, Lon: wp.Longitude})
	}
	return c.Box()
}

// CUPMean returns the mean position and count of the waypoints in r.
func CUPMean(r io.Reader) (Point, int, error) {
	wps, err := cup.Read(r)
	if err != nil {
		return Point{}, 0, fmt.Errorf("read waypoints: %w", err)
	}
	var m Mean
	for _, wp := range wps {
		m.Add(Point{Lat: wp.Latitude, Lon: wp.Longitude})
	}
	p, err := m.Point()
	return p, len(wps), err
}

// OpenAirResult carries the box together with the records that were skipped.
type OpenAirResult struct {
	Box     Box
	Skipped []error
}

// FromOpenAir bounds label positions, DP/DY vertices and circle/arc centers
// of every well-formed airspace. Malformed records are skipped and returned.
func FromOpenAir(r io.Reader) (OpenAirResult, error) {
	airspaces, skipped, err := openair.Read(r)
	if err != nil {
		return OpenAirResult{Skipped: skipped}, fmt.Errorf("read airspace: %w", err)
	}
	var c Collector
	for _, as := range airspaces {
		for _, l := range as.Labels {
			c.Add(Point{Lat: l.Lat, Lon: l.Lon})
		}
		for _, el := range as.Elements {
			switch el.Kind {
			case openair.KindPoint:
				c.Add(Point{Lat: el.Location.Lat, Lon: el.Location.Lon})
			case openair.KindCircle, openair.KindArc:
				c.Add(Point{Lat: el.Center.Lat, Lon: el.Center.Lon})
			}
		}
	}
	box, err := c.Box()
	return OpenAirResult{Box: box, Skipped: skipped}, err
}
