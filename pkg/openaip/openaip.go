// Package openaip turns the OpenAIP export bucket into manifest records
// (airspace) and merged per-country waypoint files.
package openaip

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/fulmenhq/aerorepo/pkg/aero/cup"
	"github.com/fulmenhq/aerorepo/pkg/bucket"
	"github.com/fulmenhq/aerorepo/pkg/geo"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/fulmenhq/aerorepo/pkg/sidecar"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// WaypointDir is where merged waypoint files live below an output tree.
const WaypointDir = "content/waypoint/country"

// AirspaceName is the advertised name of a country's airspace file.
func AirspaceName(alpha2 string) string {
	return strings.ToUpper(alpha2) + "-ASP-National-OpenAIP.txt"
}

// WaypointName is the file name of a country's merged waypoint file.
func WaypointName(alpha2 string) string {
	return strings.ToUpper(alpha2) + "-WPT-National-OpenAIP.cup"
}

// AirspaceOptions controls AirspaceRecords.
type AirspaceOptions struct {
	Filter bucket.Filter
	// BBox downloads each object to compute its bounding box.
	BBox bool
}

// AirspaceRecords returns one airspace record per listed object.
func AirspaceRecords(ctx context.Context, l *bucket.Lister, opts AirspaceOptions) ([]manifest.Record, error) {
	objs, err := l.Objects(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("list OpenAIP airspace: %w", err)
	}

	recs := make([]manifest.Record, 0, len(objs))
	for _, o := range objs {
		rec := manifest.Record{
			Name:        AirspaceName(o.Country.Alpha2),
			URI:         l.URL(o.Key),
			Type:        "airspace",
			Area:        o.Country.Area(),
			Description: o.Country.Name + " Airspace from OpenAIP",
			Update:      o.Date(),
		}
		if opts.BBox {
			rec.BBox = airspaceBBox(ctx, l, o.Key)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func airspaceBBox(ctx context.Context, l *bucket.Lister, key string) string {
	body, err := l.Download(ctx, key)
	if err != nil {
		logger.Warn("Could not download OpenAIP airspace", logger.String("key", key), logger.Err(err))
		return ""
	}
	res, err := geo.FromOpenAir(bytes.NewReader(body))
	if err != nil {
		logger.Warn("Could not calculate bbox", logger.String("key", key), logger.Err(err))
		return ""
	}
	return res.Box.String()
}

// Importer merges every country's OpenAIP .cup exports into one file and
// writes the remote sidecar advertising it.
type Importer struct {
	Lister *bucket.Lister
	Filter bucket.Filter

	// Output receives WaypointDir/<CC>-WPT-National-OpenAIP.cup.
	Output billy.Filesystem
	// Meta receives <CC>-WPT-National-OpenAIP.cup.json sidecars.
	Meta billy.Filesystem
	// PublicURL is the download base the merged files are published under.
	PublicURL string
}

// Imported describes one merged country file.
type Imported struct {
	Country   string
	Path      string
	Sidecar   string
	Sources   []string
	Waypoints int
}

// Run downloads and merges the exports. Countries are written in code order.
func (im *Importer) Run(ctx context.Context) ([]Imported, error) {
	objs, err := im.Lister.Objects(ctx, im.Filter)
	if err != nil {
		return nil, fmt.Errorf("list OpenAIP waypoints: %w", err)
	}

	type merged struct {
		name    string
		lines   []string
		sources []string
	}
	byCountry := make(map[string]*merged)
	for _, o := range objs {
		body, err := im.Lister.Download(ctx, o.Key)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", o.Key, err)
		}
		cc := o.Country.Alpha2
		m, ok := byCountry[cc]
		if !ok {
			m = &merged{name: o.Country.Name}
			byCountry[cc] = m
		}
		m.lines = append(m.lines, bodyLines(body)...)
		m.sources = append(m.sources, o.Key)
	}

	codes := make([]string, 0, len(byCountry))
	for cc := range byCountry {
		codes = append(codes, cc)
	}
	sort.Strings(codes)

	var out []Imported
	for _, cc := range codes {
		m := byCountry[cc]
		name := WaypointName(cc)
		data := []byte(cup.Header + "\n" + strings.Join(m.lines, "\n") + "\n")

		wps, err := cup.Read(bytes.NewReader(data))
		if err != nil {
			logger.Warn("Merged waypoint file does not parse", logger.String("country", cc), logger.Err(err))
		}

		p := path.Join(WaypointDir, name)
		if err := util.WriteFile(im.Output, p, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p, err)
		}

		sc, err := sidecar.Encode(&sidecar.Sidecar{
			URI:         im.PublicURL + WaypointDir + "/" + name,
			Description: m.name + " aviation data from OpenAIP",
		})
		if err != nil {
			return nil, err
		}
		scPath := name + sidecar.Ext
		if err := util.WriteFile(im.Meta, scPath, sc, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", scPath, err)
		}

		logger.Info("Merged OpenAIP waypoints",
			logger.String("country", cc),
			logger.Int("sources", len(m.sources)),
			logger.Int("waypoints", len(wps)))
		out = append(out, Imported{Country: cc, Path: p, Sidecar: scPath, Sources: m.sources, Waypoints: len(wps)})
	}
	return out, nil
}

// headerPrefix starts every .cup column line, whatever columns follow.
const headerPrefix = "name,code,country,"

// bodyLines returns the non-empty lines of a .cup export minus its header.
func bodyLines(body []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(body), "\n") {
		l = strings.TrimRight(l, "\r")
		l = strings.TrimPrefix(l, "\ufeff")
		if l == "" || strings.HasPrefix(strings.ToLower(l), headerPrefix) {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
