// Package webindex builds the small JavaScript and JSON indexes the
// download site uses to list waypoint files and map regions.
package webindex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/geo"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/fulmenhq/aerorepo/pkg/repository"
	"github.com/fulmenhq/aerorepo/pkg/sidecar"
	"github.com/go-git/go-billy/v5"
)

// Output file names.
const (
	WaypointsJS        = "waypoints.js"
	WaypointsCompactJS = "waypoints_compact.js"
	WaypointsByCountry = "waypoints-by-country.json"
	MapsConfigJS       = "maps.config.js"
)

// WaypointFile summarises one .cup file.
type WaypointFile struct {
	Name      string
	Stem      string
	Lines     int
	Waypoints int
	Mean      geo.Point
	Update    string
}

// ScanOptions controls ScanWaypoints.
type ScanOptions struct {
	// Root is the OS directory behind fsys, for commit lookups.
	Root  string
	Dater gitctx.CommitDater
	Now   func() time.Time
}

// ScanWaypoints reads every *.cup in fsys, sorted by name. A file that
// does not parse fails the scan.
func ScanWaypoints(fsys fs.FS, opts ScanOptions) ([]WaypointFile, error) {
	matches, err := doublestar.Glob(fsys, "*.cup", doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	files := make([]WaypointFile, 0, len(matches))
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		mean, n, err := geo.CUPMean(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		lines, err := countLines(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		files = append(files, WaypointFile{
			Name:      name,
			Stem:      strings.TrimSuffix(name, path.Ext(name)),
			Lines:     lines,
			Waypoints: n,
			Mean:      mean,
			Update:    updateDate(filepath.Join(opts.Root, filepath.FromSlash(name)), opts),
		})
	}
	return files, nil
}

func countLines(r io.Reader) (int, error) {
	n := 0
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scan.Scan() {
		n++
	}
	return n, scan.Err()
}

func updateDate(p string, opts ScanOptions) string {
	if opts.Dater != nil {
		if t, err := opts.Dater.LastCommit(p); err == nil {
			return t.UTC().Format(sidecar.DateLayout)
		}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return now().UTC().Format(sidecar.DateLayout)
}

type waypointSummary struct {
	Size    int        `json:"size"`
	Average [2]float64 `json:"average"`
}

// RenderWaypointsJS renders `var WAYPOINTS = {stem: {size, average: [lat, lon]}}`.
func RenderWaypointsJS(files []WaypointFile) ([]byte, error) {
	m := make(map[string]waypointSummary, len(files))
	for _, f := range files {
		m[f.Stem] = waypointSummary{Size: f.Lines, Average: [2]float64{f.Mean.Lat, f.Mean.Lon}}
	}
	return jsVar("WAYPOINTS", m, "")
}

// RenderWaypointsCompactJS renders `var WAYPOINTS = {stem: lines}`.
func RenderWaypointsCompactJS(files []WaypointFile) ([]byte, error) {
	m := make(map[string]int, len(files))
	for _, f := range files {
		m[f.Stem] = f.Lines
	}
	return jsVar("WAYPOINTS", m, "")
}

// ByCountryOptions controls RenderWaypointsByCountry.
type ByCountryOptions struct {
	BaseURL   string // e.g. http://download.xcsoar.org/waypoints/
	Countries *country.Resolver
}

// RenderWaypointsByCountry renders the Waypoints-by-Country JSON manifest.
// Areas go through the resolver so that legacy long names still map.
func RenderWaypointsByCountry(files []WaypointFile, opts ByCountryOptions) ([]byte, error) {
	doc := manifest.Document{Title: "Waypoints-by-Country", Records: []manifest.Record{}}
	for _, f := range files {
		rec := manifest.Record{
			Name:   f.Name,
			URI:    opts.BaseURL + f.Name,
			Type:   "waypoint",
			Update: f.Update,
		}
		if opts.Countries != nil {
			res := opts.Countries.Resolve(f.Stem)
			if res.OK {
				rec.Area = res.Area()
				if res.Strategy != country.ByAlpha2.Name {
					logger.Debug("Area resolved loosely",
						logger.String("file", f.Name),
						logger.String("strategy", res.Strategy),
						logger.String("area", rec.Area))
				}
			} else {
				logger.Warn("Could not guess the country code (ISO 3166 alpha2)",
					logger.String("file", f.Name), logger.Strings("tried", res.Tried))
			}
		}
		doc.Records = append(doc.Records, rec)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// MapBoxes collects the bounding_box of every source map sidecar, keyed by
// map name. Sidecars without a box are skipped with a warning.
func MapBoxes(fsys billy.Filesystem, metaDir string) (map[string]geo.Box, error) {
	paths, err := repository.List(fsys, repository.Source, nil)
	if err != nil {
		return nil, err
	}
	boxes := make(map[string]geo.Box)
	for c := range repository.Candidates(paths, metaDir) {
		if c.Type != "map" || c.Ext() != sidecar.Ext {
			continue
		}
		sc, err := sidecar.Load(fsys, c.Path)
		if err != nil {
			logger.Warn("Ignoring unreadable map sidecar", logger.String("path", c.Path), logger.Err(err))
			continue
		}
		b, ok := sc.Box()
		if !ok {
			logger.Warn("Map sidecar has no bounding_box", logger.String("path", c.Path))
			continue
		}
		name := strings.TrimSuffix(strings.TrimSuffix(c.Name(), sidecar.Ext), repository.MapSuffix)
		boxes[name] = b
	}
	return boxes, nil
}

// RenderMapsConfigJS renders `var MAPS = {name: [min_lon, min_lat, max_lon, max_lat]};`.
func RenderMapsConfigJS(boxes map[string]geo.Box) ([]byte, error) {
	m := make(map[string][]float64, len(boxes))
	for name, b := range boxes {
		m[name] = b.Slice()
	}
	return jsVar("MAPS", m, ";")
}

// jsVar renders v as indented JSON assigned to a JavaScript variable. Map
// keys come out sorted.
func jsVar(name string, v any, terminator string) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("var ")
	b.WriteString(name)
	b.WriteString(" = ")
	b.Write(data)
	b.WriteString(terminator)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
