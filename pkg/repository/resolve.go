package repository

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/geo"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/fulmenhq/aerorepo/pkg/sidecar"
	"github.com/go-git/go-billy/v5"
)

// Source maps are packaged into two variants.
const (
	HighResSuffix = "_HighRes.xcm"
	MapSuffix     = ".xcm"
)

// openAIPMarker tags files generated from OpenAIP exports.
const openAIPMarker = "OpenAIP"

// Resolver derives records for the candidates of one tree.
type Resolver struct {
	FS        billy.Filesystem
	Root      string // OS directory behind FS, used for commit lookups
	BaseURL   string // with trailing slash
	Countries *country.Resolver
	Dater     gitctx.CommitDater // nil outside a repository
	Now       func() time.Time

	// Generated is the output tree holding files produced by the OpenAIP
	// import. Remote OpenAIP waypoint sidecars without a bbox take it from
	// there. May be nil.
	Generated billy.Filesystem

	// SkipOpenAIPWaypoints drops generated OpenAIP .cup files; they are
	// advertised through their remote sidecars.
	SkipOpenAIPWaypoints bool
}

// Resolve returns the records for one candidate: none for files that are
// not advertised, two for source maps, one otherwise.
func (r *Resolver) Resolve(c Candidate) ([]manifest.Record, error) {
	switch c.Location {
	case Content:
		return r.content(c)
	case Source:
		return r.source(c)
	case Remote:
		return r.remote(c)
	default:
		return nil, fmt.Errorf("unknown data location %q", c.Location)
	}
}

func (r *Resolver) content(c Candidate) ([]manifest.Record, error) {
	if c.Ext() == sidecar.Ext {
		return nil, nil
	}
	if r.SkipOpenAIPWaypoints && c.Type == "waypoint" && c.Ext() == ".cup" && strings.Contains(c.Name(), openAIPMarker) {
		logger.Debug("Generated OpenAIP waypoints are listed via remote", logger.String("path", c.Path))
		return nil, nil
	}

	sc := r.sidecarFor(c.Path)
	rec := manifest.Record{
		Name:   c.Name(),
		URI:    r.BaseURL + c.Path,
		Type:   c.Type,
		Area:   r.area(c.Stem()),
		Update: r.update(c.Path, sc),
	}
	if sc != nil {
		rec.Description = sc.Description
		rec.BBox = sidecarBBox(c.Path, sc)
	}
	if rec.BBox == "" {
		rec.BBox = computeBBox(r.FS, c.Path, c.Type)
	}
	return []manifest.Record{rec}, nil
}

func (r *Resolver) source(c Candidate) ([]manifest.Record, error) {
	if c.Ext() != sidecar.Ext {
		logger.Debug("Ignoring non-sidecar source file", logger.String("path", c.Path))
		return nil, nil
	}
	sc, err := sidecar.Load(r.FS, c.Path)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(strings.TrimSuffix(c.Name(), sidecar.Ext), MapSuffix)
	dir := path.Dir(c.Path)
	area := r.area(base)
	update := r.update(c.Path, sc)
	bbox := sidecarBBox(c.Path, sc)

	recs := make([]manifest.Record, 0, 2)
	for _, suffix := range []string{HighResSuffix, MapSuffix} {
		recs = append(recs, manifest.Record{
			Name:        base + suffix,
			URI:         r.BaseURL + dir + "/" + base + suffix,
			Type:        c.Type,
			Area:        area,
			Description: sc.Description,
			Update:      update,
			BBox:        bbox,
		})
	}
	return recs, nil
}

func (r *Resolver) remote(c Candidate) ([]manifest.Record, error) {
	if c.Ext() != sidecar.Ext {
		logger.Debug("Ignoring non-sidecar remote file", logger.String("path", c.Path))
		return nil, nil
	}
	sc, err := sidecar.Load(r.FS, c.Path)
	if err != nil {
		return nil, err
	}
	if err := sc.RequireURI(); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(c.Name(), sidecar.Ext)
	rec := manifest.Record{
		Name:        name,
		URI:         sc.URI,
		Type:        c.Type,
		Area:        r.area(strings.TrimSuffix(name, path.Ext(name))),
		Description: sc.Description,
		Update:      r.update(c.Path, sc),
		BBox:        sidecarBBox(c.Path, sc),
	}
	if rec.BBox == "" && r.Generated != nil && c.Type == "waypoint" && strings.HasSuffix(name, "-"+openAIPMarker+".cup") {
		generated := path.Join(Content, c.Type, c.GeoDir, name)
		if _, err := r.Generated.Stat(generated); err == nil {
			rec.BBox = computeBBox(r.Generated, generated, c.Type)
		}
	}
	return []manifest.Record{rec}, nil
}

func (r *Resolver) sidecarFor(dataPath string) *sidecar.Sidecar {
	p, ok := sidecar.Find(r.FS, dataPath)
	if !ok {
		return nil
	}
	sc, err := sidecar.Load(r.FS, p)
	if err != nil {
		logger.Warn("Ignoring unreadable sidecar", logger.String("path", p), logger.Err(err))
		return nil
	}
	return sc
}

func (r *Resolver) area(stem string) string {
	if r.Countries == nil {
		return ""
	}
	res := r.Countries.GuessArea(stem)
	if !res.OK {
		logger.Warn("Could not guess the country code (ISO 3166 alpha2)",
			logger.String("name", stem),
			logger.String("prefix", country.AreaPrefix(stem)),
			logger.Strings("tried", res.Tried))
		return ""
	}
	return res.Area()
}

// update picks the sidecar date, then the last commit date, then the file
// modification time, then today.
func (r *Resolver) update(p string, sc *sidecar.Sidecar) string {
	now := r.now()
	if sc != nil {
		if u, ok := sc.ResolveUpdate(now); ok {
			return u
		}
	}
	if r.Dater != nil {
		t, err := r.Dater.LastCommit(filepath.Join(r.Root, filepath.FromSlash(p)))
		if err == nil {
			return t.UTC().Format(sidecar.DateLayout)
		}
		if !errors.Is(err, gitctx.ErrNotTracked) {
			logger.Debug("Commit date unavailable", logger.String("path", p), logger.Err(err))
		}
	}
	if fi, err := r.FS.Stat(p); err == nil && !fi.ModTime().IsZero() {
		return fi.ModTime().UTC().Format(sidecar.DateLayout)
	}
	logger.Warn("No update date, using today", logger.String("path", p))
	return now.UTC().Format(sidecar.DateLayout)
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// sidecarBBox returns the sidecar's own bbox= value, or "" with a warning
// when the sidecar carries one that cannot be used.
func sidecarBBox(p string, sc *sidecar.Sidecar) string {
	text, err := sc.BBoxText()
	if err != nil {
		if !errors.Is(err, sidecar.ErrNoBox) {
			logger.Warn("Ignoring sidecar bbox", logger.String("path", p), logger.Err(err))
		}
		return ""
	}
	return text
}

// computeBBox parses waypoint .cup and airspace .txt files. Failures are
// logged and yield "".
func computeBBox(fsys billy.Filesystem, p, typ string) string {
	ext := strings.ToLower(path.Ext(p))
	if !(typ == "waypoint" && ext == ".cup") && !(typ == "airspace" && ext == ".txt") {
		return ""
	}

	f, err := fsys.Open(p)
	if err != nil {
		logger.Warn("Could not calculate bbox", logger.String("path", p), logger.Err(err))
		return ""
	}
	defer func() { _ = f.Close() }()

	var b geo.Box
	if typ == "waypoint" {
		b, err = geo.FromCUP(f)
	} else {
		var res geo.OpenAirResult
		res, err = geo.FromOpenAir(f)
		if len(res.Skipped) > 0 {
			logger.Debug("Skipped malformed airspace records",
				logger.String("path", p), logger.Int("count", len(res.Skipped)))
		}
		b = res.Box
	}
	if err != nil {
		logger.Warn("Could not calculate bbox", logger.String("path", p), logger.Err(err))
		return ""
	}
	return b.String()
}
