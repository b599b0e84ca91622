// Package repository turns the data tree
// <location>/<type>/<geography>/<file> into manifest records.
package repository

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fulmenhq/aerorepo/pkg/ignore"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Data locations under the data root.
const (
	Content = "content"
	Source  = "source"
	Remote  = "remote"
)

// Geographies.
const (
	GeoCountry = "country"
	GeoRegion  = "region"
	GeoGlobal  = "global"

	// geoGlobeAlias is the legacy spelling of GeoGlobal.
	geoGlobeAlias = "globe"
)

// DefaultMetaDir holds web and metadata artefacts that never reach a manifest.
const DefaultMetaDir = "0_META"

// ContentTypes is the known type vocabulary.
var ContentTypes = []string{"map", "waypoint", "waypoint-detail", "airspace", "flarmnet", "topology", "tasks"}

// KnownType reports whether t is in ContentTypes.
func KnownType(t string) bool {
	return slices.Contains(ContentTypes, t)
}

// NormalizeGeography maps a geography directory name to its canonical form.
func NormalizeGeography(dir string) string {
	if strings.EqualFold(dir, geoGlobeAlias) {
		return GeoGlobal
	}
	return dir
}

// Candidate is a file found at <location>/<type>/<geography>/<name>.
type Candidate struct {
	Location  string
	Type      string
	Geography string // canonical, see NormalizeGeography
	GeoDir    string // directory name as found on disk
	Path      string // slash separated, relative to the tree root
}

// Name is the file's base name.
func (c Candidate) Name() string { return path.Base(c.Path) }

// Stem is the base name without its last extension.
func (c Candidate) Stem() string {
	n := c.Name()
	return strings.TrimSuffix(n, path.Ext(n))
}

// Ext is the lowercase extension including the dot.
func (c Candidate) Ext() string { return strings.ToLower(path.Ext(c.Path)) }

// List returns every regular file below root on fsys as sorted slash
// paths relative to the fsys root. A missing root yields no paths.
func List(fsys billy.Filesystem, root string, skip *ignore.Matcher) ([]string, error) {
	if _, err := fsys.Stat(root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	err := util.Walk(fsys, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := filepath.ToSlash(p)
		if skip.IsIgnored(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// Candidates yields, in input order, the paths shaped
// <location>/<type>/<geography>/<file>. Anything shallower or deeper is
// not part of the layout and is dropped, as is everything under metaDir.
func Candidates(paths []string, metaDir string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, p := range paths {
			parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
			if len(parts) != 4 || parts[3] == "" {
				continue
			}
			if metaDir != "" && parts[2] == metaDir {
				continue
			}
			c := Candidate{
				Location:  parts[0],
				Type:      parts[1],
				Geography: NormalizeGeography(parts[2]),
				GeoDir:    parts[2],
				Path:      strings.Join(parts, "/"),
			}
			if !yield(c) {
				return
			}
		}
	}
}
