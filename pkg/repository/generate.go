package repository

import (
	"fmt"
	"time"

	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/ignore"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/go-git/go-billy/v5"
)

// Tree is a directory laid out as <location>/<type>/<geography>/<file>.
type Tree struct {
	FS   billy.Filesystem
	Root string // OS path behind FS; empty for in-memory trees
}

// Generator assembles manifest sections from the data tree and,
// optionally, the output tree holding generated content.
type Generator struct {
	Data      Tree
	Output    *Tree // may be nil
	BaseURL   string
	MetaDir   string
	Countries *country.Resolver
	Dater     gitctx.CommitDater
	Now       func() time.Time
	Ignore    *ignore.Matcher
}

// Sections walks content, generated content, source and remote in that
// order. One section is produced per (location, type, geography) directory
// that yields at least one record.
func (g *Generator) Sections() ([]manifest.Section, error) {
	var sections []manifest.Section

	data := g.resolver(g.Data)
	passes := []pass{{g.Data, Content, data}}
	if g.Output != nil {
		data.Generated = g.Output.FS
		generated := g.resolver(*g.Output)
		generated.SkipOpenAIPWaypoints = true
		passes = append(passes, pass{*g.Output, Content, generated})
	}
	passes = append(passes, pass{g.Data, Source, data}, pass{g.Data, Remote, data})

	warned := make(map[string]bool)
	for _, step := range passes {
		first := len(sections)
		paths, err := List(step.tree.FS, step.location, g.Ignore)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", step.location, err)
		}
		logger.Debug("Scanned data location",
			logger.String("location", step.location),
			logger.String("root", step.tree.Root),
			logger.Int("files", len(paths)))

		for c := range Candidates(paths, g.metaDir()) {
			if !KnownType(c.Type) && !warned[c.Type] {
				warned[c.Type] = true
				logger.Warn("Unknown content type", logger.String("type", c.Type))
			}
			recs, err := step.resolver.Resolve(c)
			if err != nil {
				logger.Warn("Skipping entry", logger.String("path", c.Path), logger.Err(err))
				continue
			}
			if len(recs) == 0 {
				continue
			}
			n := len(sections)
			if n == first || !sameGroup(sections[n-1], step.location, c) {
				sections = append(sections, manifest.Section{
					Location:  step.location,
					Type:      c.Type,
					Geography: c.Geography,
				})
				n++
			}
			sections[n-1].Records = append(sections[n-1].Records, recs...)
		}
	}
	return sections, nil
}

// pass scans one location of one tree.
type pass struct {
	tree     Tree
	location string
	resolver *Resolver
}

func sameGroup(s manifest.Section, location string, c Candidate) bool {
	return s.Location == location && s.Type == c.Type && s.Geography == c.Geography
}

func (g *Generator) metaDir() string {
	if g.MetaDir == "" {
		return DefaultMetaDir
	}
	return g.MetaDir
}

func (g *Generator) resolver(t Tree) *Resolver {
	return &Resolver{
		FS:        t.FS,
		Root:      t.Root,
		BaseURL:   g.BaseURL,
		Countries: g.Countries,
		Dater:     g.Dater,
		Now:       g.Now,
	}
}
