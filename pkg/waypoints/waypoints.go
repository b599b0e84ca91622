// Package waypoints validates a directory of per-country waypoint files:
// each <cc>.cup must be named by an ISO 3166-1 alpha-2 code and parse as
// SeeYou CUP.
package waypoints

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/aerorepo/pkg/aero/cup"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/exitcode"
)

// DefaultPattern selects the files to validate.
const DefaultPattern = "*.cup"

// FileResult is the verdict for one file. Both checks always run.
type FileResult struct {
	Path      string
	NameOK    bool
	NameMsg   string
	FormatErr error
	Waypoints int
}

// OK is true when both checks passed.
func (r FileResult) OK() bool { return r.NameOK && r.FormatErr == nil }

// Report aggregates every file checked.
type Report struct {
	Files []FileResult
}

// Passed is true when every file passed both checks.
func (r Report) Passed() bool {
	for _, f := range r.Files {
		if !f.OK() {
			return false
		}
	}
	return true
}

// Failed lists the paths of failing files.
func (r Report) Failed() []string {
	var out []string
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f.Path)
		}
	}
	return out
}

// ExitCode maps the report to the process exit code.
func (r Report) ExitCode() int { return exitcode.FromBool(r.Passed()) }

// Validator checks names against an ISO table.
type Validator struct {
	resolver *country.Resolver
	Pattern  string
	// Out receives one line per check; may be nil.
	Out io.Writer
}

// NewValidator resolves names with exact lookups only.
func NewValidator(t *country.Table) *Validator {
	return &Validator{resolver: country.ExactResolver(t), Pattern: DefaultPattern}
}

// CheckName accepts a stem only if it is the canonical alpha-2 code of the
// country it resolves to, compared case-insensitively.
func (v *Validator) CheckName(stem string) (bool, string) {
	res := v.resolver.Resolve(stem)
	if !res.OK {
		return false, fmt.Sprintf("INVALID ISO 3166-1 alpha-2 country code: %s", stem)
	}
	if !strings.EqualFold(res.Country.Alpha2, stem) {
		return false, fmt.Sprintf("INVALID two-letter ISO 3166-1 alpha-2 country code: %s (resolves to %s via %s)",
			stem, res.Country.Alpha2, res.Strategy)
	}
	return true, fmt.Sprintf("Valid two-letter country code: %s", stem)
}

// CheckFormat parses r as CUP and returns the waypoint count.
func CheckFormat(r io.Reader) (int, error) {
	wps, err := cup.Read(r)
	return len(wps), err
}

// Validate checks every file in fsys matching the pattern, in sorted order.
// Failures accumulate; only an unreadable directory is an error.
func (v *Validator) Validate(fsys fs.FS) (Report, error) {
	pattern := v.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return Report{}, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var rep Report
	for _, name := range matches {
		res := FileResult{Path: name}
		base := path.Base(name)
		stem := strings.TrimSuffix(base, path.Ext(base))

		res.NameOK, res.NameMsg = v.CheckName(stem)
		v.printf("%s (%s)", res.NameMsg, name)

		res.Waypoints, res.FormatErr = v.checkFile(fsys, name)
		if res.FormatErr != nil {
			v.printf("INVALID SeeYou .cup format: %s: %v", name, res.FormatErr)
		} else {
			v.printf("Valid .cup format: %s", name)
		}
		rep.Files = append(rep.Files, res)
	}
	return rep, nil
}

func (v *Validator) checkFile(fsys fs.FS, name string) (int, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return CheckFormat(f)
}

func (v *Validator) printf(format string, args ...any) {
	if v.Out != nil {
		_, _ = fmt.Fprintf(v.Out, format+"\n", args...)
	}
}
