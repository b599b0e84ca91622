/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/aerorepo/internal/schema"
	"github.com/fulmenhq/aerorepo/pkg/aero/openair"
	"github.com/fulmenhq/aerorepo/pkg/config"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/repository"
	"github.com/fulmenhq/aerorepo/pkg/sidecar"
	"github.com/fulmenhq/aerorepo/pkg/urlcheck"
	"github.com/fulmenhq/aerorepo/pkg/waypoints"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify published URLs and data files",
	Long: `Check runs one of the repository health checks. Each prints a line per
item and exits 1 if any item failed.`,
}

var checkURLsCmd = &cobra.Command{
	Use:   "urls [manifest-file-or-url]",
	Short: "HEAD every uri= in a manifest",
	Long: `Urls extracts every uri= value from a manifest (a local file, or a URL that
is downloaded first; the published repository by default) and issues a HEAD
request for each. Any 2xx answer passes. On scheduled CI runs a random pause
is taken first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckURLs,
}

var checkWaypointsCmd = &cobra.Command{
	Use:   "waypoints <dir>",
	Short: "Validate <cc>.cup names and SeeYou format",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckWaypoints,
}

var checkAirspaceCmd = &cobra.Command{
	Use:   "airspace <file>...",
	Short: "Validate OpenAir airspace files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheckAirspace,
}

var checkSidecarsCmd = &cobra.Command{
	Use:   "sidecars <dir>",
	Short: "Validate *.json sidecars against the sidecar schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckSidecars,
}

func init() {
	checkCmd.AddCommand(checkURLsCmd, checkWaypointsCmd, checkAirspaceCmd, checkSidecarsCmd)

	checkURLsCmd.Flags().String("repository-url", config.Default().RepositoryURL, "Manifest checked when no argument is given")
	checkURLsCmd.Flags().Duration("max-jitter", config.Default().Check.MaxJitter, "Upper bound of the scheduled-CI pause")
	checkWaypointsCmd.Flags().String("pattern", waypoints.DefaultPattern, "Files to validate (doublestar glob)")
}

func runCheckURLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	source := cfg.RepositoryURL
	if len(args) == 1 {
		source = args[0]
	}

	if urlcheck.ScheduledCI(getenv) {
		d := urlcheck.Jitter(cfg.Check.MaxJitter, jitterPick)
		logger.Info("Scheduled CI run, pausing before checks", logger.Duration("pause", d))
		if err := urlcheck.Sleep(ctx, d); err != nil {
			return err
		}
	}

	f := newFetcher(cfg.HTTP.Timeout)
	urls, err := urlcheck.Load(ctx, f, source)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", source, err)
	}
	logger.Info("Checking URLs", logger.String("source", source), logger.Int("count", len(urls)))

	checker := &urlcheck.Checker{Fetcher: f, Out: out}
	rep, err := checker.Check(ctx, urls)
	if err != nil {
		return err
	}
	if err := rep.WriteSummary(out); err != nil {
		return err
	}
	if !rep.Passed() {
		return errChecksFailed
	}
	return nil
}

// jitterPick is nil in production (math/rand/v2).
var jitterPick func(n int64) int64

func runCheckWaypoints(cmd *cobra.Command, args []string) error {
	pattern, _ := cmd.Flags().GetString("pattern")
	out := cmd.OutOrStdout()

	dir := filepath.Clean(args[0])
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return fmt.Errorf("not a directory: %s", args[0])
	}

	v := waypoints.NewValidator(isoTable())
	v.Pattern = pattern
	v.Out = out
	rep, err := v.Validate(os.DirFS(dir))
	if err != nil {
		return err
	}
	if len(rep.Files) == 0 {
		logger.Warn("No waypoint files found", logger.String("dir", dir), logger.String("pattern", pattern))
	}
	if rep.Passed() {
		_, err := fmt.Fprintf(out, "PASS: %d waypoint files valid.\n", len(rep.Files))
		return err
	}
	fmt.Fprintf(out, "FAIL: %d of %d waypoint files invalid:\n", len(rep.Failed()), len(rep.Files))
	for _, name := range rep.Failed() {
		fmt.Fprintln(out, name)
	}
	return errChecksFailed
}

func runCheckAirspace(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, name := range args {
		ok, err := checkAirspaceFile(out, name)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(out, "FAIL: %d of %d airspace files invalid.\n", failed, len(args))
		return errChecksFailed
	}
	_, err := fmt.Fprintf(out, "PASS: %d airspace files valid.\n", len(args))
	return err
}

func checkAirspaceFile(out io.Writer, name string) (bool, error) {
	f, err := os.Open(filepath.Clean(name)) // #nosec G304 -- operator-supplied airspace file
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	spaces, errs, err := openair.Read(f)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	for _, e := range errs {
		fmt.Fprintf(out, "INVALID OpenAir record: %s: %v\n", name, e)
	}
	switch {
	case len(errs) > 0:
		return false, nil
	case len(spaces) == 0:
		fmt.Fprintf(out, "INVALID OpenAir file: %s: no airspace records\n", name)
		return false, nil
	}
	fmt.Fprintf(out, "Valid OpenAir file: %s (%d airspaces)\n", name, len(spaces))
	return true, nil
}

func runCheckSidecars(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fsys := os.DirFS(filepath.Clean(args[0]))
	matches, err := doublestar.Glob(fsys, "**/*"+sidecar.Ext, doublestar.WithFilesOnly())
	if err != nil {
		return err
	}
	sort.Strings(matches)

	var failed []string
	for _, name := range matches {
		problems, err := checkSidecar(fsys, name)
		if err != nil {
			return err
		}
		if len(problems) == 0 {
			fmt.Fprintf(out, "Valid sidecar: %s\n", name)
			continue
		}
		failed = append(failed, name)
		fmt.Fprintf(out, "INVALID sidecar: %s\n", name)
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintf(out, "FAIL: %d of %d sidecars invalid.\n", len(failed), len(matches))
		return errChecksFailed
	}
	_, err = fmt.Fprintf(out, "PASS: %d sidecars valid.\n", len(matches))
	return err
}

// checkSidecar validates name against the schema. Sidecars below a remote/
// directory must also carry a uri.
func checkSidecar(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	res, err := schema.ValidateJSON(data, schema.Sidecar)
	if err != nil {
		return nil, err
	}
	var problems []string
	for _, e := range res.Errors {
		problems = append(problems, e.String())
	}
	if !res.Valid {
		return problems, nil
	}

	if isRemote(name) {
		sc, err := sidecar.Decode(data)
		if err != nil {
			return append(problems, err.Error()), nil
		}
		if err := sc.RequireURI(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problems, nil
}

func isRemote(name string) bool {
	for _, seg := range strings.Split(path.Dir(name), "/") {
		if seg == repository.Remote {
			return true
		}
	}
	return false
}
