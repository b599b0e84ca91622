/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fulmenhq/aerorepo/pkg/ascii"
	"github.com/fulmenhq/aerorepo/pkg/bucket"
	"github.com/fulmenhq/aerorepo/pkg/config"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/openaip"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

var openaipCmd = &cobra.Command{
	Use:   "openaip",
	Short: "Work with the OpenAIP export bucket",
	Long: `OpenAIP publishes national airspace and waypoint exports in a public
object-storage bucket. These commands list that bucket and import its
waypoint files into the repository.`,
}

var openaipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bucket objects that pass the size and pattern filters",
	Args:  cobra.NoArgs,
	RunE:  runOpenAIPList,
}

var openaipWaypointsCmd = &cobra.Command{
	Use:   "waypoints <out-dir>",
	Short: "Merge per-country waypoint exports and write their sidecars",
	Long: `Waypoints downloads every <cc>_*.cup export, merges them per country into
<out-dir>/content/waypoint/country/<CC>-WPT-National-OpenAIP.cup and writes a
remote sidecar for each into --meta-dir, so that the next generate run
advertises them.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpenAIPWaypoints,
}

func init() {
	openaipCmd.AddCommand(openaipListCmd, openaipWaypointsCmd)
	openaipCmd.PersistentFlags().String("bucket-url", config.Default().OpenAIP.BucketURL, "Bucket listing URL")
	openaipCmd.PersistentFlags().Int64("min-size", config.Default().OpenAIP.MinSize, "Ignore objects smaller than this many bytes")

	openaipListCmd.Flags().String("kind", "airspace", "Objects to list (airspace|waypoint)")
	openaipWaypointsCmd.Flags().String("meta-dir", "", "Sidecar directory (default <data-dir>/remote/waypoint/country)")
	openaipWaypointsCmd.Flags().String("base-url", config.Default().BaseURL, "Public download base the merged files are served from")
}

func newLister(cfg *config.Config) *bucket.Lister {
	return &bucket.Lister{
		BaseURL:   cfg.OpenAIP.BucketURL,
		Fetcher:   newFetcher(cfg.HTTP.Timeout),
		Countries: isoTable(),
	}
}

func runOpenAIPList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	kind, _ := cmd.Flags().GetString("kind")

	var pattern string
	switch kind {
	case "airspace":
		pattern = cfg.OpenAIP.AirspacePattern
	case "waypoint":
		pattern = cfg.OpenAIP.WaypointPattern
	default:
		return fmt.Errorf("unknown kind %q (want airspace or waypoint)", kind)
	}

	objs, err := newLister(cfg).Objects(cmd.Context(), bucket.Filter{Pattern: pattern, MinSize: cfg.OpenAIP.MinSize})
	if err != nil {
		return err
	}
	tbl := &ascii.Table{Header: []string{"KEY", "COUNTRY", "SIZE", "MODIFIED"}}
	for _, o := range objs {
		tbl.Append(o.Key, o.Country.Alpha2, strconv.FormatInt(o.Size, 10), o.Date())
	}
	_, err = tbl.WriteTo(cmd.OutOrStdout())
	return err
}

func runOpenAIPWaypoints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	metaDir, _ := cmd.Flags().GetString("meta-dir")
	if metaDir == "" {
		metaDir = filepath.Join(cfg.DataDir, filepath.FromSlash("remote/waypoint/country"))
	}

	im := &openaip.Importer{
		Lister:    newLister(cfg),
		Filter:    bucket.Filter{Pattern: cfg.OpenAIP.WaypointPattern, MinSize: cfg.OpenAIP.MinSize},
		Output:    osfs.New(args[0]),
		Meta:      osfs.New(metaDir),
		PublicURL: cfg.BaseURL,
	}
	imported, err := im.Run(cmd.Context())
	if err != nil {
		return err
	}

	total := 0
	for _, i := range imported {
		total += i.Waypoints
	}
	logger.Info("OpenAIP waypoints imported",
		logger.Int("countries", len(imported)),
		logger.Int("waypoints", total),
		logger.String("out", args[0]),
		logger.String("meta", metaDir))
	return nil
}
