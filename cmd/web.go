/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"os"
	"path/filepath"

	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/safeio"
	"github.com/fulmenhq/aerorepo/pkg/webindex"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Build the download site's JavaScript indexes",
}

var webWaypointsCmd = &cobra.Command{
	Use:   "waypoints <wp-dir> <out-dir>",
	Short: "Write waypoints.js, waypoints_compact.js and waypoints-by-country.json",
	Args:  cobra.ExactArgs(2),
	RunE:  runWebWaypoints,
}

var webMapsCmd = &cobra.Command{
	Use:   "maps <out-dir>",
	Short: "Write maps.config.js from the source map sidecars",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebMaps,
}

func init() {
	webCmd.AddCommand(webWaypointsCmd, webMapsCmd)
	webWaypointsCmd.Flags().String("waypoints-url", "http://download.xcsoar.org/waypoints/", "Download base of the waypoint files")
}

func runWebWaypoints(cmd *cobra.Command, args []string) error {
	wpDir, outDir := args[0], args[1]
	baseURL, _ := cmd.Flags().GetString("waypoints-url")

	files, err := webindex.ScanWaypoints(os.DirFS(wpDir), webindex.ScanOptions{
		Root:  wpDir,
		Dater: newDater(wpDir),
		Now:   now,
	})
	if err != nil {
		return err
	}

	full, err := webindex.RenderWaypointsJS(files)
	if err != nil {
		return err
	}
	compact, err := webindex.RenderWaypointsCompactJS(files)
	if err != nil {
		return err
	}
	byCountry, err := webindex.RenderWaypointsByCountry(files, webindex.ByCountryOptions{
		BaseURL:   baseURL,
		Countries: country.FuzzyResolver(isoTable()),
	})
	if err != nil {
		return err
	}

	outputs := []struct {
		name string
		data []byte
	}{
		{webindex.WaypointsJS, full},
		{webindex.WaypointsCompactJS, compact},
		{webindex.WaypointsByCountry, byCountry},
	}
	for _, o := range outputs {
		if err := safeio.WriteFileAtomic(filepath.Join(outDir, o.name), o.data); err != nil {
			return err
		}
	}
	logger.Info("Waypoint indexes written", logger.String("out", outDir), logger.Int("files", len(files)))
	return nil
}

func runWebMaps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	boxes, err := webindex.MapBoxes(osfs.New(cfg.DataDir), cfg.MetaDir)
	if err != nil {
		return err
	}
	data, err := webindex.RenderMapsConfigJS(boxes)
	if err != nil {
		return err
	}
	path := filepath.Join(args[0], webindex.MapsConfigJS)
	if err := safeio.WriteFileAtomic(path, data); err != nil {
		return err
	}
	logger.Info("Map index written", logger.String("path", path), logger.Int("maps", len(boxes)))
	return nil
}
