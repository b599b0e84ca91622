/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fulmenhq/aerorepo/pkg/config"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/fulmenhq/aerorepo/pkg/safeio"
	"github.com/spf13/cobra"
)

var sortCmd = &cobra.Command{
	Use:   "sort <manifest>",
	Short: "Sort manifest entries, global files first",
	Long: `Sort reads a text manifest and writes its entries back with every name
starting with the global prefix (GLB- by default) first, then the rest, each
group ordered by name. Comment lines are dropped; blocks without a name= line
are dropped with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: runSort,
}

func init() {
	sortCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout (may be the input)")
	sortCmd.Flags().String("global-prefix", config.Default().GlobalPrefix, "Name prefix sorted ahead of everything else")
}

// readManifest parses a text manifest from a local path.
func readManifest(path string) (manifest.Parsed, error) {
	f, err := os.Open(filepath.Clean(path)) // #nosec G304 -- operator-supplied manifest path
	if err != nil {
		return manifest.Parsed{}, err
	}
	defer func() { _ = f.Close() }()

	parsed, err := manifest.Parse(f)
	if err != nil {
		return manifest.Parsed{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, d := range parsed.Dropped {
		logger.Warn("Dropping block without name=", logger.String("file", path), logger.Int("line", d.Line))
	}
	return parsed, nil
}

func runSort(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	parsed, err := readManifest(args[0])
	if err != nil {
		return err
	}
	sorted := manifest.Sort(parsed.Records, cfg.GlobalPrefix)
	text := manifest.Text(sorted)

	if output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := safeio.WriteFileAtomic(output, []byte(text)); err != nil {
		return err
	}
	logger.Info("Sorted manifest written", logger.String("path", output), logger.Int("records", len(sorted)))
	return nil
}
