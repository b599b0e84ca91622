/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/fulmenhq/aerorepo/pkg/bucket"
	"github.com/fulmenhq/aerorepo/pkg/config"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/ignore"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/fulmenhq/aerorepo/pkg/manifest"
	"github.com/fulmenhq/aerorepo/pkg/openaip"
	"github.com/fulmenhq/aerorepo/pkg/repository"
	"github.com/fulmenhq/aerorepo/pkg/safeio"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

// defaultTitle names the manifest in its JSON and YAML forms.
const defaultTitle = "XCSoar Repository"

var generateCmd = &cobra.Command{
	Use:   "generate <out-dir>",
	Short: "Build the repository manifest from the data tree",
	Long: `Generate walks <data-dir>/{content,source,remote}/<type>/<geography>/ and any
content previously generated into <out-dir>, resolves name, uri, area, update
and bounding box for every file, appends the OpenAIP national airspace files
listed in the remote bucket, and writes <out-dir>/repository.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("base-url", config.Default().BaseURL, "Public download base for content/ and source/ files")
	generateCmd.Flags().String("format", string(manifest.FormatText), "Manifest format (text|json|yaml)")
	generateCmd.Flags().String("title", defaultTitle, "Manifest title for json/yaml output")
	generateCmd.Flags().Bool("no-openaip", false, "Skip the OpenAIP airspace bucket listing")
	generateCmd.Flags().Bool("asp-bbox", false, "Download each OpenAIP airspace file to compute its bbox")
	generateCmd.Flags().String("bucket-url", config.Default().OpenAIP.BucketURL, "OpenAIP bucket listing URL")
}

// manifestName is the file generate writes for each format.
func manifestName(f manifest.Format) string {
	switch f {
	case manifest.FormatJSON:
		return "repository.json"
	case manifest.FormatYAML:
		return "repository.yaml"
	default:
		return "repository"
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := manifest.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	noOpenAIP, _ := cmd.Flags().GetBool("no-openaip")

	outDir := args[0]
	dataFS := osfs.New(cfg.DataDir)
	skip, err := ignore.NewMatcher(dataFS)
	if err != nil {
		return fmt.Errorf("failed to load ignore patterns: %w", err)
	}

	table := isoTable()
	gen := &repository.Generator{
		Data:      repository.Tree{FS: dataFS, Root: cfg.DataDir},
		Output:    &repository.Tree{FS: osfs.New(outDir), Root: outDir},
		BaseURL:   cfg.BaseURL,
		MetaDir:   cfg.MetaDir,
		Countries: country.ExactResolver(table),
		Dater:     newDater(cfg.DataDir),
		Now:       now,
		Ignore:    skip,
	}
	if gen.Dater == nil {
		logger.Warn("Data directory is not in a git checkout; update dates fall back to file times",
			logger.String("data_dir", cfg.DataDir))
	}

	sections, err := gen.Sections()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", cfg.DataDir, err)
	}

	if !noOpenAIP {
		section, err := openAIPAirspace(cmd, cfg, table)
		if err != nil {
			return err
		}
		if len(section.Records) > 0 {
			sections = append(sections, section)
		}
	}

	var buf bytes.Buffer
	if err := manifest.Encode(&buf, format, title, sections); err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	path := filepath.Join(outDir, manifestName(format))
	if err := safeio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("Manifest written",
		logger.String("path", path),
		logger.Int("sections", len(sections)),
		logger.Int("records", len(manifest.Flatten(sections))))
	return nil
}

func openAIPAirspace(cmd *cobra.Command, cfg *config.Config, table *country.Table) (manifest.Section, error) {
	lister := &bucket.Lister{
		BaseURL:   cfg.OpenAIP.BucketURL,
		Fetcher:   newFetcher(cfg.HTTP.Timeout),
		Countries: table,
	}
	recs, err := openaip.AirspaceRecords(cmd.Context(), lister, openaip.AirspaceOptions{
		Filter: bucket.Filter{Pattern: cfg.OpenAIP.AirspacePattern, MinSize: cfg.OpenAIP.MinSize},
		BBox:   cfg.OpenAIP.AirspaceBBox,
	})
	if err != nil {
		return manifest.Section{}, fmt.Errorf("failed to list OpenAIP airspace: %w", err)
	}
	return manifest.Section{
		Location:  repository.Remote,
		Type:      "airspace",
		Geography: repository.GeoCountry,
		Records:   recs,
	}, nil
}
