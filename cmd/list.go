/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"github.com/fulmenhq/aerorepo/pkg/ascii"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <manifest>",
	Short: "Show manifest entries as a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("type", "", "Only show entries of this type")
	listCmd.Flags().Int("max-width", 48, "Truncate cells wider than this (0 for no limit)")
}

func runList(cmd *cobra.Command, args []string) error {
	only, _ := cmd.Flags().GetString("type")
	maxWidth, _ := cmd.Flags().GetInt("max-width")

	parsed, err := readManifest(args[0])
	if err != nil {
		return err
	}

	tbl := &ascii.Table{Header: []string{"NAME", "TYPE", "AREA", "UPDATE"}, MaxWidth: maxWidth}
	for _, r := range parsed.Records {
		if only != "" && r.Type != only {
			continue
		}
		tbl.Append(r.Name, r.Type, r.Area, r.Update)
	}
	logger.Debug("Listing manifest", logger.String("file", args[0]), logger.Int("records", len(tbl.Rows)))
	_, err = tbl.WriteTo(cmd.OutOrStdout())
	return err
}
