/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/aerorepo/pkg/buildinfo"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the aerorepo version",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Show build details")
	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")
}

// versionSource reports where Version() got its answer.
func versionSource() string {
	switch {
	case buildinfo.BinaryVersion != "" && buildinfo.BinaryVersion != "dev":
		return "ldflags"
	case buildinfo.ModuleVersion() != "":
		return "module"
	default:
		return "default"
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	version := buildinfo.Version()
	source := versionSource()

	if jsonOutput {
		versionInfo := map[string]interface{}{
			"version":   version,
			"source":    source,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if extended {
			versionInfo["userAgent"] = buildinfo.UserAgent()
		}
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "aerorepo %s\n", version)
	if extended {
		fmt.Fprintf(out, "Source: %s\n", source)
		fmt.Fprintf(out, "User agent: %s\n", buildinfo.UserAgent())
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
	return nil
}
