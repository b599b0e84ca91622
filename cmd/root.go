/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/internal/ops"
	"github.com/fulmenhq/aerorepo/pkg/buildinfo"
	"github.com/fulmenhq/aerorepo/pkg/config"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/exitcode"
	"github.com/fulmenhq/aerorepo/pkg/fetch"
	"github.com/fulmenhq/aerorepo/pkg/logger"
	"github.com/spf13/cobra"
)

// errChecksFailed ends a check command whose report has already been
// printed; Execute exits 1 without logging it again.
var errChecksFailed = errors.New("checks failed")

// Seams replaced by tests.
var (
	now        = time.Now
	getenv     = os.Getenv
	newDater   = gitctx.Detect
	newFetcher = func(timeout time.Duration) fetch.HTTPFetcher { return fetch.NewClient(timeout) }
	isoTable   = country.NewISOTable
)

// configBindings maps config keys to the flags that may override them.
var configBindings = map[string]string{
	"data_dir":              "data-dir",
	"base_url":              "base-url",
	"repository_url":        "repository-url",
	"meta_dir":              "meta-dir",
	"global_prefix":         "global-prefix",
	"http.timeout":          "timeout",
	"check.max_jitter":      "max-jitter",
	"openaip.bucket_url":    "bucket-url",
	"openaip.min_size":      "min-size",
	"openaip.airspace_bbox": "asp-bbox",
}

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aerorepo",
		Short: "Build and check the XCSoar data repository manifest",
		Long: `Aerorepo turns a tree of maps, waypoints, airspace and related files into the
plain-text repository manifest XCSoar downloads, and checks what it advertises.

Examples:
   aerorepo generate out            # Write out/repository from ./data
   aerorepo sort out/repository     # Global entries first, then by name
   aerorepo check urls              # HEAD every uri= in the published manifest
   aerorepo check waypoints data/content/waypoint/country`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Add global flags
	cmd.PersistentFlags().String(config.FileFlag, "", "Config file (default: aerorepo.yaml in . or $HOME)")
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("data-dir", config.Default().DataDir, "Root of the data tree")
	cmd.PersistentFlags().String("meta-dir", config.Default().MetaDir, "Geography directory excluded from manifests")
	cmd.PersistentFlags().Duration("timeout", config.Default().HTTP.Timeout, "HTTP request timeout")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("aerorepo {{.Version}}\n")

	// Grouped help by command group (Build → Check → Support)
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		if c != cmd {
			defaultHelp(c, args)
			return
		}
		reg := ops.GetRegistry()
		c.Println(c.Long)
		c.Println()
		titles := map[ops.CommandGroup]string{
			ops.GroupBuild:   "Build Commands:",
			ops.GroupCheck:   "Check Commands:",
			ops.GroupSupport: "Support Commands:",
		}
		for _, g := range ops.Groups {
			c.Println(titles[g])
			for _, r := range reg.GetCommandsByGroup(g) {
				c.Printf("  %-12s %s\n", r.Name, r.Description)
			}
			c.Println()
		}
		c.Println("Flags:")
		c.Print(c.LocalFlags().FlagUsages())
	})

	return cmd
}

var defaultHelp = (&cobra.Command{}).HelpFunc()

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(generateCmd)
	cmd.AddCommand(sortCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(checkCmd)
	cmd.AddCommand(openaipCmd)
	cmd.AddCommand(webCmd)
	cmd.AddCommand(versionCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			logger.Error("Command execution failed", logger.Err(err))
		}
		os.Exit(exitcode.Failure)
	}
}

func init() {
	registerSubcommands(rootCmd)

	register := func(name string, group ops.CommandGroup, c *cobra.Command) {
		if err := ops.RegisterCommand(name, group, c, c.Short); err != nil {
			logger.Error("Failed to register command", logger.String("command", name), logger.Err(err))
		}
	}
	register("generate", ops.GroupBuild, generateCmd)
	register("sort", ops.GroupBuild, sortCmd)
	register("openaip", ops.GroupBuild, openaipCmd)
	register("web", ops.GroupBuild, webCmd)
	register("check", ops.GroupCheck, checkCmd)
	register("list", ops.GroupSupport, listCmd)
	register("version", ops.GroupSupport, versionCmd)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logCfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "aerorepo",
		Output:    cmd.ErrOrStderr(),
	}

	if err := logger.Initialize(logCfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.Failure)
	}
}

// loadConfig layers aerorepo.yaml, AEROREPO_* and the flags cmd was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags(), configBindings)
}
