package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/aerorepo/internal/gitctx"
	"github.com/fulmenhq/aerorepo/pkg/country"
	"github.com/fulmenhq/aerorepo/pkg/fetch"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testTable() *country.Table {
	return country.NewTable([]country.Country{
		{Alpha2: "DE", Alpha3: "DEU", Name: "Germany", Numeric: 276},
		{Alpha2: "FR", Alpha3: "FRA", Name: "France", Numeric: 250},
		{Alpha2: "CH", Alpha3: "CHE", Name: "Switzerland", Numeric: 756},
	})
}

// stubSeams swaps the network, clock, git and country seams for the test.
func stubSeams(t *testing.T, f fetch.HTTPFetcher) {
	t.Helper()
	oldNow, oldGetenv, oldDater, oldFetcher, oldTable, oldPick := now, getenv, newDater, newFetcher, isoTable, jitterPick
	t.Cleanup(func() {
		now, getenv, newDater, newFetcher, isoTable, jitterPick = oldNow, oldGetenv, oldDater, oldFetcher, oldTable, oldPick
	})

	now = func() time.Time { return fixedNow }
	getenv = func(string) string { return "" }
	newDater = func(string) gitctx.CommitDater { return nil }
	isoTable = testTable
	if f != nil {
		newFetcher = func(time.Duration) fetch.HTTPFetcher { return f }
	}

	// Keep a stray aerorepo.yaml or AEROREPO_* out of the run.
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
}

// resetFlags restores every flag in the tree to its default; the command
// values are package-level and keep state between executions.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs a fresh root with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand()
	registerSubcommands(root)
	resetFlags(root)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitializeLogger(t *testing.T) {
	for _, level := range []string{"info", "debug", "invalid"} {
		cmd := &cobra.Command{}
		cmd.Flags().String("log-level", level, "")
		cmd.Flags().Bool("json", false, "")
		cmd.Flags().Bool("no-color", true, "")
		initializeLogger(cmd)
	}
}

func TestRootHelpGroups(t *testing.T) {
	stubSeams(t, nil)
	out, stderr, err := execute(t, "--help")
	require.NoError(t, err)
	help := out + stderr

	build := strings.Index(help, "Build Commands:")
	check := strings.Index(help, "Check Commands:")
	support := strings.Index(help, "Support Commands:")
	require.True(t, build >= 0 && check > build && support > check, help)
	assert.Contains(t, help, "generate")
	assert.Contains(t, help, "version")
}

func TestSubcommandHelpUsesDefault(t *testing.T) {
	stubSeams(t, nil)
	out, stderr, err := execute(t, "sort", "--help")
	require.NoError(t, err)
	help := out + stderr
	assert.Contains(t, help, "--output")
	assert.NotContains(t, help, "Build Commands:")
}

func TestUnknownCommand(t *testing.T) {
	stubSeams(t, nil)
	_, _, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	stubSeams(t, nil)
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aerorepo "), out)

	out, _, err = execute(t, "version", "--json", "--extended")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"userAgent"`)
}
