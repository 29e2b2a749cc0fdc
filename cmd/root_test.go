package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"export", "types", "layers", "version"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "nvdb-export", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestExportCommand_Flags(t *testing.T) {
	for _, name := range []string{"fylke", "crs", "out-dir", "basename", "format", "no-properties", "types", "report"} {
		assert.NotNil(t, exportCmd.Flags().Lookup(name), "export should have --%s flag", name)
	}
	assert.Equal(t, "false", exportCmd.Flags().Lookup("no-properties").DefValue)
}

func TestTypesCommand_Flags(t *testing.T) {
	flag := typesCmd.Flags().Lookup("all")
	require.NotNil(t, flag, "types command should have --all flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "nvdb-export dev\n", out.String())
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestSetup_LoadsConfig(t *testing.T) {
	chdirTemp(t)
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	require.NoError(t, setup())
	require.NotNil(t, cfg)
	assert.Equal(t, 56, cfg.Export.Fylke)
}

func TestSetup_InvalidConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("export: [unclosed"), 0o644))

	err := setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	chdirTemp(t)
	t.Setenv("NVDB_EXPORT_LOG_LEVEL", "loud")
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	err := setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
	assert.Equal(t, orig, cfg, "cfg is only replaced after a successful setup")
}
