package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nvdb-export/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nvdb-export",
	Short: "Export NVDB road objects to GeoPackage",
	Long:  "Lists every geometry-bearing feature type in the NVDB data catalog, fetches all objects of each type for one fylke and writes one layer per type into a timestamped GeoPackage (or shapefile directory).",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setup()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

// setup loads the configuration into cfg and installs the global logger.
func setup() error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
