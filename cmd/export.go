package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nvdb-export/internal/config"
	"github.com/sells-group/nvdb-export/internal/export"
	"github.com/sells-group/nvdb-export/internal/gpkg"
	"github.com/sells-group/nvdb-export/internal/nvdb"
	"github.com/sells-group/nvdb-export/internal/shapefile"
)

var (
	exportFylke        int
	exportCRS          string
	exportOutDir       string
	exportBasename     string
	exportFormat       string
	exportNoProperties bool
	exportTypes        []int
	exportReport       bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every geometry feature type for one fylke",
	Long:  "Fetches all road objects of every NVDB feature type that has geometry, filtered to one fylke, and writes one layer per type into a new timestamped output file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyExportFlags(cmd, &cfg.Export)
		if err := cfg.Validate(); err != nil {
			return err
		}
		srid, err := cfg.Export.SRID()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Export.OutDir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create output dir %s", cfg.Export.OutDir)
		}

		client := newNVDBClient(cfg.NVDB, srid)
		sink := newSink(cfg.Export, srid, time.Now())

		sum, err := export.Run(ctx, client, sink, export.Options{
			Filter:            nvdb.Filter{Fylke: cfg.Export.Fylke},
			SRID:              srid,
			IncludeProperties: cfg.Export.IncludeProperties,
			TypeIDs:           exportTypes,
			Progress:          cmd.OutOrStdout(),
		})
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if cfg.Export.Report {
			path := export.ReportPath(sink.Path())
			if err := export.WriteReport(path, sum); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", path), zap.String("run_id", sum.RunID))
		}
		return nil
	},
}

// applyExportFlags copies explicitly set flags over the loaded config.
func applyExportFlags(cmd *cobra.Command, ec *config.ExportConfig) {
	flags := cmd.Flags()
	if flags.Changed("fylke") {
		ec.Fylke = exportFylke
	}
	if flags.Changed("crs") {
		ec.CRS = exportCRS
	}
	if flags.Changed("out-dir") {
		ec.OutDir = exportOutDir
	}
	if flags.Changed("basename") {
		ec.Basename = exportBasename
	}
	if flags.Changed("format") {
		ec.Format = exportFormat
	}
	if flags.Changed("no-properties") {
		ec.IncludeProperties = !exportNoProperties
	}
	if flags.Changed("report") {
		ec.Report = exportReport
	}
}

func newNVDBClient(nc config.NVDBConfig, srid int) *nvdb.Client {
	return nvdb.NewClient(nvdb.Options{
		BaseURL:        nc.BaseURL,
		CatalogURL:     nc.CatalogURL,
		ClientName:     nc.ClientName,
		Timeout:        time.Duration(nc.TimeoutSecs) * time.Second,
		MaxRetries:     nc.MaxRetries,
		PageSize:       nc.PageSize,
		RequestsPerSec: nc.RequestsPerSec,
		SRID:           srid,

		BreakerThreshold: nc.BreakerThreshold,
		BreakerReset:     time.Duration(nc.BreakerResetSecs) * time.Second,
	})
}

// newSink returns the writer for the configured format. The output name is
// fixed once here, at the start of the run.
func newSink(ec config.ExportConfig, srid int, now time.Time) export.Sink {
	if ec.Format == config.FormatShapefile {
		return shapefile.NewWriter(export.OutputPath(ec.OutDir, ec.Basename, "", now), srid)
	}
	return gpkg.NewWriter(export.OutputPath(ec.OutDir, ec.Basename, "gpkg", now), srid)
}

func init() {
	exportCmd.Flags().IntVar(&exportFylke, "fylke", 0, "fylke (county) number to export (default from config)")
	exportCmd.Flags().StringVar(&exportCRS, "crs", "", "output CRS as EPSG:<code> (default from config)")
	exportCmd.Flags().StringVar(&exportOutDir, "out-dir", "", "directory for the output file (default from config)")
	exportCmd.Flags().StringVar(&exportBasename, "basename", "", "output file name prefix (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: gpkg or shp (default from config)")
	exportCmd.Flags().BoolVar(&exportNoProperties, "no-properties", false, "omit the properties JSON column")
	exportCmd.Flags().IntSliceVar(&exportTypes, "types", nil, "only export these feature type ids (comma-separated)")
	exportCmd.Flags().BoolVar(&exportReport, "report", false, "write a YAML run report next to the output")
	rootCmd.AddCommand(exportCmd)
}
