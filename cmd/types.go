package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nvdb-export/internal/export"
	"github.com/sells-group/nvdb-export/internal/nvdb"
)

var typesAll bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List feature types from the NVDB data catalog",
	Long:  "Prints id, layer name and name of every feature type that has geometry, or of all types with --all.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newNVDBClient(cfg.NVDB, 0)
		types, err := client.FeatureTypes(ctx)
		if err != nil {
			return eris.Wrap(err, "types")
		}
		shown := types
		if !typesAll {
			shown = nvdb.WithGeometry(types)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGEOMETRY\tLAYER\tNAME")
		for _, t := range shown {
			geo := "no"
			if t.HasGeometry {
				geo = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, geo, export.LayerName(t.Name, export.FallbackLayerName(t.ID)), t.Name)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "types: flush")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d feature types shown\n", len(shown), len(types))
		return nil
	},
}

func init() {
	typesCmd.Flags().BoolVar(&typesAll, "all", false, "include feature types without geometry")
	rootCmd.AddCommand(typesCmd)
}
