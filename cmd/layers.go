package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/nvdb-export/internal/gpkg"
)

var layersCmd = &cobra.Command{
	Use:   "layers <file.gpkg>",
	Short: "List the layers of an exported GeoPackage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layers, err := gpkg.ListLayers(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "layers")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LAYER\tGEOMETRY\tSRID\tFEATURES\tTYPE")
		total := 0
		for _, l := range layers {
			total += l.Features
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Name, l.GeometryType, l.SRID, humanize.Comma(int64(l.Features)), l.Identifier)
		}
		if err := w.Flush(); err != nil {
			return eris.Wrap(err, "layers: flush")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d layers, %s features\n", len(layers), humanize.Comma(int64(total)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
