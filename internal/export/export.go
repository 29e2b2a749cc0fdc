// Package export drives a full NVDB export: it lists the catalog, fetches
// every geometry-bearing feature-type for one region and writes each as a
// layer through a Sink.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nvdb-export/internal/feature"
	"github.com/sells-group/nvdb-export/internal/nvdb"
)

// TimestampLayout is the local-time stamp embedded in output names.
const TimestampLayout = "20060102_150405"

// Sink is an output container that receives one layer per write. Create
// and Append return how many of the layer's rows were stored, which is less
// than len(layer.Rows) when the format cannot hold some geometries.
// *gpkg.Writer and *shapefile.Writer implement it.
type Sink interface {
	Path() string
	Exists() bool
	Create(ctx context.Context, layer *feature.Layer) (int, error)
	Append(ctx context.Context, layer *feature.Layer) (int, error)
}

// Options configures a Run.
type Options struct {
	Filter            nvdb.Filter
	SRID              int
	IncludeProperties bool
	TypeIDs           []int     // restrict to these ids; empty means all
	Progress          io.Writer // console progress; nil discards
	RunID             string    // generated when empty
	Now               func() time.Time
}

// LayerStat is the outcome of one feature-type.
type LayerStat struct {
	TypeID             int    `yaml:"type_id"`
	TypeName           string `yaml:"type_name"`
	Layer              string `yaml:"layer,omitempty"`
	Fetched            int    `yaml:"fetched"`
	Written            int    `yaml:"written"`
	SkippedNoGeometry  int    `yaml:"skipped_no_geometry"`
	SkippedBadGeometry int    `yaml:"skipped_bad_geometry"`
	Unsupported        int    `yaml:"unsupported,omitempty"`
	Error              string `yaml:"error,omitempty"`
}

// Summary is the outcome of a Run.
type Summary struct {
	RunID              string      `yaml:"run_id"`
	Output             string      `yaml:"output"`
	Fylke              int         `yaml:"fylke"`
	SRID               int         `yaml:"srid"`
	StartedAt          time.Time   `yaml:"started_at"`
	FinishedAt         time.Time   `yaml:"finished_at"`
	CatalogTypes       int         `yaml:"catalog_types"`
	GeometryTypes      int         `yaml:"geometry_types"`
	Written            int         `yaml:"written"`
	SkippedNoGeometry  int         `yaml:"skipped_no_geometry"`
	SkippedBadGeometry int         `yaml:"skipped_bad_geometry"`
	Unsupported        int         `yaml:"unsupported"`
	FailedTypes        []int       `yaml:"failed_types"`
	Layers             []LayerStat `yaml:"layers"`
}

// Failed returns the number of feature-types that could not be exported.
func (s *Summary) Failed() int { return len(s.FailedTypes) }

// OutputPath returns dir/<basename>_<timestamp>[.ext].
func OutputPath(dir, basename, ext string, now time.Time) string {
	name := fmt.Sprintf("%s_%s", basename, now.Format(TimestampLayout))
	if ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

// Run exports every geometry feature-type of src into sink. Only a catalog
// failure, an already existing output or cancellation abort the run;
// per-type failures are recorded in the Summary and the run continues.
func Run(ctx context.Context, src Source, sink Sink, opts Options) (*Summary, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	out := opts.Progress
	if out == nil {
		out = io.Discard
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	log := zap.L().With(
		zap.String("component", "export"),
		zap.String("run_id", runID),
	)

	sum := &Summary{
		RunID:       runID,
		Output:      sink.Path(),
		Fylke:       opts.Filter.Fylke,
		SRID:        opts.SRID,
		StartedAt:   now(),
		FailedTypes: []int{},
	}

	if sink.Exists() {
		return nil, eris.Wrapf(feature.ErrContainerExists, "export: output %s", sink.Path())
	}

	types, err := src.FeatureTypes(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "export: fetch catalog")
	}
	geo := selectTypes(nvdb.WithGeometry(types), opts.TypeIDs)
	sum.CatalogTypes = len(types)
	sum.GeometryTypes = len(geo)

	fmt.Fprintf(out, "Found %d feature types with geometry (of %d). Exporting fylke=%d...\n", len(geo), len(types), opts.Filter.Fylke)
	fmt.Fprintf(out, "Output: %s\n\n", sink.Path())
	log.Info("export started",
		zap.String("output", sink.Path()),
		zap.Int("catalog_types", len(types)),
		zap.Int("geometry_types", len(geo)),
		zap.Int("fylke", opts.Filter.Fylke),
	)

	names := newLayerNames()
	fetchOpts := FetchOptions{Filter: opts.Filter, IncludeProperties: opts.IncludeProperties}

	for i, ft := range geo {
		if err := ctx.Err(); err != nil {
			sum.FinishedAt = now()
			return sum, eris.Wrap(err, "export: cancelled")
		}

		display := typeName(ft)
		layerName := LayerName(display, FallbackLayerName(ft.ID))
		fmt.Fprintf(out, "[%d/%d] Objekttype %d - %s -> layer '%s'\n", i+1, len(geo), ft.ID, display, layerName)

		stat := LayerStat{TypeID: ft.ID, TypeName: display}
		res, err := FetchType(ctx, src, ft, fetchOpts)
		stat.Fetched = res.Fetched
		stat.SkippedNoGeometry = res.SkippedNoGeometry
		stat.SkippedBadGeometry = res.SkippedBadGeometry

		if err != nil {
			var te *TypeError
			stage := StageFetch
			if errors.As(err, &te) {
				stage = te.Stage
			}
			if stage == StageSetup {
				fmt.Fprintf(out, "  !! could not set up query for %d: %v\n\n", ft.ID, err)
			} else {
				fmt.Fprintf(out, "  !! fetch failed for %d: %v\n\n", ft.ID, err)
			}
			log.Warn("feature type failed",
				zap.Int("type_id", ft.ID),
				zap.String("type_name", display),
				zap.String("stage", string(stage)),
				zap.Error(err),
			)
			stat.Error = err.Error()
			sum.fail(stat)
			continue
		}

		sum.SkippedNoGeometry += res.SkippedNoGeometry
		sum.SkippedBadGeometry += res.SkippedBadGeometry

		if len(res.Rows) == 0 {
			fmt.Fprintf(out, "  -> 0 features (fetched=%d, skipped_no_geom=%d, skipped_bad_geom=%d)\n\n",
				res.Fetched, res.SkippedNoGeometry, res.SkippedBadGeometry)
			sum.Layers = append(sum.Layers, stat)
			continue
		}

		name := names.claim(layerName, ft.ID)
		if name != layerName {
			fmt.Fprintf(out, "  layer name '%s' is taken, using '%s'\n", layerName, name)
		}
		layer := &feature.Layer{
			Name:           name,
			TypeID:         ft.ID,
			TypeName:       display,
			Description:    ft.Description,
			SRID:           opts.SRID,
			WithProperties: opts.IncludeProperties,
			Rows:           res.Rows,
		}

		n, err := writeLayer(ctx, sink, layer, log)
		if err != nil {
			names.release(name)
			fmt.Fprintf(out, "  !! write failed for %d: %v\n\n", ft.ID, err)
			log.Warn("feature type failed",
				zap.Int("type_id", ft.ID),
				zap.String("type_name", display),
				zap.String("stage", string(StageWrite)),
				zap.Error(err),
			)
			stat.Error = (&TypeError{Stage: StageWrite, TypeID: ft.ID, Err: err}).Error()
			sum.fail(stat)
			continue
		}

		stat.Layer = name
		stat.Written = n
		stat.Unsupported = len(res.Rows) - n
		sum.Written += stat.Written
		sum.Unsupported += stat.Unsupported
		sum.Layers = append(sum.Layers, stat)
		if stat.Unsupported > 0 {
			fmt.Fprintf(out, "  %d features have a geometry the output format cannot hold\n", stat.Unsupported)
			log.Warn("features left out by the sink",
				zap.Int("type_id", ft.ID),
				zap.String("layer", name),
				zap.Int("unsupported", stat.Unsupported),
			)
		}
		fmt.Fprintf(out, "  -> wrote %s features (skipped_no_geom=%d, skipped_bad_geom=%d)\n\n",
			humanize.Comma(int64(stat.Written)), res.SkippedNoGeometry, res.SkippedBadGeometry)
	}

	sum.FinishedAt = now()
	printSummary(out, sum)
	log.Info("export finished",
		zap.Int("written", sum.Written),
		zap.Int("skipped_no_geometry", sum.SkippedNoGeometry),
		zap.Int("skipped_bad_geometry", sum.SkippedBadGeometry),
		zap.Int("failed_types", sum.Failed()),
		zap.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt)),
	)
	return sum, nil
}

func (s *Summary) fail(stat LayerStat) {
	s.FailedTypes = append(s.FailedTypes, stat.TypeID)
	s.Layers = append(s.Layers, stat)
}

// writeLayer creates the container on the first write and appends after
// that, switching to the other path when the container state disagrees.
func writeLayer(ctx context.Context, sink Sink, layer *feature.Layer, log *zap.Logger) (int, error) {
	if !sink.Exists() {
		n, err := sink.Create(ctx, layer)
		if !errors.Is(err, feature.ErrContainerExists) {
			return n, err
		}
		log.Debug("container appeared, appending", zap.String("layer", layer.Name))
		return sink.Append(ctx, layer)
	}

	n, err := sink.Append(ctx, layer)
	if !errors.Is(err, feature.ErrContainerMissing) {
		return n, err
	}
	log.Debug("container missing, creating", zap.String("layer", layer.Name))
	return sink.Create(ctx, layer)
}

func selectTypes(types []nvdb.FeatureType, ids []int) []nvdb.FeatureType {
	if len(ids) == 0 {
		return types
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]nvdb.FeatureType, 0, len(ids))
	for _, t := range types {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "Done.")
	fmt.Fprintf(w, "File: %s\n", s.Output)
	fmt.Fprintf(w, "Total written: %s\n", humanize.Comma(int64(s.Written)))
	fmt.Fprintf(w, "Total skipped (no geometry): %s\n", humanize.Comma(int64(s.SkippedNoGeometry)))
	fmt.Fprintf(w, "Total skipped (bad geometry): %s\n", humanize.Comma(int64(s.SkippedBadGeometry)))
	if s.Unsupported > 0 {
		fmt.Fprintf(w, "Total not writable in this format: %s\n", humanize.Comma(int64(s.Unsupported)))
	}
	fmt.Fprintf(w, "Failed feature types: %d", s.Failed())
	if s.Failed() > 0 {
		fmt.Fprintf(w, " %v", s.FailedTypes)
	}
	fmt.Fprintf(w, "\nElapsed: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
