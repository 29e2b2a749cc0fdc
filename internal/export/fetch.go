package export

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nvdb-export/internal/feature"
	"github.com/sells-group/nvdb-export/internal/geometry"
	"github.com/sells-group/nvdb-export/internal/nvdb"
)

// Source is the upstream the exporter reads from. *nvdb.Client implements it.
type Source interface {
	FeatureTypes(ctx context.Context) ([]nvdb.FeatureType, error)
	Query(ctx context.Context, typeID int, filter nvdb.Filter) (nvdb.Records, error)
}

// Stage names the step of a per-type export that failed.
type Stage string

// Per-type failure stages.
const (
	StageSetup Stage = "setup"
	StageFetch Stage = "fetch"
	StageWrite Stage = "write"
)

// TypeError is a failure confined to one feature-type. The export carries
// on with the next type.
type TypeError struct {
	Stage  Stage
	TypeID int
	Err    error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("export: %s type %d: %v", e.Stage, e.TypeID, e.Err)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// FetchOptions scopes one per-type fetch.
type FetchOptions struct {
	Filter            nvdb.Filter
	IncludeProperties bool
}

// FetchResult is the outcome of reading one feature-type.
type FetchResult struct {
	Rows               []feature.Row
	Fetched            int
	SkippedNoGeometry  int
	SkippedBadGeometry int
}

// FetchType reads every object of ft inside opts.Filter and converts it to rows.
// Objects without a geometry or with one that cannot be parsed are counted
// and dropped. On a *TypeError the returned rows are always empty; the
// counters reflect how far iteration got.
func FetchType(ctx context.Context, src Source, ft nvdb.FeatureType, opts FetchOptions) (FetchResult, error) {
	var res FetchResult

	recs, err := src.Query(ctx, ft.ID, opts.Filter)
	if err != nil {
		return res, &TypeError{Stage: StageSetup, TypeID: ft.ID, Err: err}
	}
	defer recs.Close() //nolint:errcheck

	for recs.Next() {
		res.Fetched++
		rec := recs.Record()

		g := geometry.NormalizeJSON(rec.Geometry())
		switch g.Kind {
		case geometry.Absent:
			res.SkippedNoGeometry++
			continue
		case geometry.Unparseable:
			res.SkippedBadGeometry++
			continue
		}

		row := feature.Row{
			ID:       rec.ID(),
			TypeID:   ft.ID,
			TypeName: typeName(ft),
			Geometry: g.Geom,
		}
		if opts.IncludeProperties {
			props, err := rec.Without(nvdb.GeometryKey)
			if err != nil {
				res.Rows = nil
				return res, &TypeError{Stage: StageFetch, TypeID: ft.ID, Err: err}
			}
			row.Properties = props
		}
		res.Rows = append(res.Rows, row)
	}

	if err := recs.Err(); err != nil {
		res.Rows = nil
		return res, &TypeError{Stage: StageFetch, TypeID: ft.ID, Err: eris.Wrapf(err, "export: iterate type %d", ft.ID)}
	}
	return res, nil
}

// typeName returns the feature-type name, or objtype_<id> when it has none.
func typeName(ft nvdb.FeatureType) string {
	if ft.Name == "" {
		return FallbackLayerName(ft.ID)
	}
	return ft.Name
}
