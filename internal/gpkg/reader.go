package gpkg

import (
	"context"
	"database/sql"
	"os"

	"github.com/rotisserie/eris"
)

// LayerInfo summarises one feature table of a GeoPackage.
type LayerInfo struct {
	Name         string
	Identifier   string
	GeometryType string
	SRID         int
	Features     int
	MinX, MinY   sql.NullFloat64
	MaxX, MaxY   sql.NullFloat64
}

// ListLayers returns the feature tables registered in the GeoPackage at
// path, in registration order.
func ListLayers(ctx context.Context, path string) ([]LayerInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "gpkg: stat %s", path)
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close() //nolint:errcheck

	rows, err := db.QueryContext(ctx, `
		SELECT c.table_name, COALESCE(c.identifier, ''), g.geometry_type_name, g.srs_id,
		       c.min_x, c.min_y, c.max_x, c.max_y
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: list layers")
	}
	defer rows.Close() //nolint:errcheck

	var layers []LayerInfo
	for rows.Next() {
		var li LayerInfo
		if err := rows.Scan(&li.Name, &li.Identifier, &li.GeometryType, &li.SRID,
			&li.MinX, &li.MinY, &li.MaxX, &li.MaxY); err != nil {
			return nil, eris.Wrap(err, "gpkg: scan layer")
		}
		layers = append(layers, li)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gpkg: iterate layers")
	}
	if err := rows.Close(); err != nil {
		return nil, eris.Wrap(err, "gpkg: close layer rows")
	}

	for i := range layers {
		if err := db.QueryRowContext(ctx,
			"SELECT count(*) FROM "+quoteIdent(layers[i].Name),
		).Scan(&layers[i].Features); err != nil {
			return nil, eris.Wrapf(err, "gpkg: count %s", layers[i].Name)
		}
	}
	return layers, nil
}
