// Package gpkg writes OGC GeoPackage files with one feature table per
// exported NVDB feature-type.
//
// Every Create or Append opens the file, writes one layer inside a single
// transaction and closes it again, so no handle is held between layers and
// a viewer can read the file while an export is still running.
package gpkg

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/sells-group/nvdb-export/internal/feature"
	"github.com/sells-group/nvdb-export/internal/geometry"
)

// Writer writes layers into a single GeoPackage file.
type Writer struct {
	path string
	srs  geometry.SRS
}

// NewWriter returns a Writer for path using srid for every layer.
func NewWriter(path string, srid int) *Writer {
	return &Writer{path: path, srs: geometry.LookupSRS(srid)}
}

// Path returns the GeoPackage file path.
func (w *Writer) Path() string { return w.path }

// Exists reports whether the GeoPackage file is already on disk.
func (w *Writer) Exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}

// Create creates the GeoPackage and writes layer as its first table. It
// returns the number of rows written and fails with
// feature.ErrContainerExists when the file already exists.
func (w *Writer) Create(ctx context.Context, layer *feature.Layer) (int, error) {
	if w.Exists() {
		return 0, eris.Wrapf(feature.ErrContainerExists, "gpkg: create %s", w.path)
	}

	db, err := open(w.path)
	if err != nil {
		return 0, err
	}

	err = w.create(ctx, db, layer)
	if cerr := db.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "gpkg: close")
	}
	if err != nil {
		_ = os.Remove(w.path)
		return 0, err
	}
	return len(layer.Rows), nil
}

func (w *Writer) create(ctx context.Context, db *sql.DB, layer *feature.Layer) error {
	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
		fmt.Sprintf("PRAGMA user_version = %d", userVersion),
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "gpkg: exec %s", pragma)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "gpkg: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, coreSchema); err != nil {
		return eris.Wrap(err, "gpkg: create core schema")
	}
	for _, s := range geometry.RequiredSRS {
		if err := insertSRS(ctx, tx, s); err != nil {
			return err
		}
	}
	if err := insertSRS(ctx, tx, w.srs); err != nil {
		return err
	}
	if err := w.writeLayer(ctx, tx, layer); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "gpkg: commit")
}

// Append writes layer as a new table of an existing GeoPackage and returns
// the number of rows written. It fails with feature.ErrContainerMissing when
// the file is absent or is not a GeoPackage, and with feature.ErrLayerExists
// when the table is taken.
func (w *Writer) Append(ctx context.Context, layer *feature.Layer) (int, error) {
	if !w.Exists() {
		return 0, eris.Wrapf(feature.ErrContainerMissing, "gpkg: append to %s", w.path)
	}

	db, err := open(w.path)
	if err != nil {
		return 0, err
	}
	defer db.Close() //nolint:errcheck

	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'gpkg_contents'`,
	).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "gpkg: inspect container")
	}
	if n == 0 {
		return 0, eris.Wrapf(feature.ErrContainerMissing, "gpkg: %s is not a geopackage", w.path)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "gpkg: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertSRS(ctx, tx, w.srs); err != nil {
		return 0, err
	}
	if err := w.writeLayer(ctx, tx, layer); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "gpkg: commit")
	}
	if err := db.Close(); err != nil {
		return 0, eris.Wrap(err, "gpkg: close")
	}
	return len(layer.Rows), nil
}

func (w *Writer) writeLayer(ctx context.Context, tx *sql.Tx, layer *feature.Layer) error {
	log := zap.L().With(
		zap.String("component", "gpkg.writer"),
		zap.String("layer", layer.Name),
	)

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, layer.Name,
	).Scan(&n); err != nil {
		return eris.Wrapf(err, "gpkg: check layer %s", layer.Name)
	}
	if n > 0 {
		return eris.Wrapf(feature.ErrLayerExists, "gpkg: layer %s", layer.Name)
	}

	geomType := layer.GeometryTypeName()
	idType := "TEXT"
	if layer.IntegerIDs() {
		idType = "INTEGER"
	}
	if _, err := tx.ExecContext(ctx, featureTableDDL(layer.Name, geomType, idType, layer.WithProperties)); err != nil {
		return eris.Wrapf(err, "gpkg: create table %s", layer.Name)
	}

	identifier := layer.Name
	if layer.TypeName != "" {
		identifier = fmt.Sprintf("%s (%d)", layer.TypeName, layer.TypeID)
	}
	var minX, minY, maxX, maxY any
	if b := layer.Bounds(); b != nil {
		minX, minY, maxX, maxY = b.Min(0), b.Min(1), b.Max(0), b.Max(1)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, description, last_change, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?, ?)`,
		layer.Name, identifier, layer.Description, time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		minX, minY, maxX, maxY, w.srs.ID,
	); err != nil {
		return eris.Wrapf(err, "gpkg: register contents %s", layer.Name)
	}

	z := 0
	if layer.HasZ() {
		z = 2
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m) VALUES (?, ?, ?, ?, ?, 0)`,
		layer.Name, colGeometry, geomType, w.srs.ID, z,
	); err != nil {
		return eris.Wrapf(err, "gpkg: register geometry column %s", layer.Name)
	}

	stmt, err := tx.PrepareContext(ctx, insertRowSQL(layer.Name, layer.WithProperties))
	if err != nil {
		return eris.Wrapf(err, "gpkg: prepare insert %s", layer.Name)
	}
	defer stmt.Close() //nolint:errcheck

	for i, row := range layer.Rows {
		blob, err := EncodeGeometry(row.Geometry, w.srs.ID)
		if err != nil {
			return eris.Wrapf(err, "gpkg: row %d of %s", i, layer.Name)
		}
		args := []any{blob, row.ID, row.TypeID, row.TypeName}
		if layer.WithProperties {
			args = append(args, row.Properties)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "gpkg: insert row %d of %s", i, layer.Name)
		}
	}

	log.Debug("layer written",
		zap.Int("rows", len(layer.Rows)),
		zap.String("geometry_type", geomType),
	)
	return nil
}

func insertSRS(ctx context.Context, tx *sql.Tx, s geometry.SRS) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys (srs_name, srs_id, organization, organization_coordsys_id, definition, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.ID, s.Organization, s.OrgID, s.Definition, s.Description,
	)
	return eris.Wrapf(err, "gpkg: insert srs %d", s.ID)
}

// open opens path with a single connection so pragmas apply to every statement.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "gpkg: exec %s", pragma)
		}
	}
	return db, nil
}
