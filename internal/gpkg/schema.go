package gpkg

import (
	"fmt"
	"strings"
)

// applicationID is "GPKG" as a big-endian int32; userVersion marks GeoPackage 1.3.
const (
	applicationID = 0x47504B47
	userVersion   = 10300
)

// coreSchema creates the mandatory GeoPackage metadata tables.
const coreSchema = `
CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER NOT NULL PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE IF NOT EXISTS gpkg_contents (
	table_name  TEXT NOT NULL PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT uk_gc_table_name UNIQUE (table_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);
`

// Column names of every exported feature table.
const (
	colFID        = "fid"
	colGeometry   = "geometry"
	colID         = "id"
	colTypeID     = "objekttype"
	colTypeName   = "objekttype_navn"
	colProperties = "properties"
)

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// featureTableDDL returns the CREATE TABLE statement for one layer.
func featureTableDDL(table, geomType, idType string, withProps bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(table))
	fmt.Fprintf(&b, "\t%s INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,\n", colFID)
	fmt.Fprintf(&b, "\t%s %s,\n", colGeometry, geomType)
	fmt.Fprintf(&b, "\t%s %s,\n", colID, idType)
	fmt.Fprintf(&b, "\t%s INTEGER,\n", colTypeID)
	fmt.Fprintf(&b, "\t%s TEXT", colTypeName)
	if withProps {
		fmt.Fprintf(&b, ",\n\t%s TEXT", colProperties)
	}
	b.WriteString("\n)")
	return b.String()
}

// insertRowSQL returns the parameterised INSERT for one layer.
func insertRowSQL(table string, withProps bool) string {
	cols := []string{colGeometry, colID, colTypeID, colTypeName}
	if withProps {
		cols = append(cols, colProperties)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(cols, ", "), marks)
}
