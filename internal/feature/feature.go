// Package feature holds the row and layer types shared by the export
// orchestrator and the output sinks.
package feature

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Sink errors. Orchestrators use them to pick a fallback write path.
var (
	ErrContainerExists  = eris.New("output container already exists")
	ErrContainerMissing = eris.New("output container does not exist")
	ErrLayerExists      = eris.New("layer already exists")
)

// Row is one exported road object.
type Row struct {
	ID         any // int64, string or nil, as returned upstream
	TypeID     int
	TypeName   string
	Geometry   geom.T
	Properties string // JSON of the remaining attributes; empty when disabled
}

// Layer is a batch of rows for a single feature-type, written once.
type Layer struct {
	Name           string
	TypeID         int
	TypeName       string
	Description    string
	SRID           int
	WithProperties bool
	Rows           []Row
}

// Bounds returns the 2D extent of all non-empty row geometries, or nil when
// no row carries coordinates.
func (l *Layer) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, r := range l.Rows {
		if r.Geometry == nil || IsEmpty(r.Geometry) {
			continue
		}
		rb := r.Geometry.Bounds()
		if b == nil {
			b = geom.NewBounds(geom.XY)
			b.Set(rb.Min(0), rb.Min(1), rb.Max(0), rb.Max(1))
			continue
		}
		b.Extend(geom.NewPointFlat(geom.XY, []float64{rb.Min(0), rb.Min(1)}))
		b.Extend(geom.NewPointFlat(geom.XY, []float64{rb.Max(0), rb.Max(1)}))
	}
	return b
}

// GeometryTypeName returns the GeoPackage geometry type name for the layer:
// the common type of all rows, or GEOMETRY when rows are mixed.
func (l *Layer) GeometryTypeName() string {
	name := ""
	for _, r := range l.Rows {
		if r.Geometry == nil {
			continue
		}
		n := TypeName(r.Geometry)
		if name == "" {
			name = n
			continue
		}
		if n != name {
			return "GEOMETRY"
		}
	}
	if name == "" {
		return "GEOMETRY"
	}
	return name
}

// HasZ reports whether any row geometry carries a Z ordinate.
func (l *Layer) HasZ() bool {
	for _, r := range l.Rows {
		if r.Geometry == nil {
			continue
		}
		if lay := r.Geometry.Layout(); lay == geom.XYZ || lay == geom.XYZM {
			return true
		}
	}
	return false
}

// IntegerIDs reports whether every non-nil row id is an integer.
func (l *Layer) IntegerIDs() bool {
	for _, r := range l.Rows {
		switch r.ID.(type) {
		case nil, int64, int:
		default:
			return false
		}
	}
	return true
}

// TypeName returns the upper-case OGC type name of g.
func TypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "POINT"
	case *geom.LineString:
		return "LINESTRING"
	case *geom.Polygon:
		return "POLYGON"
	case *geom.MultiPoint:
		return "MULTIPOINT"
	case *geom.MultiLineString:
		return "MULTILINESTRING"
	case *geom.MultiPolygon:
		return "MULTIPOLYGON"
	case *geom.GeometryCollection:
		return "GEOMETRYCOLLECTION"
	default:
		return "GEOMETRY"
	}
}

// IsEmpty reports whether g has no coordinates.
func IsEmpty(g geom.T) bool {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			if !IsEmpty(child) {
				return false
			}
		}
		return true
	}
	return len(g.FlatCoords()) == 0
}
