package shapefile

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// family groups geometries that can share one shapefile.
type family string

const (
	familyPoint      family = "point"
	familyMultiPoint family = "multipoint"
	familyLine       family = "line"
	familyPolygon    family = "polygon"
)

// shapeType returns the shapefile type used for a family.
func (f family) shapeType() shp.ShapeType {
	switch f {
	case familyPoint:
		return shp.POINT
	case familyMultiPoint:
		return shp.MULTIPOINT
	case familyLine:
		return shp.POLYLINE
	default:
		return shp.POLYGON
	}
}

// toShape converts a go-geom geometry to a 2D go-shp shape. Z and M
// ordinates are dropped. Returns ok=false for geometry collections and
// empty geometries, which shapefiles cannot hold.
func toShape(g geom.T) (shp.Shape, family, bool) {
	switch t := g.(type) {
	case *geom.Point:
		if t.Empty() {
			return nil, "", false
		}
		return &shp.Point{X: t.X(), Y: t.Y()}, familyPoint, true

	case *geom.MultiPoint:
		pts := make([]shp.Point, 0, t.NumPoints())
		for i := 0; i < t.NumPoints(); i++ {
			p := t.Point(i)
			if p.Empty() {
				continue
			}
			pts = append(pts, shp.Point{X: p.X(), Y: p.Y()})
		}
		if len(pts) == 0 {
			return nil, "", false
		}
		return &shp.MultiPoint{
			Box:       shp.BBoxFromPoints(pts),
			NumPoints: int32(len(pts)),
			Points:    pts,
		}, familyMultiPoint, true

	case *geom.LineString:
		return polyLine(lineParts(t.Coords()), familyLine)

	case *geom.MultiLineString:
		var parts [][]shp.Point
		for i := 0; i < t.NumLineStrings(); i++ {
			parts = append(parts, lineParts(t.LineString(i).Coords())...)
		}
		return polyLine(parts, familyLine)

	case *geom.Polygon:
		return polyLine(ringParts(t), familyPolygon)

	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := 0; i < t.NumPolygons(); i++ {
			parts = append(parts, ringParts(t.Polygon(i))...)
		}
		return polyLine(parts, familyPolygon)

	default:
		return nil, "", false
	}
}

func polyLine(parts [][]shp.Point, fam family) (shp.Shape, family, bool) {
	if len(parts) == 0 {
		return nil, "", false
	}
	pl := shp.NewPolyLine(parts)
	if fam == familyPolygon {
		poly := shp.Polygon(*pl)
		return &poly, fam, true
	}
	return pl, fam, true
}

// lineParts returns coords as a single part, or nothing when empty.
func lineParts(coords []geom.Coord) [][]shp.Point {
	if len(coords) == 0 {
		return nil
	}
	pts := make([]shp.Point, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, shp.Point{X: c.X(), Y: c.Y()})
	}
	return [][]shp.Point{pts}
}

// ringParts returns one part per non-empty linear ring of p, wound the
// shapefile way: exterior clockwise, holes counter-clockwise.
func ringParts(p *geom.Polygon) [][]shp.Point {
	var parts [][]shp.Point
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := lineParts(p.LinearRing(i).Coords())
		if len(ring) == 0 {
			continue
		}
		pts := ring[0]
		clockwise := signedArea(pts) < 0
		if (i == 0) != clockwise {
			reverse(pts)
		}
		parts = append(parts, pts)
	}
	return parts
}

// signedArea is the shoelace sum; negative for clockwise rings.
func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

func reverse(pts []shp.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
