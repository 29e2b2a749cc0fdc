package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func point(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func TestLayerBounds(t *testing.T) {
	l := &Layer{Rows: []Row{
		{Geometry: point(10, 20)},
		{Geometry: nil},
		{Geometry: geom.NewLineStringFlat(geom.XY, []float64{-5, 3, 40, 7})},
		{Geometry: geom.NewPointEmpty(geom.XY)},
	}}

	b := l.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, []float64{-5, 3}, []float64{b.Min(0), b.Min(1)})
	assert.Equal(t, []float64{40, 20}, []float64{b.Max(0), b.Max(1)})
}

func TestLayerBounds_NoCoordinates(t *testing.T) {
	l := &Layer{Rows: []Row{{Geometry: nil}, {Geometry: geom.NewPointEmpty(geom.XY)}}}
	assert.Nil(t, l.Bounds())
	assert.Nil(t, (&Layer{}).Bounds())
}

func TestLayerGeometryTypeName(t *testing.T) {
	assert.Equal(t, "GEOMETRY", (&Layer{}).GeometryTypeName())

	l := &Layer{Rows: []Row{{Geometry: point(1, 2)}, {Geometry: nil}, {Geometry: point(3, 4)}}}
	assert.Equal(t, "POINT", l.GeometryTypeName())

	l.Rows = append(l.Rows, Row{Geometry: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})})
	assert.Equal(t, "GEOMETRY", l.GeometryTypeName())
}

func TestLayerHasZ(t *testing.T) {
	l := &Layer{Rows: []Row{{Geometry: point(1, 2)}}}
	assert.False(t, l.HasZ())

	l.Rows = append(l.Rows, Row{Geometry: geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3})})
	assert.True(t, l.HasZ())
}

func TestLayerIntegerIDs(t *testing.T) {
	l := &Layer{Rows: []Row{{ID: int64(1)}, {ID: nil}, {ID: 7}}}
	assert.True(t, l.IntegerIDs())

	l.Rows = append(l.Rows, Row{ID: "85000123"})
	assert.False(t, l.IntegerIDs())
}

func TestTypeName(t *testing.T) {
	cases := map[string]geom.T{
		"POINT":              point(0, 0),
		"LINESTRING":         geom.NewLineString(geom.XY),
		"POLYGON":            geom.NewPolygon(geom.XY),
		"MULTIPOINT":         geom.NewMultiPoint(geom.XY),
		"MULTILINESTRING":    geom.NewMultiLineString(geom.XY),
		"MULTIPOLYGON":       geom.NewMultiPolygon(geom.XY),
		"GEOMETRYCOLLECTION": geom.NewGeometryCollection(),
	}
	for want, g := range cases {
		assert.Equal(t, want, TypeName(g))
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(geom.NewPointEmpty(geom.XY)))
	assert.False(t, IsEmpty(point(1, 1)))

	gc := geom.NewGeometryCollection()
	assert.True(t, IsEmpty(gc))
	require.NoError(t, gc.Push(geom.NewPointEmpty(geom.XY)))
	assert.True(t, IsEmpty(gc))
	require.NoError(t, gc.Push(point(2, 2)))
	assert.False(t, IsEmpty(gc))
}
