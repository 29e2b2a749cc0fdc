package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupSRS(t *testing.T) {
	nn2000 := LookupSRS(5973)
	assert.Equal(t, "ETRS89 / UTM zone 33 + NN2000 height", nn2000.Name)
	assert.Contains(t, nn2000.Definition, "COMPD_CS")
	assert.True(t, nn2000.Defined())

	assert.Equal(t, "WGS 84 geodetic", LookupSRS(4326).Name)
	assert.False(t, LookupSRS(-1).Defined())

	unknown := LookupSRS(3035)
	assert.Equal(t, "EPSG:3035", unknown.Name)
	assert.Equal(t, "EPSG", unknown.Organization)
	assert.False(t, unknown.Defined())
}
