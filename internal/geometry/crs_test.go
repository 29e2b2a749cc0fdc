package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCRS(t *testing.T) {
	srid, err := ParseCRS("EPSG:5973")
	require.NoError(t, err)
	assert.Equal(t, 5973, srid)

	srid, err = ParseCRS(" epsg:4326 ")
	require.NoError(t, err)
	assert.Equal(t, 4326, srid)
}

func TestParseCRS_Invalid(t *testing.T) {
	for _, in := range []string{"", "5973", "ESRI:102100", "EPSG:", "EPSG:abc", "EPSG:-1"} {
		_, err := ParseCRS(in)
		assert.Error(t, err, "input %q", in)
	}
}
