package geometry

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseCRS parses an authority-qualified CRS identifier such as
// "EPSG:5973" and returns the numeric code. Only EPSG codes are accepted.
func ParseCRS(crs string) (int, error) {
	authority, code, ok := strings.Cut(strings.TrimSpace(crs), ":")
	if !ok {
		return 0, eris.Errorf("geometry: crs %q is not of the form EPSG:<code>", crs)
	}
	if !strings.EqualFold(authority, "EPSG") {
		return 0, eris.Errorf("geometry: unsupported crs authority %q", authority)
	}
	srid, err := strconv.Atoi(code)
	if err != nil || srid <= 0 {
		return 0, eris.Errorf("geometry: invalid EPSG code %q", code)
	}
	return srid, nil
}
