// Package geometry turns the geometry values found in NVDB records into
// go-geom geometries.
//
// NVDB has returned geometry as GeoJSON-style objects, as objects carrying
// a WKT string, and as bare WKT strings, depending on feature-type and API
// version. Normalize tries each shape in a fixed order and never panics or
// returns an error for malformed input; the outcome is reported in Result.
package geometry

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Kind classifies the outcome of Normalize.
type Kind int

const (
	// Absent means the record had no geometry value at all.
	Absent Kind = iota
	// Parsed means Geom holds a usable geometry.
	Parsed
	// Unparseable means a geometry value was present but no decoder accepted it.
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Parsed:
		return "parsed"
	case Unparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Encoding identifies which decoder produced a parsed geometry.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingGeoJSON
	EncodingWKT
)

func (e Encoding) String() string {
	switch e {
	case EncodingGeoJSON:
		return "geojson"
	case EncodingWKT:
		return "wkt"
	default:
		return "none"
	}
}

// Result is the outcome of normalizing one geometry value.
type Result struct {
	Kind     Kind
	Encoding Encoding
	Geom     geom.T
	// Err is the last decoder error for Unparseable results.
	Err error
}

// OK reports whether r holds a parsed geometry.
func (r Result) OK() bool { return r.Kind == Parsed }

// wktKeys are the object keys that may hold embedded WKT, in lookup order.
var wktKeys = []string{"wkt", "WKT"}

// Normalize converts v into a geometry. v is typically the decoded JSON
// value of a record's geometry field: nil, a string or a map[string]any.
// Empty and zero values (nil, "", false, 0, [] and {}) count as absent.
func Normalize(v any) Result {
	if isZero(v) {
		return Result{Kind: Absent}
	}
	switch val := v.(type) {
	case map[string]any:
		return normalizeObject(val)
	case string:
		if strings.TrimSpace(val) == "" {
			return unparseable(eris.New("geometry: blank WKT string"))
		}
		return decodeWKT(val)
	default:
		return unparseable(eris.Errorf("geometry: unsupported value type %T", v))
	}
}

// isZero reports whether v is an empty or zero JSON value.
func isZero(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

// NormalizeJSON normalizes a raw JSON value, such as the "geometri" member
// of an NVDB object.
func NormalizeJSON(r gjson.Result) Result {
	if !r.Exists() || r.Type == gjson.Null {
		return Result{Kind: Absent}
	}
	return Normalize(r.Value())
}

func normalizeObject(obj map[string]any) Result {
	var lastErr error

	if gtype, ok := obj["type"].(string); ok && obj["coordinates"] != nil {
		g, err := decodeGeoJSON(gtype, obj)
		if err == nil {
			return Result{Kind: Parsed, Encoding: EncodingGeoJSON, Geom: g}
		}
		lastErr = err
	}

	// The first non-empty wkt value is used; a blank or non-string one
	// does not fall back to the next key.
	for _, key := range wktKeys {
		v := obj[key]
		if isZero(v) {
			continue
		}
		text, ok := v.(string)
		if !ok {
			return unparseable(eris.Errorf("geometry: %s is a %T, not a string", key, v))
		}
		if strings.TrimSpace(text) == "" {
			return unparseable(eris.Errorf("geometry: blank %s string", key))
		}
		return decodeWKT(text)
	}

	if lastErr == nil {
		lastErr = eris.New("geometry: object has neither coordinates nor wkt")
	}
	return unparseable(lastErr)
}

func decodeGeoJSON(gtype string, obj map[string]any) (geom.T, error) {
	data, err := json.Marshal(map[string]any{
		"type":        gtype,
		"coordinates": obj["coordinates"],
	})
	if err != nil {
		return nil, eris.Wrap(err, "geometry: marshal geojson")
	}

	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrapf(err, "geometry: decode geojson %s", gtype)
	}
	if g == nil {
		return nil, eris.Errorf("geometry: geojson %s decoded to nothing", gtype)
	}

	// Reject what the WKT decoder would reject, such as a one-point line or
	// a ring with fewer than four points.
	text, err := wkt.Marshal(g)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: geojson %s", gtype)
	}
	if _, err := wkt.Unmarshal(text); err != nil {
		return nil, eris.Wrapf(err, "geometry: invalid geojson %s", gtype)
	}
	return g, nil
}

func decodeWKT(text string) Result {
	g, err := wkt.Unmarshal(strings.TrimSpace(text))
	if err != nil {
		return unparseable(eris.Wrap(err, "geometry: decode wkt"))
	}
	if g == nil {
		return unparseable(eris.New("geometry: wkt decoded to nothing"))
	}
	return Result{Kind: Parsed, Encoding: EncodingWKT, Geom: g}
}

func unparseable(err error) Result {
	return Result{Kind: Unparseable, Err: err}
}
