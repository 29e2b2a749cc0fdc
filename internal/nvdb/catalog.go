package nvdb

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// FeatureType is one entry of the NVDB data catalog (vegobjekttype).
type FeatureType struct {
	ID          int
	Name        string
	Description string
	HasGeometry bool
}

// geometryFlagKeys are the catalog keys that have carried the geometry flag.
var geometryFlagKeys = []string{"harGeometri", "har_geometri"}

// FeatureTypes lists every feature-type in the data catalog, in catalog order.
func (c *Client) FeatureTypes(ctx context.Context) ([]FeatureType, error) {
	rawURL := strings.TrimRight(c.opts.CatalogURL, "/") + "/vegobjekttyper"
	body, err := c.getJSON(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "nvdb: list feature types")
	}

	types, err := ParseFeatureTypes(body)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("nvdb: catalog loaded",
		zap.String("component", "nvdb.catalog"),
		zap.Int("types", len(types)),
	)
	return types, nil
}

// ParseFeatureTypes decodes a catalog response. Both a bare JSON array and
// an object wrapping the array under "objekttyper" are accepted.
func ParseFeatureTypes(body []byte) ([]FeatureType, error) {
	doc := gjson.ParseBytes(body)
	if doc.IsObject() {
		doc = doc.Get("objekttyper")
	}
	if !doc.IsArray() {
		return nil, eris.New("nvdb: catalog response is not an array")
	}

	var types []FeatureType
	for _, entry := range doc.Array() {
		if !entry.IsObject() {
			continue
		}
		types = append(types, FeatureType{
			ID:          int(entry.Get("id").Int()),
			Name:        entry.Get("navn").String(),
			Description: entry.Get("beskrivelse").String(),
			HasGeometry: geometryFlag(entry),
		})
	}
	return types, nil
}

// geometryFlag reads the first present, non-null geometry flag key.
func geometryFlag(entry gjson.Result) bool {
	for _, key := range geometryFlagKeys {
		v := entry.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		return v.Bool()
	}
	return false
}

// WithGeometry returns the types whose geometry flag is set, keeping order.
func WithGeometry(types []FeatureType) []FeatureType {
	out := make([]FeatureType, 0, len(types))
	for _, t := range types {
		if t.HasGeometry {
			out = append(out, t)
		}
	}
	return out
}
