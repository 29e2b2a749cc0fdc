package nvdb

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// GeometryKey is the record member that holds an object's geometry.
const GeometryKey = "geometri"

// Record is one road object as returned by NVDB. It keeps the raw JSON so
// member order and text are preserved exactly as received.
type Record struct {
	raw string
}

// NewRecord wraps a raw JSON object.
func NewRecord(raw string) Record { return Record{raw: raw} }

// Raw returns the record's JSON text.
func (r Record) Raw() string { return r.raw }

// Get returns the top-level member key. Keys are matched literally.
func (r Record) Get(key string) gjson.Result {
	return gjson.Get(r.raw, gjson.Escape(key))
}

// ID returns the object id as int64, a string id as string, or nil.
func (r Record) ID() any {
	v := r.Get("id")
	switch v.Type {
	case gjson.Number:
		return v.Int()
	case gjson.String:
		return v.String()
	default:
		return nil
	}
}

// Geometry returns the raw geometry member.
func (r Record) Geometry() gjson.Result { return r.Get(GeometryKey) }

// Without returns the record as compact JSON with key removed. Non-ASCII
// text is left unescaped.
func (r Record) Without(key string) (string, error) {
	out, err := sjson.Delete(r.raw, gjson.Escape(key))
	if err != nil {
		return "", eris.Wrapf(err, "nvdb: drop %q from record", key)
	}
	return string(pretty.Ugly([]byte(out))), nil
}
