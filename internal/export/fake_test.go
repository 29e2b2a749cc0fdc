package export

import (
	"context"
	"errors"

	"github.com/sells-group/nvdb-export/internal/feature"
	"github.com/sells-group/nvdb-export/internal/nvdb"
)

// fakeSource serves a fixed catalog and per-type record lists.
type fakeSource struct {
	types      []nvdb.FeatureType
	catalogErr error
	objects    map[int][]string
	setupErr   map[int]error
	failAfter  map[int]int // type id -> records returned before the error
	queries    []int
}

func (f *fakeSource) FeatureTypes(context.Context) ([]nvdb.FeatureType, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.types, nil
}

func (f *fakeSource) Query(_ context.Context, typeID int, _ nvdb.Filter) (nvdb.Records, error) {
	f.queries = append(f.queries, typeID)
	if err := f.setupErr[typeID]; err != nil {
		return nil, err
	}
	limit := -1
	if n, ok := f.failAfter[typeID]; ok {
		limit = n
	}
	return &fakeRecords{objects: f.objects[typeID], limit: limit}, nil
}

type fakeRecords struct {
	objects []string
	limit   int
	idx     int
	cur     nvdb.Record
	err     error
	closed  bool
}

func (r *fakeRecords) Next() bool {
	if r.err != nil || r.closed {
		return false
	}
	if r.limit >= 0 && r.idx >= r.limit {
		r.err = errors.New("connection reset by peer")
		return false
	}
	if r.idx >= len(r.objects) {
		return false
	}
	r.cur = nvdb.NewRecord(r.objects[r.idx])
	r.idx++
	return true
}

func (r *fakeRecords) Record() nvdb.Record { return r.cur }
func (r *fakeRecords) Err() error          { return r.err }
func (r *fakeRecords) Close() error        { r.closed = true; return nil }

// memSink keeps written layers in memory. The first drop rows of each
// layer are reported as not stored.
type memSink struct {
	exists    bool
	layers    []*feature.Layer
	createErr error
	appendErr error
	drop      int
	creates   int
	appends   int
}

func (m *memSink) Path() string { return "mem.gpkg" }
func (m *memSink) Exists() bool { return m.exists }

func (m *memSink) Create(_ context.Context, l *feature.Layer) (int, error) {
	m.creates++
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.exists = true
	m.layers = append(m.layers, l)
	return m.stored(l), nil
}

func (m *memSink) Append(_ context.Context, l *feature.Layer) (int, error) {
	m.appends++
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.layers = append(m.layers, l)
	return m.stored(l), nil
}

func (m *memSink) stored(l *feature.Layer) int {
	return max(len(l.Rows)-m.drop, 0)
}

func (m *memSink) names() []string {
	out := make([]string, len(m.layers))
	for i, l := range m.layers {
		out[i] = l.Name
	}
	return out
}
