package nvdb

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Filter scopes an object query.
type Filter struct {
	Fylke int // county number, e.g. 56 for Finnmark
}

// Validate reports whether f can be sent to NVDB.
func (f Filter) Validate() error {
	if f.Fylke <= 0 {
		return eris.Errorf("nvdb: invalid fylke %d", f.Fylke)
	}
	return nil
}

// Records is a lazy, single-pass sequence of road objects. Pages are fetched
// on demand as Next advances.
//
//	recs, err := client.Query(ctx, 105, nvdb.Filter{Fylke: 56})
//	...
//	defer recs.Close()
//	for recs.Next() {
//		rec := recs.Record()
//	}
//	if err := recs.Err(); err != nil { ... }
type Records interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Query prepares a region-filtered object query for one feature-type. No
// request is made until Next is called.
func (c *Client) Query(ctx context.Context, typeID int, filter Filter) (Records, error) {
	if typeID <= 0 {
		return nil, eris.Errorf("nvdb: invalid feature type id %d", typeID)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimRight(c.opts.BaseURL, "/") + "/vegobjekter/" + strconv.Itoa(typeID))
	if err != nil {
		return nil, eris.Wrapf(err, "nvdb: build query url for type %d", typeID)
	}
	q := u.Query()
	q.Set("fylke", strconv.Itoa(filter.Fylke))
	q.Set("inkluder", "alle")
	q.Set("antall", strconv.Itoa(c.opts.PageSize))
	if c.opts.SRID > 0 {
		q.Set("srid", strconv.Itoa(c.opts.SRID))
	}
	u.RawQuery = q.Encode()

	return &pager{
		ctx:    ctx,
		client: c,
		next:   u.String(),
		typeID: typeID,
	}, nil
}

// pager walks the metadata.neste links of an object listing.
type pager struct {
	ctx    context.Context
	client *Client
	typeID int

	next  string
	page  []gjson.Result
	idx   int
	cur   Record
	pages int
	err   error
	done  bool
}

func (p *pager) Next() bool {
	for {
		if p.err != nil {
			return false
		}
		if p.idx < len(p.page) {
			p.cur = NewRecord(p.page[p.idx].Raw)
			p.idx++
			return true
		}
		if p.done {
			return false
		}
		if err := p.fetch(); err != nil {
			p.err = err
			return false
		}
	}
}

func (p *pager) fetch() error {
	if err := p.ctx.Err(); err != nil {
		return eris.Wrap(err, "nvdb: query cancelled")
	}

	current := p.next
	body, err := p.client.getJSON(p.ctx, current)
	if err != nil {
		return eris.Wrapf(err, "nvdb: fetch page %d of type %d", p.pages+1, p.typeID)
	}
	p.pages++

	doc := gjson.ParseBytes(body)
	objects := doc.Get("objekter")
	if objects.Exists() && !objects.IsArray() {
		return eris.Errorf("nvdb: page %d of type %d: objekter is not an array", p.pages, p.typeID)
	}

	p.page = objects.Array()
	p.idx = 0

	next := doc.Get("metadata.neste.href").String()
	if len(p.page) == 0 || next == "" || next == current {
		p.done = true
	}
	p.next = next

	zap.L().Debug("nvdb: page fetched",
		zap.String("component", "nvdb.query"),
		zap.Int("type_id", p.typeID),
		zap.Int("page", p.pages),
		zap.Int("objects", len(p.page)),
		zap.Int64("returned", doc.Get("metadata.returnert").Int()),
	)
	return nil
}

func (p *pager) Record() Record { return p.cur }

func (p *pager) Err() error { return p.err }

// Close stops the iteration. Remaining pages are never requested.
func (p *pager) Close() error {
	p.done = true
	p.page = nil
	return nil
}
