package gpkg

import (
	"bytes"
	"encoding/binary"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/nvdb-export/internal/feature"
)

// GeoPackage binary header flag bits.
const (
	flagLittleEndian = 0x01
	flagEnvelopeXY   = 0x01 << 1
)

// EncodeGeometry encodes g as a GeoPackage geometry blob: the "GP" header
// with an XY envelope followed by little-endian ISO WKB. Empty geometries
// encode to nil and are stored as NULL.
func EncodeGeometry(g geom.T, srid int) ([]byte, error) {
	if g == nil || feature.IsEmpty(g) {
		return nil, nil
	}

	body, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: encode wkb")
	}

	b := g.Bounds()
	var buf bytes.Buffer
	buf.Grow(8 + 32 + len(body))
	buf.Write([]byte{'G', 'P', 0, flagLittleEndian | flagEnvelopeXY})
	_ = binary.Write(&buf, binary.LittleEndian, int32(srid))
	for _, v := range []float64{b.Min(0), b.Max(0), b.Min(1), b.Max(1)} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeGeometry parses a GeoPackage geometry blob and returns the
// geometry and the SRS id stored in its header.
func DecodeGeometry(blob []byte) (geom.T, int, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, eris.New("gpkg: not a geometry blob")
	}
	flags := blob[3]

	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srid := int(int32(order.Uint32(blob[4:8])))

	var envelopeLen int
	switch (flags >> 1) & 0x07 {
	case 0:
	case 1:
		envelopeLen = 32
	case 2, 3:
		envelopeLen = 48
	case 4:
		envelopeLen = 64
	default:
		return nil, 0, eris.Errorf("gpkg: invalid envelope indicator in flags %#x", flags)
	}
	offset := 8 + envelopeLen
	if len(blob) < offset {
		return nil, 0, eris.New("gpkg: truncated geometry header")
	}

	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, 0, eris.Wrap(err, "gpkg: decode wkb")
	}
	return g, srid, nil
}
