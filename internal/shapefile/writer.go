// Package shapefile writes exported layers as ESRI shapefiles, one set of
// .shp/.shx/.dbf files per layer and geometry family, into a directory.
package shapefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nvdb-export/internal/feature"
	"github.com/sells-group/nvdb-export/internal/geometry"
)

// dBASE field widths; 254 is the longest character field allowed.
const (
	maxText = 254
	idLen   = 32
)

// Attribute field indexes, matching fields().
const (
	fieldID = iota
	fieldTypeID
	fieldTypeName
	fieldProps
)

// Writer writes layers into a directory of shapefiles.
type Writer struct {
	dir string
	srs geometry.SRS
}

// NewWriter returns a Writer for the output directory dir. A .prj file is
// written next to each shapefile when srid has a known definition.
func NewWriter(dir string, srid int) *Writer {
	return &Writer{dir: dir, srs: geometry.LookupSRS(srid)}
}

// Path returns the output directory.
func (w *Writer) Path() string { return w.dir }

// Exists reports whether the output directory is already on disk.
func (w *Writer) Exists() bool {
	info, err := os.Stat(w.dir)
	return err == nil && info.IsDir()
}

// Create makes the output directory and writes layer into it. It returns
// the number of rows written; rows without a shapefile geometry are left out.
func (w *Writer) Create(ctx context.Context, layer *feature.Layer) (int, error) {
	if _, err := os.Stat(w.dir); err == nil {
		return 0, eris.Wrapf(feature.ErrContainerExists, "shapefile: create %s", w.dir)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return 0, eris.Wrapf(err, "shapefile: mkdir %s", w.dir)
	}
	n, err := w.write(ctx, layer)
	if err != nil {
		_ = os.RemoveAll(w.dir)
		return 0, err
	}
	return n, nil
}

// Append writes layer into the existing output directory and returns the
// number of rows written.
func (w *Writer) Append(ctx context.Context, layer *feature.Layer) (int, error) {
	if !w.Exists() {
		return 0, eris.Wrapf(feature.ErrContainerMissing, "shapefile: append to %s", w.dir)
	}
	return w.write(ctx, layer)
}

func (w *Writer) write(ctx context.Context, layer *feature.Layer) (int, error) {
	log := zap.L().With(
		zap.String("component", "shapefile.writer"),
		zap.String("layer", layer.Name),
	)

	groups := make(map[family][]int)
	var order []family
	skipped := 0
	shapes := make([]shp.Shape, len(layer.Rows))
	for i, row := range layer.Rows {
		if row.Geometry == nil {
			skipped++
			continue
		}
		s, fam, ok := toShape(row.Geometry)
		if !ok {
			skipped++
			continue
		}
		if _, seen := groups[fam]; !seen {
			order = append(order, fam)
		}
		shapes[i] = s
		groups[fam] = append(groups[fam], i)
	}

	for _, fam := range order {
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.shp", layer.Name, fam))
		if _, err := os.Stat(path); err == nil {
			return 0, eris.Wrapf(feature.ErrLayerExists, "shapefile: %s", path)
		}
	}

	written := 0
	for _, fam := range order {
		if err := ctx.Err(); err != nil {
			return 0, eris.Wrap(err, "shapefile: write cancelled")
		}
		path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.shp", layer.Name, fam))
		if err := writeFile(path, fam, layer, shapes, groups[fam]); err != nil {
			return 0, err
		}
		if err := w.writeSidecars(path); err != nil {
			return 0, err
		}
		written += len(groups[fam])
		log.Debug("shapefile written", zap.String("path", path), zap.Int("rows", len(groups[fam])))
	}

	if skipped > 0 {
		log.Warn("rows without a shapefile geometry left out", zap.Int("skipped", skipped))
	}
	return written, nil
}

func writeFile(path string, fam family, layer *feature.Layer, shapes []shp.Shape, idx []int) error {
	sw, err := shp.Create(path, fam.shapeType())
	if err != nil {
		return eris.Wrapf(err, "shapefile: create %s", path)
	}
	defer sw.Close()

	if err := sw.SetFields(fields(layer.WithProperties)); err != nil {
		return eris.Wrapf(err, "shapefile: set fields %s", path)
	}

	for _, i := range idx {
		row := layer.Rows[i]
		n := int(sw.Write(shapes[i]))

		attrs := map[int]any{
			fieldID:       truncate(idText(row.ID), idLen),
			fieldTypeID:   row.TypeID,
			fieldTypeName: truncate(row.TypeName, maxText),
		}
		if layer.WithProperties {
			attrs[fieldProps] = truncate(row.Properties, maxText)
		}
		for field, v := range attrs {
			if err := sw.WriteAttribute(n, field, v); err != nil {
				return eris.Wrapf(err, "shapefile: write attribute %d of row %d", field, n)
			}
		}
	}
	return nil
}

// writeSidecars writes the .cpg (attribute encoding) and .prj files.
func (w *Writer) writeSidecars(shpPath string) error {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return eris.Wrapf(err, "shapefile: write %s.cpg", base)
	}
	if !w.srs.Defined() {
		return nil
	}
	if err := os.WriteFile(base+".prj", []byte(w.srs.Definition), 0o644); err != nil {
		return eris.Wrapf(err, "shapefile: write %s.prj", base)
	}
	return nil
}

// fields returns the dBASE schema. Names are limited to ten characters.
func fields(withProps bool) []shp.Field {
	fs := []shp.Field{
		shp.StringField("ID", idLen),
		shp.NumberField("OBJTYPE", 10),
		shp.StringField("OBJNAVN", maxText),
	}
	if withProps {
		fs = append(fs, shp.StringField("PROPS", maxText))
	}
	return fs
}

func idText(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
