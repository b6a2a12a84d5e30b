package vector

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/nepalfire/firereport/internal/domain"
)

// WGS84PRJ is the ESRI definition written next to WGS 84 shapefiles.
const WGS84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const maxFieldName = 10

// WriteShapefile writes a point or polygon layer as .shp/.shx/.dbf plus a
// .prj when the CRS is known. Numeric attributes become float columns and
// everything else text. Field names are cut to the DBF limit of 10
// characters.
func WriteShapefile(path string, fc domain.FeatureCollection) error {
	shapeType, err := layerType(fc)
	if err != nil {
		return err
	}

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("%w: create shapefile %s: %v", domain.ErrIO, path, err)
	}
	defer w.Close()

	fields := fc.Fields
	numeric := make([]bool, len(fields))
	for i, name := range fields {
		numeric[i] = numericColumn(fc, name)
	}
	if err := w.SetFields(dbfFields(fields, numeric)); err != nil {
		return fmt.Errorf("%w: set fields %s: %v", domain.ErrIO, path, err)
	}

	for _, f := range fc.Features {
		n := int(w.Write(toShape(f.Geometry)))
		for i, name := range fields {
			v, ok := f.Properties[name]
			if !ok || v == nil {
				continue
			}
			if !numeric[i] {
				v = fmt.Sprint(v)
			}
			if err := w.WriteAttribute(n, i, v); err != nil {
				return fmt.Errorf("%w: write %s attribute %s: %v", domain.ErrIO, path, name, err)
			}
		}
	}

	if prj := prjText(fc.CRS); prj != "" {
		prjPath := strings.TrimSuffix(path, ".shp") + ".prj"
		if err := os.WriteFile(prjPath, []byte(prj), 0o644); err != nil {
			return fmt.Errorf("%w: write %s: %v", domain.ErrIO, prjPath, err)
		}
	}
	return nil
}

func layerType(fc domain.FeatureCollection) (shp.ShapeType, error) {
	var t shp.ShapeType
	for i, f := range fc.Features {
		var ft shp.ShapeType
		switch f.Geometry.(type) {
		case orb.Point:
			ft = shp.POINT
		case orb.Polygon, orb.MultiPolygon:
			ft = shp.POLYGON
		default:
			return 0, fmt.Errorf("%w: feature %d: cannot write %T to a shapefile", domain.ErrSchema, i, f.Geometry)
		}
		if t != 0 && ft != t {
			return 0, fmt.Errorf("%w: feature %d mixes geometry types", domain.ErrSchema, i)
		}
		t = ft
	}
	if t == 0 {
		return shp.POINT, nil
	}
	return t, nil
}

func dbfFields(names []string, numeric []bool) []shp.Field {
	out := make([]shp.Field, len(names))
	for i, name := range names {
		short := name
		if len(short) > maxFieldName {
			short = short[:maxFieldName]
		}
		if numeric[i] {
			out[i] = shp.FloatField(short, 18, 6)
		} else {
			out[i] = shp.StringField(short, 254)
		}
	}
	return out
}

func numericColumn(fc domain.FeatureCollection, name string) bool {
	seen := false
	for _, f := range fc.Features {
		switch f.Properties[name].(type) {
		case nil:
		case float64, int:
			seen = true
		default:
			return false
		}
	}
	return seen
}

func toShape(g orb.Geometry) shp.Shape {
	switch g := g.(type) {
	case orb.Point:
		return &shp.Point{X: g[0], Y: g[1]}
	case orb.Polygon:
		return polygonShape(orb.MultiPolygon{g})
	case orb.MultiPolygon:
		return polygonShape(g)
	}
	return &shp.Null{}
}

// polygonShape writes shells clockwise and holes counter-clockwise, the
// winding shapefile readers expect.
func polygonShape(mp orb.MultiPolygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			r := slices.Clone(ring)
			if r.Orientation() != want {
				r.Reverse()
			}
			pts := make([]shp.Point, len(r))
			for j, p := range r {
				pts[j] = shp.Point{X: p[0], Y: p[1]}
			}
			parts = append(parts, pts)
		}
	}
	p := shp.Polygon(*shp.NewPolyLine(parts))
	return &p
}

func prjText(crs domain.CRS) string {
	switch {
	case crs.WKT != "":
		return crs.WKT
	case crs.EPSG == domain.WGS84.EPSG:
		return WGS84PRJ
	}
	return ""
}
