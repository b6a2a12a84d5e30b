package vector

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/nepalfire/firereport/internal/domain"
)

// LoadShapefile reads a .shp layer with its .dbf attributes. The CRS is read
// from the .prj sidecar; without one the CRS is left unspecified.
func LoadShapefile(path string) (domain.FeatureCollection, error) {
	r, err := shp.Open(path)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: open shapefile %s: %v", domain.ErrIO, path, err)
	}
	defer r.Close()

	crs, err := readPRJ(path)
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	fields := r.Fields()
	out := domain.FeatureCollection{CRS: crs, Fields: make([]string, len(fields))}
	for i, f := range fields {
		out.Fields[i] = fieldName(f)
	}

	for r.Next() {
		n, shape := r.Shape()
		props := make(map[string]any, len(fields))
		for i, f := range fields {
			props[out.Fields[i]] = attributeValue(f, r.ReadAttribute(n, i))
		}
		out.Features = append(out.Features, domain.Feature{
			Geometry:   toGeometry(shape),
			Properties: props,
		})
	}
	if err := r.Err(); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: read shapefile %s: %v", domain.ErrIO, path, err)
	}
	return out, nil
}

func readPRJ(shpPath string) (domain.CRS, error) {
	prj := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	if strings.HasSuffix(shpPath, ".SHP") {
		prj = strings.TrimSuffix(shpPath, ".SHP") + ".PRJ"
	}
	data, err := os.ReadFile(prj)
	if errors.Is(err, os.ErrNotExist) {
		return domain.CRS{}, nil
	}
	if err != nil {
		return domain.CRS{}, fmt.Errorf("%w: read %s: %v", domain.ErrIO, prj, err)
	}
	return domain.ParseWKT(string(data)), nil
}

func fieldName(f shp.Field) string {
	return strings.TrimRight(f.String(), "\x00 ")
}

// attributeValue converts a raw DBF value. Numeric columns become float64,
// blank values nil and everything else a trimmed string.
func attributeValue(f shp.Field, raw string) any {
	s := strings.TrimSpace(strings.Trim(raw, "\x00"))
	if s == "" {
		return nil
	}
	switch f.Fieldtype {
	case 'N', 'F':
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return s
}

func toGeometry(s shp.Shape) orb.Geometry {
	switch g := s.(type) {
	case *shp.Point:
		return orb.Point{g.X, g.Y}
	case *shp.PointZ:
		return orb.Point{g.X, g.Y}
	case *shp.PointM:
		return orb.Point{g.X, g.Y}
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, len(g.Points))
		for i, p := range g.Points {
			mp[i] = orb.Point{p.X, p.Y}
		}
		return mp
	case *shp.Polygon:
		return polygonFromParts(g.Parts, g.Points)
	case *shp.PolygonZ:
		return polygonFromParts(g.Parts, g.Points)
	case *shp.PolygonM:
		return polygonFromParts(g.Parts, g.Points)
	}
	return nil
}

// polygonFromParts groups shapefile rings into polygons. Clockwise rings are
// shells; counter-clockwise rings are holes of the shell that contains them.
func polygonFromParts(parts []int32, points []shp.Point) orb.Geometry {
	var shells []orb.Polygon
	var holes []orb.Ring
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 4 {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if ring.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		shells = append(shells, orb.Polygon{ring})
	}

	for _, h := range holes {
		placed := false
		for i := range shells {
			if planar.RingContains(shells[i][0], h[0]) {
				shells[i] = append(shells[i], h)
				placed = true
				break
			}
		}
		if !placed {
			// A lone counter-clockwise ring is a shell written with the wrong winding.
			rev := make(orb.Ring, len(h))
			for i := range h {
				rev[len(h)-1-i] = h[i]
			}
			shells = append(shells, orb.Polygon{rev})
		}
	}

	switch len(shells) {
	case 0:
		return nil
	case 1:
		return shells[0]
	default:
		return orb.MultiPolygon(shells)
	}
}
