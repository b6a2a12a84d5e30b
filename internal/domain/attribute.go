package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Region is a named polygon feature: a district (or ward of one) or a
// protected area.
type Region struct {
	Name     string
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// RegionSet is a polygon layer in one CRS, in dataset order.
type RegionSet struct {
	CRS     CRS
	Regions []Region
}

// AttributedFire pairs a detection with the region that contains it.
type AttributedFire struct {
	Fire     FirePoint
	District string
}

// NewRegionSet builds a polygon layer named by nameField. It fails with
// ErrSchema when the field is not in the schema. An empty nameField builds an
// unnamed layer. Features without polygon geometry are skipped.
func NewRegionSet(fc FeatureCollection, nameField string) (RegionSet, error) {
	if nameField != "" && !fc.HasField(nameField) {
		return RegionSet{}, fmt.Errorf("%w: field %q not in polygon schema %v", ErrSchema, nameField, fc.Fields)
	}

	set := RegionSet{CRS: fc.CRS, Regions: make([]Region, 0, len(fc.Features))}
	for _, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			continue
		}
		if len(mp) == 0 {
			continue
		}
		var name string
		if nameField != "" {
			name = strings.TrimSpace(PropertyString(f.Properties, nameField))
		}
		set.Regions = append(set.Regions, Region{Name: name, Geometry: mp, Bound: mp.Bound()})
	}
	return set, nil
}

// Contains reports whether p lies strictly inside the region: within one of
// its polygons and not on any of their rings.
func (r Region) Contains(p orb.Point) bool {
	if !r.Bound.Contains(p) {
		return false
	}
	for _, poly := range r.Geometry {
		if onPolygonBoundary(poly, p) {
			return false
		}
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}

// Locate returns the first region, in dataset order, that contains p.
func (s RegionSet) Locate(p orb.Point) (Region, bool) {
	for _, r := range s.Regions {
		if r.Contains(p) {
			return r, true
		}
	}
	return Region{}, false
}

// Bound is the union of all region bounds.
func (s RegionSet) Bound() orb.Bound {
	if len(s.Regions) == 0 {
		return orb.Bound{}
	}
	b := s.Regions[0].Bound
	for _, r := range s.Regions[1:] {
		b = b.Union(r.Bound)
	}
	return b
}

// Attribute joins each fire to the region whose interior contains it. Fires
// outside every region are dropped; when regions overlap the first one in
// dataset order wins. Both inputs must already share a CRS.
func Attribute(fires FireSet, districts RegionSet) ([]AttributedFire, error) {
	if !fires.CRS.Equal(districts.CRS) {
		return nil, fmt.Errorf("%w: fires in %s, districts in %s", ErrCRSConversion, fires.CRS, districts.CRS)
	}

	out := make([]AttributedFire, 0)
	for _, f := range fires.Points {
		if r, ok := districts.Locate(f.Location); ok {
			out = append(out, AttributedFire{Fire: f, District: r.Name})
		}
	}
	return out, nil
}

// Within returns the fires that lie inside any region of the layer.
func Within(fires FireSet, layer RegionSet) FireSet {
	out := FireSet{CRS: fires.CRS, Fields: fires.Fields}
	for _, f := range fires.Points {
		if _, ok := layer.Locate(f.Location); ok {
			out.Points = append(out.Points, f)
		}
	}
	return out
}

func onPolygonBoundary(poly orb.Polygon, p orb.Point) bool {
	for _, ring := range poly {
		if onRing(ring, p) {
			return true
		}
	}
	return false
}

// onRing reports whether p lies on any edge of the ring, within a tolerance
// relative to the edge length.
func onRing(ring orb.Ring, p orb.Point) bool {
	n := len(ring)
	if n < 2 {
		return false
	}
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if onSegment(a, b, p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p orb.Point) bool {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a == p
	}
	cross := dx*(p[1]-a[1]) - dy*(p[0]-a[0])
	if math.Abs(cross) > 1e-12*math.Max(1, lenSq) {
		return false
	}
	dot := (p[0]-a[0])*dx + (p[1]-a[1])*dy
	return dot >= 0 && dot <= lenSq
}
