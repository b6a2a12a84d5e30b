package vector

import (
	"fmt"
	"os"
	"slices"

	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"

	"github.com/nepalfire/firereport/internal/domain"
)

// LoadGeoJSON reads a GeoJSON FeatureCollection. The CRS comes from the
// legacy "crs" member when present and defaults to WGS 84.
func LoadGeoJSON(path string) (domain.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: read %s: %v", domain.ErrIO, path, err)
	}
	return DecodeGeoJSON(data)
}

// DecodeGeoJSON parses GeoJSON bytes. Fields is the sorted union of all
// property keys.
func DecodeGeoJSON(data []byte) (domain.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: decode geojson: %v", domain.ErrIO, err)
	}

	crs := domain.WGS84
	if name := gjson.GetBytes(data, "crs.properties.name"); name.Exists() {
		crs = domain.ParseCRSName(name.String())
	}

	out := domain.FeatureCollection{
		CRS:      crs,
		Features: make([]domain.Feature, 0, len(fc.Features)),
	}
	seen := make(map[string]bool)
	for _, f := range fc.Features {
		props := map[string]any(f.Properties)
		if props == nil {
			props = map[string]any{}
		}
		for k := range props {
			if !seen[k] {
				seen[k] = true
				out.Fields = append(out.Fields, k)
			}
		}
		out.Features = append(out.Features, domain.Feature{Geometry: f.Geometry, Properties: props})
	}
	slices.Sort(out.Fields)
	return out, nil
}

// EncodeGeoJSON renders a collection as a GeoJSON FeatureCollection.
func EncodeGeoJSON(fc domain.FeatureCollection) ([]byte, error) {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		gf := geojson.NewFeature(f.Geometry)
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		out.Append(gf)
	}
	if fc.CRS.EPSG != 0 && fc.CRS.EPSG != domain.WGS84.EPSG {
		out.ExtraMembers = geojson.Properties{
			"crs": map[string]any{
				"type":       "name",
				"properties": map[string]any{"name": fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", fc.CRS.EPSG)},
			},
		}
	}
	return out.MarshalJSON()
}
