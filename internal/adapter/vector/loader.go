// Package vector reads GeoJSON and ESRI Shapefile layers into
// domain.FeatureCollection values.
package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nepalfire/firereport/internal/domain"
)

// Load reads a layer, choosing the format by file extension.
func Load(path string) (domain.FeatureCollection, error) {
	if _, err := os.Stat(path); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%w: open layer %s: %v", domain.ErrIO, path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		return LoadGeoJSON(path)
	case ".shp":
		return LoadShapefile(path)
	default:
		return domain.FeatureCollection{}, fmt.Errorf("%w: unsupported layer format %q", domain.ErrIO, ext)
	}
}

// Exists reports whether a layer file is present.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
