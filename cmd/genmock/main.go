// Command genmock writes a mock set of reference layers and a day of fire
// detections so the pipeline can run without the real Nepal shapefiles or
// network access. District and protected-area shapes are coarse rectangles
// over Nepal's extent; only their names are real.
//
// Usage:
//
//	go run ./cmd/genmock -out resources -fires 120 -date 2025-03-10
//	FIRE_SOURCE_PATH=resources/mock_fires.shp firereport
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"

	"github.com/nepalfire/firereport/internal/adapter/vector"
	"github.com/nepalfire/firereport/internal/config"
	"github.com/nepalfire/firereport/internal/domain"
)

// Nepal's approximate extent in degrees.
const (
	minLon = 80.06
	maxLon = 88.20
	minLat = 26.35
	midLat = 28.40
	maxLat = 30.45
)

var (
	lowlandDistricts = []string{
		"Kanchanpur", "Kailali", "Bardiya", "Banke", "Dang", "Kapilvastu", "Rupandehi", "Nawalparasi",
		"Chitwan", "Parsa", "Bara", "Sarlahi", "Sindhuli", "Udayapur", "Saptari", "Jhapa",
	}
	highlandDistricts = []string{
		"Darchula", "Bajhang", "Humla", "Mugu", "Dolpa", "Mustang", "Manang", "Gorkha",
		"Rasuwa", "Sindhupalchok", "Dolakha", "Solukhumbu", "Sankhuwasabha", "Taplejung", "Ilam", "Panchthar",
	}
)

type protectedArea struct {
	name                   string
	minX, minY, maxX, maxY float64
}

var protectedAreas = []protectedArea{
	{"Shuklaphanta National Park", 80.15, 28.75, 80.40, 28.95},
	{"Bardiya National Park", 81.20, 28.30, 81.70, 28.65},
	{"Chitwan National Park", 84.00, 27.35, 84.75, 27.65},
	{"Sagarmatha National Park", 86.55, 27.80, 86.95, 28.10},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "resources", "directory for the generated layers")
	fires := flag.Int("fires", 120, "number of mock detections")
	date := flag.String("date", time.Now().Format(domain.ArchiveDateLayout), "acquisition date of the detections (YYYY-MM-DD)")
	seed := flag.Uint64("seed", 1, "random seed for reproducible detections")
	flag.Parse()

	day, err := time.Parse(domain.ArchiveDateLayout, *date)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}
	if *fires < 0 {
		return fmt.Errorf("invalid -fires %d", *fires)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	districts := districtLayer()
	layers := []struct {
		file string
		fc   domain.FeatureCollection
	}{
		{config.DistrictsFile, districts},
		{config.DistrictsPlotFile, districts},
		{config.ProtectedAreasFile, protectedAreaLayer()},
		{"mock_fires.shp", fireLayer(*fires, day, rand.New(rand.NewPCG(*seed, *seed)))},
	}
	for _, l := range layers {
		path := filepath.Join(*out, l.file)
		if err := vector.WriteShapefile(path, l.fc); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s (%d features)\n", path, len(l.fc.Features))
	}
	return nil
}

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

// districtLayer tiles Nepal's extent with two rows of rectangles.
func districtLayer() domain.FeatureCollection {
	fc := domain.FeatureCollection{CRS: domain.WGS84, Fields: []string{"DISTRICT"}}
	step := (maxLon - minLon) / float64(len(lowlandDistricts))
	for row, names := range [][]string{lowlandDistricts, highlandDistricts} {
		lo, hi := minLat, midLat
		if row == 1 {
			lo, hi = midLat, maxLat
		}
		for i, name := range names {
			x0 := minLon + float64(i)*step
			fc.Features = append(fc.Features, domain.Feature{
				Geometry:   rect(x0, lo, x0+step, hi),
				Properties: map[string]any{"DISTRICT": name},
			})
		}
	}
	return fc
}

func protectedAreaLayer() domain.FeatureCollection {
	fc := domain.FeatureCollection{CRS: domain.WGS84, Fields: []string{"NAME"}}
	for _, pa := range protectedAreas {
		fc.Features = append(fc.Features, domain.Feature{
			Geometry:   rect(pa.minX, pa.minY, pa.maxX, pa.maxY),
			Properties: map[string]any{"NAME": pa.name},
		})
	}
	return fc
}

// fireLayer scatters detections over a box slightly larger than Nepal, so
// some fall outside every district as they do in the South Asia feed.
func fireLayer(n int, day time.Time, rng *rand.Rand) domain.FeatureCollection {
	fc := domain.FeatureCollection{
		CRS:    domain.WGS84,
		Fields: []string{"LATITUDE", "LONGITUDE", "ACQ_DATE", "ACQ_TIME", "CONFIDENCE"},
	}
	for range n {
		lon := minLon - 0.5 + rng.Float64()*(maxLon-minLon+1)
		lat := minLat - 0.5 + rng.Float64()*(maxLat-minLat+1)
		fc.Features = append(fc.Features, domain.Feature{
			Geometry: orb.Point{lon, lat},
			Properties: map[string]any{
				"LATITUDE":   lat,
				"LONGITUDE":  lon,
				"ACQ_DATE":   day.Format(domain.ArchiveDateLayout),
				"ACQ_TIME":   fmt.Sprintf("%02d%02d", rng.IntN(24), rng.IntN(60)),
				"CONFIDENCE": float64(rng.IntN(101)),
			},
		})
	}
	return fc
}
