package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Feature is one geometry with its attribute values.
type Feature struct {
	Geometry   orb.Geometry
	Properties map[string]any
}

// FeatureCollection is a set of features sharing one CRS. Fields is the
// attribute schema in source order.
type FeatureCollection struct {
	CRS      CRS
	Fields   []string
	Features []Feature
}

// HasField reports whether name is part of the attribute schema.
func (fc FeatureCollection) HasField(name string) bool {
	return slices.Contains(fc.Fields, name)
}

// Bound returns the bounding box of all non-nil geometries.
func (fc FeatureCollection) Bound() orb.Bound {
	var (
		b     orb.Bound
		found bool
	)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if !found {
			b = f.Geometry.Bound()
			found = true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b
}

// FirePoint is a single satellite detection.
type FirePoint struct {
	Index      int
	Location   orb.Point
	DetectedAt time.Time // zero when ACQ_DATE is missing or malformed
	Properties map[string]any
}

// FireSet is every detection loaded for one run.
type FireSet struct {
	CRS    CRS
	Fields []string
	Points []FirePoint
}

// NewFireSet converts a point collection into detections. Single-member
// multipoints are accepted because some shapefile exports write them.
func NewFireSet(fc FeatureCollection) (FireSet, error) {
	set := FireSet{
		CRS:    fc.CRS,
		Fields: fc.Fields,
		Points: make([]FirePoint, 0, len(fc.Features)),
	}
	for i, f := range fc.Features {
		var pt orb.Point
		switch g := f.Geometry.(type) {
		case orb.Point:
			pt = g
		case orb.MultiPoint:
			if len(g) != 1 {
				return FireSet{}, fmt.Errorf("%w: feature %d is a multipoint with %d members", ErrSchema, i, len(g))
			}
			pt = g[0]
		case nil:
			continue
		default:
			return FireSet{}, fmt.Errorf("%w: feature %d has %s geometry, want Point", ErrSchema, i, g.GeoJSONType())
		}
		set.Points = append(set.Points, FirePoint{
			Index:      i,
			Location:   pt,
			DetectedAt: parseAcquisition(f.Properties),
			Properties: f.Properties,
		})
	}
	return set, nil
}

// DetectionWindow returns the earliest and latest detection times. ok is
// false when no point carries a timestamp.
func (s FireSet) DetectionWindow() (earliest, latest time.Time, ok bool) {
	for _, p := range s.Points {
		if p.DetectedAt.IsZero() {
			continue
		}
		if !ok || p.DetectedAt.Before(earliest) {
			earliest = p.DetectedAt
		}
		if !ok || p.DetectedAt.After(latest) {
			latest = p.DetectedAt
		}
		ok = true
	}
	return earliest, latest, ok
}

// parseAcquisition combines ACQ_DATE and ACQ_TIME into a UTC timestamp.
func parseAcquisition(props map[string]any) time.Time {
	date := strings.TrimSpace(PropertyString(props, "ACQ_DATE"))
	if date == "" {
		return time.Time{}
	}
	var day time.Time
	for _, layout := range []string{"2006-01-02", "20060102", "2006/01/02"} {
		if t, err := time.Parse(layout, date); err == nil {
			day = t
			break
		}
	}
	if day.IsZero() {
		return time.Time{}
	}

	hhmm := strings.TrimSpace(PropertyString(props, "ACQ_TIME"))
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}
	if len(hhmm) != 4 {
		return day
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour > 23 || mins > 59 || hour < 0 || mins < 0 {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, mins, 0, 0, time.UTC)
}

// PropertyString renders an attribute value as text. Missing keys and nil
// values yield "".
func PropertyString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
