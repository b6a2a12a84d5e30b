package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Date layouts used by published artifacts.
const (
	DateKeyLayout     = "20060102"
	ArchiveDateLayout = "2006-01-02"
	DisplayDateLayout = "02 January 2006"
	UpdatedLayout     = "02 Jan 2006, 15:04:05"
)

// DateKey is the artifact key for a calendar day.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ArchiveEntry links one historical daily report.
type ArchiveEntry struct {
	Date     string `json:"date"`
	MapURL   string `json:"map_url"`
	PDF      string `json:"pdf"`
	XLSX     string `json:"xlsx"`
	District string `json:"district"`
}

// UpsertArchive replaces the entry with e's date or appends e, then sorts
// newest first. The input slice is not modified.
func UpsertArchive(archive []ArchiveEntry, e ArchiveEntry) []ArchiveEntry {
	out := slices.Clone(archive)
	if i := slices.IndexFunc(out, func(a ArchiveEntry) bool { return a.Date == e.Date }); i >= 0 {
		out[i] = e
	} else {
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b ArchiveEntry) int {
		return cmp.Compare(b.Date, a.Date)
	})
	return out
}

// Weather is the current-conditions block of the snapshot.
type Weather struct {
	Condition   string `json:"condition"`
	Description string `json:"description,omitempty"`
	Temperature int    `json:"temperature"`
	Humidity    int    `json:"humidity"`
	Wind        int    `json:"wind"`
	City        string `json:"city"`
}

// SampleWeather is published when live weather cannot be fetched.
var SampleWeather = Weather{
	Condition:   "Partly Cloudy",
	Temperature: 25,
	Humidity:    65,
	Wind:        12,
	City:        "Kathmandu",
}

// RegionCount is a fire count for one named protected area.
type RegionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ProtectedAreaSummary counts fires inside protected areas.
type ProtectedAreaSummary struct {
	Fires int           `json:"fires"`
	Areas []RegionCount `json:"areas"`
}

// SummarizeProtectedAreas counts fires per protected area. Each fire counts
// once, for the first area containing it.
func SummarizeProtectedAreas(fires FireSet, areas RegionSet) (ProtectedAreaSummary, error) {
	hits, err := Attribute(fires, areas)
	if err != nil {
		return ProtectedAreaSummary{}, err
	}
	table := Aggregate(hits)
	summary := ProtectedAreaSummary{Fires: table.Total, Areas: make([]RegionCount, 0, len(table.Rows))}
	for _, r := range table.Rows {
		summary.Areas = append(summary.Areas, RegionCount{Name: r.District, Count: r.Count})
	}
	return summary, nil
}

// ProtectedAreasUnavailable is the snapshot text when no summary exists.
const ProtectedAreasUnavailable = "Data not available"

// Label renders the summary for the snapshot.
func (s ProtectedAreaSummary) Label() string {
	return fmt.Sprintf("%d fires in %d protected areas", s.Fires, len(s.Areas))
}

// Snapshot is the today.json document read by the website.
type Snapshot struct {
	Date        string         `json:"date"`
	LastUpdated string         `json:"last_updated"`
	MapURL      string         `json:"map_url"`
	Stats       SnapshotStats  `json:"stats"`
	Reports     ReportLinks    `json:"reports"`
	Year        int            `json:"year"`
	Archive     []ArchiveEntry `json:"archive"`
}

// SnapshotStats holds the headline figures.
type SnapshotStats struct {
	TotalFires     int               `json:"total_fires"`
	TopDistrict    string            `json:"top_district"`
	ProtectedAreas string            `json:"protected_areas"`
	Satellite      string            `json:"satellite"`
	FireTrend      Trend             `json:"fire_trend"`
	Weather        Weather           `json:"weather"`
	Confidence     ConfidenceSummary `json:"confidence"`
}

// ReportLinks points at the downloadable reports.
type ReportLinks struct {
	PDF  string `json:"pdf"`
	XLSX string `json:"xlsx"`
}
