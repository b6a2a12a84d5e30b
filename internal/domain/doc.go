// Package domain models NASA FIRMS active-fire detections and the Nepal
// district boundaries they are attributed to.
//
// # Data Source
//
// Fire detections come from the Fire Information for Resource Management
// System (FIRMS), https://firms.modaps.eosdis.nasa.gov/active_fire/. The daily
// run downloads the MODIS Collection 6.1 "South Asia 24h" shapefile archive,
// which covers far more than Nepal; attribution to district polygons is what
// restricts the report to the country.
//
// # FIRMS Attribute Conventions
//
// Location:
//
//	Point geometry in the archive's CRS (normally EPSG:4326, lon/lat).
//
// Detection time:
//
//	ACQ_DATE is the UTC acquisition date, "2006-01-02" in GeoJSON exports and
//	"20060102" when read from a DBF date column. ACQ_TIME is HHMM in UTC,
//	e.g. "0745". Three-digit values are zero-padded.
//
// Confidence:
//
//	MODIS reports CONFIDENCE as an integer 0-100. VIIRS products report a
//	class instead: "l" (low), "n" (nominal) or "h" (high). Classes map to
//	representative values inside their tier so that one summary covers both.
//	Exports sometimes rename the column, so any field containing "CONF" is
//	accepted when CONFIDENCE itself is absent.
//
// Confidence tiers:
//
//	low <30 | medium 30-79 | high >=80
//
// These thresholds are fixed and do not vary between runs.
//
// # District Boundaries
//
// The district layer may hold one polygon per ward, so several features can
// carry the same district name. A fire belongs to the first feature, in
// dataset order, whose interior contains it; points on a boundary line belong
// to no feature.
package domain
