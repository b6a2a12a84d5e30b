package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifies the coordinate reference system of a collection.
type CRS struct {
	EPSG int    // 0 when the system could not be identified
	WKT  string // definition text from a .prj sidecar, if any
}

// Well-known systems the normalizer can convert between.
var (
	WGS84       = CRS{EPSG: 4326}
	WebMercator = CRS{EPSG: 3857}
)

var (
	// epsgCodeRe matches "EPSG:4326", "EPSG::4326" and the tail of OGC URNs.
	epsgCodeRe = regexp.MustCompile(`(?i)EPSG:{1,2}(\d+)$`)

	// wktAuthorityRe matches the outermost AUTHORITY clause at the end of a WKT string.
	wktAuthorityRe = regexp.MustCompile(`AUTHORITY\["EPSG","(\d+)"\]\]\s*$`)
)

// IsZero reports whether nothing at all is known about the system.
func (c CRS) IsZero() bool {
	return c.EPSG == 0 && c.WKT == ""
}

func (c CRS) String() string {
	switch {
	case c.EPSG != 0:
		return "EPSG:" + strconv.Itoa(c.EPSG)
	case c.WKT != "":
		name := c.WKT
		if len(name) > 48 {
			name = name[:48] + "..."
		}
		return "WKT(" + name + ")"
	default:
		return "unspecified"
	}
}

// Equal compares by EPSG code when both sides have one, otherwise by WKT
// text. Two unspecified systems are equal: both collections are taken to
// share whatever frame their producer used.
func (c CRS) Equal(o CRS) bool {
	if c.EPSG != 0 && o.EPSG != 0 {
		return c.EPSG == o.EPSG
	}
	if c.EPSG != 0 || o.EPSG != 0 {
		return false
	}
	return normalizeWKT(c.WKT) == normalizeWKT(o.WKT)
}

// ParseCRSName reads a CRS name as found in a GeoJSON "crs" member or a
// config value.
func ParseCRSName(name string) CRS {
	name = strings.TrimSpace(name)
	if name == "" {
		return CRS{}
	}
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return WGS84
	}
	m := epsgCodeRe.FindStringSubmatch(name)
	if m == nil {
		return CRS{}
	}
	code, _ := strconv.Atoi(m[1])
	return CRS{EPSG: canonicalEPSG(code)}
}

// ParseWKT identifies a CRS from ESRI or OGC WKT text. Systems other than
// WGS 84 and Web Mercator keep their WKT but no EPSG code.
func ParseWKT(wkt string) CRS {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return CRS{}
	}
	if m := wktAuthorityRe.FindStringSubmatch(wkt); m != nil {
		code, _ := strconv.Atoi(m[1])
		return CRS{EPSG: canonicalEPSG(code), WKT: wkt}
	}

	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(upper, "PROJCS"):
		if strings.Contains(upper, "MERCATOR_AUXILIARY_SPHERE") ||
			strings.Contains(upper, "PSEUDO_MERCATOR") ||
			strings.Contains(upper, "PSEUDO-MERCATOR") ||
			strings.Contains(upper, "POPULAR VISUALISATION") {
			return CRS{EPSG: 3857, WKT: wkt}
		}
		return CRS{WKT: wkt}
	case strings.HasPrefix(upper, "GEOGCS"):
		if strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84") {
			return CRS{EPSG: 4326, WKT: wkt}
		}
	}
	return CRS{WKT: wkt}
}

// canonicalEPSG folds legacy aliases of Web Mercator onto 3857.
func canonicalEPSG(code int) int {
	switch code {
	case 900913, 102100, 102113, 3785:
		return 3857
	}
	return code
}

func normalizeWKT(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "")
}

// Normalize expresses other in reference's CRS. It returns other unchanged
// when the systems already match and ErrCRSConversion when no transform
// between them is known.
func Normalize(reference CRS, other FeatureCollection) (FeatureCollection, error) {
	if other.CRS.Equal(reference) {
		return other, nil
	}
	proj, err := projection(other.CRS, reference)
	if err != nil {
		return FeatureCollection{}, err
	}

	out := FeatureCollection{
		CRS:      reference,
		Fields:   other.Fields,
		Features: make([]Feature, len(other.Features)),
	}
	for i, f := range other.Features {
		out.Features[i] = Feature{Properties: f.Properties}
		if f.Geometry != nil {
			// project.Geometry works in place; the input collection stays untouched.
			out.Features[i].Geometry = project.Geometry(orb.Clone(f.Geometry), proj)
		}
	}
	return out, nil
}

func projection(from, to CRS) (orb.Projection, error) {
	switch {
	case from.EPSG == 4326 && to.EPSG == 3857:
		return project.WGS84.ToMercator, nil
	case from.EPSG == 3857 && to.EPSG == 4326:
		return project.Mercator.ToWGS84, nil
	}
	return nil, fmt.Errorf("%w: no transform from %s to %s", ErrCRSConversion, from, to)
}
