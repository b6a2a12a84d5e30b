package domain

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Tier thresholds for detection confidence. They are absolute and shared by
// every run.
const (
	MediumConfidenceMin = 30
	HighConfidenceMin   = 80

	// CanonicalConfidenceField is the MODIS attribute name.
	CanonicalConfidenceField = "CONFIDENCE"
)

// Representative values for VIIRS confidence classes, one inside each tier.
const (
	ClassLowValue     = 15.0
	ClassNominalValue = 55.0
	ClassHighValue    = 90.0
)

// ConfidenceDistribution counts detections per tier.
type ConfidenceDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// ConfidenceSummary describes the confidence attribute of a FireSet.
type ConfidenceSummary struct {
	Average           int                    `json:"average"`
	Median            int                    `json:"median"`
	HighConfidencePct int                    `json:"high_confidence_pct"`
	Distribution      ConfidenceDistribution `json:"confidence_distribution"`
}

// DefaultConfidenceSummary stands in when the detections carry no confidence
// attribute at all. The figures are a placeholder policy, not measured data.
var DefaultConfidenceSummary = ConfidenceSummary{
	Average:           80,
	Median:            85,
	HighConfidencePct: 70,
	Distribution:      ConfidenceDistribution{Low: 10, Medium: 20, High: 70},
}

// ConfidenceField picks the confidence attribute: CONFIDENCE when present,
// else the first field whose name contains "CONF".
func ConfidenceField(fields []string) (string, bool) {
	if slices.Contains(fields, CanonicalConfidenceField) {
		return CanonicalConfidenceField, true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToUpper(f), "CONF") {
			return f, true
		}
	}
	return "", false
}

// SummarizeConfidence summarizes every detection's confidence. It reports
// the field used, or "" when DefaultConfidenceSummary was returned.
func SummarizeConfidence(fires FireSet) (ConfidenceSummary, string) {
	field, ok := ConfidenceField(fires.Fields)
	if !ok {
		return DefaultConfidenceSummary, ""
	}
	values := make([]float64, 0, len(fires.Points))
	for _, p := range fires.Points {
		if v, ok := ParseConfidence(p.Properties[field]); ok {
			values = append(values, v)
		}
	}
	return SummarizeConfidenceValues(values), field
}

// SummarizeConfidenceValues computes the summary of raw values. An empty
// slice yields the zero summary.
func SummarizeConfidenceValues(values []float64) ConfidenceSummary {
	if len(values) == 0 {
		return ConfidenceSummary{}
	}

	var (
		sum  float64
		dist ConfidenceDistribution
	)
	for _, v := range values {
		sum += v
		switch ConfidenceTier(v) {
		case TierLow:
			dist.Low++
		case TierMedium:
			dist.Medium++
		default:
			dist.High++
		}
	}

	n := float64(len(values))
	return ConfidenceSummary{
		Average:           roundInt(sum / n),
		Median:            roundInt(median(values)),
		HighConfidencePct: roundInt(float64(dist.High) / n * 100),
		Distribution:      dist,
	}
}

// Tier is a fixed confidence bracket.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// ConfidenceTier places v in exactly one tier.
func ConfidenceTier(v float64) Tier {
	switch {
	case v < MediumConfidenceMin:
		return TierLow
	case v < HighConfidenceMin:
		return TierMedium
	default:
		return TierHigh
	}
}

// ParseConfidence reads a confidence attribute value: a number, a numeric
// string or a VIIRS class label.
func ParseConfidence(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "l", "low":
			return ClassLowValue, true
		case "n", "nominal":
			return ClassNominalValue, true
		case "h", "high":
			return ClassHighValue, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	return 0, false
}

// finite rejects NaN and the infinities.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// roundInt rounds half to even, matching how the published figures have
// always been produced.
func roundInt(v float64) int {
	return int(math.RoundToEven(v))
}
