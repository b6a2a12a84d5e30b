package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confidenceFires(field string, values ...any) FireSet {
	set := FireSet{CRS: WGS84, Fields: []string{"LATITUDE", field}}
	for i, v := range values {
		set.Points = append(set.Points, FirePoint{Index: i, Properties: map[string]any{field: v}})
	}
	return set
}

func TestConfidenceTier(t *testing.T) {
	tests := []struct {
		value float64
		want  Tier
	}{
		{0, TierLow},
		{29.9, TierLow},
		{30, TierMedium},
		{79.99, TierMedium},
		{80, TierHigh},
		{100, TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceTier(tt.value), "value %v", tt.value)
	}
}

func TestSummarizeConfidence_Numeric(t *testing.T) {
	fires := confidenceFires(CanonicalConfidenceField, 20.0, 50.0, 85.0, 95.0)

	summary, field := SummarizeConfidence(fires)

	assert.Equal(t, CanonicalConfidenceField, field)
	assert.Equal(t, ConfidenceSummary{
		Average:           62,
		Median:            68,
		HighConfidencePct: 50,
		Distribution:      ConfidenceDistribution{Low: 1, Medium: 1, High: 2},
	}, summary)
}

func TestSummarizeConfidence_DistributionCoversEveryValue(t *testing.T) {
	fires := confidenceFires(CanonicalConfidenceField, 5, 30, 31, 79, 80, 81, 100, "42")

	summary, _ := SummarizeConfidence(fires)
	d := summary.Distribution

	assert.Equal(t, len(fires.Points), d.Low+d.Medium+d.High)
}

func TestSummarizeConfidence_SkipsNonFinite(t *testing.T) {
	fires := confidenceFires(CanonicalConfidenceField, "Inf", 50.0, math.Inf(-1))

	summary, _ := SummarizeConfidence(fires)

	assert.Equal(t, ConfidenceSummary{
		Average:           50,
		Median:            50,
		HighConfidencePct: 0,
		Distribution:      ConfidenceDistribution{Medium: 1},
	}, summary)
}

func TestSummarizeConfidence_FallbackField(t *testing.T) {
	fires := confidenceFires("conf_pct", "90", "70")

	summary, field := SummarizeConfidence(fires)

	assert.Equal(t, "conf_pct", field)
	assert.Equal(t, 80, summary.Average)
	assert.Equal(t, 50, summary.HighConfidencePct)
}

func TestSummarizeConfidence_NoFieldUsesDefault(t *testing.T) {
	fires := FireSet{Fields: []string{"LATITUDE", "BRIGHTNESS"}, Points: []FirePoint{{}}}

	summary, field := SummarizeConfidence(fires)

	assert.Empty(t, field)
	assert.Equal(t, DefaultConfidenceSummary, summary)
}

func TestSummarizeConfidence_CategoricalLabels(t *testing.T) {
	fires := confidenceFires("confidence", "l", "n", "h", "h")

	summary, field := SummarizeConfidence(fires)

	assert.Equal(t, "confidence", field)
	assert.Equal(t, ConfidenceDistribution{Low: 1, Medium: 1, High: 2}, summary.Distribution)
	assert.Equal(t, 50, summary.HighConfidencePct)
}

func TestSummarizeConfidence_SkipsUnparseable(t *testing.T) {
	fires := confidenceFires(CanonicalConfidenceField, "n/a", nil, 60.0)

	summary, _ := SummarizeConfidence(fires)

	assert.Equal(t, 60, summary.Average)
	assert.Equal(t, ConfidenceDistribution{Medium: 1}, summary.Distribution)
}

func TestSummarizeConfidenceValues_Empty(t *testing.T) {
	assert.Equal(t, ConfidenceSummary{}, SummarizeConfidenceValues(nil))
}

func TestSummarizeConfidenceValues_RoundsHalfToEven(t *testing.T) {
	// average 82.5, median 82.5
	summary := SummarizeConfidenceValues([]float64{80, 85})

	assert.Equal(t, 82, summary.Average)
	assert.Equal(t, 82, summary.Median)
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{72.0, 72, true},
		{int64(40), 40, true},
		{" 55 ", 55, true},
		{"HIGH", ClassHighValue, true},
		{"nominal", ClassNominalValue, true},
		{"x", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{"Inf", 0, false},
		{"-infinity", 0, false},
		{"NaN", 0, false},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
		{float32(math.Inf(-1)), 0, false},
		{float32(math.NaN()), 0, false},
		{float32(62.5), 62.5, true},
	}
	for _, tt := range tests {
		got, ok := ParseConfidence(tt.in)
		require.Equal(t, tt.ok, ok, "input %#v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %#v", tt.in)
	}
}
