package domain

import "math"

// Direction tags the sign of a day-over-day change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// Trend is the percentage change of the fire total against the prior report.
type Trend struct {
	Change    int       `json:"change"`
	Direction Direction `json:"direction"`
}

// NoTrend is reported when there is no prior report to compare against.
var NoTrend = Trend{Change: 0, Direction: DirectionSame}

// CalculateTrend compares today's total with the prior total. A prior total
// of zero reports a flat 100% rise when today has fires.
func CalculateTrend(today, prior int) Trend {
	if prior == 0 {
		if today > 0 {
			return Trend{Change: 100, Direction: DirectionUp}
		}
		return NoTrend
	}

	pct := float64(today-prior) / float64(prior) * 100
	dir := DirectionSame
	switch {
	case pct > 0:
		dir = DirectionUp
	case pct < 0:
		dir = DirectionDown
	}
	return Trend{Change: int(math.Abs(float64(roundInt(pct)))), Direction: dir}
}
