package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// TotalLabel names the synthetic sum row of a count table.
const TotalLabel = "Total"

// DistrictCount is one ranked row of the daily table.
type DistrictCount struct {
	Rank     int
	District string
	Count    int
}

// CountTable is the ranked per-district table plus its Total row.
type CountTable struct {
	Rows  []DistrictCount
	Total int
}

// Aggregate groups attributed fires by district and ranks the groups by
// count. Groups with equal counts keep the order in which they were first
// encountered. Empty input yields zero rows and Total 0.
func Aggregate(fires []AttributedFire) CountTable {
	index := make(map[string]int)
	rows := make([]DistrictCount, 0)
	for _, f := range fires {
		i, ok := index[f.District]
		if !ok {
			i = len(rows)
			index[f.District] = i
			rows = append(rows, DistrictCount{District: f.District})
		}
		rows[i].Count++
	}
	return NewCountTable(rows)
}

// NewCountTable ranks rows by count, descending and stable, assigns 1-based
// ranks and computes the Total. Input ranks are ignored.
func NewCountTable(rows []DistrictCount) CountTable {
	ranked := slices.Clone(rows)
	if ranked == nil {
		ranked = []DistrictCount{}
	}
	slices.SortStableFunc(ranked, func(a, b DistrictCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	total := 0
	for i := range ranked {
		ranked[i].Rank = i + 1
		total += ranked[i].Count
	}
	return CountTable{Rows: ranked, Total: total}
}

// Top returns the highest-ranked district row.
func (t CountTable) Top() (DistrictCount, bool) {
	ranked := NewCountTable(t.Rows)
	if len(ranked.Rows) == 0 {
		return DistrictCount{}, false
	}
	return ranked.Rows[0], true
}

// TopDistrictLabel formats the leading district for the website, e.g.
// "Kailali (12 fires)".
func (t CountTable) TopDistrictLabel() string {
	top, ok := t.Top()
	if !ok {
		return "None (0 fires)"
	}
	return fmt.Sprintf("%s (%d fires)", top.District, top.Count)
}

// TopDistrictName is the archive form of the label: the name alone, or
// "None".
func (t CountTable) TopDistrictName() string {
	top, ok := t.Top()
	if !ok {
		return "None"
	}
	return top.District
}
