// Command validate checks the published website documents against the
// report artifacts they link to: data/today.json and data/archive.json must
// parse, their links must resolve, and the headline figures must agree with
// the day's spreadsheet.
//
// Usage:
//
//	go run ./cmd/validate -root . -data data
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nepalfire/firereport/internal/adapter/xlsx"
	"github.com/nepalfire/firereport/internal/domain"
	"github.com/nepalfire/firereport/internal/reportstore"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	root := flag.String("root", ".", "site root that report links are relative to")
	dataDir := flag.String("data", "data", "directory holding today.json and archive.json, relative to -root")
	flag.Parse()

	os.Exit(run(os.Stdout, *root, filepath.Join(*root, *dataDir)))
}

func run(out io.Writer, root, dataDir string) int {
	fmt.Fprintln(out, "=== Fire Report Publication Validation ===")
	fmt.Fprintln(out)

	var snap domain.Snapshot
	if err := reportstore.ReadJSON(filepath.Join(dataDir, "today.json"), &snap); err != nil {
		fmt.Fprintf(out, "FATAL: load today.json: %v\n", err)
		return 1
	}
	var archive []domain.ArchiveEntry
	if err := reportstore.ReadJSON(filepath.Join(dataDir, "archive.json"), &archive); err != nil {
		fmt.Fprintf(out, "FATAL: load archive.json: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSnapshot(snap),
		validateLinks(root, snap, archive),
		validateFigures(root, snap),
		validateArchive(snap, archive),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}
	fmt.Fprintf(out, "\nSnapshot: %s, %d fires; archive: %d entries\n", snap.Date, snap.Stats.TotalFires, len(archive))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateSnapshot(s domain.Snapshot) *phase {
	p := &phase{name: "Snapshot schema"}

	if _, err := time.Parse(domain.DisplayDateLayout, s.Date); err != nil {
		p.errorf("date %q is not in %q form", s.Date, domain.DisplayDateLayout)
	}
	if _, err := time.Parse(domain.UpdatedLayout, s.LastUpdated); err != nil {
		p.errorf("last_updated %q is not in %q form", s.LastUpdated, domain.UpdatedLayout)
	}
	if s.Stats.TotalFires < 0 {
		p.errorf("total_fires is negative: %d", s.Stats.TotalFires)
	}
	switch s.Stats.FireTrend.Direction {
	case domain.DirectionUp, domain.DirectionDown, domain.DirectionSame:
	default:
		p.errorf("fire_trend.direction %q is not up, down or same", s.Stats.FireTrend.Direction)
	}
	if s.Stats.FireTrend.Change < 0 {
		p.errorf("fire_trend.change is negative: %d", s.Stats.FireTrend.Change)
	}
	if c := s.Stats.Confidence.HighConfidencePct; c < 0 || c > 100 {
		p.errorf("confidence.high_confidence_pct out of range: %d", c)
	}
	if s.Stats.Weather.Condition == "" {
		p.errorf("weather.condition is empty")
	}
	if s.Archive == nil {
		p.errorf("archive must be an array")
	}
	return p
}

func validateLinks(root string, s domain.Snapshot, archive []domain.ArchiveEntry) *phase {
	p := &phase{name: "Artifact links"}
	check := func(owner, link string) {
		if link == "" {
			p.errorf("%s: empty link", owner)
			return
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(link))); err != nil {
			p.errorf("%s: %s does not exist", owner, link)
		}
	}

	check("map_url", s.MapURL)
	check("reports.pdf", s.Reports.PDF)
	check("reports.xlsx", s.Reports.XLSX)
	for _, e := range archive {
		check("archive "+e.Date+" map_url", e.MapURL)
		check("archive "+e.Date+" pdf", e.PDF)
		check("archive "+e.Date+" xlsx", e.XLSX)
	}
	return p
}

func validateFigures(root string, s domain.Snapshot) *phase {
	p := &phase{name: "Headline figures"}

	table, err := xlsx.Read(filepath.Join(root, filepath.FromSlash(s.Reports.XLSX)))
	if err != nil {
		p.errorf("read spreadsheet: %v", err)
		return p
	}
	if table.Total != s.Stats.TotalFires {
		p.errorf("total_fires %d, spreadsheet total %d", s.Stats.TotalFires, table.Total)
	}
	if want := table.TopDistrictLabel(); want != s.Stats.TopDistrict {
		p.errorf("top_district %q, spreadsheet says %q", s.Stats.TopDistrict, want)
	}
	return p
}

func validateArchive(s domain.Snapshot, archive []domain.ArchiveEntry) *phase {
	p := &phase{name: "Archive ordering"}

	seen := make(map[string]bool, len(archive))
	for i, e := range archive {
		if _, err := time.Parse(domain.ArchiveDateLayout, e.Date); err != nil {
			p.errorf("entry %d: date %q is not YYYY-MM-DD", i, e.Date)
		}
		if seen[e.Date] {
			p.errorf("entry %d: duplicate date %s", i, e.Date)
		}
		seen[e.Date] = true
	}
	if !slices.IsSortedFunc(archive, func(a, b domain.ArchiveEntry) int {
		switch {
		case a.Date > b.Date:
			return -1
		case a.Date < b.Date:
			return 1
		}
		return 0
	}) {
		p.errorf("entries are not sorted newest first")
	}

	day, err := time.Parse(domain.DisplayDateLayout, s.Date)
	if err == nil && !seen[day.Format(domain.ArchiveDateLayout)] {
		p.errorf("no archive entry for the snapshot date %s", s.Date)
	}
	return p
}
