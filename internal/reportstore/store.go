// Package reportstore owns the on-disk layout of daily artifacts and the
// website JSON documents.
package reportstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/nepalfire/firereport/internal/domain"
)

const (
	reportPrefix = "nepal_daily_fire_report_"
	mapPrefix    = "nepal_daily_fire_map_"

	todayFile   = "today.json"
	archiveFile = "archive.json"
)

// Paths are the artifact locations for one date key.
type Paths struct {
	Key        string
	XLSX       string
	PDF        string
	Map        string
	Confidence string
	Protected  string
}

// Store resolves and reads/writes artifacts under an output dir and a data
// dir.
type Store struct {
	outputDir string
	dataDir   string
}

// New creates a store. Directories are created by EnsureDirs.
func New(outputDir, dataDir string) *Store {
	return &Store{outputDir: outputDir, dataDir: dataDir}
}

// OutputDir returns the artifact directory.
func (s *Store) OutputDir() string { return s.outputDir }

// DataDir returns the website JSON directory.
func (s *Store) DataDir() string { return s.dataDir }

// EnsureDirs creates the output and data directories.
func (s *Store) EnsureDirs() error {
	for _, dir := range []string{s.outputDir, s.dataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", domain.ErrIO, dir, err)
		}
	}
	return nil
}

// PathsFor returns the artifact paths for day.
func (s *Store) PathsFor(day time.Time) Paths {
	key := domain.DateKey(day)
	return Paths{
		Key:        key,
		XLSX:       filepath.Join(s.outputDir, reportPrefix+key+".xlsx"),
		PDF:        filepath.Join(s.outputDir, reportPrefix+key+".pdf"),
		Map:        filepath.Join(s.outputDir, mapPrefix+key+".png"),
		Confidence: filepath.Join(s.outputDir, "fire_confidence_"+key+".json"),
		Protected:  filepath.Join(s.outputDir, "fire_protected_areas_"+key+".json"),
	}
}

// URL returns the site-relative link of an artifact, e.g.
// "fire_reports/nepal_daily_fire_map_20250301.png".
func (s *Store) URL(artifact string) string {
	return path.Join(filepath.Base(s.outputDir), filepath.Base(artifact))
}

// TodayPath is the snapshot document location.
func (s *Store) TodayPath() string { return filepath.Join(s.dataDir, todayFile) }

// ArchivePath is the archive document location.
func (s *Store) ArchivePath() string { return filepath.Join(s.dataDir, archiveFile) }

// RequireReport checks that the map, spreadsheet and PDF for day exist.
func (s *Store) RequireReport(day time.Time) (Paths, error) {
	p := s.PathsFor(day)
	var missing []string
	for _, f := range []string{p.Map, p.XLSX, p.PDF} {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, filepath.Base(f))
		}
	}
	if len(missing) > 0 {
		return p, fmt.Errorf("%w: %s", domain.ErrDataAbsent, strings.Join(missing, ", "))
	}
	return p, nil
}

// ReportKeys lists the date keys of every spreadsheet in the output dir,
// newest first.
func (s *Store) ReportKeys() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.outputDir, reportPrefix+"*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %v", domain.ErrIO, err)
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), reportPrefix), ".xlsx")
		if _, err := time.Parse(domain.DateKeyLayout, key); err == nil {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys, nil
}

// PriorReport finds the spreadsheet to compare day against: the previous
// calendar day when present, else the newest one dated before day.
func (s *Store) PriorReport(day time.Time) (string, bool, error) {
	yesterday := s.PathsFor(day.AddDate(0, 0, -1)).XLSX
	if _, err := os.Stat(yesterday); err == nil {
		return yesterday, true, nil
	}

	keys, err := s.ReportKeys()
	if err != nil {
		return "", false, err
	}
	today := domain.DateKey(day)
	for _, k := range keys {
		if k < today {
			return filepath.Join(s.outputDir, reportPrefix+k+".xlsx"), true, nil
		}
	}
	return "", false, nil
}

// WriteJSON atomically replaces file with the indented JSON of v.
func WriteJSON(file string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrIO, filepath.Base(file), err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(file, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, file, err)
	}
	return nil
}

// ReadJSON decodes file into v. A missing file wraps os.ErrNotExist.
func ReadJSON(file string, v any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrIO, file, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrIO, file, err)
	}
	return nil
}

// WriteConfidence persists the confidence summary for day.
func (s *Store) WriteConfidence(day time.Time, c domain.ConfidenceSummary) error {
	return WriteJSON(s.PathsFor(day).Confidence, c)
}

// ReadConfidence loads the confidence summary for day. ok is false when no
// summary was written.
func (s *Store) ReadConfidence(day time.Time) (c domain.ConfidenceSummary, ok bool, err error) {
	err = ReadJSON(s.PathsFor(day).Confidence, &c)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ConfidenceSummary{}, false, nil
	}
	return c, err == nil, err
}

// WriteProtectedAreas persists the protected-area summary for day.
func (s *Store) WriteProtectedAreas(day time.Time, p domain.ProtectedAreaSummary) error {
	return WriteJSON(s.PathsFor(day).Protected, p)
}

// ReadProtectedAreas loads the protected-area summary for day.
func (s *Store) ReadProtectedAreas(day time.Time) (p domain.ProtectedAreaSummary, ok bool, err error) {
	err = ReadJSON(s.PathsFor(day).Protected, &p)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ProtectedAreaSummary{}, false, nil
	}
	return p, err == nil, err
}

// WriteSnapshot replaces today.json.
func (s *Store) WriteSnapshot(snap domain.Snapshot) error {
	if snap.Archive == nil {
		snap.Archive = []domain.ArchiveEntry{}
	}
	return WriteJSON(s.TodayPath(), snap)
}

// ReadSnapshot loads today.json.
func (s *Store) ReadSnapshot() (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := ReadJSON(s.TodayPath(), &snap)
	return snap, err
}

// ReadArchive loads archive.json. A missing file is an empty archive; a
// corrupt one is reported with an empty archive so callers can start over.
func (s *Store) ReadArchive() ([]domain.ArchiveEntry, error) {
	var entries []domain.ArchiveEntry
	err := ReadJSON(s.ArchivePath(), &entries)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return []domain.ArchiveEntry{}, nil
	case err != nil:
		return []domain.ArchiveEntry{}, err
	case entries == nil:
		return []domain.ArchiveEntry{}, nil
	}
	return entries, nil
}

// WriteArchive replaces archive.json.
func (s *Store) WriteArchive(entries []domain.ArchiveEntry) error {
	if entries == nil {
		entries = []domain.ArchiveEntry{}
	}
	return WriteJSON(s.ArchivePath(), entries)
}

// CheckReadiness reports whether a snapshot has been published and is
// readable.
func (s *Store) CheckReadiness(_ context.Context) error {
	if _, err := s.ReadSnapshot(); err != nil {
		return fmt.Errorf("no published snapshot: %w", err)
	}
	return nil
}
