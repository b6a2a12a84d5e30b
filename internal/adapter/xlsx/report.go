// Package xlsx writes and reads the per-district fire count spreadsheet.
package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"github.com/nepalfire/firereport/internal/domain"
)

// SheetName is the worksheet holding the count table.
const SheetName = "Fire Counts"

// Header is the first row of the sheet.
var Header = []any{"S.N.", "District", "Fire Count"}

// Write saves the table as a spreadsheet at path, replacing any existing
// file. The Total row has an empty S.N. cell and is always present.
func Write(path string, table domain.CountTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("%w: xlsx sheet: %v", domain.ErrIO, err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("%w: xlsx header: %v", domain.ErrIO, err)
	}
	for i, r := range table.Rows {
		row := []any{r.Rank, r.District, r.Count}
		if err := f.SetSheetRow(SheetName, cell(i+2), &row); err != nil {
			return fmt.Errorf("%w: xlsx row %d: %v", domain.ErrIO, i+1, err)
		}
	}
	totalRow := len(table.Rows) + 2
	total := []any{"", domain.TotalLabel, table.Total}
	if err := f.SetSheetRow(SheetName, cell(totalRow), &total); err != nil {
		return fmt.Errorf("%w: xlsx total: %v", domain.ErrIO, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%w: xlsx style: %v", domain.ErrIO, err)
	}
	for _, row := range []int{1, totalRow} {
		if err := f.SetCellStyle(SheetName, cell(row), fmt.Sprintf("C%d", row), bold); err != nil {
			return fmt.Errorf("%w: xlsx style: %v", domain.ErrIO, err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 24); err != nil {
		return fmt.Errorf("%w: xlsx column width: %v", domain.ErrIO, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("%w: xlsx encode: %v", domain.ErrIO, err)
	}
	if err := atomic.WriteFile(path, buf); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// Read parses a spreadsheet written by Write. Rows are returned in sheet
// order with their stored ranks; Total is recomputed from the rows. The
// Total row is the one labelled Total with an empty S.N. cell, so districts
// named Total or left unnamed are kept.
func Read(path string) (domain.CountTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.CountTable{}, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	defer f.Close()

	sheet := SheetName
	if idx, _ := f.GetSheetIndex(SheetName); idx < 0 {
		list := f.GetSheetList()
		if len(list) == 0 {
			return domain.CountTable{}, fmt.Errorf("%w: %s has no sheets", domain.ErrIO, path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return domain.CountTable{}, fmt.Errorf("%w: read rows of %s: %v", domain.ErrIO, path, err)
	}

	table := domain.CountTable{Rows: []domain.DistrictCount{}}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		sn, district, fires := column(row, 0), column(row, 1), column(row, 2)
		if sn == "" && (district == domain.TotalLabel || (district == "" && fires == "")) {
			continue
		}
		count, err := strconv.Atoi(fires)
		if err != nil {
			return domain.CountTable{}, fmt.Errorf("%w: %s row %d: bad fire count %q", domain.ErrIO, path, i+1, fires)
		}
		rank, _ := strconv.Atoi(sn)
		table.Rows = append(table.Rows, domain.DistrictCount{Rank: rank, District: district, Count: count})
		table.Total += count
	}
	return table, nil
}

// ReadTotal returns the fire total of a spreadsheet.
func ReadTotal(path string) (int, error) {
	table, err := Read(path)
	if err != nil {
		return 0, err
	}
	return table.Total, nil
}

func cell(row int) string {
	return "A" + strconv.Itoa(row)
}

func column(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
