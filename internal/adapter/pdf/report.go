// Package pdf renders the two-page daily fire report.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/natefinch/atomic"

	"github.com/nepalfire/firereport/internal/domain"
)

// SourceURL is cited under the narrative.
const SourceURL = "https://firms.modaps.eosdis.nasa.gov/active_fire/"

// Report is the content of one daily PDF.
type Report struct {
	Date       time.Time
	AssessedAt time.Time
	Satellite  string
	MapPath    string // PNG; omitted from the page when empty
	Table      domain.CountTable
}

const (
	pageMargin   = 20.0
	contentWidth = 210.0 - 2*pageMargin
	lineHeight   = 6.0
)

// WriteFile renders the report and atomically replaces path with it.
func WriteFile(path string, r Report) error {
	var buf bytes.Buffer
	if err := Render(&buf, r); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// Render writes the PDF to buf. Page one has the narrative and the map, page
// two the district table.
func Render(buf *bytes.Buffer, r Report) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle("Nepal Daily Fire Report", true)

	doc.AddPage()
	heading(doc, "Nepal Daily Fire Report")
	narrative(doc, r)
	divider(doc, 128)
	if r.MapPath != "" {
		doc.ImageOptions(r.MapPath, pageMargin, doc.GetY(), contentWidth, 0, true,
			fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}, 0, "")
		doc.Ln(4)
		divider(doc, 211)
	}

	doc.AddPage()
	heading(doc, "Fire Counts by District")
	divider(doc, 211)
	countTable(doc, r.Table)

	if err := doc.Output(buf); err != nil {
		return fmt.Errorf("%w: render pdf: %v", domain.ErrIO, err)
	}
	return nil
}

func heading(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(contentWidth, 12, text, "", 1, "L", false, 0, "")
	doc.Ln(4)
}

func narrative(doc *fpdf.Fpdf, r Report) {
	bold := func(s string) {
		doc.SetFont("Helvetica", "B", 12)
		doc.Write(lineHeight, s)
	}
	plain := func(s string) {
		doc.SetFont("Helvetica", "", 12)
		doc.Write(lineHeight, s)
	}

	bold(strconv.Itoa(r.Table.Total))
	plain(" fires have been detected in Nepal as of ")
	bold(r.Date.Format(domain.DisplayDateLayout))
	plain(" in the past 24 hours.")
	doc.Ln(lineHeight)
	plain("(Note: For landscape level data, please contact us.)")
	doc.Ln(lineHeight * 2)

	bold("Satellite: ")
	plain(r.Satellite)
	doc.Ln(lineHeight)
	bold("Assessed Time: ")
	plain(r.AssessedAt.Format("03:04 PM"))
	doc.Ln(lineHeight * 2)

	plain("(Source: " + SourceURL + " )")
	doc.Ln(lineHeight * 1.5)
}

func divider(doc *fpdf.Fpdf, gray int) {
	y := doc.GetY() + 2
	doc.SetDrawColor(gray, gray, gray)
	doc.SetLineWidth(0.3)
	doc.Line(pageMargin, y, pageMargin+contentWidth, y)
	doc.SetY(y + 4)
}

func countTable(doc *fpdf.Fpdf, table domain.CountTable) {
	widths := []float64{25, contentWidth - 25 - 40, 40}
	const rowH = 8.0

	doc.SetDrawColor(128, 128, 128)
	doc.SetLineWidth(0.2)
	doc.SetFont("Helvetica", "B", 11)
	doc.SetFillColor(224, 242, 224)
	for i, h := range []string{"S.N.", "District", "Fire Count"} {
		doc.CellFormat(widths[i], rowH, h, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Helvetica", "", 10)
	doc.SetFillColor(245, 245, 245)
	for _, row := range table.Rows {
		cells := []string{strconv.Itoa(row.Rank), row.District, strconv.Itoa(row.Count)}
		for i, c := range cells {
			doc.CellFormat(widths[i], rowH, c, "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 10)
	for i, c := range []string{"", domain.TotalLabel, strconv.Itoa(table.Total)} {
		doc.CellFormat(widths[i], rowH, c, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
}
