// Package mapimg draws the daily fire map as a PNG.
package mapimg

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/natefinch/atomic"
	"github.com/paulmach/orb"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/nepalfire/firereport/internal/domain"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 2000
	DefaultHeight = 1200
)

var (
	districtFill  = drawing.ColorFromHex("e0f2e0")
	protectedFill = drawing.ColorFromHex("8fbc8f")
	fireFill      = drawing.ColorFromHex("ff4500")
	fireStroke    = drawing.ColorFromHex("8b0000")
	legendBorder  = drawing.ColorFromHex("cccccc")
)

// Layers is everything drawn on the map. Fires should already be limited to
// the district union; Protected may be empty.
type Layers struct {
	Districts domain.RegionSet
	Protected domain.RegionSet
	Fires     domain.FireSet
}

// Renderer draws maps at a fixed canvas size.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer with the default canvas size.
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// WriteFile renders the map and atomically replaces path with it.
func (r *Renderer) WriteFile(path string, layers Layers) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, layers); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// Render draws the map as PNG. The view is fitted to the district bounds.
func (r *Renderer) Render(w io.Writer, layers Layers) error {
	if len(layers.Districts.Regions) == 0 {
		return fmt.Errorf("%w: no district polygons to draw", domain.ErrDataAbsent)
	}

	rc, err := chart.PNG(r.Width, r.Height)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	rc.SetFont(font)

	vp := newViewport(layers.Districts.Bound(), layers.Districts.CRS, r.Width, r.Height)

	fillRect(rc, 0, 0, r.Width, r.Height, drawing.ColorWhite, drawing.ColorWhite)

	for _, reg := range layers.Districts.Regions {
		drawRegion(rc, vp, reg, districtFill, drawing.ColorBlack, 1.5)
	}
	for _, reg := range layers.Protected.Regions {
		drawRegion(rc, vp, reg, protectedFill, drawing.ColorTransparent, 0)
	}
	radius := math.Max(4, float64(r.Width)/300)
	for _, f := range layers.Fires.Points {
		x, y := vp.project(f.Location)
		drawFire(rc, x, y, radius)
	}

	drawLegend(rc, r.Height, radius)
	drawNorthArrow(rc, r.Width)

	if err := rc.Save(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// viewport maps layer coordinates to pixels with a uniform scale.
type viewport struct {
	bound    orb.Bound
	scale    float64
	xStretch float64
	offX     float64
	offY     float64
	height   int
}

func newViewport(b orb.Bound, crs domain.CRS, width, height int) viewport {
	const margin = 40
	// Geographic degrees are shortened east-west by the cosine of latitude.
	stretch := 1.0
	if crs.EPSG == domain.WGS84.EPSG {
		stretch = math.Cos(b.Center().Lat() * math.Pi / 180)
	}

	dx := math.Max((b.Max[0]-b.Min[0])*stretch, 1e-9)
	dy := math.Max(b.Max[1]-b.Min[1], 1e-9)
	scale := math.Min(float64(width-2*margin)/dx, float64(height-2*margin)/dy)

	return viewport{
		bound:    b,
		scale:    scale,
		xStretch: stretch,
		offX:     (float64(width) - dx*scale) / 2,
		offY:     (float64(height) - dy*scale) / 2,
		height:   height,
	}
}

func (v viewport) project(p orb.Point) (int, int) {
	x := v.offX + (p[0]-v.bound.Min[0])*v.xStretch*v.scale
	y := float64(v.height) - v.offY - (p[1]-v.bound.Min[1])*v.scale
	return int(math.Round(x)), int(math.Round(y))
}

func drawRegion(rc chart.Renderer, vp viewport, reg domain.Region, fill, stroke drawing.Color, width float64) {
	for _, poly := range reg.Geometry {
		for i, ring := range poly {
			if len(ring) < 3 {
				continue
			}
			// Holes are painted white over the shell.
			ringFill := fill
			if i > 0 {
				ringFill = drawing.ColorWhite
			}
			rc.SetFillColor(ringFill)
			rc.SetStrokeColor(stroke)
			rc.SetStrokeWidth(width)
			x, y := vp.project(ring[0])
			rc.MoveTo(x, y)
			for _, p := range ring[1:] {
				x, y = vp.project(p)
				rc.LineTo(x, y)
			}
			rc.Close()
			if width > 0 {
				rc.FillStroke()
			} else {
				rc.Fill()
			}
		}
	}
}

func drawFire(rc chart.Renderer, x, y int, radius float64) {
	rc.SetFillColor(fireFill)
	rc.SetStrokeColor(fireStroke)
	rc.SetStrokeWidth(1)
	rc.Circle(radius, x, y)
	rc.FillStroke()
}

func fillRect(rc chart.Renderer, x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	rc.SetFillColor(fill)
	rc.SetStrokeColor(stroke)
	rc.SetStrokeWidth(1)
	rc.MoveTo(x0, y0)
	rc.LineTo(x1, y0)
	rc.LineTo(x1, y1)
	rc.LineTo(x0, y1)
	rc.Close()
	rc.FillStroke()
}

func drawLegend(rc chart.Renderer, height int, radius float64) {
	const (
		left   = 30
		width  = 300
		boxH   = 190
		rowH   = 42
		swatch = 28
	)
	top := height - 30 - boxH
	fillRect(rc, left, top, left+width, top+boxH, drawing.ColorWhite, legendBorder)

	rc.SetFontColor(drawing.ColorBlack)
	rc.SetFontSize(20)
	rc.Text("Legend", left+20, top+36)

	rc.SetFontSize(17)
	y := top + 60
	drawFire(rc, left+20+swatch/2, y+swatch/2, radius*1.5)
	rc.SetFontColor(drawing.ColorBlack)
	rc.Text("Fire Points", left+70, y+22)

	y += rowH
	fillRect(rc, left+20, y, left+20+swatch, y+swatch, protectedFill, protectedFill)
	rc.Text("Protected Areas", left+70, y+22)

	y += rowH
	fillRect(rc, left+20, y, left+20+swatch, y+swatch, districtFill, drawing.ColorBlack)
	rc.Text("District", left+70, y+22)
}

func drawNorthArrow(rc chart.Renderer, width int) {
	cx := width - 80
	const top = 40

	rc.SetFillColor(drawing.ColorBlack)
	rc.SetStrokeColor(drawing.ColorBlack)
	rc.SetStrokeWidth(1)
	rc.MoveTo(cx, top)
	rc.LineTo(cx+22, top+70)
	rc.LineTo(cx, top+55)
	rc.LineTo(cx-22, top+70)
	rc.Close()
	rc.FillStroke()

	rc.SetFontColor(drawing.ColorBlack)
	rc.SetFontSize(26)
	rc.Text("N", cx-9, top+105)
}
