// Package render draws pivoted sweep grids as annotated heatmaps.
//
// Heatmap builds the vector figure with gonum/plot: a cool-to-warm HeatMap laid out on
// categorical axes (one cell per distinct alpha/center value), per-cell value labels,
// and a separate color bar plot drawn to the right on the same canvas. Screenshot draws
// the same grid as a PNG with the go-chart raster renderer.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/clothsim/clothheatmap/src/analysis"
	"github.com/clothsim/clothheatmap/src/logging"
)

var ErrRender = errors.New("render failed")

const colorBarWidth = 1.2 * vg.Inch

// Heatmap is a ready-to-draw figure for one grid.
type Heatmap struct {
	grid  *analysis.Grid
	label string
	opts  Options
	cmap  palette.DivergingColorMap
	lo    float64
	hi    float64
}

// NewHeatmap prepares grid for drawing. The color scale spans the grid's own finite
// values; a constant grid is widened around its value so the scale stays valid.
func NewHeatmap(grid *analysis.Grid, label string, opts Options) (*Heatmap, error) {
	if grid == nil || grid.Values == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrRender)
	}
	if err := ValidateFormat(opts.Format); err != nil && !opts.Scientific {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	lo, hi := colorRange(grid)
	cm := moreland.SmoothBlueRed()
	if lo >= cm.Max() {
		cm.SetMax(hi)
		cm.SetMin(lo)
	} else {
		cm.SetMin(lo)
		cm.SetMax(hi)
	}
	cm.SetConvergePoint((lo + hi) / 2)
	return &Heatmap{grid: grid, label: label, opts: opts, cmap: cm, lo: lo, hi: hi}, nil
}

func colorRange(g *analysis.Grid) (float64, float64) {
	lo, hi, ok := g.Range()
	if !ok {
		return 0, 1
	}
	if lo == hi {
		pad := math.Abs(lo) * 0.05
		if pad == 0 {
			pad = 0.5
		}
		return lo - pad, hi + pad
	}
	return lo, hi
}

// Title is "{label} Heatmap".
func (h *Heatmap) Title() string { return h.label + " Heatmap" }

// CellColor returns the palette color for v, or nil for an unobserved cell.
func (h *Heatmap) CellColor(v float64) color.Color {
	if math.IsNaN(v) {
		return nil
	}
	v = math.Max(h.lo, math.Min(h.hi, v))
	c, err := h.cmap.At(v)
	if err != nil {
		return nil
	}
	return c
}

// gridXYZ adapts analysis.Grid to plotter.GridXYZ on index coordinates. Row 0 of the grid
// (smallest alpha) is drawn at the top.
type gridXYZ struct{ g *analysis.Grid }

func (x gridXYZ) Dims() (c, r int) {
	rows, cols := x.g.Dims()
	return cols, rows
}
func (x gridXYZ) Z(c, r int) float64 { return x.g.At(x.row(r), c) }
func (x gridXYZ) X(c int) float64    { return float64(c) }
func (x gridXYZ) Y(r int) float64    { return float64(r) }
func (x gridXYZ) row(r int) int {
	rows, _ := x.g.Dims()
	return rows - 1 - r
}

// plots builds the heatmap plot and its color bar plot.
func (h *Heatmap) plots() (*plot.Plot, *plot.Plot, error) {
	g := gridXYZ{h.grid}
	p := plot.New()
	p.Title.Text = h.Title()
	p.X.Label.Text = "center"
	p.Y.Label.Text = "α"
	p.X.Padding = 0
	p.Y.Padding = 0

	hm := plotter.NewHeatMap(g, h.cmap.Palette(defaultColorCount))
	hm.Min, hm.Max = h.lo, h.hi
	p.Add(hm)

	var xticks, yticks []plot.Tick
	for j, c := range h.grid.Centers {
		xticks = append(xticks, plot.Tick{Value: float64(j), Label: c.String()})
	}
	rows := len(h.grid.Alphas)
	for r := 0; r < rows; r++ {
		yticks = append(yticks, plot.Tick{Value: float64(r), Label: h.grid.Alphas[g.row(r)].String()})
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Y.Tick.Label.Rotation = 0

	var xys plotter.XYs
	var labels []string
	var inks []color.Color
	cols, _ := g.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, h.opts.FormatValue(v))
			inks = append(inks, inkFor(h.CellColor(v)))
		}
	}
	if len(labels) > 0 {
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: labels: %v", ErrRender, err)
		}
		size := annotationSize(rows, cols)
		for i := range lbl.TextStyle {
			lbl.TextStyle[i].XAlign = text.XCenter
			lbl.TextStyle[i].YAlign = text.YCenter
			lbl.TextStyle[i].Color = inks[i]
			lbl.TextStyle[i].Font.Size = size
		}
		p.Add(lbl)
	}

	cb := plot.New()
	cb.Title.Text = " "
	cb.HideX()
	cb.Y.Label.Text = h.label
	cb.Y.Padding = 0
	bar := plotter.NewHeatMap(barXYZ{lo: h.lo, hi: h.hi, n: defaultColorCount}, h.cmap.Palette(defaultColorCount))
	bar.Min, bar.Max = h.lo, h.hi
	cb.Add(bar)
	return p, cb, nil
}

// barXYZ is the color bar as a one-column grid of n steps from lo to hi. Drawn through
// HeatMap it stays vector rectangles in every output format.
type barXYZ struct {
	lo, hi float64
	n      int
}

func (b barXYZ) Dims() (c, r int)   { return 1, b.n }
func (b barXYZ) Z(_, r int) float64 { return b.Y(r) }
func (b barXYZ) X(int) float64      { return 0 }
func (b barXYZ) Y(r int) float64    { return b.lo + (float64(r)+0.5)*b.step() }
func (b barXYZ) step() float64      { return (b.hi - b.lo) / float64(b.n) }

// annotationSize shrinks cell labels on dense grids.
func annotationSize(rows, cols int) vg.Length {
	n := rows
	if cols > n {
		n = cols
	}
	switch {
	case n <= 6:
		return vg.Points(10)
	case n <= 12:
		return vg.Points(7)
	default:
		return vg.Points(5)
	}
}

// inkFor picks black or white annotation text for legibility on fill.
func inkFor(fill color.Color) color.Color {
	if fill == nil {
		return color.Black
	}
	r, g, b, _ := fill.RGBA()
	lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 0xffff
	if lum < 0.45 {
		return color.White
	}
	return color.Black
}

// WriteTo renders the figure in format ("pdf", "svg" or "png") to w.
func (h *Heatmap) WriteTo(w io.Writer, format string) error {
	p, cb, err := h.plots()
	if err != nil {
		return err
	}
	width, height := h.opts.size()
	c, err := newCanvas(format, width, height)
	if err != nil {
		return err
	}
	dc := draw.New(c)
	p.Draw(draw.Crop(dc, 0, -colorBarWidth, 0, 0))
	cb.Draw(draw.Crop(dc, width-colorBarWidth, 0, 0, 0))
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrRender, format, err)
	}
	return nil
}

func newCanvas(format string, w, h vg.Length) (vg.CanvasWriterTo, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "pdf":
		return vgpdf.New(w, h), nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "png":
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrRender, format)
}

// Save renders grid to path; the format follows the file extension. The figure is
// encoded in memory first, so a failed encode leaves no file behind.
func Save(path string, grid *analysis.Grid, label string, opts Options) (err error) {
	h, err := NewHeatmap(grid, label, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.WriteTo(&buf, filepath.Ext(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", ErrRender, path, cerr)
		}
	}()
	if _, err := buf.WriteTo(f); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrRender, path, err)
	}
	rows, cols := grid.Dims()
	logging.Infof("[render] wrote %s cells=%dx%d filled=%d range=[%s, %s]", path, rows, cols, grid.Filled(), opts.FormatValue(h.lo), opts.FormatValue(h.hi))
	return nil
}
