package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/clothsim/clothheatmap/src/analysis"
)

const (
	DefaultScreenshotWidth  = 1200
	DefaultScreenshotHeight = 900
)

// screenshot layout in pixels
const (
	shotMarginLeft   = 110
	shotMarginRight  = 170
	shotMarginTop    = 70
	shotMarginBottom = 120
	shotBarWidth     = 28
	shotBarSteps     = 128
)

// Screenshot draws the heatmap as a PNG with go-chart's raster renderer. Zero sizes
// fall back to DefaultScreenshotWidth x DefaultScreenshotHeight. opts.Source, when set,
// is stamped at opts.SourceCorner.
func Screenshot(w io.Writer, grid *analysis.Grid, label string, opts Options, width, height int) error {
	h, err := NewHeatmap(grid, label, opts)
	if err != nil {
		return err
	}
	if width <= 0 {
		width = DefaultScreenshotWidth
	}
	if height <= 0 {
		height = DefaultScreenshotHeight
	}
	plotW := width - shotMarginLeft - shotMarginRight
	plotH := height - shotMarginTop - shotMarginBottom
	if plotW < 50 || plotH < 50 {
		return fmt.Errorf("%w: screenshot %dx%d too small", ErrRender, width, height)
	}

	r, err := chart.PNG(width, height)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	f, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("%w: font: %v", ErrRender, err)
	}
	r.SetFont(f)

	chart.Draw.Box(r, chart.Box{Top: 0, Left: 0, Right: width, Bottom: height}, fill(chart.ColorWhite))

	rows, cols := grid.Dims()
	cw := float64(plotW) / float64(cols)
	ch := float64(plotH) / float64(rows)
	annot := 14.0
	if rows > 8 || cols > 8 {
		annot = 10
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := grid.At(i, j)
			c := h.CellColor(v)
			if c == nil {
				continue
			}
			box := chart.Box{
				Left:   shotMarginLeft + int(math.Round(float64(j)*cw)),
				Right:  shotMarginLeft + int(math.Round(float64(j+1)*cw)),
				Top:    shotMarginTop + int(math.Round(float64(i)*ch)),
				Bottom: shotMarginTop + int(math.Round(float64(i+1)*ch)),
			}
			chart.Draw.Box(r, box, fill(toDrawing(c)))
			centerText(r, f, opts.FormatValue(v), annot, toDrawing(inkFor(c)),
				(box.Left+box.Right)/2, (box.Top+box.Bottom)/2)
		}
	}

	// axes
	tick := chart.Style{Font: f, FontSize: 11, FontColor: chart.ColorBlack}
	for i, a := range grid.Alphas {
		s := a.String()
		tw := measure(r, f, s, 11)
		y := shotMarginTop + int((float64(i)+0.5)*ch)
		chart.Draw.Text(r, s, shotMarginLeft-8-tw, y+5, tick)
	}
	rot := tick
	rot.TextRotationDegrees = 45
	for j, c := range grid.Centers {
		x := shotMarginLeft + int((float64(j)+0.5)*cw)
		chart.Draw.Text(r, c.String(), x-4, shotMarginTop+plotH+14, rot)
	}
	centerText(r, f, h.Title(), 18, chart.ColorBlack, shotMarginLeft+plotW/2, shotMarginTop/2)
	centerText(r, f, "center", 14, chart.ColorBlack, shotMarginLeft+plotW/2, height-24)
	centerText(r, f, "α", 14, chart.ColorBlack, 22, shotMarginTop+plotH/2)

	// color bar, high values on top
	barLeft := shotMarginLeft + plotW + 30
	for k := 0; k < shotBarSteps; k++ {
		v := h.hi - (h.hi-h.lo)*(float64(k)+0.5)/shotBarSteps
		top := shotMarginTop + plotH*k/shotBarSteps
		bottom := shotMarginTop + plotH*(k+1)/shotBarSteps
		chart.Draw.Box(r, chart.Box{Left: barLeft, Right: barLeft + shotBarWidth, Top: top, Bottom: bottom}, fill(toDrawing(h.CellColor(v))))
	}
	for _, v := range barTicks(h.lo, h.hi, 6) {
		y := shotMarginTop + int(math.Round(float64(plotH)*(h.hi-v)/(h.hi-h.lo)))
		chart.Draw.Box(r, chart.Box{Left: barLeft + shotBarWidth, Right: barLeft + shotBarWidth + 4, Top: y, Bottom: y + 1}, fill(chart.ColorBlack))
		chart.Draw.Text(r, tickLabel(v), barLeft+shotBarWidth+8, y+4, tick)
	}
	side := tick
	side.TextRotationDegrees = 90
	chart.Draw.Text(r, label, barLeft+shotBarWidth+64, shotMarginTop+plotH/2-measure(r, f, label, 11)/2, side)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return fmt.Errorf("%w: png: %v", ErrRender, err)
	}
	if strings.TrimSpace(opts.Source) == "" {
		_, err := w.Write(buf.Bytes())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRender, err)
		}
		return nil
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return fmt.Errorf("%w: decode: %v", ErrRender, err)
	}
	if err := png.Encode(w, stampSource(img, opts.Source, opts.SourceCorner)); err != nil {
		return fmt.Errorf("%w: png encode: %v", ErrRender, err)
	}
	return nil
}

func fill(c drawing.Color) chart.Style {
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

func toDrawing(c color.Color) drawing.Color {
	if c == nil {
		return chart.ColorWhite
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return drawing.Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

func measure(r chart.Renderer, f *truetype.Font, s string, size float64) int {
	r.SetFont(f)
	r.SetFontSize(size)
	return r.MeasureText(s).Width()
}

func centerText(r chart.Renderer, f *truetype.Font, s string, size float64, col drawing.Color, cx, cy int) {
	if s == "" {
		return
	}
	r.SetFont(f)
	r.SetFontSize(size)
	b := r.MeasureText(s)
	chart.Draw.Text(r, s, cx-b.Width()/2, cy+b.Height()/2, chart.Style{Font: f, FontSize: size, FontColor: col})
}

// Corner picks where stampSource places its text.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

// stampSource writes text into a corner of img in white with a one-pixel dark outline,
// so it reads on both the white margin and saturated cells.
func stampSource(img image.Image, text string, at Corner) image.Image {
	text = strings.TrimSpace(text)
	if img == nil || text == "" {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Face: face}
	tw := d.MeasureString(text).Ceil()
	const inset = 8
	x := b.Min.X + inset
	if at == BottomRight || at == TopRight {
		x = b.Max.X - inset - tw
	}
	y := b.Max.Y - inset
	if at == TopLeft || at == TopRight {
		y = b.Min.Y + inset + face.Metrics().Ascent.Ceil()
	}

	d.Src = image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255})
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d.Dot = fixed.P(x+dx, y+dy)
			d.DrawString(text)
		}
	}
	d.Src = image.White
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
	return dst
}
