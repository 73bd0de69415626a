package render

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot/vg"
)

const (
	DefaultFormat     = "%.4f"
	ScientificFormat  = "%.1e"
	DefaultWidth      = 8 * vg.Inch
	DefaultHeight     = 6 * vg.Inch
	defaultColorCount = 255
)

// Options controls a single heatmap.
type Options struct {
	// Format is a fmt verb for cell annotations ("%.4f"). Seaborn-style specs such as
	// ".0f" are accepted. Empty means DefaultFormat.
	Format string
	// Scientific overrides Format with one-significant-digit exponent notation (1.2e+05).
	Scientific bool
	// Width and Height of the page; zero means 8x6 in.
	Width, Height vg.Length
	// Source is an optional hint stamped on screenshots (e.g. the input file) at
	// SourceCorner, bottom-right by default.
	Source       string
	SourceCorner Corner
}

// CellFormat returns the effective fmt verb.
func (o Options) CellFormat() string {
	if o.Scientific {
		return ScientificFormat
	}
	return NormalizeFormat(o.Format)
}

// NormalizeFormat turns "" into DefaultFormat and ".2f" into "%.2f".
func NormalizeFormat(f string) string {
	f = strings.TrimSpace(f)
	if f == "" {
		return DefaultFormat
	}
	if !strings.HasPrefix(f, "%") {
		f = "%" + f
	}
	return f
}

// ValidateFormat reports whether f formats a float without fmt error markers.
func ValidateFormat(f string) error {
	out := fmt.Sprintf(NormalizeFormat(f), 1.5)
	if strings.Contains(out, "%!") {
		return fmt.Errorf("invalid cell format %q", f)
	}
	return nil
}

// FormatValue renders one annotation. NaN (an unobserved cell) renders as "".
func (o Options) FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf(o.CellFormat(), v)
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}
