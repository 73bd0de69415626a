package render

import (
	"math"
	"strconv"
)

// barTicks picks up to about n round values (steps of 1, 2, 2.5 or 5 times a power of ten)
// inside [lo, hi] for the screenshot color bar.
func barTicks(lo, hi float64, n int) []float64 {
	if n < 2 || math.IsNaN(lo) || math.IsNaN(hi) || hi <= lo {
		return nil
	}
	span := hi - lo
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	step := mag
	best := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		s := c * mag
		count := math.Floor(span/s) + 1
		if d := math.Abs(count - float64(n)); d < best {
			best, step = d, s
		}
	}
	var out []float64
	for k := math.Ceil(lo / step); k*step <= hi+step*1e-9; k++ {
		out = append(out, k*step)
	}
	return out
}

// tickLabel is a compact label whose precision follows magnitude.
func tickLabel(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 1e5 || (av > 0 && av < 1e-3):
		return strconv.FormatFloat(v, 'e', 1, 64)
	case av >= 100:
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case av >= 10:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case av >= 1:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case av == 0:
		return "0"
	default:
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
}
