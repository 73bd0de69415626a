package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/clothsim/clothheatmap/src/summary"
)

var ErrDuplicateCell = errors.New("duplicate (alpha, center) entry")

// Grid is one metric pivoted over the sweep: rows are ascending alpha, columns ascending
// center, and unobserved combinations are NaN.
type Grid struct {
	Column  string
	Alphas  []summary.Param
	Centers []summary.Param
	Values  *mat.Dense
}

// Cell is one observed (alpha, center) → value entry.
type Cell struct {
	Alpha  summary.Param
	Center summary.Param
	Value  float64
}

// Pivot reshapes the aggregated table into a Grid for column. Two rows with the same key
// are ErrDuplicateCell; they cannot occur after Aggregate but a hand-built table may have them.
func Pivot(a *Aggregated, column string) (*Grid, error) {
	ci, err := a.Column(column)
	if err != nil {
		return nil, err
	}
	if len(a.Rows) == 0 {
		return nil, fmt.Errorf("pivot %q: %w", column, ErrEmpty)
	}
	alphas := distinct(a.Rows, func(k GroupKey) summary.Param { return k.Alpha })
	centers := distinct(a.Rows, func(k GroupKey) summary.Param { return k.Center })
	ai := indexOf(alphas)
	cj := indexOf(centers)

	vals := mat.NewDense(len(alphas), len(centers), nil)
	seen := make([]bool, len(alphas)*len(centers))
	for i := range alphas {
		for j := range centers {
			vals.Set(i, j, math.NaN())
		}
	}
	for _, r := range a.Rows {
		i, j := ai[r.Key.Alpha], cj[r.Key.Center]
		if seen[i*len(centers)+j] {
			return nil, fmt.Errorf("pivot %q: %w at %s", column, ErrDuplicateCell, r.Key)
		}
		seen[i*len(centers)+j] = true
		vals.Set(i, j, r.Values[ci])
	}
	return &Grid{Column: column, Alphas: alphas, Centers: centers, Values: vals}, nil
}

// Dims returns (rows, columns) = (len(Alphas), len(Centers)).
func (g *Grid) Dims() (int, int) { return len(g.Alphas), len(g.Centers) }

// At returns the value for alpha row i and center column j (NaN when unobserved).
func (g *Grid) At(i, j int) float64 { return g.Values.At(i, j) }

// Flatten lists the observed cells row by row. Cells whose value is NaN are skipped.
func (g *Grid) Flatten() []Cell {
	var out []Cell
	for i, a := range g.Alphas {
		for j, c := range g.Centers {
			v := g.Values.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			out = append(out, Cell{Alpha: a, Center: c, Value: v})
		}
	}
	return out
}

// Range returns the finite min and max. ok is false when no cell holds a finite value.
func (g *Grid) Range() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	r, c := g.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := g.Values.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// Filled counts the cells holding a value.
func (g *Grid) Filled() int {
	n := 0
	r, c := g.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !math.IsNaN(g.Values.At(i, j)) {
				n++
			}
		}
	}
	return n
}

func distinct(rows []Row, key func(GroupKey) summary.Param) []summary.Param {
	set := map[summary.Param]struct{}{}
	var out []summary.Param
	for _, r := range rows {
		p := key(r.Key)
		if _, ok := set[p]; ok {
			continue
		}
		set[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func indexOf(ps []summary.Param) map[summary.Param]int {
	m := make(map[summary.Param]int, len(ps))
	for i, p := range ps {
		m[p] = i
	}
	return m
}
