package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/clothsim/clothheatmap/src/logging"
	"github.com/clothsim/clothheatmap/src/summary"
)

// MissingKeyPolicy decides what happens to rows whose simulation_id lacks alpha= or center=.
type MissingKeyPolicy int

const (
	// MissingKeysGroup keeps such rows under a sentinel key (the missing Param), so they
	// still contribute to exactly one group.
	MissingKeysGroup MissingKeyPolicy = iota
	// MissingKeysExclude drops them before grouping.
	MissingKeysExclude
)

func (p MissingKeyPolicy) String() string {
	switch p {
	case MissingKeysGroup:
		return "group"
	case MissingKeysExclude:
		return "exclude"
	}
	return fmt.Sprintf("MissingKeyPolicy(%d)", int(p))
}

// ParseMissingKeyPolicy accepts "group" or "exclude"; "" means group.
func ParseMissingKeyPolicy(s string) (MissingKeyPolicy, error) {
	switch s {
	case "", "group":
		return MissingKeysGroup, nil
	case "exclude":
		return MissingKeysExclude, nil
	}
	return 0, fmt.Errorf("unknown missing-keys policy %q (want group|exclude)", s)
}

var ErrEmpty = errors.New("no rows to aggregate")

// GroupKey is the (alpha, center) pair rows are grouped by.
type GroupKey struct {
	Alpha  summary.Param
	Center summary.Param
}

func (k GroupKey) String() string {
	return fmt.Sprintf("alpha=%s center=%s", k.Alpha, k.Center)
}

// Less orders by alpha, then center, missing values last.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Alpha != o.Alpha {
		return k.Alpha.Less(o.Alpha)
	}
	return k.Center.Less(o.Center)
}

// Row is one aggregated group. Values is aligned with Aggregated.Columns.
type Row struct {
	Key    GroupKey
	Count  int // raw rows in the group
	Values []float64
}

// Aggregated holds the per-(alpha, center) means. It is read-only once built.
type Aggregated struct {
	Columns []string
	Rows    []Row
}

// Column returns the index of name, or summary.ErrColumnMissing.
func (a *Aggregated) Column(name string) (int, error) {
	for i, c := range a.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q not in aggregated table", summary.ErrColumnMissing, name)
}

// Table converts the aggregate back into a summary.Table with one record per group, so it
// can be fed to Aggregate again.
func (a *Aggregated) Table() *summary.Table {
	t := &summary.Table{Columns: append([]string(nil), a.Columns...)}
	for _, r := range a.Rows {
		t.Records = append(t.Records, summary.Record{
			SimulationID: fmt.Sprintf("center=%s_alpha=%s", r.Key.Center, r.Key.Alpha),
			Alpha:        r.Key.Alpha,
			Center:       r.Key.Center,
			Values:       append([]float64(nil), r.Values...),
		})
	}
	return t
}

// Aggregate groups records by exact (alpha, center) and averages every numeric column.
// NaN cells are skipped; a group whose cells are all NaN averages to NaN.
// Rows come back sorted by GroupKey.Less.
func Aggregate(t *summary.Table, policy MissingKeyPolicy) (*Aggregated, error) {
	defer logging.TimeTrack(time.Now(), "aggregate")
	groups := map[GroupKey][]int{}
	var order []GroupKey
	excluded := 0
	for i, rec := range t.Records {
		k := GroupKey{Alpha: rec.Alpha, Center: rec.Center}
		if policy == MissingKeysExclude && (!k.Alpha.Valid || !k.Center.Valid) {
			excluded++
			continue
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	if excluded > 0 {
		logging.Warnf("[analysis] excluded %d rows with missing alpha/center", excluded)
	}
	if len(order) == 0 {
		return nil, ErrEmpty
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	out := &Aggregated{Columns: append([]string(nil), t.Columns...)}
	buf := make([]float64, 0, len(t.Records))
	for _, k := range order {
		idx := groups[k]
		row := Row{Key: k, Count: len(idx), Values: make([]float64, len(t.Columns))}
		for c := range t.Columns {
			buf = buf[:0]
			for _, i := range idx {
				if v := t.Records[i].Values[c]; !math.IsNaN(v) {
					buf = append(buf, v)
				}
			}
			if len(buf) == 0 {
				row.Values[c] = math.NaN()
				continue
			}
			row.Values[c] = shiftedMean(buf)
		}
		out.Rows = append(out.Rows, row)
		if !k.Alpha.Valid || !k.Center.Valid {
			logging.Debugf("[analysis] sentinel group %s holds %d rows", k, len(idx))
		}
	}
	logging.Infof("[analysis] aggregated %d rows into %d groups (missing-keys=%s)", len(t.Records)-excluded, len(out.Rows), policy)
	return out, nil
}

// shiftedMean averages around the first sample so a constant column returns that value
// exactly. xs is modified in place. An infinite first sample cannot be shifted out.
func shiftedMean(xs []float64) float64 {
	shift := xs[0]
	if math.IsInf(shift, 0) {
		return stat.Mean(xs, nil)
	}
	for i := range xs {
		xs[i] -= shift
	}
	return shift + stat.Mean(xs, nil)
}
