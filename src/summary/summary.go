// Package summary loads the per-simulation summary table written by the CLoTH sweep
// scripts into typed records.
//
// The loader maps the header explicitly: simulation_id and every configured metric column
// must be present, otherwise ErrColumnMissing is returned before any row is read. All other
// numeric columns are carried along; non-numeric ones are dropped.
package summary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/clothsim/clothheatmap/src/logging"
)

// IDColumn is the free-text identifier column that encodes the sweep parameters.
const IDColumn = "simulation_id"

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrParse         = errors.New("parse error")
	ErrColumnMissing = errors.New("column missing")
)

// Record is one input row after derivation. Values is aligned with Table.Columns.
type Record struct {
	SimulationID string
	Alpha        Param
	Center       Param
	Values       []float64
}

// Table is the loaded summary: numeric columns in header order and records in file order.
type Table struct {
	Columns []string
	Records []Record
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// LoadOptions controls parsing.
type LoadOptions struct {
	Comma    rune     // field delimiter; 0 means ','
	Required []string // metric columns that must exist and be numeric
}

// Load opens path and parses it with Read.
func Load(path string, opts LoadOptions) (*Table, error) {
	defer logging.TimeTrack(time.Now(), "load "+path)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Infof("[summary] loaded %s: rows=%d numeric_columns=%d", path, len(t.Records), len(t.Columns))
	return t, nil
}

// Read parses a delimited table with a header row and derives alpha/center for every row.
func Read(r io.Reader, opts LoadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = 0 // every row must match the header width

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", ErrParse)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrParse, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	idCol, ok := index[IDColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnMissing, IDColumn)
	}
	for _, name := range opts.Required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnMissing, name)
		}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		rows = append(rows, rec)
	}

	// A column is numeric when every non-empty cell parses as a float; empty cells are NaN.
	numeric := make([]bool, len(header))
	for c := range header {
		// alpha/center are re-derived from simulation_id and replace any input columns of that name.
		if c == idCol || index[header[c]] != c || header[c] == "alpha" || header[c] == "center" {
			continue
		}
		numeric[c] = true
		for _, row := range rows {
			if _, ok := parseCell(row[c]); !ok {
				numeric[c] = false
				break
			}
		}
	}
	for _, name := range opts.Required {
		if !numeric[index[name]] {
			return nil, fmt.Errorf("%w: %q is not numeric", ErrColumnMissing, name)
		}
	}

	t := &Table{}
	var cols []int
	for c, ok := range numeric {
		if ok {
			cols = append(cols, c)
			t.Columns = append(t.Columns, header[c])
		} else if c != idCol {
			logging.Debugf("[summary] dropping non-numeric column %q", header[c])
		}
	}
	t.Records = make([]Record, 0, len(rows))
	missing := 0
	for i, row := range rows {
		id := row[idCol]
		alpha, center, err := ExtractParams(id)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !alpha.Valid || !center.Valid {
			missing++
		}
		vals := make([]float64, len(cols))
		for j, c := range cols {
			vals[j], _ = parseCell(row[c])
		}
		t.Records = append(t.Records, Record{SimulationID: id, Alpha: alpha, Center: center, Values: vals})
	}
	if missing > 0 {
		logging.Warnf("[summary] %d of %d simulation_id values lack alpha= or center=", missing, len(rows))
	}
	return t, nil
}

func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
