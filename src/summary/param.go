package summary

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Param is an optional sweep parameter taken from a simulation_id. The zero value is
// "missing", so every missing value compares equal to every other one.
type Param struct {
	Value float64
	Valid bool
}

// Some returns a present Param.
func Some(v float64) Param { return Param{Value: v, Valid: true} }

// Float returns the value, or NaN when missing.
func (p Param) Float() float64 {
	if !p.Valid {
		return math.NaN()
	}
	return p.Value
}

func (p Param) String() string {
	if !p.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(p.Value, 'g', -1, 64)
}

// Less orders present values ascending and puts missing values last.
func (p Param) Less(o Param) bool {
	if p.Valid != o.Valid {
		return p.Valid
	}
	return p.Valid && p.Value < o.Value
}

var (
	alphaPattern  = regexp.MustCompile(`alpha=([0-9.]+)`)
	centerPattern = regexp.MustCompile(`center=([0-9.]+)`)
)

// ExtractParams pulls alpha and center out of an identifier such as
// "run_center=0.1_alpha=0.5_seed=3". A missing pattern yields a missing Param; a pattern
// whose capture is not a number (e.g. "alpha=.") is ErrParse.
func ExtractParams(id string) (alpha, center Param, err error) {
	if alpha, err = extract(alphaPattern, "alpha", id); err != nil {
		return Param{}, Param{}, err
	}
	if center, err = extract(centerPattern, "center", id); err != nil {
		return Param{}, Param{}, err
	}
	return alpha, center, nil
}

func extract(re *regexp.Regexp, name, id string) (Param, error) {
	m := re.FindStringSubmatch(id)
	if m == nil {
		return Param{}, nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Param{}, fmt.Errorf("%w: %s=%q in simulation_id %q", ErrParse, name, m[1], id)
	}
	return Some(v), nil
}
