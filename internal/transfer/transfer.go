// Package transfer supplies tabulated transfer functions T(k, η) from CAMB
// output files, external commands, or a built-in analytic approximation.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// MinSamples is the smallest number of ks a table may hold and still be
// splined with not-a-knot end conditions.
const MinSamples = 4

var (
	ErrInvalidTable    = errors.New("transfer: invalid table")
	ErrEtaNotTabulated = errors.New("transfer: eta not tabulated")
	ErrUnknownSource   = errors.New("transfer: unknown source")
)

// Source produces transfer functions sampled at ks for every eta.
type Source interface {
	Transfer(ctx context.Context, ks, etas []float64) (*Table, error)
}

// Table holds Values[i][j] = T(Ks[j], Etas[i]).
type Table struct {
	Ks     []float64
	Etas   []float64
	Values [][]float64
}

func (t *Table) Validate() error {
	if len(t.Ks) < MinSamples {
		return fmt.Errorf("%w: %d ks, need at least %d", ErrInvalidTable, len(t.Ks), MinSamples)
	}
	for j := 1; j < len(t.Ks); j++ {
		if !(t.Ks[j] > t.Ks[j-1]) {
			return fmt.Errorf("%w: ks not strictly increasing at %d", ErrInvalidTable, j)
		}
	}
	if len(t.Values) != len(t.Etas) {
		return fmt.Errorf("%w: %d rows for %d etas", ErrInvalidTable, len(t.Values), len(t.Etas))
	}
	for i, row := range t.Values {
		if len(row) != len(t.Ks) {
			return fmt.Errorf("%w: eta %g has %d values, want %d", ErrInvalidTable, t.Etas[i], len(row), len(t.Ks))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at eta %g, k %g", ErrInvalidTable, t.Etas[i], t.Ks[j])
			}
		}
	}
	return nil
}

// Column returns T(k) at the i-th eta.
func (t *Table) Column(i int) []float64 {
	return t.Values[i]
}

// Spline fits a not-a-knot cubic through T(k) at the i-th eta. Predictions
// outside [Ks[0], Ks[len-1]] return the end values.
func (t *Table) Spline(i int) (interp.Predictor, error) {
	if i < 0 || i >= len(t.Values) {
		return nil, fmt.Errorf("%w: eta index %d out of range", ErrInvalidTable, i)
	}
	if len(t.Ks) < MinSamples {
		return nil, fmt.Errorf("%w: %d ks, need at least %d", ErrInvalidTable, len(t.Ks), MinSamples)
	}
	var s interp.NotAKnotCubic
	if err := s.Fit(t.Ks, t.Values[i]); err != nil {
		return nil, fmt.Errorf("transfer: spline at eta %g: %w", t.Etas[i], err)
	}
	return &s, nil
}

// Resample returns a table evaluated at ks by splining every eta.
func (t *Table) Resample(ks []float64) (*Table, error) {
	out := &Table{
		Ks:     append([]float64(nil), ks...),
		Etas:   append([]float64(nil), t.Etas...),
		Values: make([][]float64, len(t.Etas)),
	}
	for i := range t.Etas {
		s, err := t.Spline(i)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(ks))
		for j, k := range ks {
			row[j] = s.Predict(k)
		}
		out.Values[i] = row
	}
	return out, nil
}

// Select returns the rows matching etas in the requested order. Etas match
// when they agree to within 1e-9 relative.
func (t *Table) Select(etas []float64) (*Table, error) {
	out := &Table{
		Ks:     t.Ks,
		Etas:   append([]float64(nil), etas...),
		Values: make([][]float64, len(etas)),
	}
	for i, eta := range etas {
		idx := t.indexOf(eta)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %g", ErrEtaNotTabulated, eta)
		}
		out.Values[i] = t.Values[idx]
	}
	return out, nil
}

func (t *Table) indexOf(eta float64) int {
	for i, e := range t.Etas {
		if math.Abs(e-eta) <= 1e-9*math.Max(math.Abs(e), math.Abs(eta)) {
			return i
		}
	}
	return -1
}

// Request is the JSON document sent to external transfer commands.
type Request struct {
	Source string    `json:"source"`
	Ks     []float64 `json:"ks"`
	Etas   []float64 `json:"etas"`
}
