package field

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

type Space int

const (
	Physical Space = iota
	Fourier
)

func (s Space) String() string {
	switch s {
	case Physical:
		return "physical"
	case Fourier:
		return "fourier"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// Field is a sampled 2D field. Physical fields hold N×N real samples in Real;
// Fourier fields hold the N×(N/2+1) half-plane coefficients in Modes.
type Field struct {
	Grid  Grid
	Space Space
	Real  [][]float64
	Modes [][]complex128
}

func NewPhysical(g Grid, data [][]float64) *Field {
	return &Field{Grid: g, Space: Physical, Real: data}
}

func NewFourier(g Grid, modes [][]complex128) *Field {
	return &Field{Grid: g, Space: Fourier, Modes: modes}
}

// FFT returns the unnormalised forward transform, keeping the kx >= 0 half plane.
func (f *Field) FFT() (*Field, error) {
	if f.Space != Physical {
		return nil, fmt.Errorf("%w: fft of %s field", ErrWrongSpace, f.Space)
	}
	if err := f.checkShape(); err != nil {
		return nil, err
	}

	full := fft.FFT2Real(f.Real)
	h := f.Grid.HalfWidth()
	modes := make([][]complex128, len(full))
	for y, row := range full {
		modes[y] = append(make([]complex128, 0, h), row[:h]...)
	}
	return NewFourier(f.Grid, modes), nil
}

// IFFT rebuilds the full Hermitian spectrum from the half plane and returns
// the real part of its normalised inverse transform.
func (f *Field) IFFT() (*Field, error) {
	if f.Space != Fourier {
		return nil, fmt.Errorf("%w: ifft of %s field", ErrWrongSpace, f.Space)
	}
	if err := f.checkShape(); err != nil {
		return nil, err
	}

	n, h := f.Grid.N, f.Grid.HalfWidth()
	full := make([][]complex128, n)
	for y := 0; y < n; y++ {
		row := make([]complex128, n)
		copy(row, f.Modes[y])
		my := (n - y) % n
		for x := h; x < n; x++ {
			row[x] = cmplx.Conj(f.Modes[my][n-x])
		}
		full[y] = row
	}

	inv := fft.IFFT2(full)
	out := make([][]float64, n)
	for y, row := range inv {
		r := make([]float64, n)
		for x, v := range row {
			r[x] = real(v)
		}
		out[y] = r
	}
	return NewPhysical(f.Grid, out), nil
}

func (f *Field) checkShape() error {
	n := f.Grid.N
	switch f.Space {
	case Physical:
		if len(f.Real) != n {
			return fmt.Errorf("%w: %d rows, want %d", ErrInvalidGrid, len(f.Real), n)
		}
		for _, row := range f.Real {
			if len(row) != n {
				return fmt.Errorf("%w: ragged physical field", ErrInvalidGrid)
			}
		}
	case Fourier:
		h := f.Grid.HalfWidth()
		if len(f.Modes) != n {
			return fmt.Errorf("%w: %d rows, want %d", ErrInvalidGrid, len(f.Modes), n)
		}
		for _, row := range f.Modes {
			if len(row) != h {
				return fmt.Errorf("%w: ragged fourier field", ErrInvalidGrid)
			}
		}
	}
	return nil
}

func (f *Field) Clone() *Field {
	c := &Field{Grid: f.Grid, Space: f.Space}
	if f.Real != nil {
		c.Real = make([][]float64, len(f.Real))
		for i, row := range f.Real {
			c.Real[i] = append([]float64(nil), row...)
		}
	}
	if f.Modes != nil {
		c.Modes = make([][]complex128, len(f.Modes))
		for i, row := range f.Modes {
			c.Modes[i] = append([]complex128(nil), row...)
		}
	}
	return c
}

// Stats summarises a physical field.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	RMS  float64 `json:"rms"`
}

func (f *Field) Stats() Stats {
	if f.Space != Physical || len(f.Real) == 0 {
		return Stats{}
	}
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sq float64
	count := 0
	for _, row := range f.Real {
		if len(row) == 0 {
			continue
		}
		s.Min = math.Min(s.Min, floats.Min(row))
		s.Max = math.Max(s.Max, floats.Max(row))
		sum += floats.Sum(row)
		sq += floats.Dot(row, row)
		count += len(row)
	}
	if count == 0 {
		return Stats{}
	}
	s.Mean = sum / float64(count)
	s.RMS = math.Sqrt(sq / float64(count))
	return s
}

// IsFinite reports whether every sample is free of NaN and Inf.
func (f *Field) IsFinite() bool {
	for _, row := range f.Real {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	for _, row := range f.Modes {
		for _, v := range row {
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return false
			}
		}
	}
	return true
}
