package field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidGrid indicates a grid that cannot hold a real 2D FFT layout.
	ErrInvalidGrid = errors.New("field: invalid grid")

	// ErrWrongSpace indicates an operation applied to a field in the wrong space.
	ErrWrongSpace = errors.New("field: operation not valid in this space")
)

// Grid is a periodic N×N box of side Scale, in Mpc.
type Grid struct {
	N     int     `yaml:"n" json:"n"`
	Scale float64 `yaml:"scale" json:"scale"`
}

func (g Grid) Validate() error {
	if g.N < 4 || g.N%2 != 0 {
		return fmt.Errorf("%w: n=%d must be even and at least 4", ErrInvalidGrid, g.N)
	}
	if !(g.Scale > 0) || math.IsInf(g.Scale, 0) {
		return fmt.Errorf("%w: scale=%g must be positive", ErrInvalidGrid, g.Scale)
	}
	return nil
}

// Spacing is the physical pixel size.
func (g Grid) Spacing() float64 { return g.Scale / float64(g.N) }

// Fundamental is the smallest non-zero wavenumber on the grid.
func (g Grid) Fundamental() float64 { return 2 * math.Pi / g.Scale }

// KMax is |k| at the corner of the half plane, where both components sit at Nyquist.
func (g Grid) KMax() float64 { return math.Sqrt2 * math.Pi * float64(g.N) / g.Scale }

// HalfWidth is the number of kx columns kept by a real FFT.
func (g Grid) HalfWidth() int { return g.N/2 + 1 }

// FFTFreq returns angular wavenumbers in FFT order: 0, 1, ..., n/2-1, -n/2, ..., -1
// in units of 2π/(n·d).
func FFTFreq(n int, d float64) []float64 {
	k := make([]float64, n)
	step := 2 * math.Pi / (float64(n) * d)
	for i := range k {
		f := i
		if i >= (n+1)/2 {
			f = i - n
		}
		k[i] = float64(f) * step
	}
	return k
}

// RFFTFreq returns the non-negative angular wavenumbers kept by a real FFT.
func RFFTFreq(n int, d float64) []float64 {
	k := make([]float64, n/2+1)
	step := 2 * math.Pi / (float64(n) * d)
	for i := range k {
		k[i] = float64(i) * step
	}
	return k
}

// KMatrix returns |k| over the real-FFT half plane, indexed [ky][kx].
func KMatrix(g Grid) [][]float64 {
	d := g.Spacing()
	kx := RFFTFreq(g.N, d)
	ky := FFTFreq(g.N, d)

	km := make([][]float64, g.N)
	ParallelFor(g.N, 64, func(start, end int) {
		for y := start; y < end; y++ {
			row := make([]float64, len(kx))
			for x := range kx {
				row[x] = math.Hypot(kx[x], ky[y])
			}
			km[y] = row
		}
	})
	return km
}

// SampleKs returns count evenly spaced wavenumbers from the fundamental mode
// to KMax. These are the points at which transfer functions are requested.
func SampleKs(g Grid, count int) ([]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("field: need at least 2 k samples, got %d", count)
	}
	return floats.Span(make([]float64, count), g.Fundamental(), g.KMax()), nil
}
