package realise

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/interp"
)

func build(t *testing.T, n int, seed int64) *Realisation {
	t.Helper()
	r, err := New(field.Grid{N: n, Scale: 1000})
	require.NoError(t, err)
	require.NoError(t, r.BuildSeeded(spectrum.DefaultParams(), seed))
	return r
}

func maxAbs(modes [][]complex128) float64 {
	m := 0.0
	for _, row := range modes {
		for _, c := range row {
			m = math.Max(m, cmplx.Abs(c))
		}
	}
	return m
}

func TestNewRejectsInvalidGrid(t *testing.T) {
	_, err := New(field.Grid{N: 7, Scale: 1000})
	require.ErrorIs(t, err, field.ErrInvalidGrid)
}

func TestBuildIsDeterministic(t *testing.T) {
	a := build(t, 32, 7)
	b := build(t, 32, 7)
	c := build(t, 32, 8)

	assert.Equal(t, a.Modes, b.Modes)
	assert.Equal(t, a.SI.Real, b.SI.Real)
	assert.NotEqual(t, a.Modes, c.Modes)
	assert.Equal(t, int64(7), a.Seed)
}

func TestRealSymmetries(t *testing.T) {
	r := build(t, 16, 3)
	n, half := 16, 8
	m := r.Modes

	assert.Equal(t, complex128(0), m[0][0])
	assert.Zero(t, imag(m[half][0]))
	assert.Zero(t, imag(m[0][half]))
	assert.Zero(t, imag(m[half][half]))

	for y := half + 1; y < n; y++ {
		assert.Equal(t, cmplx.Conj(m[n-y][0]), m[y][0], "kx=0 row %d", y)
		assert.Equal(t, cmplx.Conj(m[n-y][half]), m[y][half], "kx=N/2 row %d", y)
	}
}

func TestFieldIsReal(t *testing.T) {
	r := build(t, 64, 11)

	// a real field transforms back to exactly the coefficients it was built from
	spec, err := r.SI.FFT()
	require.NoError(t, err)

	tol := 1e-9 * maxAbs(r.Modes)
	for y := range r.Modes {
		for x := range r.Modes[y] {
			if d := cmplx.Abs(spec.Modes[y][x] - r.Modes[y][x]); d > tol {
				t.Fatalf("mode (%d,%d) differs by %g", y, x, d)
			}
		}
	}
}

func TestEvolveIdentityTransfer(t *testing.T) {
	r := build(t, 32, 5)

	evolved, err := r.Evolve(interp.Constant(1))
	require.NoError(t, err)

	for y := range evolved.Real {
		for x := range evolved.Real[y] {
			require.InDelta(t, r.SI.Real[y][x], evolved.Real[y][x], 1e-15)
		}
	}
}

func TestEvolveScalesLinearly(t *testing.T) {
	r := build(t, 32, 5)

	evolved, err := r.Evolve(interp.Constant(-0.5))
	require.NoError(t, err)

	for y := range evolved.Real {
		for x := range evolved.Real[y] {
			require.InDelta(t, -0.5*r.SI.Real[y][x], evolved.Real[y][x], 1e-15)
		}
	}
}

func TestEvolveBeforeBuild(t *testing.T) {
	r, err := New(field.Grid{N: 8, Scale: 10})
	require.NoError(t, err)

	_, err = r.Evolve(interp.Constant(1))
	require.ErrorIs(t, err, ErrNotBuilt)
}

func TestBuildRejectsInvalidParams(t *testing.T) {
	r, err := New(field.Grid{N: 8, Scale: 10})
	require.NoError(t, err)

	err = r.BuildSeeded(spectrum.Params{As: -1, Ns: 1, Kp: 0.05}, 1)
	require.ErrorIs(t, err, spectrum.ErrInvalidParams)
}

func TestMeasuredSpectrumRecoversParameters(t *testing.T) {
	r := build(t, 128, 2024)

	s, err := spectrum.Measure(r.SI, spectrum.Options{Bins: 10})
	require.NoError(t, err)

	fit, err := spectrum.FitScaleInvariant(s, spectrum.DefaultKp)
	require.NoError(t, err)

	assert.InEpsilon(t, spectrum.DefaultAs, fit.As, 0.25, fit.String())
	assert.InDelta(t, spectrum.DefaultNs, fit.Ns, 0.1, fit.String())
	assert.Positive(t, fit.AsErr)
	assert.Positive(t, fit.NsErr)
}
