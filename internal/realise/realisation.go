// Package realise draws Gaussian random fields with a scale-invariant power
// spectrum and evolves them by transfer functions.
package realise

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"gonum.org/v1/gonum/interp"
)

var ErrNotBuilt = errors.New("realise: realisation not built")

// Realisation is one draw of the primordial field on a grid.
type Realisation struct {
	Grid  field.Grid
	K     [][]float64
	Sigma [][]float64
	Modes [][]complex128
	SI    *field.Field
	Seed  int64
}

func New(g field.Grid) (*Realisation, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Realisation{Grid: g, K: field.KMatrix(g)}, nil
}

// BuildSeeded is BuildSI with a fresh rand.Rand for seed.
func (r *Realisation) BuildSeeded(p spectrum.Params, seed int64) error {
	r.Seed = seed
	return r.BuildSI(p, rand.New(rand.NewSource(seed)))
}

// BuildSI draws complex Gaussian coefficients with per-mode amplitude
// √P(k)/√2 and enforces the symmetries of a real field.
func (r *Realisation) BuildSI(p spectrum.Params, rng *rand.Rand) error {
	if err := p.Validate(); err != nil {
		return err
	}

	ps := spectrum.ScaleInvariant(r.K, p)
	r.Sigma = make([][]float64, len(ps))
	for y, row := range ps {
		r.Sigma[y] = make([]float64, len(row))
		for x, v := range row {
			// coefficients are complex, so split the variance between both parts
			r.Sigma[y][x] = math.Sqrt(v) / math.Sqrt2
		}
	}

	modes := complexGauss(r.Grid.N, r.Grid.HalfWidth(), rng)
	for y, row := range modes {
		for x := range row {
			row[x] *= complex(r.Sigma[y][x], 0)
		}
	}
	enforceRealSymmetries(modes)
	r.Modes = modes

	si, err := field.NewFourier(r.Grid, modes).IFFT()
	if err != nil {
		return fmt.Errorf("realise: inverse transform: %w", err)
	}
	r.SI = si
	return nil
}

// Evolve multiplies every coefficient by tf(|k|) and returns the physical field.
func (r *Realisation) Evolve(tf interp.Predictor) (*field.Field, error) {
	if r.Modes == nil {
		return nil, ErrNotBuilt
	}

	evolved := make([][]complex128, len(r.Modes))
	field.ParallelFor(len(r.Modes), 32, func(start, end int) {
		for y := start; y < end; y++ {
			src := r.Modes[y]
			row := make([]complex128, len(src))
			for x, c := range src {
				row[x] = c * complex(tf.Predict(r.K[y][x]), 0)
			}
			evolved[y] = row
		}
	})
	return field.NewFourier(r.Grid, evolved).IFFT()
}

// complexGauss fills the real parts of the whole plane before the imaginary
// parts so a seed always maps to the same coefficients.
func complexGauss(n, h int, rng *rand.Rand) [][]complex128 {
	out := make([][]complex128, n)
	for y := range out {
		out[y] = make([]complex128, h)
		for x := range out[y] {
			out[y][x] = complex(rng.NormFloat64(), 0)
		}
	}
	for y := range out {
		for x := range out[y] {
			out[y][x] += complex(0, rng.NormFloat64())
		}
	}
	return out
}

func enforceRealSymmetries(m [][]complex128) {
	n := len(m)
	half := n / 2

	// the k = 0 mode is the field mean
	m[0][0] = 0

	// Nyquist-only points must be real; √2 keeps their variance
	for _, p := range [][2]int{{half, 0}, {0, half}, {half, half}} {
		m[p[0]][p[1]] = complex(real(m[p[0]][p[1]])*math.Sqrt2, 0)
	}

	// on the kx = 0 and kx = N/2 columns, negative ky mirror positive ky
	for y := half + 1; y < n; y++ {
		m[y][0] = complex(real(m[n-y][0]), -imag(m[n-y][0]))
		m[y][half] = complex(real(m[n-y][half]), -imag(m[n-y][half]))
	}
}
