// Package spectrum evaluates the inflationary scale-invariant power spectrum
// and measures binned power spectra of realised fields.
package spectrum

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/cosmofield/internal/field"
)

const (
	DefaultAs = 2.1e-9
	DefaultNs = 0.96
	DefaultKp = 0.05

	// DistToLastScatter converts k [Mpc⁻¹] to multipole ℓ.
	DistToLastScatter = 13900.0
	// TCMBMicroKelvin converts dimensionless power to μK².
	TCMBMicroKelvin = 2.725e6
)

var (
	ErrInvalidParams = errors.New("spectrum: invalid parameters")
	ErrTooFewBins    = errors.New("spectrum: too few usable bins to fit")
	ErrRawSpectrum   = errors.New("spectrum: raw spectrum cannot be fitted to the scale-invariant form")
)

// Params are the primordial amplitude A_s, the tilt n_s and the pivot scale k_p.
type Params struct {
	As float64 `yaml:"as" json:"as"`
	Ns float64 `yaml:"ns" json:"ns"`
	Kp float64 `yaml:"kp" json:"kp"`
}

func DefaultParams() Params {
	return Params{As: DefaultAs, Ns: DefaultNs, Kp: DefaultKp}
}

func (p Params) Validate() error {
	if !(p.As > 0) || math.IsInf(p.As, 0) {
		return fmt.Errorf("%w: as=%g must be positive", ErrInvalidParams, p.As)
	}
	if math.IsNaN(p.Ns) || math.IsInf(p.Ns, 0) {
		return fmt.Errorf("%w: ns=%g", ErrInvalidParams, p.Ns)
	}
	if !(p.Kp > 0) || math.IsInf(p.Kp, 0) {
		return fmt.Errorf("%w: kp=%g must be positive", ErrInvalidParams, p.Kp)
	}
	return nil
}

// At returns P(k) = 2π k⁻² A_s (k/k_p)^(n_s-1). The divergent k = 0 mode is 0.
func (p Params) At(k float64) float64 {
	if k == 0 {
		return 0
	}
	return 2 * math.Pi / (k * k) * p.As * math.Pow(k/p.Kp, p.Ns-1)
}

// ScaleInvariant evaluates P over a wavenumber matrix.
func ScaleInvariant(km [][]float64, p Params) [][]float64 {
	ps := make([][]float64, len(km))
	field.ParallelFor(len(km), 64, func(start, end int) {
		for y := start; y < end; y++ {
			row := make([]float64, len(km[y]))
			for x, k := range km[y] {
				row[x] = p.At(k)
			}
			ps[y] = row
		}
	})
	return ps
}
