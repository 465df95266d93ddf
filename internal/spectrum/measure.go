package spectrum

import (
	"fmt"
	"math"

	"github.com/san-kum/cosmofield/internal/field"
	"gonum.org/v1/gonum/stat"
)

const DefaultBins = 10

type Options struct {
	Bins int
	// Raw skips the k²/2π weighting and bins |F|² directly.
	Raw bool
}

// Spectrum is a binned power spectrum. Empty bins have Count 0 and zero power.
type Spectrum struct {
	K      []float64 `json:"k"`
	Power  []float64 `json:"power"`
	Errors []float64 `json:"errors"`
	Counts []int     `json:"counts"`
	Raw    bool      `json:"raw"`
}

// Measure bins the power of a physical field's Fourier modes by |k|.
func Measure(f *field.Field, opts Options) (*Spectrum, error) {
	if opts.Bins <= 0 {
		opts.Bins = DefaultBins
	}

	spec, err := f.FFT()
	if err != nil {
		return nil, err
	}
	km := field.KMatrix(f.Grid)

	// the first flattened entry is the k = 0 mode, which carries only the mean
	size := len(km) * len(km[0])
	ks := make([]float64, 0, size-1)
	ps := make([]float64, 0, size-1)
	for y, row := range spec.Modes {
		for x, c := range row {
			if y == 0 && x == 0 {
				continue
			}
			k := km[y][x]
			p := real(c)*real(c) + imag(c)*imag(c)
			if !opts.Raw {
				p *= k * k / (2 * math.Pi)
			}
			ks = append(ks, k)
			ps = append(ps, p)
		}
	}
	return binned(ks, ps, opts)
}

func binned(ks, ps []float64, opts Options) (*Spectrum, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("%w: no modes", ErrTooFewBins)
	}

	lo, hi := ks[0], ks[0]
	for _, k := range ks {
		lo = math.Min(lo, k)
		hi = math.Max(hi, k)
	}
	if hi == lo {
		hi = lo + 1
	}
	width := (hi - lo) / float64(opts.Bins)

	groups := make([][]float64, opts.Bins)
	for i, k := range ks {
		b := int((k - lo) / width)
		if b >= opts.Bins {
			b = opts.Bins - 1
		}
		groups[b] = append(groups[b], ps[i])
	}

	s := &Spectrum{
		K:      make([]float64, opts.Bins),
		Power:  make([]float64, opts.Bins),
		Errors: make([]float64, opts.Bins),
		Counts: make([]int, opts.Bins),
		Raw:    opts.Raw,
	}
	for b, g := range groups {
		s.K[b] = lo + (float64(b)+0.5)*width
		s.Counts[b] = len(g)
		if len(g) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(g, nil)
		s.Power[b] = mean
		s.Errors[b] = std / math.Sqrt(float64(len(g)))
	}
	return s, nil
}

// Multipoles converts bin centres to ℓ.
func (s *Spectrum) Multipoles() []float64 {
	ell := make([]float64, len(s.K))
	for i, k := range s.K {
		ell[i] = k * DistToLastScatter
	}
	return ell
}

// MicroKelvin returns power and errors in μK².
func (s *Spectrum) MicroKelvin() (power, errs []float64) {
	conv := TCMBMicroKelvin * TCMBMicroKelvin
	power = make([]float64, len(s.Power))
	errs = make([]float64, len(s.Errors))
	for i := range s.Power {
		power[i] = s.Power[i] * conv
		errs[i] = s.Errors[i] * conv
	}
	return power, errs
}

// Fit is the result of fitting a·(k/k_p)^b to a spectrum.
type Fit struct {
	As    float64 `json:"as"`
	Ns    float64 `json:"ns"`
	AsErr float64 `json:"as_err"`
	NsErr float64 `json:"ns_err"`
	Kp    float64 `json:"kp"`
	Bins  int     `json:"bins"`
}

// Model evaluates the fitted k²P(k)/2π at k.
func (f Fit) Model(k float64) float64 {
	return f.As * math.Pow(k/f.Kp, f.Ns-1)
}

func (f Fit) String() string {
	return fmt.Sprintf("As = %.3e ± %.1e, ns = %.4f ± %.1e (kp = %g)", f.As, f.AsErr, f.Ns, f.NsErr, f.Kp)
}

// FitScaleInvariant recovers A_s and n_s from a k²-weighted spectrum by
// weighted linear regression of ln P against ln(k/k_p).
func FitScaleInvariant(s *Spectrum, kp float64) (Fit, error) {
	if s.Raw {
		return Fit{}, ErrRawSpectrum
	}
	if !(kp > 0) {
		return Fit{}, fmt.Errorf("%w: kp=%g", ErrInvalidParams, kp)
	}

	var xs, ys, ws []float64
	for i := range s.K {
		// a single mode has no standard error to weight by
		if s.Counts[i] < 2 || s.Power[i] <= 0 || s.K[i] <= 0 {
			continue
		}
		rel := s.Errors[i] / s.Power[i]
		w := 1.0
		if rel > 0 {
			w = 1 / (rel * rel)
		}
		xs = append(xs, math.Log(s.K[i]/kp))
		ys = append(ys, math.Log(s.Power[i]))
		ws = append(ws, w)
	}
	if len(xs) < 2 {
		return Fit{}, fmt.Errorf("%w: %d", ErrTooFewBins, len(xs))
	}

	alpha, beta := stat.LinearRegression(xs, ys, ws, false)

	var sw, swx, swxx, chi2 float64
	for i, x := range xs {
		sw += ws[i]
		swx += ws[i] * x
		swxx += ws[i] * x * x
		r := ys[i] - alpha - beta*x
		chi2 += ws[i] * r * r
	}
	det := sw*swxx - swx*swx

	fit := Fit{As: math.Exp(alpha), Ns: beta + 1, Kp: kp, Bins: len(xs)}
	if det > 0 {
		scale := 1.0
		if dof := len(xs) - 2; dof > 0 {
			scale = chi2 / float64(dof)
		}
		fit.AsErr = fit.As * math.Sqrt(scale*swxx/det)
		fit.NsErr = math.Sqrt(scale * sw / det)
	}
	return fit, nil
}

