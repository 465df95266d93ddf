package transfer

import (
	"context"
	"math"
)

const DefaultDamping = 1.5

// SoundSpeed is the photon-baryon sound speed in the tight-coupling limit.
var SoundSpeed = 1 / math.Sqrt(3)

// Analytic approximates the temperature monopole source in the
// tight-coupling limit: acoustic oscillations in k·c_s·η with Silk damping
// above k_D(η) = Damping/√η.
type Analytic struct {
	Damping float64
}

func NewAnalytic() *Analytic {
	return &Analytic{Damping: DefaultDamping}
}

func (a *Analytic) At(k, eta float64) float64 {
	if eta <= 0 {
		return 1.0 / 3
	}
	d := a.Damping
	if d <= 0 {
		d = DefaultDamping
	}
	kd := d / math.Sqrt(eta)
	return math.Cos(k*SoundSpeed*eta) * math.Exp(-(k/kd)*(k/kd)) / 3
}

func (a *Analytic) Transfer(ctx context.Context, ks, etas []float64) (*Table, error) {
	t := &Table{
		Ks:     append([]float64(nil), ks...),
		Etas:   append([]float64(nil), etas...),
		Values: make([][]float64, len(etas)),
	}
	for i, eta := range etas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]float64, len(ks))
		for j, k := range ks {
			row[j] = a.At(k, eta)
		}
		t.Values[i] = row
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
