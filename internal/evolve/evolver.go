// Package evolve applies a transfer function table to a realisation, producing
// one snapshot per conformal time.
package evolve

import (
	"context"
	"fmt"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/realise"
	"github.com/san-kum/cosmofield/internal/transfer"
	"go.uber.org/zap"
)

// Snapshot is the field at one conformal time. Field is nil in Result
// snapshots unless the Evolver keeps fields.
type Snapshot struct {
	Index int
	Eta   float64
	Field *field.Field
	Stats field.Stats
}

type Observer interface {
	OnSnapshot(ctx context.Context, s Snapshot) error
}

type ObserverFunc func(ctx context.Context, s Snapshot) error

func (f ObserverFunc) OnSnapshot(ctx context.Context, s Snapshot) error { return f(ctx, s) }

type Result struct {
	Snapshots []Snapshot
}

// Etas lists the conformal time of every snapshot.
func (r *Result) Etas() []float64 {
	etas := make([]float64, len(r.Snapshots))
	for i, s := range r.Snapshots {
		etas[i] = s.Eta
	}
	return etas
}

type Evolver struct {
	logger     *zap.Logger
	observers  []Observer
	keepFields bool
}

func New(logger *zap.Logger) *Evolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evolver{logger: logger}
}

func (e *Evolver) AddObserver(o Observer) { e.observers = append(e.observers, o) }

// KeepFields retains every evolved field in the Result. At N = 1024 each
// snapshot holds 8 MiB.
func (e *Evolver) KeepFields(keep bool) { e.keepFields = keep }

// Run evolves r through every eta of tbl in order. On cancellation it returns
// the snapshots produced so far together with ctx.Err().
func (e *Evolver) Run(ctx context.Context, r *realise.Realisation, tbl *transfer.Table) (*Result, error) {
	if len(tbl.Ks) < transfer.MinSamples {
		return nil, fmt.Errorf("%w: %d ks, need at least %d", ErrTooFewSamples, len(tbl.Ks), transfer.MinSamples)
	}
	if len(tbl.Etas) == 0 {
		return nil, ErrNoEtas
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}
	if r.Modes == nil {
		return nil, realise.ErrNotBuilt
	}

	result := &Result{Snapshots: make([]Snapshot, 0, len(tbl.Etas))}
	e.logger.Info("evolving field",
		zap.Int("n", r.Grid.N),
		zap.Float64("scale", r.Grid.Scale),
		zap.Int("steps", len(tbl.Etas)),
		zap.Int("ks", len(tbl.Ks)),
	)

	for i, eta := range tbl.Etas {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		spl, err := tbl.Spline(i)
		if err != nil {
			return result, &StepError{Step: i, Eta: eta, Wrapped: err}
		}
		f, err := r.Evolve(spl)
		if err != nil {
			return result, &StepError{Step: i, Eta: eta, Wrapped: err}
		}
		if !f.IsFinite() {
			return result, &StepError{Step: i, Eta: eta, Wrapped: ErrUnstable}
		}

		snap := Snapshot{Index: i, Eta: eta, Field: f, Stats: f.Stats()}
		for _, obs := range e.observers {
			if err := obs.OnSnapshot(ctx, snap); err != nil {
				return result, &StepError{Step: i, Eta: eta, Wrapped: err}
			}
		}

		e.logger.Debug("snapshot",
			zap.Int("index", i),
			zap.Float64("eta", eta),
			zap.Float64("rms", snap.Stats.RMS),
		)

		if !e.keepFields {
			snap.Field = nil
		}
		result.Snapshots = append(result.Snapshots, snap)
	}

	return result, nil
}
