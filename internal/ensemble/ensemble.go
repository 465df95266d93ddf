// Package ensemble measures the spectrum fit over many seeds to show the
// cosmic variance of A_s and n_s on a given grid.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/realise"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var ErrNoTrials = errors.New("ensemble: no trials")

type Config struct {
	Grid      field.Grid
	Params    spectrum.Params
	Trials    int
	SeedStart int64
	Bins      int
	Workers   int
}

type Trial struct {
	Seed int64        `json:"seed"`
	Fit  spectrum.Fit `json:"fit"`
}

type Summary struct {
	Trials int     `json:"trials"`
	MeanAs float64 `json:"mean_as"`
	StdAs  float64 `json:"std_as"`
	MeanNs float64 `json:"mean_ns"`
	StdNs  float64 `json:"std_ns"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d trials: As = %.3e ± %.1e, ns = %.4f ± %.4f", s.Trials, s.MeanAs, s.StdAs, s.MeanNs, s.StdNs)
}

// Run realises cfg.Trials fields with consecutive seeds and fits each one.
// Trials are returned in seed order.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) ([]Trial, error) {
	if cfg.Trials <= 0 {
		return nil, ErrNoTrials
	}
	if err := cfg.Grid.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trials := make([]Trial, cfg.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < cfg.Trials; i++ {
		i := i
		seed := cfg.SeedStart + int64(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fit, err := fitSeed(cfg, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			trials[i] = Trial{Seed: seed, Fit: fit}
			logger.Debug("trial done", zap.Int64("seed", seed), zap.Float64("ns", fit.Ns))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trials, nil
}

func fitSeed(cfg Config, seed int64) (spectrum.Fit, error) {
	r, err := realise.New(cfg.Grid)
	if err != nil {
		return spectrum.Fit{}, err
	}
	if err := r.BuildSeeded(cfg.Params, seed); err != nil {
		return spectrum.Fit{}, err
	}
	s, err := spectrum.Measure(r.SI, spectrum.Options{Bins: cfg.Bins})
	if err != nil {
		return spectrum.Fit{}, err
	}
	return spectrum.FitScaleInvariant(s, cfg.Params.Kp)
}

func Summarise(trials []Trial) Summary {
	if len(trials) == 0 {
		return Summary{}
	}
	as := make([]float64, len(trials))
	ns := make([]float64, len(trials))
	for i, t := range trials {
		as[i] = t.Fit.As
		ns[i] = t.Fit.Ns
	}
	s := Summary{Trials: len(trials)}
	s.MeanAs, s.StdAs = stat.MeanStdDev(as, nil)
	s.MeanNs, s.StdNs = stat.MeanStdDev(ns, nil)
	return s
}
