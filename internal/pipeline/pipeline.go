// Package pipeline wires a configuration into a full run: realise, measure,
// evolve, render, encode and store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/cosmofield/internal/config"
	"github.com/san-kum/cosmofield/internal/evolve"
	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/realise"
	"github.com/san-kum/cosmofield/internal/render"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/san-kum/cosmofield/internal/storage"
	"github.com/san-kum/cosmofield/internal/transfer"
	"github.com/san-kum/cosmofield/internal/video"
	"go.uber.org/zap"
)

type Result struct {
	RunID     string
	Video     string
	Spectrum  *spectrum.Spectrum
	Fit       *spectrum.Fit
	Snapshots []evolve.Snapshot
	Frames    video.Sequence
}

type Pipeline struct {
	cfg       *config.Config
	store     *storage.Store
	logger    *zap.Logger
	observers []evolve.Observer

	// NoVideo stops after writing frames.
	NoVideo bool
}

// New returns a pipeline for cfg. store may be nil to skip saving the run.
func New(cfg *config.Config, store *storage.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, store: store, logger: logger}
}

func (p *Pipeline) AddObserver(o evolve.Observer) { p.observers = append(p.observers, o) }

// Realise draws the seeded scale-invariant field.
func (p *Pipeline) Realise() (*realise.Realisation, error) {
	if p.cfg.Workers > 0 {
		fft.SetWorkerPoolSize(p.cfg.Workers)
	}
	r, err := realise.New(p.cfg.Grid)
	if err != nil {
		return nil, err
	}
	if err := r.BuildSeeded(p.cfg.Cosmology, p.cfg.Seed); err != nil {
		return nil, err
	}
	p.logger.Info("realised field",
		zap.Int("n", p.cfg.Grid.N),
		zap.Float64("scale", p.cfg.Grid.Scale),
		zap.Int64("seed", p.cfg.Seed),
	)
	return r, nil
}

// Measure bins and fits the scale-invariant field's spectrum. A failed fit
// is logged and returns a nil Fit.
func (p *Pipeline) Measure(r *realise.Realisation, bins int) (*spectrum.Spectrum, *spectrum.Fit, error) {
	s, err := spectrum.Measure(r.SI, spectrum.Options{Bins: bins})
	if err != nil {
		return nil, nil, err
	}
	fit, err := spectrum.FitScaleInvariant(s, p.cfg.Cosmology.Kp)
	if err != nil {
		p.logger.Warn("spectrum fit failed", zap.Error(err))
		return s, nil, nil
	}
	p.logger.Info("fitted spectrum",
		zap.Float64("as", fit.As),
		zap.Float64("ns", fit.Ns),
		zap.Float64("ns_err", fit.NsErr),
	)
	return s, &fit, nil
}

// Transfer requests transfer functions for every configured eta, sampled on
// the grid's k range.
func (p *Pipeline) Transfer(ctx context.Context) (*transfer.Table, error) {
	src, err := transfer.New(p.cfg.Transfer)
	if err != nil {
		return nil, err
	}
	ks, err := field.SampleKs(p.cfg.Grid, p.cfg.Transfer.Samples)
	if err != nil {
		return nil, err
	}
	etas := p.cfg.Etas()

	start := time.Now()
	tbl, err := src.Transfer(ctx, ks, etas)
	if err != nil {
		return nil, fmt.Errorf("transfer functions: %w", err)
	}
	p.logger.Info("transfer functions ready",
		zap.String("kind", p.cfg.Transfer.Kind),
		zap.Int("ks", len(ks)),
		zap.Int("etas", len(etas)),
		zap.Duration("took", time.Since(start)),
	)
	return tbl, nil
}

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	r, err := p.Realise()
	if err != nil {
		return nil, err
	}
	spec, fit, err := p.Measure(r, spectrum.DefaultBins)
	if err != nil {
		return nil, err
	}
	tbl, err := p.Transfer(ctx)
	if err != nil {
		return nil, err
	}

	cm, err := render.Lookup(p.cfg.Render.Colormap)
	if err != nil {
		return nil, err
	}
	opts := render.Options{Colormap: cm, Limits: p.cfg.Limits(), Upscale: p.cfg.Render.Upscale}
	fw, err := render.NewFrameWriter(ctx, p.cfg.FramesDir(), opts, p.cfg.Workers, p.logger)
	if err != nil {
		return nil, err
	}

	ev := evolve.New(p.logger)
	ev.AddObserver(fw)
	for _, o := range p.observers {
		ev.AddObserver(o)
	}

	evolved, runErr := ev.Run(ctx, r, tbl)
	seq, closeErr := fw.Close()
	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	result := &Result{Spectrum: spec, Fit: fit, Snapshots: evolved.Snapshots, Frames: seq}

	if !p.NoVideo {
		enc, err := p.cfg.Encoder(p.logger)
		if err != nil {
			return nil, err
		}
		b := video.NewBuilder(enc, p.cfg.OutputDir, p.logger)
		b.KeepFrames = p.cfg.Video.KeepFrames
		if result.Video, err = b.Build(ctx, seq, p.cfg.Video.Name); err != nil {
			return nil, err
		}
	}

	if p.store != nil {
		meta := &storage.RunMetadata{
			Seed:      p.cfg.Seed,
			Grid:      p.cfg.Grid,
			Cosmology: p.cfg.Cosmology,
			Transfer:  p.cfg.Transfer,
			Etas:      tbl.Etas,
			Fit:       fit,
			Encoder:   p.cfg.Video.Encoder,
			Video:     result.Video,
			Elapsed:   time.Since(start).Seconds(),
		}
		if result.RunID, err = p.store.Save(meta, spec, evolved.Snapshots); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
	}

	p.logger.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.String("video", result.Video),
		zap.Int("frames", seq.Count),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}
