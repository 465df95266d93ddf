package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/render"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/san-kum/cosmofield/internal/transfer"
	"github.com/san-kum/cosmofield/internal/video"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultN         = 1024
	DefaultScale     = 1000.0
	DefaultEtaStart  = 1.0
	DefaultEtaStop   = 280.0
	DefaultEtaStep   = 1.0
	DefaultClim      = 3e-7
	DefaultSamples   = 200
	DefaultSeed      = 1
	DefaultName      = "monopole_video"
	DefaultOutputDir = "output"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Grid      field.Grid       `yaml:"grid"`
	Cosmology spectrum.Params  `yaml:"cosmology"`
	Evolution EvolutionConfig  `yaml:"evolution"`
	Transfer  transfer.Options `yaml:"transfer"`
	Render    RenderConfig     `yaml:"render"`
	Video     VideoConfig      `yaml:"video"`
	Seed      int64            `yaml:"seed"`
	Workers   int              `yaml:"workers"`
	OutputDir string           `yaml:"output_dir"`
}

// EvolutionConfig lists conformal times either explicitly or as an
// inclusive range.
type EvolutionConfig struct {
	Start float64   `yaml:"start"`
	Stop  float64   `yaml:"stop"`
	Step  float64   `yaml:"step"`
	List  []float64 `yaml:"list,omitempty"`
}

type RenderConfig struct {
	Colormap string  `yaml:"colormap"`
	Clim     float64 `yaml:"clim"`
	Auto     bool    `yaml:"auto_limits"`
	Upscale  int     `yaml:"upscale"`
}

type VideoConfig struct {
	Name       string  `yaml:"name"`
	Encoder    string  `yaml:"encoder"`
	Binary     string  `yaml:"binary,omitempty"`
	InputRate  float64 `yaml:"input_rate"`
	SlowDown   float64 `yaml:"slow_down"`
	FPS        float64 `yaml:"fps"`
	KeepFrames bool    `yaml:"keep_frames"`
	FramesDir  string  `yaml:"frames_dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Grid:      field.Grid{N: DefaultN, Scale: DefaultScale},
		Cosmology: spectrum.DefaultParams(),
		Evolution: EvolutionConfig{Start: DefaultEtaStart, Stop: DefaultEtaStop, Step: DefaultEtaStep},
		Transfer: transfer.Options{
			Kind:    "analytic",
			Source:  "monopole",
			Samples: DefaultSamples,
			Damping: transfer.DefaultDamping,
		},
		Render: RenderConfig{Colormap: "jet", Clim: DefaultClim, Upscale: 1},
		Video: VideoConfig{
			Name:      DefaultName,
			Encoder:   "ffmpeg",
			InputRate: video.DefaultInputRate,
			SlowDown:  video.DefaultSlowDown,
			FPS:       video.DefaultFPS,
		},
		Seed:      DefaultSeed,
		OutputDir: DefaultOutputDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Etas expands the evolution schedule.
func (c *Config) Etas() []float64 {
	e := c.Evolution
	if len(e.List) > 0 {
		return slices.Clone(e.List)
	}
	if !(e.Step > 0) || e.Stop < e.Start {
		return nil
	}
	count := int(math.Floor((e.Stop-e.Start)/e.Step+1e-9)) + 1
	etas := make([]float64, count)
	for i := range etas {
		etas[i] = e.Start + float64(i)*e.Step
	}
	return etas
}

// FramesDir is where frames are written, by default pics_<N>_<scale> under
// the output directory.
func (c *Config) FramesDir() string {
	if c.Video.FramesDir != "" {
		return c.Video.FramesDir
	}
	return filepath.Join(c.OutputDir, fmt.Sprintf("pics_%d_%g", c.Grid.N, c.Grid.Scale))
}

func (c *Config) Limits() render.Limits {
	if c.Render.Auto {
		return render.AutoLimits()
	}
	return render.Symmetric(c.Render.Clim)
}

// Encoder builds the configured video encoder. logger may be nil.
func (c *Config) Encoder(logger *zap.Logger) (video.Encoder, error) {
	enc, err := video.EncoderByName(c.Video.Encoder)
	if err != nil {
		return nil, err
	}
	if ff, ok := enc.(*video.FFmpeg); ok {
		if c.Video.Binary != "" {
			ff.Binary = c.Video.Binary
		}
		ff.InputRate = c.Video.InputRate
		ff.SlowDown = c.Video.SlowDown
		ff.FPS = c.Video.FPS
		ff.Logger = logger
	}
	return enc, nil
}

func (c *Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Cosmology.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	etas := c.Etas()
	if len(etas) == 0 {
		return fmt.Errorf("%w: evolution schedule is empty", ErrInvalidConfig)
	}
	for _, eta := range etas {
		if math.IsNaN(eta) || math.IsInf(eta, 0) || eta < 0 {
			return fmt.Errorf("%w: eta %g", ErrInvalidConfig, eta)
		}
	}

	if !slices.Contains(transfer.Kinds(), c.Transfer.Kind) {
		return fmt.Errorf("%w: transfer kind %q (want one of %v)", ErrInvalidConfig, c.Transfer.Kind, transfer.Kinds())
	}
	if c.Transfer.Samples < transfer.MinSamples {
		return fmt.Errorf("%w: transfer samples %d < %d", ErrInvalidConfig, c.Transfer.Samples, transfer.MinSamples)
	}

	if !slices.Contains(render.Colormaps(), c.Render.Colormap) {
		return fmt.Errorf("%w: colormap %q", ErrInvalidConfig, c.Render.Colormap)
	}
	if c.Render.Upscale < 1 {
		return fmt.Errorf("%w: upscale %d", ErrInvalidConfig, c.Render.Upscale)
	}

	if _, err := video.EncoderByName(c.Video.Encoder); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Video.Name == "" {
		return fmt.Errorf("%w: video name is empty", ErrInvalidConfig)
	}
	return nil
}
