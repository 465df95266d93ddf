package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Builder turns one frame sequence into exactly one video file.
type Builder struct {
	Encoder    Encoder
	OutDir     string
	KeepFrames bool
	Logger     *zap.Logger
}

func NewBuilder(enc Encoder, outDir string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{Encoder: enc, OutDir: outDir, Logger: logger}
}

// Build encodes seq to <OutDir>/<name>.<ext> and returns the output path.
// Unless KeepFrames is set, the frames are removed afterwards.
func (b *Builder) Build(ctx context.Context, seq Sequence, name string) (string, error) {
	if err := seq.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.OutDir, 0755); err != nil {
		return "", err
	}

	out := filepath.Join(b.OutDir, name+"."+b.Encoder.Ext())
	b.Logger.Info("encoding video",
		zap.Int("frames", seq.Count),
		zap.String("frames_dir", seq.Dir),
		zap.String("output", out),
	)

	if err := b.Encoder.Encode(ctx, seq, out); err != nil {
		return "", err
	}

	info, err := os.Stat(out)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoOutput, out)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrNoOutput, out)
	}

	if !b.KeepFrames {
		if err := RemoveFrames(seq); err != nil {
			b.Logger.Warn("removing frames", zap.Error(err))
		}
	}
	return out, nil
}

// RemoveFrames deletes the frames of seq, then its directory if nothing else
// is left in it.
func RemoveFrames(seq Sequence) error {
	for i := 0; i < seq.Count; i++ {
		if err := os.Remove(seq.Path(i)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	entries, err := os.ReadDir(seq.Dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return os.Remove(seq.Dir)
	}
	return nil
}

// ClearFrames removes every frame file in dir left by an earlier run and
// returns how many were removed. A missing dir has none.
func ClearFrames(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, framesGlob))
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return 0, err
		}
	}
	return len(matches), nil
}
