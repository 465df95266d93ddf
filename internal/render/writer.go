package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"runtime"

	"github.com/san-kum/cosmofield/internal/evolve"
	"github.com/san-kum/cosmofield/internal/video"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FrameWriter is an evolve.Observer that writes each snapshot as the next
// numbered PNG in a directory. Encoding runs on a bounded worker group.
type FrameWriter struct {
	dir    string
	opts   Options
	logger *zap.Logger

	group *errgroup.Group
	gctx  context.Context
	count int
}

// NewFrameWriter prepares dir for a new sequence. Frames already in dir are
// removed so the directory holds exactly the frames written here.
func NewFrameWriter(ctx context.Context, dir string, opts Options, workers int, logger *zap.Logger) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stale, err := video.ClearFrames(dir)
	if err != nil {
		return nil, fmt.Errorf("render: clearing %s: %w", dir, err)
	}
	if stale > 0 {
		logger.Info("removed stale frames", zap.String("dir", dir), zap.Int("count", stale))
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return &FrameWriter{dir: dir, opts: opts, logger: logger, group: g, gctx: gctx}, nil
}

func (w *FrameWriter) OnSnapshot(_ context.Context, s evolve.Snapshot) error {
	if err := w.gctx.Err(); err != nil {
		// a failed write cancels the group; report that failure
		if werr := w.group.Wait(); werr != nil {
			return werr
		}
		return err
	}

	img, err := Frame(s.Field, w.opts)
	if err != nil {
		return err
	}
	path := video.NewSequence(w.dir, 0).Path(w.count)
	w.count++

	w.group.Go(func() error {
		if err := writePNG(path, img); err != nil {
			return fmt.Errorf("render: frame %d (eta=%g): %w", s.Index, s.Eta, err)
		}
		w.logger.Debug("wrote frame", zap.String("path", path), zap.Float64("eta", s.Eta))
		return nil
	})
	return nil
}

// Close waits for pending frames and returns the written sequence.
func (w *FrameWriter) Close() (video.Sequence, error) {
	if err := w.group.Wait(); err != nil {
		return video.Sequence{}, err
	}
	return video.NewSequence(w.dir, w.count), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
