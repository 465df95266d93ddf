package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultInputRate = 25
	DefaultSlowDown  = 2
	DefaultFPS       = 30
	DefaultPixFmt    = "yuv420p"
)

// FFmpeg encodes a frame sequence to mp4 by running the ffmpeg binary.
type FFmpeg struct {
	Binary    string
	InputRate float64
	SlowDown  float64
	FPS       float64
	PixFmt    string
	Logger    *zap.Logger
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		Binary:    "ffmpeg",
		InputRate: DefaultInputRate,
		SlowDown:  DefaultSlowDown,
		FPS:       DefaultFPS,
		PixFmt:    DefaultPixFmt,
	}
}

func (f *FFmpeg) Ext() string { return "mp4" }

// Args builds the command line. The image2 demuxer reads numbered files until
// one is missing, so the output is capped at seq.Count frames.
func (f *FFmpeg) Args(seq Sequence, out string) []string {
	return []string{
		"-framerate", formatFloat(f.InputRate, DefaultInputRate),
		"-i", seq.Input(),
		"-filter:v", "setpts=" + formatFloat(f.SlowDown, DefaultSlowDown) + "*PTS",
		"-r", formatFloat(f.FPS, DefaultFPS),
		"-pix_fmt", orDefault(f.PixFmt, DefaultPixFmt),
		"-frames:v", strconv.Itoa(seq.Count),
		"-y", out,
	}
}

func (f *FFmpeg) Encode(ctx context.Context, seq Sequence, out string) error {
	bin, err := exec.LookPath(orDefault(f.Binary, "ffmpeg"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderNotFound, err)
	}

	args := f.Args(seq, out)
	if f.Logger != nil {
		f.Logger.Debug("running ffmpeg", zap.String("binary", bin), zap.Strings("args", args))
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: ffmpeg exited %d: %s", ErrEncodeFailed, exitErr.ExitCode(), tail(output.String(), 10))
		}
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return nil
}

func formatFloat(v, def float64) string {
	if v <= 0 {
		v = def
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// tail keeps the last n lines of ffmpeg's log, which carry the error.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
