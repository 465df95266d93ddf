// Package video assembles numbered frame images into a single video file.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FramePattern names frame i inside a frame directory.
const (
	FramePattern = "field_%04d.png"
	framesGlob   = "field_*.png"
)

var (
	ErrNoFrames        = errors.New("video: no frames")
	ErrBadSequence     = errors.New("video: frame sequence not contiguous")
	ErrEncoderNotFound = errors.New("video: encoder not found")
	ErrEncodeFailed    = errors.New("video: encoding failed")
	ErrNoOutput        = errors.New("video: encoder produced no output")
)

// Sequence is Count frames named Pattern, numbered from 0, in Dir.
type Sequence struct {
	Dir     string
	Pattern string
	Count   int
}

func NewSequence(dir string, count int) Sequence {
	return Sequence{Dir: dir, Pattern: FramePattern, Count: count}
}

func (s Sequence) Path(i int) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.pattern(), i))
}

// Input is the printf-style path handed to encoders.
func (s Sequence) Input() string {
	return filepath.Join(s.Dir, s.pattern())
}

func (s Sequence) pattern() string {
	if s.Pattern == "" {
		return FramePattern
	}
	return s.Pattern
}

// Validate checks that every frame in the sequence exists.
func (s Sequence) Validate() error {
	if s.Count <= 0 {
		return ErrNoFrames
	}
	for i := 0; i < s.Count; i++ {
		info, err := os.Stat(s.Path(i))
		if err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrBadSequence, i, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: frame %d is a directory", ErrBadSequence, i)
		}
	}
	return nil
}

// Discover finds the frames already written to dir. Frames past a gap make
// the sequence invalid.
func Discover(dir string) (Sequence, error) {
	if _, err := os.Stat(dir); err != nil {
		return Sequence{}, err
	}

	seq := NewSequence(dir, 0)
	for {
		if _, err := os.Stat(seq.Path(seq.Count)); err != nil {
			break
		}
		seq.Count++
	}

	matches, err := filepath.Glob(filepath.Join(dir, framesGlob))
	if err != nil {
		return Sequence{}, err
	}
	if len(matches) == 0 {
		return Sequence{}, ErrNoFrames
	}
	if len(matches) != seq.Count {
		return Sequence{}, fmt.Errorf("%w: %d frames found, %d contiguous from 0", ErrBadSequence, len(matches), seq.Count)
	}
	return seq, nil
}

type Encoder interface {
	Encode(ctx context.Context, seq Sequence, out string) error
	// Ext is the output file extension without the dot.
	Ext() string
}

// EncoderByName returns the encoder registered as name with its defaults.
func EncoderByName(name string) (Encoder, error) {
	switch name {
	case "ffmpeg", "":
		return NewFFmpeg(), nil
	case "gif":
		return NewGIF(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrEncoderNotFound, name)
	}
}
