package video

import (
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
)

// GIF encodes a frame sequence to an animated GIF without external tools.
type GIF struct {
	// Delay between frames in hundredths of a second.
	Delay int
}

func NewGIF() *GIF {
	// 25 fps slowed down twice, as the ffmpeg defaults
	return &GIF{Delay: 8}
}

func (g *GIF) Ext() string { return "gif" }

func (g *GIF) Encode(ctx context.Context, seq Sequence, out string) error {
	anim := gif.GIF{LoopCount: 0}
	for i := 0; i < seq.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := decodePNG(seq.Path(i))
		if err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrEncodeFailed, i, err)
		}
		bounds := img.Bounds()
		p := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(p, bounds, img, bounds.Min)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, g.Delay)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return f.Close()
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
