package render

import (
	"fmt"
	"image"
	"math"

	"github.com/san-kum/cosmofield/internal/field"
)

// Limits fixes the values mapped to the ends of the colour map. Auto limits
// follow each frame's own min and max.
type Limits struct {
	Lo   float64
	Hi   float64
	Auto bool
}

// Symmetric returns limits of ±c.
func Symmetric(c float64) Limits {
	c = math.Abs(c)
	return Limits{Lo: -c, Hi: c}
}

func AutoLimits() Limits { return Limits{Auto: true} }

// Resolve returns ordered limits for f.
func (l Limits) Resolve(f *field.Field) (lo, hi float64) {
	if l.Auto {
		s := f.Stats()
		return s.Min, s.Max
	}
	if l.Lo > l.Hi {
		return l.Hi, l.Lo
	}
	return l.Lo, l.Hi
}

type Options struct {
	Colormap *Colormap
	Limits   Limits
	// Upscale repeats every sample Upscale×Upscale times.
	Upscale int
}

// Frame renders a physical field with row 0 at the top of the image.
func Frame(f *field.Field, opts Options) (*image.RGBA, error) {
	if f.Space != field.Physical {
		return nil, fmt.Errorf("%w: cannot render %s field", field.ErrWrongSpace, f.Space)
	}
	cm := opts.Colormap
	if cm == nil {
		var err error
		if cm, err = Lookup("jet"); err != nil {
			return nil, err
		}
	}
	up := opts.Upscale
	if up < 1 {
		up = 1
	}

	lo, hi := opts.Limits.Resolve(f)
	span := hi - lo

	n := len(f.Real)
	img := image.NewRGBA(image.Rect(0, 0, n*up, n*up))
	field.ParallelFor(n, 16, func(start, end int) {
		for y := start; y < end; y++ {
			for x, v := range f.Real[y] {
				t := 0.5
				if span > 0 {
					t = (v - lo) / span
				}
				c := cm.At(t)
				for dy := 0; dy < up; dy++ {
					for dx := 0; dx < up; dx++ {
						img.SetRGBA(x*up+dx, y*up+dy, c)
					}
				}
			}
		}
	})
	return img, nil
}
