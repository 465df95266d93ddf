// Package render draws physical fields as colour-mapped images.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrUnknownColormap = errors.New("render: unknown colormap")

const lutSize = 256

type blendSpace int

const (
	blendRGB blendSpace = iota
	blendLab
)

type colormapDef struct {
	stops []string
	space blendSpace
}

var colormaps = map[string]colormapDef{
	"jet": {
		stops: []string{"#00007f", "#0000ff", "#007fff", "#00ffff", "#7fff7f", "#ffff00", "#ff7f00", "#ff0000", "#7f0000"},
		space: blendRGB,
	},
	"viridis": {
		stops: []string{"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
		space: blendLab,
	},
	"gray": {
		stops: []string{"#000000", "#ffffff"},
		space: blendRGB,
	},
}

// Colormap maps [0, 1] to colours through a precomputed table.
type Colormap struct {
	Name string
	lut  [lutSize]color.RGBA
}

func Lookup(name string) (*Colormap, error) {
	def, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
	}

	stops := make([]colorful.Color, len(def.stops))
	for i, hex := range def.stops {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("render: colormap %s stop %d: %w", name, i, err)
		}
		stops[i] = c
	}

	cm := &Colormap{Name: name}
	segments := float64(len(stops) - 1)
	for i := range cm.lut {
		t := float64(i) / (lutSize - 1) * segments
		seg := int(t)
		if seg >= len(stops)-1 {
			seg = len(stops) - 2
		}
		frac := t - float64(seg)

		var c colorful.Color
		if def.space == blendLab {
			c = stops[seg].BlendLab(stops[seg+1], frac)
		} else {
			c = stops[seg].BlendRgb(stops[seg+1], frac)
		}
		r, g, b := c.Clamped().RGB255()
		cm.lut[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return cm, nil
}

// At returns the colour for t, clamped to [0, 1]. NaN maps to the low end.
func (c *Colormap) At(t float64) color.RGBA {
	if !(t > 0) {
		return c.lut[0]
	}
	if t >= 1 {
		return c.lut[lutSize-1]
	}
	return c.lut[int(t*(lutSize-1)+0.5)]
}

func Colormaps() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
