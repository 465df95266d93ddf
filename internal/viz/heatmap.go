package viz

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/render"
)

const halfBlock = "▀"

// Heatmap draws f as cols×rows terminal cells. Each cell covers two sample
// rows: the upper one as foreground and the lower one as background.
func Heatmap(f *field.Field, cm *render.Colormap, limits render.Limits, cols, rows int) (string, error) {
	if f.Space != field.Physical {
		return "", fmt.Errorf("%w: cannot draw %s field", field.ErrWrongSpace, f.Space)
	}
	n := len(f.Real)
	if n == 0 || cols <= 0 || rows <= 0 {
		return "", nil
	}
	lo, hi := limits.Resolve(f)
	span := hi - lo
	sample := func(x, y int) color.RGBA {
		v := f.Real[y*n/(2*rows)][x*n/cols]
		t := 0.5
		if span > 0 {
			t = (v - lo) / span
		}
		return cm.At(t)
	}

	var b strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			top, bottom := sample(col, 2*row), sample(col, 2*row+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render(halfBlock))
		}
		if row < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
