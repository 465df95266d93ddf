package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/cosmofield/internal/spectrum"
)

type Point struct{ X, Y float64 }

type bounds struct{ minX, maxX, minY, maxY float64 }

func boundsOf(points []Point) bounds {
	b := bounds{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for _, p := range points {
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}
	return b
}

// pad widens b by 10% on each side.
func (b bounds) pad() bounds {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return bounds{b.minX - rx*0.1, b.maxX + rx*0.1, b.minY - ry*0.1, b.maxY + ry*0.1}
}

func (b bounds) project(p Point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
}

func path(sb *strings.Builder, b bounds, points []Point, width, height int, stroke string) {
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke))
	for i, p := range points {
		x, y := b.project(p, width, height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString(`"/>
`)
}

// SeriesToSVG draws a single line, e.g. rms against eta.
func SeriesToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	b := boundsOf(points).pad()

	var sb strings.Builder
	header(&sb, width, height)
	path(&sb, b, points, width, height, strokeColor)
	sb.WriteString("</svg>")
	return sb.String()
}

// SpectrumToSVG plots a measured spectrum in μK² against ℓ on log axes, with
// standard-error bars and, if fit is non-nil, the fitted power law.
func SpectrumToSVG(s *spectrum.Spectrum, fit *spectrum.Fit, width, height int) string {
	ell := s.Multipoles()
	power, errs := s.MicroKelvin()

	var pts []Point
	var bars [][2]Point
	for i := range ell {
		if s.Counts[i] == 0 || power[i] <= 0 || ell[i] <= 0 {
			continue
		}
		lo := power[i] - errs[i]
		if lo <= 0 {
			lo = power[i] / 10
		}
		pts = append(pts, Point{math.Log10(ell[i]), math.Log10(power[i])})
		bars = append(bars, [2]Point{
			{math.Log10(ell[i]), math.Log10(lo)},
			{math.Log10(ell[i]), math.Log10(power[i] + errs[i])},
		})
	}
	if len(pts) < 2 {
		return ""
	}

	all := append([]Point(nil), pts...)
	for _, bar := range bars {
		all = append(all, bar[0], bar[1])
	}
	b := boundsOf(all).pad()

	var sb strings.Builder
	header(&sb, width, height)

	if fit != nil {
		conv := spectrum.TCMBMicroKelvin * spectrum.TCMBMicroKelvin
		line := make([]Point, 0, 64)
		for i := 0; i < 64; i++ {
			lx := b.minX + (b.maxX-b.minX)*float64(i)/63
			k := math.Pow(10, lx) / spectrum.DistToLastScatter
			line = append(line, Point{lx, math.Log10(fit.Model(k) * conv)})
		}
		path(&sb, b, line, width, height, "#ff6b6b")
	}

	sb.WriteString(`<g stroke="#00bfff" stroke-width="1">
`)
	for _, bar := range bars {
		x1, y1 := b.project(bar[0], width, height)
		x2, y2 := b.project(bar[1], width, height)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1, y1, x2, y2))
	}
	sb.WriteString(`</g>
<g fill="#00bfff">
`)
	for _, p := range pts {
		x, y := b.project(p, width, height)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3"/>
`, x, y))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
