package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/upperair/internal/mapproj"
)

// Pivot is the part of a wind barb placed on its grid point.
type Pivot int

const (
	PivotTip Pivot = iota
	PivotMiddle
)

// Barb increments, in the speed unit of the data.
const (
	flagSpeed = 50
	barbSpeed = 10
	halfSpeed = 5
)

// Glyph proportions relative to the barb length.
const (
	barbHeight  = 0.4
	flagWidth   = 0.25
	barbSpacing = 0.125
	emptyRadius = 0.15
)

// DefaultBarbLength is the shaft length used when BarbStyle leaves it zero.
var DefaultBarbLength = vg.Points(28)

// BarbStyle sets the appearance of wind barbs.
type BarbStyle struct {
	Length vg.Length
	Color  color.Color
	Width  vg.Length
	Pivot  Pivot
}

func (s BarbStyle) withDefaults() BarbStyle {
	if s.Length == 0 {
		s.Length = DefaultBarbLength
	}
	if s.Color == nil {
		s.Color = color.Black
	}
	if s.Width == 0 {
		s.Width = vg.Points(1)
	}
	return s
}

// Feathers is the decomposition of a speed into flags, full barbs and an
// optional half barb after rounding to the nearest half barb. Empty is set
// for calm winds, drawn as a circle.
type Feathers struct {
	Flags, Barbs int
	Half, Empty  bool
}

// Decompose splits speed into barb feathers.
func Decompose(speed float64) Feathers {
	speed = halfSpeed * math.Round(math.Abs(speed)/halfSpeed)
	f := Feathers{Flags: int(speed / flagSpeed)}
	speed -= float64(f.Flags) * flagSpeed
	f.Barbs = int(speed / barbSpeed)
	speed -= float64(f.Barbs) * barbSpeed
	f.Half = speed >= halfSpeed
	f.Empty = f.Flags == 0 && f.Barbs == 0 && !f.Half
	return f
}

// BarbSet is a set of wind barbs in map coordinates. U and V are the wind
// components rotated onto the map grid.
type BarbSet struct {
	Style      BarbStyle
	X, Y, U, V []float64
}

func (bs *BarbSet) dataBounds() (mapproj.Bounds, bool) {
	return boundsOf(bs.X, bs.Y)
}

func (bs *BarbSet) layer() int { return layerOverlay }

// Plot implements the plot.Plotter interface.
func (bs *BarbSet) Plot(c draw.Canvas, p *plot.Plot) {
	tx, ty := p.Transforms(&c)
	sty := bs.Style.withDefaults()
	line := draw.LineStyle{Color: sty.Color, Width: sty.Width}
	for k := range bs.X {
		x, y, u, v := bs.X[k], bs.Y[k], bs.U[k], bs.V[k]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(u) || math.IsNaN(v) {
			continue
		}
		at := vg.Point{X: tx(x), Y: ty(y)}
		if !c.Contains(at) {
			continue
		}
		// Canvas direction of the wind, allowing for unequal axis scales.
		dx := float64(tx(x+u) - at.X)
		dy := float64(ty(y+v) - at.Y)
		g := barbGlyph(at, dx, dy, math.Hypot(u, v), sty)
		for _, f := range g.flags {
			c.FillPolygon(sty.Color, f)
		}
		c.StrokeLines(line, g.lines...)
	}
}

type glyph struct {
	lines [][]vg.Point
	flags [][]vg.Point
}

// barbGlyph builds the barb for a wind of the given speed blowing along
// (dx, dy) at point at. The shaft points to where the wind comes from and
// feathers lie on the right of the shaft seen from its base.
func barbGlyph(at vg.Point, dx, dy, speed float64, sty BarbStyle) glyph {
	var g glyph
	feathers := Decompose(speed)
	length := sty.Length
	if feathers.Empty || (dx == 0 && dy == 0) {
		g.lines = append(g.lines, circle(at, length*emptyRadius))
		return g
	}
	n := math.Hypot(dx, dy)
	// s runs along the shaft from base to tip, r is to its right.
	s := vg.Point{X: vg.Length(-dx / n), Y: vg.Length(-dy / n)}
	r := vg.Point{X: s.Y, Y: -s.X}

	base := at
	if sty.Pivot == PivotMiddle {
		base = at.Add(s.Scale(-length / 2))
	}
	tip := base.Add(s.Scale(length))
	g.lines = append(g.lines, []vg.Point{base, tip})

	height := length * barbHeight
	width := length * flagWidth
	spacing := length * barbSpacing
	pos := vg.Length(0)
	on := func(d vg.Length) vg.Point { return tip.Add(s.Scale(-d)) }

	for range feathers.Flags {
		q := on(pos)
		g.flags = append(g.flags, []vg.Point{
			q,
			q.Add(r.Scale(height)).Add(s.Scale(-width / 2)),
			q.Add(s.Scale(-width)),
		})
		pos += width + spacing
	}
	for range feathers.Barbs {
		q := on(pos)
		g.lines = append(g.lines, []vg.Point{q, q.Add(r.Scale(height)).Add(s.Scale(width / 2))})
		pos += spacing
	}
	if feathers.Half {
		if feathers.Flags == 0 && feathers.Barbs == 0 {
			pos += 1.5 * spacing
		}
		q := on(pos)
		g.lines = append(g.lines, []vg.Point{q, q.Add(r.Scale(height / 2)).Add(s.Scale(width / 4))})
	}
	return g
}

func circle(at vg.Point, radius vg.Length) []vg.Point {
	const n = 16
	pts := make([]vg.Point, n+1)
	for i := range pts {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / n)
		pts[i] = vg.Point{X: at.X + radius*vg.Length(cos), Y: at.Y + radius*vg.Length(sin)}
	}
	return pts
}
