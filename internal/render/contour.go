package render

import (
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/upperair/internal/mapproj"
)

// ContourStyle sets the levels and appearance of contour lines.
type ContourStyle struct {
	Levels []float64
	Color  color.Color
	Width  vg.Length
}

func (s ContourStyle) lineStyle() draw.LineStyle {
	sty := draw.LineStyle{Color: s.Color, Width: s.Width}
	if sty.Color == nil {
		sty.Color = color.Black
	}
	if sty.Width == 0 {
		sty.Width = vg.Points(1.5)
	}
	return sty
}

// LabelStyle sets the appearance of inline contour labels.
type LabelStyle struct {
	// Format is the fmt verb applied to each level, "%.0f" by default.
	Format string
	// Size is the font size, 10 points by default.
	Size vg.Length
	// Spacing is the gap left in the line on each side of a label. Use
	// Pixels for gaps given in screen pixels.
	Spacing vg.Length
}

// ScreenDPI is the resolution of a figure on screen, at which sizes given in
// pixels are measured whatever the resolution the figure is saved at.
const ScreenDPI = 100

// Pixels returns the length of n screen pixels.
func Pixels(n float64) vg.Length {
	return vg.Length(n) * vg.Inch / ScreenDPI
}

// Isoline is one connected contour line in map coordinates.
type Isoline struct {
	Level float64
	X, Y  []float64
}

// ContourSet is a set of contour lines drawn on an axes.
type ContourSet struct {
	Style ContourStyle
	Lines []Isoline

	labels *LabelStyle
	grid   *mesh
}

// Clabel adds inline labels to every contour line long enough to hold one.
func (cs *ContourSet) Clabel(sty LabelStyle) {
	if sty.Format == "" {
		sty.Format = "%.0f"
	}
	if sty.Size == 0 {
		sty.Size = vg.Points(10)
	}
	cs.labels = &sty
}

// Labelled reports whether Clabel was called.
func (cs *ContourSet) Labelled() bool {
	return cs.labels != nil
}

func newContourSet(m *mesh, z [][]float64, sty ContourStyle) *ContourSet {
	cs := &ContourSet{Style: sty, grid: m}
	for _, level := range sty.Levels {
		for _, line := range trace(z, level) {
			iso := Isoline{
				Level: level,
				X:     make([]float64, len(line)),
				Y:     make([]float64, len(line)),
			}
			for k, e := range line {
				iso.X[k], iso.Y[k] = crossing(m, z, e, level)
			}
			cs.Lines = append(cs.Lines, iso)
		}
	}
	return cs
}

// edge identifies the grid edge leaving node (i, j) towards (i, j+1), or
// towards (i+1, j) when vertical.
type edge struct {
	i, j     int
	vertical bool
}

func (e edge) end() (int, int) {
	if e.vertical {
		return e.i + 1, e.j
	}
	return e.i, e.j + 1
}

type segment struct {
	a, b edge
}

func (s segment) other(e edge) edge {
	if s.a == e {
		return s.b
	}
	return s.a
}

// crossing returns the map position where the level crosses edge e,
// interpolated linearly between its end nodes. Edges torn by a longitude
// wrap give NaN, which breaks the line there.
func crossing(m *mesh, z [][]float64, e edge, level float64) (float64, float64) {
	i1, j1 := e.end()
	a, b := z[e.i][e.j], z[i1][j1]
	t := (level - a) / (b - a)
	x0, y0 := m.at(e.i, e.j)
	x1, y1 := m.at(i1, j1)
	if m.torn(x0, x1) {
		return math.NaN(), math.NaN()
	}
	return x0 + t*(x1-x0), y0 + t*(y1-y0)
}

// trace runs marching squares over z for one level and returns the
// connected isolines as sequences of crossed edges. Cells with a missing
// corner are skipped. Saddle cells are resolved by the cell mean.
func trace(z [][]float64, level float64) [][]edge {
	var segs []segment
	for i := 0; i+1 < len(z); i++ {
		for j := 0; j+1 < len(z[i]); j++ {
			segs = cell(segs, z, i, j, level)
		}
	}
	return join(segs)
}

func cell(segs []segment, z [][]float64, i, j int, level float64) []segment {
	v := [4]float64{z[i][j], z[i][j+1], z[i+1][j+1], z[i+1][j]}
	for _, x := range v {
		if math.IsNaN(x) {
			return segs
		}
	}
	e := [4]edge{{i, j, false}, {i, j + 1, true}, {i + 1, j, false}, {i, j, true}}
	var above [4]bool
	for k, x := range v {
		above[k] = x >= level
	}
	var crossed []edge
	for k := range e {
		if above[k] != above[(k+1)%4] {
			crossed = append(crossed, e[k])
		}
	}
	switch len(crossed) {
	case 2:
		segs = append(segs, segment{crossed[0], crossed[1]})
	case 4:
		centre := (v[0]+v[1]+v[2]+v[3])/4 >= level
		for k := range v {
			if above[k] != centre {
				segs = append(segs, segment{e[(k+3)%4], e[k]})
			}
		}
	}
	return segs
}

// join chains segments sharing an edge into polylines. Closed lines repeat
// their first edge at the end.
func join(segs []segment) [][]edge {
	at := make(map[edge][]int, 2*len(segs))
	for k, s := range segs {
		at[s.a] = append(at[s.a], k)
		at[s.b] = append(at[s.b], k)
	}
	used := make([]bool, len(segs))
	next := func(e edge) (int, bool) {
		for _, k := range at[e] {
			if !used[k] {
				return k, true
			}
		}
		return 0, false
	}

	var lines [][]edge
	for k, s := range segs {
		if used[k] {
			continue
		}
		used[k] = true
		line := []edge{s.a, s.b}
		for {
			n, ok := next(line[len(line)-1])
			if !ok {
				break
			}
			used[n] = true
			line = append(line, segs[n].other(line[len(line)-1]))
		}
		var head []edge
		for e := line[0]; ; {
			n, ok := next(e)
			if !ok {
				break
			}
			used[n] = true
			e = segs[n].other(e)
			head = append(head, e)
		}
		if len(head) > 0 {
			slices.Reverse(head)
			line = append(head, line...)
		}
		lines = append(lines, line)
	}
	return lines
}

func (cs *ContourSet) dataBounds() (mapproj.Bounds, bool) {
	return cs.grid.bounds()
}

func (cs *ContourSet) layer() int { return layerLine }

// Plot implements the plot.Plotter interface.
func (cs *ContourSet) Plot(c draw.Canvas, p *plot.Plot) {
	tx, ty := p.Transforms(&c)
	sty := cs.Style.lineStyle()
	for _, iso := range cs.Lines {
		for _, line := range canvasLines(tx, ty, iso.X, iso.Y, cs.grid.period/2) {
			for _, clipped := range c.ClipLinesXY(line) {
				if cs.labels == nil {
					c.StrokeLines(sty, clipped)
					continue
				}
				pieces, ok := cs.label(c, clipped, iso.Level)
				if !ok {
					pieces = [][]vg.Point{clipped}
				}
				c.StrokeLines(sty, pieces...)
			}
		}
	}
}

func (cs *ContourSet) textStyle() text.Style {
	return text.Style{
		Color:   cs.Style.lineStyle().Color,
		Font:    font.From(plot.DefaultFont, cs.labels.Size),
		XAlign:  text.XCenter,
		YAlign:  text.YCenter,
		Handler: plot.DefaultTextHandler,
	}
}

// label draws the level label at the middle of line and returns the line
// with a gap cut out for the text. It reports false when the line is too
// short to hold the label.
func (cs *ContourSet) label(c draw.Canvas, line []vg.Point, level float64) ([][]vg.Point, bool) {
	txt := fmt.Sprintf(cs.labels.Format, level)
	sty := cs.textStyle()
	half := sty.Width(txt)/2 + cs.labels.Spacing

	dist := arcLengths(line)
	total := dist[len(dist)-1]
	if total < 4*half {
		return nil, false
	}
	mid := total / 2
	centre, angle := along(line, dist, mid)
	if !c.Contains(centre) {
		return nil, false
	}
	// Keep the text upright.
	if angle > math.Pi/2 {
		angle -= math.Pi
	} else if angle < -math.Pi/2 {
		angle += math.Pi
	}
	sty.Rotation = angle
	c.FillText(sty, centre, txt)

	return [][]vg.Point{
		cut(line, dist, 0, mid-half),
		cut(line, dist, mid+half, total),
	}, true
}

// arcLengths returns the cumulative length of line at each of its points.
func arcLengths(line []vg.Point) []vg.Length {
	dist := make([]vg.Length, len(line))
	for i := 1; i < len(line); i++ {
		d := line[i].Sub(line[i-1])
		dist[i] = dist[i-1] + vg.Length(math.Hypot(float64(d.X), float64(d.Y)))
	}
	return dist
}

// along returns the point at arc length s and the direction of the line
// there in radians.
func along(line []vg.Point, dist []vg.Length, s vg.Length) (vg.Point, float64) {
	i := 1
	for i < len(line)-1 && dist[i] < s {
		i++
	}
	a, b := line[i-1], line[i]
	d := b.Sub(a)
	t := 0.0
	if seg := dist[i] - dist[i-1]; seg > 0 {
		t = float64((s - dist[i-1]) / seg)
	}
	return a.Add(d.Scale(vg.Length(t))), math.Atan2(float64(d.Y), float64(d.X))
}

// cut returns the part of line between arc lengths from and to.
func cut(line []vg.Point, dist []vg.Length, from, to vg.Length) []vg.Point {
	if to <= from {
		return nil
	}
	start, _ := along(line, dist, from)
	out := []vg.Point{start}
	for i, p := range line {
		if dist[i] > from && dist[i] < to {
			out = append(out, p)
		}
	}
	end, _ := along(line, dist, to)
	return append(out, end)
}
