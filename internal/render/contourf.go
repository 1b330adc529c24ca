package render

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/upperair/internal/mapproj"
)

// BandPolygon is a filled region of one band in map coordinates.
type BandPolygon struct {
	Band int
	X, Y []float64
}

// FilledContourSet is a set of filled bands between contour levels.
type FilledContourSet struct {
	Bands    *Bands
	Polygons []BandPolygon

	grid *mesh
}

type vertex struct {
	x, y, z float64
	// diag marks points on the diagonal shared by the two triangles of a
	// grid cell.
	diag bool
}

func newFilledContourSet(m *mesh, z [][]float64, bands *Bands) *FilledContourSet {
	fs := &FilledContourSet{Bands: bands, grid: m}
	node := func(i, j int) vertex {
		x, y := m.at(i, j)
		return vertex{x: x, y: y, z: z[i][j]}
	}
	levels := bands.Levels
	for i := 0; i+1 < m.rows; i++ {
		for j := 0; j+1 < m.cols; j++ {
			a, b, c, d := node(i, j), node(i, j+1), node(i+1, j+1), node(i+1, j)
			if m.torn(a.x, b.x, c.x, d.x) {
				continue
			}
			a.diag, c.diag = true, true
			for k := 0; k < bands.Len(); k++ {
				lower := clipBand(levels[k], levels[k+1], a, b, c)
				upper := clipBand(levels[k], levels[k+1], a, c, d)
				for _, poly := range joinCell(lower, upper) {
					fs.add(k, poly)
				}
			}
		}
	}
	return fs
}

func (fs *FilledContourSet) add(band int, poly []vertex) {
	bp := BandPolygon{Band: band, X: make([]float64, len(poly)), Y: make([]float64, len(poly))}
	for n, v := range poly {
		bp.X[n], bp.Y[n] = v.x, v.y
	}
	fs.Polygons = append(fs.Polygons, bp)
}

// clipBand returns the part of a triangle where bottom <= z <= top, or nil.
// The field is linear on the triangle, so the clip is exact.
func clipBand(bottom, top float64, vs ...vertex) []vertex {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if math.IsNaN(v.x) || math.IsNaN(v.y) || math.IsNaN(v.z) {
			return nil
		}
		lo, hi = math.Min(lo, v.z), math.Max(hi, v.z)
	}
	if hi < bottom || lo > top {
		return nil
	}
	poly := vs
	if lo < bottom {
		poly = clipLevel(poly, bottom, true)
	}
	if hi > top {
		poly = clipLevel(poly, top, false)
	}
	if len(poly) < 3 {
		return nil
	}
	return poly
}

// joinCell merges the band polygons of a cell's two triangles along their
// shared diagonal. Polygons that do not share a stretch of it are returned
// as they are.
func joinCell(p, q []vertex) [][]vertex {
	switch {
	case p == nil && q == nil:
		return nil
	case q == nil:
		return [][]vertex{p}
	case p == nil:
		return [][]vertex{q}
	}
	ps, pe, ok := diagRun(p)
	if !ok {
		return [][]vertex{p, q}
	}
	qs, qe, ok := diagRun(q)
	if !ok {
		return [][]vertex{p, q}
	}
	// p runs along the diagonal from p[ps] to p[pe] and q back the other
	// way, so walking p from pe round to ps then q strictly between its run
	// ends traces the outline of both.
	out := make([]vertex, 0, len(p)+len(q))
	for k := pe; ; k = (k + 1) % len(p) {
		out = append(out, p[k])
		if k == ps {
			break
		}
	}
	for k := (qe + 1) % len(q); k != qs; k = (k + 1) % len(q) {
		out = append(out, q[k])
	}
	return [][]vertex{out}
}

// diagRun finds the consecutive diagonal points of poly, which lie on one
// edge of the clipped triangle. It reports false unless the run holds at
// least two points and poly has points off the diagonal.
func diagRun(poly []vertex) (start, end int, ok bool) {
	n := len(poly)
	start = -1
	for k := range poly {
		if poly[k].diag && !poly[(k+n-1)%n].diag {
			start = k
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	end = start
	for poly[(end+1)%n].diag {
		end = (end + 1) % n
	}
	return start, end, end != start
}

// clipLevel keeps the part of a convex polygon where z >= level, or where
// z <= level when above is false.
func clipLevel(poly []vertex, level float64, above bool) []vertex {
	inside := func(v vertex) bool {
		if above {
			return v.z >= level
		}
		return v.z <= level
	}
	var out []vertex
	for i, cur := range poly {
		prev := poly[(i+len(poly)-1)%len(poly)]
		if inside(cur) != inside(prev) {
			t := (level - prev.z) / (cur.z - prev.z)
			out = append(out, vertex{
				x:    prev.x + t*(cur.x-prev.x),
				y:    prev.y + t*(cur.y-prev.y),
				z:    level,
				diag: prev.diag && cur.diag,
			})
		}
		if inside(cur) {
			out = append(out, cur)
		}
	}
	return out
}

func (fs *FilledContourSet) dataBounds() (mapproj.Bounds, bool) {
	return fs.grid.bounds()
}

func (fs *FilledContourSet) layer() int { return layerFill }

// seam is the width of the outline stroked around each band polygon so that
// anti-aliased neighbours do not leave gaps between them.
var seam = vg.Points(0.3)

// Plot implements the plot.Plotter interface.
func (fs *FilledContourSet) Plot(c draw.Canvas, p *plot.Plot) {
	tx, ty := p.Transforms(&c)
	for _, bp := range fs.Polygons {
		pts := make([]vg.Point, len(bp.X))
		for i := range bp.X {
			pts[i] = vg.Point{X: tx(bp.X[i]), Y: ty(bp.Y[i])}
		}
		pts = c.ClipPolygonXY(pts)
		if len(pts) < 3 {
			continue
		}
		clr := fs.Bands.Colors[bp.Band]
		c.FillPolygon(clr, pts)
		c.StrokeLines(draw.LineStyle{Color: clr, Width: seam}, append(pts, pts[0]))
	}
}
