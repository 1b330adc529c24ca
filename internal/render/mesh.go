package render

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot/vg"

	"github.com/rtm0/upperair/internal/mapproj"
)

// ErrGrid is returned when gridded data does not match its coordinates.
var ErrGrid = errors.New("data does not match grid")

// checkGrid verifies that z has one row per latitude and one column per
// longitude.
func checkGrid(lon, lat []float64, z [][]float64) error {
	if len(lon) < 2 || len(lat) < 2 {
		return fmt.Errorf("grid of %d x %d points is too small: %w", len(lat), len(lon), ErrGrid)
	}
	if len(z) != len(lat) {
		return fmt.Errorf("%d rows for %d latitudes: %w", len(z), len(lat), ErrGrid)
	}
	for i, row := range z {
		if len(row) != len(lon) {
			return fmt.Errorf("row %d has %d values for %d longitudes: %w", i, len(row), len(lon), ErrGrid)
		}
	}
	return nil
}

// mesh holds the map coordinates of a structured longitude/latitude grid,
// row-major with one row per latitude.
type mesh struct {
	rows, cols int
	x, y       []float64
	// period is 360 when x is a wrapped longitude and 0 otherwise.
	period float64
}

func newMesh(p *mapproj.Projector, lon, lat []float64) *mesh {
	m := &mesh{
		rows: len(lat),
		cols: len(lon),
		x:    make([]float64, 0, len(lat)*len(lon)),
		y:    make([]float64, 0, len(lat)*len(lon)),
	}
	if p.Dst.Geographic() {
		m.period = 360
	}
	for _, la := range lat {
		xs, ys := p.Line(lon, filled(len(lon), la))
		m.x = append(m.x, xs...)
		m.y = append(m.y, ys...)
	}
	return m
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func (m *mesh) at(i, j int) (float64, float64) {
	k := i*m.cols + j
	return m.x[k], m.y[k]
}

// torn reports whether the map x coordinates xs straddle the wrap of a
// longitude axis, so that the cell or edge they span is split across the
// map.
func (m *mesh) torn(xs ...float64) bool {
	if m.period == 0 {
		return false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	return hi-lo > m.period/2
}

// bounds returns the box around every projected point of the mesh.
func (m *mesh) bounds() (mapproj.Bounds, bool) {
	return boundsOf(m.x, m.y)
}

// boundsOf returns the box around the finite points of xs, ys.
func boundsOf(xs, ys []float64) (mapproj.Bounds, bool) {
	b := mapproj.Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	ok := false
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
		b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
		ok = true
	}
	return b, ok
}

// union returns the box around a and b.
func union(a, b mapproj.Bounds) mapproj.Bounds {
	return mapproj.Bounds{
		XMin: math.Min(a.XMin, b.XMin),
		XMax: math.Max(a.XMax, b.XMax),
		YMin: math.Min(a.YMin, b.YMin),
		YMax: math.Max(a.YMax, b.YMax),
	}
}

// canvasLines maps a line in map coordinates to the canvas, splitting it
// wherever a point is missing or consecutive points are more than maxStep
// apart in map units. A maxStep of zero disables the jump check.
func canvasLines(tx, ty func(float64) vg.Length, xs, ys []float64, maxStep float64) [][]vg.Point {
	var (
		lines [][]vg.Point
		cur   []vg.Point
	)
	flush := func() {
		if len(cur) > 1 {
			lines = append(lines, cur)
		}
		cur = nil
	}
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			flush()
			continue
		}
		if maxStep > 0 && i > 0 && math.Hypot(x-xs[i-1], y-ys[i-1]) > maxStep {
			flush()
		}
		cur = append(cur, vg.Point{X: tx(x), Y: ty(y)})
	}
	flush()
	return lines
}
