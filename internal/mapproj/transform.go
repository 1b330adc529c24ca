package mapproj

import (
	"fmt"
	"math"

	"github.com/ctessum/geom/proj"
)

// Projector transforms coordinates from one CRS to another. Geographic
// coordinates are in degrees, projected coordinates in meters.
type Projector struct {
	Src, Dst CRS

	fwd proj.Transformer
	// wrap folds longitudes into lon0 ± 180 for geographic destinations.
	wrap bool
	lon0 float64
}

// NewProjector parses both systems and prepares the transform from src to
// dst.
func NewProjector(src, dst CRS) (*Projector, error) {
	if src.IsZero() || dst.IsZero() {
		return nil, fmt.Errorf("transform %s -> %s: %w", src, dst, ErrUnknownProjection)
	}
	p := &Projector{Src: src, Dst: dst}
	if dst.Geographic() {
		p.wrap, p.lon0 = true, dst.CentralLon()
	}
	if src.Def == dst.Def {
		return p, nil
	}
	s, err := proj.Parse(src.Def)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}
	d, err := proj.Parse(dst.Def)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", dst, err)
	}
	if p.fwd, err = s.NewTransform(d); err != nil {
		return nil, fmt.Errorf("transform %s -> %s: %w", src, dst, err)
	}
	return p, nil
}

// Project transforms one point. Longitudes in a geographic destination are
// wrapped to within 180 degrees of its central meridian.
func (p *Projector) Project(x, y float64) (float64, float64, error) {
	if p.fwd != nil {
		var err error
		if x, y, err = p.fwd(x, y); err != nil {
			return x, y, err
		}
	}
	if p.wrap {
		x = WrapLon(x, p.lon0)
	}
	return x, y, nil
}

// WrapLon returns lon shifted by whole turns into [lon0-180, lon0+180].
func WrapLon(lon, lon0 float64) float64 {
	if lon >= lon0-180 && lon <= lon0+180 || math.IsInf(lon, 0) {
		return lon
	}
	lon = math.Mod(lon-lon0+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon + lon0 - 180
}

// Line transforms a sequence of points. Points that fail to transform are
// returned as NaN so that the caller can break the line there.
func (p *Projector) Line(xs, ys []float64) (px, py []float64) {
	px = make([]float64, len(xs))
	py = make([]float64, len(xs))
	for i := range xs {
		x, y, err := p.Project(xs[i], ys[i])
		if err != nil || math.IsInf(x, 0) || math.IsInf(y, 0) {
			x, y = math.NaN(), math.NaN()
		}
		px[i], py[i] = x, y
	}
	return px, py
}

// Bounds is an axis-aligned rectangle in projected coordinates.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// Width returns the x extent of b.
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height returns the y extent of b.
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

// Contains reports whether (x, y) lies inside b.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// extentSamples is the number of points sampled along each edge of an
// extent rectangle; straight lines of longitude and latitude curve once
// projected.
const extentSamples = 100

// ExtentBounds returns the projected bounding box in dst of the
// longitude/latitude rectangle [west, east] x [south, north] in degrees.
func ExtentBounds(dst CRS, west, east, south, north float64) (Bounds, error) {
	if west >= east || south >= north {
		return Bounds{}, fmt.Errorf("invalid extent [%v, %v, %v, %v]", west, east, south, north)
	}
	p, err := NewProjector(PlateCarree(), dst)
	if err != nil {
		return Bounds{}, err
	}
	b := Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
	add := func(lon, lat float64) error {
		x, y, err := p.Project(lon, lat)
		if err != nil {
			return fmt.Errorf("project extent corner (%v, %v): %w", lon, lat, err)
		}
		b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
		b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
		return nil
	}
	for i := 0; i <= extentSamples; i++ {
		f := float64(i) / extentSamples
		lon := west + f*(east-west)
		lat := south + f*(north-south)
		for _, pt := range [][2]float64{{lon, south}, {lon, north}, {west, lat}, {east, lat}} {
			if err := add(pt[0], pt[1]); err != nil {
				return Bounds{}, err
			}
		}
	}
	return b, nil
}

// northStep is the latitude offset, in degrees, used to find the local
// direction of north.
const northStep = 0.01

// NorthAngle returns the counter-clockwise angle in radians between the
// projected x axis and the local meridian at (lon, lat), minus pi/2: rotating
// an east/north vector by the returned angle aligns it with the projected
// grid.
func (p *Projector) NorthAngle(lon, lat float64) (float64, error) {
	step := northStep
	if lat+step > 90 {
		step = -step
	}
	x0, y0, err := p.Project(lon, lat)
	if err != nil {
		return 0, err
	}
	x1, y1, err := p.Project(lon, lat+step)
	if err != nil {
		return 0, err
	}
	dx, dy := x1-x0, y1-y0
	if step < 0 {
		dx, dy = -dx, -dy
	}
	return math.Atan2(dy, dx) - math.Pi/2, nil
}

// Rotate rotates the east/north components (u, v) into the projected grid at
// (lon, lat).
func (p *Projector) Rotate(lon, lat, u, v float64) (float64, float64, error) {
	a, err := p.NorthAngle(lon, lat)
	if err != nil {
		return 0, 0, err
	}
	s, c := math.Sincos(a)
	return u*c - v*s, u*s + v*c, nil
}
