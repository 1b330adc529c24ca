package render

import (
	"cmp"
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/mapproj"
)

// ErrNoExtent is returned when an axes has neither an extent nor data to
// derive one from.
var ErrNoExtent = errors.New("axes has no extent")

// artist is anything drawn on a map axes.
type artist interface {
	plot.Plotter
	// dataBounds returns the box around the artist's data in map
	// coordinates, or false when the artist does not widen the view.
	dataBounds() (mapproj.Bounds, bool)
	// layer ranks the artist in the drawing order.
	layer() int
}

// Drawing layers, lowest first.
const (
	layerFill = iota
	layerLine
	layerOverlay
)

// Axes is a map panel in a figure. Filled contours are drawn under contour
// lines, which are drawn under barbs and features. Artists of the same layer
// are drawn in the order they were added.
type Axes struct {
	CRS   mapproj.CRS
	Title string

	extent     *mapproj.Bounds
	artists    []artist
	projectors map[mapproj.CRS]*mapproj.Projector
}

func (a *Axes) projector(src mapproj.CRS) (*mapproj.Projector, error) {
	if p, ok := a.projectors[src]; ok {
		return p, nil
	}
	p, err := mapproj.NewProjector(src, a.CRS)
	if err != nil {
		return nil, err
	}
	if a.projectors == nil {
		a.projectors = map[mapproj.CRS]*mapproj.Projector{}
	}
	a.projectors[src] = p
	return p, nil
}

// Contour draws lines of constant z at the style's levels. z holds one row
// per latitude; lon and lat are in the coordinates of src.
func (a *Axes) Contour(lon, lat []float64, z [][]float64, src mapproj.CRS, sty ContourStyle) (*ContourSet, error) {
	if err := checkLevels(sty.Levels, 1); err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}
	if err := checkGrid(lon, lat, z); err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}
	p, err := a.projector(src)
	if err != nil {
		return nil, fmt.Errorf("contour: %w", err)
	}
	cs := newContourSet(newMesh(p, lon, lat), z, sty)
	a.artists = append(a.artists, cs)
	return cs, nil
}

// Contourf fills the bands between consecutive levels with colours sampled
// from the named colour map. Values outside the levels are left unfilled.
func (a *Axes) Contourf(lon, lat []float64, z [][]float64, src mapproj.CRS, levels []float64, cmap string) (*FilledContourSet, error) {
	if err := checkGrid(lon, lat, z); err != nil {
		return nil, fmt.Errorf("contourf: %w", err)
	}
	bands, err := NewBands(levels, cmap)
	if err != nil {
		return nil, fmt.Errorf("contourf: %w", err)
	}
	p, err := a.projector(src)
	if err != nil {
		return nil, fmt.Errorf("contourf: %w", err)
	}
	fs := newFilledContourSet(newMesh(p, lon, lat), z, bands)
	a.artists = append(a.artists, fs)
	return fs, nil
}

// Barbs draws a wind barb at every grid point. u and v are the eastward and
// northward components in the unit the feathers count, usually knots.
func (a *Axes) Barbs(lon, lat []float64, u, v [][]float64, src mapproj.CRS, sty BarbStyle) (*BarbSet, error) {
	if err := checkGrid(lon, lat, u); err != nil {
		return nil, fmt.Errorf("barbs: u: %w", err)
	}
	if err := checkGrid(lon, lat, v); err != nil {
		return nil, fmt.Errorf("barbs: v: %w", err)
	}
	p, err := a.projector(src)
	if err != nil {
		return nil, fmt.Errorf("barbs: %w", err)
	}
	n := len(lon) * len(lat)
	bs := &BarbSet{
		Style: sty,
		X:     make([]float64, 0, n),
		Y:     make([]float64, 0, n),
		U:     make([]float64, 0, n),
		V:     make([]float64, 0, n),
	}
	for i, la := range lat {
		for j, lo := range lon {
			x, y, err := p.Project(lo, la)
			if err != nil {
				x, y = math.NaN(), math.NaN()
			}
			ru, rv, err := p.Rotate(lo, la, u[i][j], v[i][j])
			if err != nil {
				ru, rv = math.NaN(), math.NaN()
			}
			bs.X = append(bs.X, x)
			bs.Y = append(bs.Y, y)
			bs.U = append(bs.U, ru)
			bs.V = append(bs.V, rv)
		}
	}
	a.artists = append(a.artists, bs)
	return bs, nil
}

// SetExtent limits the view to the longitude/latitude box given in degrees.
func (a *Axes) SetExtent(west, east, south, north float64) error {
	b, err := mapproj.ExtentBounds(a.CRS, west, east, south, north)
	if err != nil {
		return fmt.Errorf("set extent: %w", err)
	}
	a.extent = &b
	return nil
}

// Extent returns the view box in map coordinates, set explicitly or taken
// from the data.
func (a *Axes) Extent() (mapproj.Bounds, error) {
	if a.extent != nil {
		return *a.extent, nil
	}
	var (
		view  mapproj.Bounds
		found bool
	)
	for _, art := range a.artists {
		b, ok := art.dataBounds()
		if !ok {
			continue
		}
		if !found {
			view, found = b, true
			continue
		}
		view = union(view, b)
	}
	if !found || view.Width() <= 0 || view.Height() <= 0 {
		return mapproj.Bounds{}, ErrNoExtent
	}
	return view, nil
}

// AddFeature draws a background layer given in longitude/latitude degrees.
// A zero style uses FeatureStyle.
func (a *Axes) AddFeature(layer *features.Layer, sty draw.LineStyle) error {
	if sty.Color == nil {
		sty = FeatureStyle
	}
	p, err := a.projector(mapproj.PlateCarree())
	if err != nil {
		return fmt.Errorf("feature %s: %w", layer.Name, err)
	}
	a.artists = append(a.artists, newFeatureLines(p, layer, sty))
	return nil
}

// SetTitle sets the text drawn above the map.
func (a *Axes) SetTitle(title string) {
	a.Title = title
}

// Artists returns the number of artists on the axes.
func (a *Axes) Artists() int {
	return len(a.artists)
}

// drawOrder returns the artists sorted by layer.
func (a *Axes) drawOrder() []artist {
	arts := slices.Clone(a.artists)
	slices.SortStableFunc(arts, func(x, y artist) int {
		return cmp.Compare(x.layer(), y.layer())
	})
	return arts
}

// newPlot builds the gonum plot drawing the axes over the view box.
func (a *Axes) newPlot(view mapproj.Bounds) *plot.Plot {
	p := plot.New()
	p.Title.Text = a.Title
	p.Title.Padding = vg.Points(6)
	p.Title.TextStyle.Font = font.From(plot.DefaultFont, 14)
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Min, p.X.Max = view.XMin, view.XMax
	p.Y.Min, p.Y.Max = view.YMin, view.YMax
	for _, art := range a.drawOrder() {
		p.Add(art)
	}
	p.Add(frame{draw.LineStyle{Color: color.Black, Width: vg.Points(1)}})
	return p
}

// titleHeight returns the space the plot title takes above the map.
func titleHeight(p *plot.Plot) vg.Length {
	if p.Title.Text == "" {
		return 0
	}
	return p.Title.TextStyle.Rectangle(p.Title.Text).Size().Y + p.Title.Padding
}

// frame outlines the data area.
type frame struct {
	style draw.LineStyle
}

func (f frame) Plot(c draw.Canvas, _ *plot.Plot) {
	r := c.Rectangle
	c.StrokeLines(f.style, []vg.Point{
		r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y}, r.Min,
	})
}
