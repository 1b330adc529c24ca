// Package render draws map figures: contour lines, filled contours, colour
// bars, wind barbs and background features over a projected map, rendered
// with gonum/plot.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/rtm0/upperair/internal/mapproj"
)

// Subplot margins as fractions of the figure size.
const (
	marginLeft   = 0.125
	marginRight  = 0.1
	marginBottom = 0.11
	marginTop    = 0.12
)

// TightPad is the margin kept around the drawing when saving with a tight
// bounding box.
var TightPad = vg.Inch / 10

// Orientation is the direction of a colour bar.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// ParseOrientation parses "horizontal" or "vertical".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "horizontal":
		return Horizontal, nil
	case "vertical":
		return Vertical, nil
	}
	return 0, fmt.Errorf("unknown colorbar orientation %q", s)
}

// Figure is a page holding map axes and colour bars.
type Figure struct {
	Width, Height vg.Length

	axes      []*Axes
	colorbars []*Colorbar
}

// NewFigure returns an empty figure of the given page size.
func NewFigure(width, height vg.Length) *Figure {
	return &Figure{Width: width, Height: height}
}

// AddAxes adds a map panel drawn in crs. Panels are stacked top to bottom.
func (f *Figure) AddAxes(crs mapproj.CRS) *Axes {
	a := &Axes{CRS: crs}
	f.axes = append(f.axes, a)
	return a
}

// Axes returns the panels of the figure.
func (f *Figure) Axes() []*Axes {
	return f.axes
}

// Colorbar is a colour key for a filled contour set, attached to the side
// of its axes.
type Colorbar struct {
	Set         *FilledContourSet
	Orientation Orientation
	// Pad is the gap between the map and the bar as a fraction of the
	// map height (horizontal) or width (vertical).
	Pad float64
	// Aspect is the ratio of the bar's length to its thickness.
	Aspect float64

	axes *Axes
}

// Colorbar attaches a colour bar for fs to the axes that draws it.
func (f *Figure) Colorbar(fs *FilledContourSet, orientation Orientation, pad, aspect float64) (*Colorbar, error) {
	if aspect <= 0 {
		aspect = 20
	}
	for _, a := range f.axes {
		for _, art := range a.artists {
			if art == artist(fs) {
				cb := &Colorbar{Set: fs, Orientation: orientation, Pad: pad, Aspect: aspect, axes: a}
				f.colorbars = append(f.colorbars, cb)
				return cb, nil
			}
		}
	}
	return nil, errors.New("colorbar: filled contour set is not drawn on this figure")
}

func (f *Figure) colorbar(a *Axes) *Colorbar {
	for _, cb := range f.colorbars {
		if cb.axes == a {
			return cb
		}
	}
	return nil
}

// Render draws the figure onto a new image canvas at dpi dots per inch.
func (f *Figure) Render(dpi int) (*vgimg.Canvas, error) {
	if err := f.check(dpi); err != nil {
		return nil, err
	}
	img := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(dpi))
	if err := f.drawOn(draw.New(img)); err != nil {
		return nil, err
	}
	return img, nil
}

func (f *Figure) check(dpi int) error {
	if dpi <= 0 {
		return fmt.Errorf("render: invalid dpi %d", dpi)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("render: invalid figure size %v x %v", f.Width, f.Height)
	}
	if len(f.axes) == 0 {
		return errors.New("render: figure has no axes")
	}
	return nil
}

// drawOn lays the panels out on a page-sized canvas.
func (f *Figure) drawOn(dc draw.Canvas) error {
	area := draw.Crop(dc,
		f.Width*marginLeft, -f.Width*marginRight,
		f.Height*marginBottom, -f.Height*marginTop)
	tiles := draw.Tiles{Rows: len(f.axes), Cols: 1, PadY: vg.Points(12)}
	for i, a := range f.axes {
		if err := f.drawAxes(tiles.At(area, 0, i), a); err != nil {
			return fmt.Errorf("render panel %d: %w", i, err)
		}
	}
	return nil
}

// RenderTight draws the figure cropped to its drawn content plus TightPad.
// The figure is drawn twice: once to find the content, then onto a canvas
// of the cropped size.
func (f *Figure) RenderTight(dpi int) (*vgimg.Canvas, error) {
	full, err := f.Render(dpi)
	if err != nil {
		return nil, err
	}
	box, ok := inkBounds(full.Image())
	if !ok {
		return full, nil
	}
	inch := vg.Inch / vg.Length(dpi)
	height := full.Image().Bounds().Dy()
	x0 := max(vg.Length(box.Min.X)*inch-TightPad, 0)
	x1 := min(vg.Length(box.Max.X)*inch+TightPad, f.Width)
	y0 := max(vg.Length(height-box.Max.Y)*inch-TightPad, 0)
	y1 := min(vg.Length(height-box.Min.Y)*inch+TightPad, f.Height)

	img := vgimg.NewWith(vgimg.UseWH(x1-x0, y1-y0), vgimg.UseDPI(dpi))
	img.Translate(vg.Point{X: -x0, Y: -y0})
	page := draw.Canvas{
		Canvas:    img,
		Rectangle: vg.Rectangle{Max: vg.Point{X: f.Width, Y: f.Height}},
	}
	if err := f.drawOn(page); err != nil {
		return nil, err
	}
	return img, nil
}

// drawAxes fits the map of a into c keeping the view's aspect ratio, with
// the title above and any colour bar beside it.
func (f *Figure) drawAxes(c draw.Canvas, a *Axes) error {
	view, err := a.Extent()
	if err != nil {
		return err
	}
	p := a.newPlot(view)
	th := titleHeight(p)
	cb := f.colorbar(a)

	availW := c.Max.X - c.Min.X
	availH := c.Max.Y - c.Min.Y - th
	ratio := view.Width() / view.Height()

	var w, h vg.Length
	switch {
	case cb == nil:
		h = min(availH, availW/vg.Length(ratio))
	case cb.Orientation == Horizontal:
		availH -= cb.labelSize()
		h = min(availH/vg.Length(1+cb.Pad+ratio/cb.Aspect), availW/vg.Length(ratio))
	default:
		availW -= cb.labelSize()
		w = min(availW/vg.Length(1+cb.Pad+1/(ratio*cb.Aspect)), availH*vg.Length(ratio))
		h = w / vg.Length(ratio)
	}
	if h <= 0 {
		return errors.New("no room for the map")
	}
	w = h * vg.Length(ratio)

	// Centre the map and its bar in c.
	blockW, blockH := w, h+th
	if cb != nil {
		if cb.Orientation == Horizontal {
			blockH += h*vg.Length(cb.Pad) + w/vg.Length(cb.Aspect) + cb.labelSize()
		} else {
			blockW += w*vg.Length(cb.Pad) + h/vg.Length(cb.Aspect) + cb.labelSize()
		}
	}
	left := c.Min.X + (availW+cbWidth(cb)-blockW)/2
	top := c.Max.Y - (c.Max.Y-c.Min.Y-blockH)/2
	mapRect := vg.Rectangle{
		Min: vg.Point{X: left, Y: top - th - h},
		Max: vg.Point{X: left + w, Y: top},
	}
	p.Draw(draw.Canvas{Canvas: c.Canvas, Rectangle: mapRect})

	if cb != nil {
		var bar vg.Rectangle
		if cb.Orientation == Horizontal {
			y := mapRect.Min.Y - h*vg.Length(cb.Pad)
			bar = vg.Rectangle{
				Min: vg.Point{X: left, Y: y - w/vg.Length(cb.Aspect)},
				Max: vg.Point{X: left + w, Y: y},
			}
		} else {
			x := left + w + w*vg.Length(cb.Pad)
			bar = vg.Rectangle{
				Min: vg.Point{X: x, Y: mapRect.Min.Y},
				Max: vg.Point{X: x + h/vg.Length(cb.Aspect), Y: mapRect.Min.Y + h},
			}
		}
		cb.draw(draw.Canvas{Canvas: c.Canvas, Rectangle: bar})
	}
	return nil
}

// cbWidth returns the width given back to a vertical colour bar's labels
// when centring, which availW had excluded.
func cbWidth(cb *Colorbar) vg.Length {
	if cb != nil && cb.Orientation == Vertical {
		return cb.labelSize()
	}
	return 0
}

const tickLength = 3.5

func (cb *Colorbar) labelStyle() text.Style {
	sty := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, 10),
		Handler: plot.DefaultTextHandler,
	}
	if cb.Orientation == Horizontal {
		sty.XAlign, sty.YAlign = text.XCenter, text.YTop
	} else {
		sty.XAlign, sty.YAlign = text.XLeft, text.YCenter
	}
	return sty
}

func (cb *Colorbar) tickLabels() []string {
	labels := make([]string, len(cb.Set.Bands.Levels))
	for i, l := range cb.Set.Bands.Levels {
		labels[i] = strconv.FormatFloat(l, 'g', -1, 64)
	}
	return labels
}

// labelSize returns the space the ticks and labels take beside the bar.
func (cb *Colorbar) labelSize() vg.Length {
	sty := cb.labelStyle()
	var size vg.Length
	for _, l := range cb.tickLabels() {
		if cb.Orientation == Horizontal {
			size = max(size, sty.Height(l))
		} else {
			size = max(size, sty.Width(l))
		}
	}
	return size + 2*vg.Points(tickLength)
}

// draw paints the bar into c with one equal-width cell per band, then its
// outline, ticks and level labels.
func (cb *Colorbar) draw(c draw.Canvas) {
	bands := cb.Set.Bands
	p := plot.New()
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.Add(&plotter.ColorBar{
		ColorMap: newIndexMap(bands.Colors),
		Vertical: cb.Orientation == Vertical,
		Colors:   bands.Len(),
	})
	p.Draw(c)
	frame{draw.LineStyle{Color: color.Black, Width: vg.Points(0.8)}}.Plot(c, p)

	tick := draw.LineStyle{Color: color.Black, Width: vg.Points(0.8)}
	sty := cb.labelStyle()
	tl := vg.Points(tickLength)
	for i, label := range cb.tickLabels() {
		f := vg.Length(float64(i) / float64(bands.Len()))
		if cb.Orientation == Horizontal {
			x := c.Min.X + f*(c.Max.X-c.Min.X)
			c.StrokeLine2(tick, x, c.Min.Y, x, c.Min.Y-tl)
			c.FillText(sty, vg.Point{X: x, Y: c.Min.Y - 2*tl}, label)
		} else {
			y := c.Min.Y + f*(c.Max.Y-c.Min.Y)
			c.StrokeLine2(tick, c.Max.X, y, c.Max.X+tl, y)
			c.FillText(sty, vg.Point{X: c.Max.X + 2*tl, Y: y}, label)
		}
	}
}

// Save renders the figure and writes it as a PNG file, creating parent
// directories. With tight set, surrounding blank space is cropped to
// TightPad.
func (f *Figure) Save(path string, dpi int, tight bool) (err error) {
	render := f.Render
	if tight {
		render = f.RenderTight
	}
	c, err := render(dpi)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save %s: %w", path, cerr)
		}
	}()
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(out); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// inkBounds returns the bounds of the pixels that are not opaque white.
func inkBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	blank := func(x, y int) bool {
		r, g, bl, a := img.At(x, y).RGBA()
		return r == 0xffff && g == 0xffff && bl == 0xffff && a == 0xffff
	}
	if rgba, ok := img.(*image.RGBA); ok {
		blank = func(x, y int) bool {
			i := rgba.PixOffset(x, y)
			p := rgba.Pix[i : i+4]
			return p[0] == 0xff && p[1] == 0xff && p[2] == 0xff && p[3] == 0xff
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if blank(x, y) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
