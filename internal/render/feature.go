package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/mapproj"
)

// FeatureStyle is the line style of background features when none is
// given.
var FeatureStyle = draw.LineStyle{Color: color.Black, Width: vg.Points(0.8)}

// featureLines is a background layer projected onto the map.
type featureLines struct {
	name  string
	style draw.LineStyle
	x, y  [][]float64
}

func newFeatureLines(p *mapproj.Projector, layer *features.Layer, sty draw.LineStyle) *featureLines {
	fl := &featureLines{name: layer.Name, style: sty}
	for _, line := range layer.Lines {
		x, y := p.Line(line.Lon, line.Lat)
		fl.x = append(fl.x, x)
		fl.y = append(fl.y, y)
	}
	return fl
}

// Features never widen the view.
func (fl *featureLines) dataBounds() (mapproj.Bounds, bool) {
	return mapproj.Bounds{}, false
}

func (fl *featureLines) layer() int { return layerOverlay }

// Plot implements the plot.Plotter interface. Lines are broken at jumps
// longer than half the view, which appear where a line crosses the cut of
// a conic projection.
func (fl *featureLines) Plot(c draw.Canvas, p *plot.Plot) {
	tx, ty := p.Transforms(&c)
	maxStep := math.Max(p.X.Max-p.X.Min, p.Y.Max-p.Y.Min) / 2
	for i := range fl.x {
		for _, line := range canvasLines(tx, ty, fl.x[i], fl.y[i], maxStep) {
			c.StrokeLines(fl.style, c.ClipLinesXY(line)...)
		}
	}
}
