// Package declarative describes map figures as configuration values: plots
// placed on map panels placed in a container. Nothing is drawn until the
// container is drawn or saved.
package declarative

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/vg"

	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/render"
	"github.com/rtm0/upperair/internal/units"
)

// Plot is a layer of a map panel.
type Plot interface {
	// Fields returns the data the plot draws after level selection,
	// striding and unit conversion.
	Fields() ([]*Slice, error)

	draw(fig *render.Figure, ax *render.Axes) error
}

// ContourPlot draws contour lines of a scalar field.
type ContourPlot struct {
	Data  *grid.Dataset
	Field string
	// Level selects the vertical level. Nil requires a two-dimensional
	// field.
	Level    *units.Quantity
	Contours []float64
	Clabels  bool

	LineColor color.Color
	LineWidth vg.Length
	PlotUnits units.Unit
}

// Fields implements Plot.
func (p *ContourPlot) Fields() ([]*Slice, error) {
	return selectFields(p.Data, []string{p.Field}, p.Level, [2]int{}, p.PlotUnits)
}

func (p *ContourPlot) draw(_ *render.Figure, ax *render.Axes) error {
	fields, err := p.Fields()
	if err != nil {
		return fmt.Errorf("contour plot %q: %w", p.Field, err)
	}
	f := fields[0]
	cs, err := ax.Contour(f.Lon, f.Lat, f.Values, f.CRS, render.ContourStyle{
		Levels: p.Contours,
		Color:  p.LineColor,
		Width:  p.LineWidth,
	})
	if err != nil {
		return fmt.Errorf("contour plot %q: %w", p.Field, err)
	}
	if p.Clabels {
		cs.Clabel(render.LabelStyle{Format: "%.0f", Spacing: render.Pixels(8)})
	}
	return nil
}

// FilledContourPlot fills the bands between contour levels of a scalar
// field.
type FilledContourPlot struct {
	Data     *grid.Dataset
	Field    string
	Level    *units.Quantity
	Contours []float64
	// Colormap names a ColorBrewer scheme such as "BuPu".
	Colormap string
	// Colorbar is "", "horizontal" or "vertical".
	Colorbar  string
	PlotUnits units.Unit
}

// Fields implements Plot.
func (p *FilledContourPlot) Fields() ([]*Slice, error) {
	return selectFields(p.Data, []string{p.Field}, p.Level, [2]int{}, p.PlotUnits)
}

func (p *FilledContourPlot) draw(fig *render.Figure, ax *render.Axes) error {
	var orientation render.Orientation
	if p.Colorbar != "" {
		var err error
		if orientation, err = render.ParseOrientation(p.Colorbar); err != nil {
			return fmt.Errorf("filled contour plot %q: %w", p.Field, err)
		}
	}
	fields, err := p.Fields()
	if err != nil {
		return fmt.Errorf("filled contour plot %q: %w", p.Field, err)
	}
	f := fields[0]
	fs, err := ax.Contourf(f.Lon, f.Lat, f.Values, f.CRS, p.Contours, p.Colormap)
	if err != nil {
		return fmt.Errorf("filled contour plot %q: %w", p.Field, err)
	}
	if p.Colorbar == "" {
		return nil
	}
	if _, err := fig.Colorbar(fs, orientation, 0, 50); err != nil {
		return fmt.Errorf("filled contour plot %q: %w", p.Field, err)
	}
	return nil
}

// BarbPlot draws wind barbs from the eastward and northward components
// named by Field.
type BarbPlot struct {
	Data  *grid.Dataset
	Field [2]string
	Level *units.Quantity
	// Skip strides the grid by rows (latitude) and columns (longitude).
	// Zero means every point.
	Skip      [2]int
	PlotUnits units.Unit

	Color color.Color
	// Pivot defaults to the middle of the barb.
	Pivot *render.Pivot
}

// Fields implements Plot. The result holds the u component then the v
// component.
func (p *BarbPlot) Fields() ([]*Slice, error) {
	return selectFields(p.Data, p.Field[:], p.Level, p.Skip, p.PlotUnits)
}

func (p *BarbPlot) draw(_ *render.Figure, ax *render.Axes) error {
	fields, err := p.Fields()
	if err != nil {
		return fmt.Errorf("barb plot %v: %w", p.Field, err)
	}
	pivot := render.PivotMiddle
	if p.Pivot != nil {
		pivot = *p.Pivot
	}
	u, v := fields[0], fields[1]
	_, err = ax.Barbs(u.Lon, u.Lat, u.Values, v.Values, u.CRS, render.BarbStyle{
		Color: p.Color,
		Pivot: pivot,
	})
	if err != nil {
		return fmt.Errorf("barb plot %v: %w", p.Field, err)
	}
	return nil
}
