package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"slices"

	"gonum.org/v1/plot/vg"

	"github.com/rtm0/upperair/internal/declarative"
	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/render"
	"github.com/rtm0/upperair/internal/units"
)

// Result is the figure built by Imperative together with the fields fed to
// each artist.
type Result struct {
	Figure *render.Figure
	Axes   *render.Axes

	Heights *declarative.Slice
	Speed   *declarative.Slice
	// U and V are the strided components drawn as barbs.
	U, V *declarative.Slice
}

// Imperative draws the chart on a new figure call by call and returns it
// without saving.
func Imperative(logger *slog.Logger, ds *grid.Dataset, p Params, lib *features.Library) (*Result, error) {
	title, err := title(ds, p)
	if err != nil {
		return nil, err
	}
	sub, err := ds.Subset(HeightField, SpeedField, UWindField, VWindField)
	if err != nil {
		return nil, err
	}
	if sub, err = sub.SelVertical(p.Level); err != nil {
		return nil, err
	}
	lat, lon, err := sub.LatLon()
	if err != nil {
		return nil, err
	}
	dataCRS := sub.CRS
	if dataCRS.IsZero() {
		dataCRS = mapproj.PlateCarree()
	}

	res := &Result{}
	plotCRS := mapproj.LambertConformal(40, -100, 30, 60)
	res.Figure = render.NewFigure(vg.Length(p.Size[0])*vg.Inch, vg.Length(p.Size[1])*vg.Inch)
	ax := res.Figure.AddAxes(plotCRS)
	res.Axes = ax

	if res.Heights, err = field(sub, HeightField, lat, lon, dataCRS, units.Unit{}); err != nil {
		return nil, err
	}
	cs, err := ax.Contour(lon.Data, lat.Data, res.Heights.Values, dataCRS, render.ContourStyle{
		Levels: p.Heights,
		Color:  color.Black,
	})
	if err != nil {
		return nil, err
	}
	cs.Clabel(render.LabelStyle{Format: "%.0f", Spacing: render.Pixels(8)})

	if res.Speed, err = field(sub, SpeedField, lat, lon, dataCRS, p.PlotUnits); err != nil {
		return nil, err
	}
	cf, err := ax.Contourf(lon.Data, lat.Data, res.Speed.Values, dataCRS, p.Speeds, p.Colormap)
	if err != nil {
		return nil, err
	}
	if _, err := res.Figure.Colorbar(cf, render.Horizontal, 0, 50); err != nil {
		return nil, err
	}

	if sub, err = sub.Stride(lon.Name, p.Skip[1]); err != nil {
		return nil, err
	}
	if sub, err = sub.Stride(lat.Name, p.Skip[0]); err != nil {
		return nil, err
	}
	if lat, lon, err = sub.LatLon(); err != nil {
		return nil, err
	}
	if res.U, err = field(sub, UWindField, lat, lon, dataCRS, p.PlotUnits); err != nil {
		return nil, err
	}
	if res.V, err = field(sub, VWindField, lat, lon, dataCRS, p.PlotUnits); err != nil {
		return nil, err
	}
	_, err = ax.Barbs(lon.Data, lat.Data, res.U.Values, res.V.Values, dataCRS, render.BarbStyle{Pivot: render.PivotMiddle})
	if err != nil {
		return nil, err
	}

	if err := ax.SetExtent(p.Area[0], p.Area[1], p.Area[2], p.Area[3]); err != nil {
		return nil, err
	}
	for _, name := range []string{"borders", "coastline", "states"} {
		layer, err := lib.Layer(name)
		if errors.Is(err, features.ErrNoData) {
			logger.Warn("Map features are not available", "layer", name, "err", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := ax.AddFeature(layer, render.FeatureStyle); err != nil {
			return nil, err
		}
	}
	ax.SetTitle(title)
	return res, nil
}

// field returns the two-dimensional variable name of ds on the lat/lon grid,
// converted to the unit to unless it is zero.
func field(ds *grid.Dataset, name string, lat, lon *grid.Variable, crs mapproj.CRS, to units.Unit) (*declarative.Slice, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, err
	}
	if to != (units.Unit{}) {
		if v, err = v.ConvertUnits(to); err != nil {
			return nil, err
		}
	}
	values, err := v.Grid2D(lat.Name, lon.Name)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return &declarative.Slice{
		Name:   name,
		Lon:    slices.Clone(lon.Data),
		Lat:    slices.Clone(lat.Data),
		Values: values,
		Units:  v.Units,
		CRS:    crs,
	}, nil
}
