// Package pipeline builds the 300 hPa heights and wind speed chart from GFS
// output, once through declarative plot descriptions and once by drawing on
// a figure directly. Both share the parameters and the loaded dataset.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/rtm0/upperair/internal/calc"
	"github.com/rtm0/upperair/internal/gfs"
	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/units"
)

// GFS variable names drawn on the chart.
const (
	HeightField = "Geopotential_height_isobaric"
	UWindField  = "u-component_of_wind_isobaric"
	VWindField  = "v-component_of_wind_isobaric"
	SpeedField  = calc.WindSpeedName
)

// ErrNoValidTime is returned for datasets without a single valid time to
// put in the title.
var ErrNoValidTime = errors.New("dataset has no valid time")

// Params configures both pipelines.
type Params struct {
	Level units.Quantity
	// Lat and Lon are the label bounds of the subset, in the order of the
	// coordinates: latitude runs north to south in GFS output.
	Lat, Lon [2]float64
	// Area is the map extent [west, east, south, north] in degrees.
	Area      [4]float64
	Heights   []float64
	Speeds    []float64
	Colormap  string
	Skip      [2]int
	PlotUnits units.Unit
	// Size is the page size in inches.
	Size   [2]float64
	DPI    int
	Output string
}

// DefaultParams returns the parameters of the published chart.
func DefaultParams() Params {
	return Params{
		Level:     units.Q(300, units.Hectopascal),
		Lat:       [2]float64{70, 10},
		Lon:       [2]float64{360 - 150, 360 - 55},
		Area:      [4]float64{-125, -74, 20, 55},
		Heights:   Levels(0, 10000, 120),
		Speeds:    Levels(10, 201, 20),
		Colormap:  "BuPu",
		Skip:      [2]int{3, 3},
		PlotUnits: units.Knot,
		Size:      [2]float64{15, 15},
		DPI:       600,
		Output:    "output/fig5_declarative.png",
	}
}

// Levels returns start, start+step, ... up to but excluding stop.
func Levels(start, stop, step int) []float64 {
	if step <= 0 || stop <= start {
		return nil
	}
	n := (stop - start + step - 1) / step
	if n == 1 {
		return []float64{float64(start)}
	}
	return floats.Span(make([]float64, n), float64(start), float64(start+(n-1)*step))
}

// Title returns the chart title, e.g.
// "300 hPa Heights and Wind Speed at 2010-10-31 12:00:00".
func Title(level units.Quantity, valid time.Time) string {
	return fmt.Sprintf("%s Heights and Wind Speed at %s", level, valid.Format(time.DateTime))
}

// Load opens a GFS file, drops its length-1 dimensions, subsets the
// horizontal grid to the parameter bounds and adds the wind speed.
func Load(path string, p Params) (*grid.Dataset, error) {
	ds, err := gfs.Open(path)
	if err != nil {
		return nil, err
	}
	ds = ds.Squeeze()
	lat, lon, err := ds.LatLon()
	if err != nil {
		return nil, err
	}
	if ds, err = ds.Sel(lat.Name, p.Lat[0], p.Lat[1]); err != nil {
		return nil, err
	}
	if ds, err = ds.Sel(lon.Name, p.Lon[0], p.Lon[1]); err != nil {
		return nil, err
	}
	if err := addWindSpeed(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func addWindSpeed(ds *grid.Dataset) error {
	u, err := ds.Var(UWindField)
	if err != nil {
		return err
	}
	v, err := ds.Var(VWindField)
	if err != nil {
		return err
	}
	speed, err := calc.WindSpeed(u, v)
	if err != nil {
		return err
	}
	return ds.AddVar(speed)
}

func title(ds *grid.Dataset, p Params) (string, error) {
	valid, ok := ds.ValidTime()
	if !ok {
		return "", ErrNoValidTime
	}
	return Title(p.Level, valid), nil
}
