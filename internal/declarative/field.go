package declarative

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/units"
)

// ErrNoData is returned by plots drawn without a dataset.
var ErrNoData = errors.New("plot has no data")

// Slice is a two-dimensional field ready to draw: Values holds one row per
// latitude of Lat and one column per longitude of Lon.
type Slice struct {
	Name   string
	Lon    []float64
	Lat    []float64
	Values [][]float64
	Units  units.Unit
	CRS    mapproj.CRS
}

// selectFields reduces data to the two-dimensional fields names, in order.
// The vertical level is selected when level is set, the horizontal grid is
// strided by skip (rows, then columns) and values are converted to to
// unless it is the zero Unit.
func selectFields(data *grid.Dataset, names []string, level *units.Quantity, skip [2]int, to units.Unit) ([]*Slice, error) {
	if data == nil {
		return nil, ErrNoData
	}
	ds, err := data.Subset(names...)
	if err != nil {
		return nil, err
	}
	if level != nil {
		if ds, err = ds.SelVertical(*level); err != nil {
			return nil, err
		}
	}
	lat, lon, err := ds.LatLon()
	if err != nil {
		return nil, err
	}
	if skip[0] > 1 {
		if ds, err = ds.Stride(lat.Name, skip[0]); err != nil {
			return nil, err
		}
	}
	if skip[1] > 1 {
		if ds, err = ds.Stride(lon.Name, skip[1]); err != nil {
			return nil, err
		}
	}
	if lat, lon, err = ds.LatLon(); err != nil {
		return nil, err
	}
	crs := ds.CRS
	if crs.IsZero() {
		crs = mapproj.PlateCarree()
	}

	out := make([]*Slice, 0, len(names))
	for _, name := range names {
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
		out = append(out, &Slice{
			Name:   name,
			Lon:    slices.Clone(lon.Data),
			Lat:    slices.Clone(lat.Data),
			Values: values,
			Units:  v.Units,
			CRS:    crs,
		})
	}
	return out, nil
}
