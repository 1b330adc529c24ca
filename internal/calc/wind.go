// Package calc derives fields from model variables.
package calc

import (
	"fmt"
	"math"

	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/units"
)

// ErrShape is returned when two variables do not share dimensions and shape.
var ErrShape = grid.ErrShape

// WindSpeedName is the name given to derived wind speed variables.
const WindSpeedName = "wind_speed"

// WindSpeed returns the magnitude of the horizontal wind (u, v) at every
// grid point, in the unit of u. NaN components give NaN speeds.
func WindSpeed(u, v *grid.Variable) (*grid.Variable, error) {
	if !u.SameLayout(v) {
		return nil, fmt.Errorf("wind speed: u %v%v and v %v%v differ: %w", u.Dims, u.Shape, v.Dims, v.Shape, ErrShape)
	}
	if u.Units.Dim != units.Speed && u.Units != units.One {
		return nil, fmt.Errorf("wind speed: u is in %s: %w", u.Units.Name, units.ErrIncompatible)
	}
	vv := v
	if v.Units != u.Units {
		var err error
		if vv, err = v.ConvertUnits(u.Units); err != nil {
			return nil, fmt.Errorf("wind speed: %w", err)
		}
	}

	ws := u.Clone()
	ws.Name = WindSpeedName
	ws.Attrs = map[string]any{"long_name": "wind speed"}
	if gm := u.StringAttr("grid_mapping"); gm != "" {
		ws.Attrs["grid_mapping"] = gm
	}
	for i := range ws.Data {
		ws.Data[i] = math.Hypot(u.Data[i], vv.Data[i])
	}
	return ws, nil
}
