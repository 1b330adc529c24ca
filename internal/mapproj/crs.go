// Package mapproj describes the coordinate reference systems of model grids
// and map panels and transforms coordinates between them.
package mapproj

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadius is the spherical earth radius used by GFS output, in meters.
const EarthRadius = 6371229.0

// ErrUnknownProjection is returned for grid mappings and projection names
// that are not supported.
var ErrUnknownProjection = errors.New("unknown projection")

// CRS is a coordinate reference system given by a PROJ.4 style definition.
// The zero value is an unknown CRS.
type CRS struct {
	// Name is the CF grid_mapping_name of the system.
	Name string
	// Def is the PROJ.4 definition understood by ctessum/geom/proj.
	Def string
}

// IsZero reports whether c is the unknown CRS.
func (c CRS) IsZero() bool {
	return c.Def == ""
}

// Geographic reports whether c has longitude/latitude degree coordinates.
func (c CRS) Geographic() bool {
	return c.Name == "latitude_longitude"
}

// CentralLon returns the +lon_0 parameter of the definition, or 0.
func (c CRS) CentralLon() float64 {
	for _, f := range strings.Fields(c.Def) {
		if v, ok := strings.CutPrefix(f, "+lon_0="); ok {
			lon, err := strconv.ParseFloat(v, 64)
			if err == nil {
				return lon
			}
		}
	}
	return 0
}

func (c CRS) String() string {
	if c.IsZero() {
		return "unknown"
	}
	return c.Name
}

func sphere(radius float64) string {
	if radius <= 0 || math.IsNaN(radius) {
		radius = EarthRadius
	}
	return fmt.Sprintf("+a=%f +b=%f", radius, radius)
}

// PlateCarree is the geographic longitude/latitude system on the GFS sphere.
func PlateCarree() CRS {
	return plateCarree(EarthRadius)
}

func plateCarree(radius float64) CRS {
	return CRS{
		Name: "latitude_longitude",
		Def:  "+proj=longlat " + sphere(radius),
	}
}

// LambertConformal is a Lambert conformal conic projection with standard
// parallels std1 and std2.
func LambertConformal(centralLat, centralLon, std1, std2 float64) CRS {
	return lambertConformal(centralLat, centralLon, std1, std2, EarthRadius)
}

func lambertConformal(centralLat, centralLon, std1, std2, radius float64) CRS {
	return CRS{
		Name: "lambert_conformal_conic",
		Def: fmt.Sprintf("+proj=lcc +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 %s +to_meter=1",
			std1, std2, centralLat, centralLon, sphere(radius)),
	}
}

// Mercator is a normal Mercator projection centred on centralLon.
func Mercator(centralLon float64) CRS {
	return CRS{
		Name: "mercator",
		Def:  fmt.Sprintf("+proj=merc +lon_0=%f +x_0=0 +y_0=0 %s +to_meter=1", centralLon, sphere(EarthRadius)),
	}
}

// Named returns the map projection for a panel projection name. "lcc" is
// the default North American Lambert conformal chart.
func Named(name string) (CRS, error) {
	switch strings.ToLower(name) {
	case "lcc":
		return LambertConformal(40, -100, 30, 60), nil
	case "merc", "mercator":
		return Mercator(-100), nil
	case "platecarree", "pc", "latlon":
		return PlateCarree(), nil
	}
	return CRS{}, fmt.Errorf("%q: %w", name, ErrUnknownProjection)
}

// FromCF builds a CRS from the attributes of a CF grid mapping variable.
func FromCF(attrs map[string]any) (CRS, error) {
	name, _ := attrs["grid_mapping_name"].(string)
	radius := EarthRadius
	if r, ok := number(attrs["earth_radius"]); ok {
		radius = r
	}
	switch name {
	case "latitude_longitude":
		return plateCarree(radius), nil
	case "lambert_conformal_conic":
		par, ok := numbers(attrs["standard_parallel"])
		if !ok || len(par) == 0 {
			return CRS{}, fmt.Errorf("lambert_conformal_conic grid mapping without standard_parallel")
		}
		std1, std2 := par[0], par[0]
		if len(par) > 1 {
			std2 = par[1]
		}
		lat0, ok := number(attrs["latitude_of_projection_origin"])
		if !ok {
			lat0 = std1
		}
		lon0, _ := number(attrs["longitude_of_central_meridian"])
		return lambertConformal(lat0, lon0, std1, std2, radius), nil
	case "mercator":
		lon0, _ := number(attrs["longitude_of_projection_origin"])
		return CRS{
			Name: "mercator",
			Def:  fmt.Sprintf("+proj=merc +lon_0=%f +x_0=0 +y_0=0 %s +to_meter=1", lon0, sphere(radius)),
		}, nil
	}
	return CRS{}, fmt.Errorf("grid mapping %q: %w", name, ErrUnknownProjection)
}

func number(a any) (float64, bool) {
	vs, ok := numbers(a)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// numbers accepts the scalar and slice attribute types produced by NetCDF
// readers.
func numbers(a any) ([]float64, bool) {
	switch v := a.(type) {
	case float64:
		return []float64{v}, true
	case float32:
		return []float64{float64(v)}, true
	case int32:
		return []float64{float64(v)}, true
	case int:
		return []float64{float64(v)}, true
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}
