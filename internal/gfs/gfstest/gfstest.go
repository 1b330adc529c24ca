// Package gfstest writes small GFS-like NetCDF files for tests.
package gfstest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Variable names used by GFS output.
const (
	Height     = "Geopotential_height_isobaric"
	UWind      = "u-component_of_wind_isobaric"
	VWind      = "v-component_of_wind_isobaric"
	Vertical   = "isobaric3"
	GridMap    = "LatLon_Projection"
	FileName   = "GFS_test.nc"
	ValidHours = 120
)

// Levels are the isobaric levels of the fixture, in Pa.
var Levels = []float32{25000, 30000, 50000}

// Lats runs from 80 down to 0 and Lons from 200 to 310, every 2.5 degrees,
// like the descending latitude axis of GFS output.
var (
	Lats = axis(80, -2.5, 33)
	Lons = axis(200, 2.5, 45)
)

func axis(start, step float32, n int) []float32 {
	a := make([]float32, n)
	for i := range a {
		a[i] = start + float32(i)*step
	}
	return a
}

// HeightAt, UAt and VAt give the fixture values at a level index and grid
// point.
func HeightAt(k int, lat, lon float32) float32 {
	return 10400 - float32(k)*1200 - 12*(lat-10) + 40*float32(math.Sin(float64(lon)*math.Pi/30))
}

func UAt(k int, lat, lon float32) float32 {
	return 8 + float32(k)*4 + 0.6*(lat-10)
}

func VAt(k int, lat, lon float32) float32 {
	return 15 * float32(math.Sin(float64(lon)*math.Pi/45))
}

func field(f func(k int, lat, lon float32) float32) [][][][]float32 {
	out := [][][][]float32{make([][][]float32, len(Levels))}
	for k := range Levels {
		out[0][k] = make([][]float32, len(Lats))
		for i, lat := range Lats {
			out[0][k][i] = make([]float32, len(Lons))
			for j, lon := range Lons {
				out[0][k][i][j] = f(k, lat, lon)
			}
		}
	}
	return out
}

func attrs(t testing.TB, kv ...any) api.AttributeMap {
	t.Helper()
	keys := make([]string, 0, len(kv)/2)
	vals := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := kv[i].(string)
		keys = append(keys, k)
		vals[k] = kv[i+1]
	}
	m, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	return m
}

// Write creates FileName in dir and returns its path.
func Write(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	dims4 := []string{"time", Vertical, "lat", "lon"}
	vars := []struct {
		name string
		v    api.Variable
	}{
		{"time", api.Variable{
			Values:     []float64{ValidHours},
			Dimensions: []string{"time"},
			Attributes: attrs(t, "units", "Hour since 2010-10-26T12:00:00Z", "standard_name", "time"),
		}},
		{Vertical, api.Variable{
			Values:     Levels,
			Dimensions: []string{Vertical},
			Attributes: attrs(t, "units", "Pa", "long_name", "Isobaric surface"),
		}},
		{"lat", api.Variable{
			Values:     Lats,
			Dimensions: []string{"lat"},
			Attributes: attrs(t, "units", "degrees_north"),
		}},
		{"lon", api.Variable{
			Values:     Lons,
			Dimensions: []string{"lon"},
			Attributes: attrs(t, "units", "degrees_east"),
		}},
		{GridMap, api.Variable{
			Values:     []int32{0},
			Dimensions: []string{"mapping"},
			Attributes: attrs(t, "grid_mapping_name", "latitude_longitude", "earth_radius", 6371229.0),
		}},
		{Height, api.Variable{
			Values:     field(HeightAt),
			Dimensions: dims4,
			Attributes: attrs(t, "units", "gpm", "grid_mapping", GridMap),
		}},
		{UWind, api.Variable{
			Values:     field(UAt),
			Dimensions: dims4,
			Attributes: attrs(t, "units", "m/s", "grid_mapping", GridMap),
		}},
		{VWind, api.Variable{
			Values:     field(VAt),
			Dimensions: dims4,
			Attributes: attrs(t, "units", "m/s", "grid_mapping", GridMap),
		}},
	}
	for _, v := range vars {
		if err := cw.AddVar(v.name, v.v); err != nil {
			t.Fatalf("add %s: %v", v.name, err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}
