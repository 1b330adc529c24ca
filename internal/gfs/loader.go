// Package gfs decodes GFS model output in NetCDF format into grid datasets,
// applying the CF conventions the files carry.
package gfs

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/units"
)

// Open reads every numeric variable of a NetCDF classic or NetCDF-4 file.
// One-dimensional variables indexed by their own name become coordinates,
// the rest become data variables. The file is closed before returning.
func Open(filePath string) (*grid.Dataset, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer nc.Close()

	ds, err := decode(nc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return ds, nil
}

func decode(nc api.Group) (*grid.Dataset, error) {
	ds := grid.NewDataset()
	ds.Attrs = attrMap(nc.Attributes())

	names := nc.ListVariables()
	raw := make(map[string]*api.Variable, len(names))
	for _, name := range names {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		raw[name] = v
	}

	// Grid mapping variables only carry attributes.
	mappings := map[string]bool{}
	for _, name := range names {
		if m, ok := attrMap(raw[name].Attributes)["grid_mapping"].(string); ok {
			mappings[m] = true
		}
	}
	for m := range mappings {
		if v, ok := raw[m]; ok && ds.CRS.IsZero() {
			if crs, err := mapproj.FromCF(attrMap(v.Attributes)); err == nil {
				ds.CRS = crs
			}
		}
	}

	var data []*grid.Variable
	for _, name := range names {
		if mappings[name] {
			continue
		}
		v, ok, err := variable(name, raw[name])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(v.Dims) == 1 && v.Dims[0] == name {
			if err := ds.AddCoord(v); err != nil {
				return nil, err
			}
			continue
		}
		data = append(data, v)
	}
	for _, v := range data {
		if err := ds.AddVar(v); err != nil {
			return nil, err
		}
	}

	if ds.CRS.IsZero() {
		if _, _, err := ds.LatLon(); err == nil {
			ds.CRS = mapproj.PlateCarree()
		}
	}
	return ds, nil
}

// variable converts a NetCDF variable. Non-numeric variables such as
// character arrays are reported as not ok.
func variable(name string, nv *api.Variable) (*grid.Variable, bool, error) {
	values, shape, ok := flatten(nv.Values)
	if !ok {
		return nil, false, nil
	}
	dims := nv.Dimensions
	if len(dims) != len(shape) {
		// Scalars come back as plain values with no dimensions.
		if len(dims) != 0 || len(values) != 1 {
			return nil, false, fmt.Errorf("variable %q: dims %v do not match shape %v", name, dims, shape)
		}
		shape = nil
	}
	v, err := grid.NewVariable(name, dims, shape, values)
	if err != nil {
		return nil, false, err
	}
	v.Attrs = attrMap(nv.Attributes)
	unpack(v)

	u := v.StringAttr("units")
	if t, err := parseTimeUnits(u); err == nil {
		v.Times = t.decode(v.Data)
		v.Units = t.unit
	} else if pu, err := units.Parse(u); err == nil {
		v.Units = pu
	}
	return v, true, nil
}

// unpack applies the CF packing and missing value attributes.
func unpack(v *grid.Variable) {
	var fills []float64
	for _, a := range []string{"_FillValue", "missing_value"} {
		if f, ok := numbers(v.Attrs[a]); ok {
			fills = append(fills, f...)
		}
	}
	scale, hasScale := number(v.Attrs["scale_factor"])
	offset, hasOffset := number(v.Attrs["add_offset"])
	if !hasScale {
		scale = 1
	}
	for i, x := range v.Data {
		if slices.Contains(fills, x) {
			v.Data[i] = math.NaN()
			continue
		}
		if hasScale || hasOffset {
			v.Data[i] = x*scale + offset
		}
	}
}

// flatten turns the nested slices returned by the NetCDF reader into
// row-major float64 values and a shape.
func flatten(values any) ([]float64, []int, bool) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() {
		return nil, nil, false
	}
	var shape []int
	for t, e := rv.Type(), rv; t.Kind() == reflect.Slice; t = t.Elem() {
		n := 0
		if e.IsValid() {
			n = e.Len()
		}
		shape = append(shape, n)
		if n > 0 {
			e = e.Index(0)
		} else {
			e = reflect.Value{}
		}
	}
	if !numericKind(baseType(rv.Type()).Kind()) {
		return nil, nil, false
	}
	out := make([]float64, 0, sizeOf(shape))
	var walk func(reflect.Value)
	walk = func(v reflect.Value) {
		if v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i))
			}
			return
		}
		out = append(out, toFloat(v))
	}
	walk(rv)
	if len(shape) == 0 {
		shape = []int{1}
	}
	return out, shape, len(out) == sizeOf(shape)
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanFloat():
		return v.Float()
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	return math.NaN()
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func attrMap(am api.AttributeMap) map[string]any {
	out := map[string]any{}
	if am == nil {
		return out
	}
	for _, k := range am.Keys() {
		if v, ok := am.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

func number(a any) (float64, bool) {
	vs, ok := numbers(a)
	if !ok || len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

func numbers(a any) ([]float64, bool) {
	if a == nil {
		return nil, false
	}
	vs, _, ok := flatten(a)
	return vs, ok
}
