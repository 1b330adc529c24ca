package grid

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/units"
)

// Dataset is a collection of variables sharing coordinate variables, e.g. one
// model run read from a NetCDF file.
type Dataset struct {
	Attrs map[string]any
	// CRS is the coordinate reference system of the horizontal grid.
	CRS mapproj.CRS

	vars   map[string]*Variable
	names  []string
	coords map[string]*Variable
	cnames []string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Attrs:  map[string]any{},
		vars:   map[string]*Variable{},
		coords: map[string]*Variable{},
	}
}

// AddCoord adds or replaces a coordinate variable. One-dimensional
// coordinates must be indexed by a dimension of the same name.
func (ds *Dataset) AddCoord(c *Variable) error {
	if len(c.Dims) > 1 || (len(c.Dims) == 1 && c.Dims[0] != c.Name) {
		return fmt.Errorf("coordinate %q must be 1-d along itself, has dims %v", c.Name, c.Dims)
	}
	if _, ok := ds.coords[c.Name]; !ok {
		ds.cnames = append(ds.cnames, c.Name)
	}
	ds.coords[c.Name] = c
	return nil
}

// AddVar adds or replaces a data variable. Each dimension with a coordinate
// must match the coordinate's length.
func (ds *Dataset) AddVar(v *Variable) error {
	for a, dim := range v.Dims {
		if c, ok := ds.coords[dim]; ok && len(c.Dims) == 1 && c.Shape[0] != v.Shape[a] {
			return fmt.Errorf("variable %q: dimension %q has length %d, coordinate has %d: %w", v.Name, dim, v.Shape[a], c.Shape[0], ErrShape)
		}
	}
	if _, ok := ds.vars[v.Name]; !ok {
		ds.names = append(ds.names, v.Name)
	}
	ds.vars[v.Name] = v
	return nil
}

// Var returns the named data variable.
func (ds *Dataset) Var(name string) (*Variable, error) {
	v, ok := ds.vars[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNoVariable)
	}
	return v, nil
}

// Coord returns the named coordinate variable.
func (ds *Dataset) Coord(name string) (*Variable, error) {
	c, ok := ds.coords[name]
	if !ok {
		return nil, fmt.Errorf("coordinate %q: %w", name, ErrNoVariable)
	}
	return c, nil
}

// Names returns the data variable names in insertion order.
func (ds *Dataset) Names() []string {
	return slices.Clone(ds.names)
}

// CoordNames returns the coordinate names in insertion order.
func (ds *Dataset) CoordNames() []string {
	return slices.Clone(ds.cnames)
}

func (ds *Dataset) shallow() *Dataset {
	out := NewDataset()
	for k, a := range ds.Attrs {
		out.Attrs[k] = a
	}
	out.CRS = ds.CRS
	return out
}

// transform applies fn to every variable and coordinate that uses dim.
func (ds *Dataset) transform(dim string, fn func(*Variable) (*Variable, error)) (*Dataset, error) {
	out := ds.shallow()
	for _, name := range ds.cnames {
		c := ds.coords[name]
		if c.Has(dim) {
			var err error
			if c, err = fn(c); err != nil {
				return nil, err
			}
		}
		out.cnames = append(out.cnames, name)
		out.coords[name] = c
	}
	for _, name := range ds.names {
		v := ds.vars[name]
		if v.Has(dim) {
			var err error
			if v, err = fn(v); err != nil {
				return nil, err
			}
		}
		out.names = append(out.names, name)
		out.vars[name] = v
	}
	return out, nil
}

// Squeeze drops every length-1 dimension. Length-1 coordinates are kept as
// scalar coordinates.
func (ds *Dataset) Squeeze() *Dataset {
	out := ds.shallow()
	for _, name := range ds.cnames {
		out.cnames = append(out.cnames, name)
		out.coords[name] = ds.coords[name].Squeeze()
	}
	for _, name := range ds.names {
		out.names = append(out.names, name)
		out.vars[name] = ds.vars[name].Squeeze()
	}
	return out
}

func (ds *Dataset) dimCoord(dim string) (*Variable, error) {
	c, ok := ds.coords[dim]
	if !ok || len(c.Dims) != 1 {
		return nil, fmt.Errorf("dimension %q has no 1-d coordinate: %w", dim, ErrNoDimension)
	}
	return c, nil
}

// Sel selects the coordinate labels between start and stop inclusive along
// dim. The bounds must follow the coordinate's own order: a descending
// coordinate needs start >= stop. Bounds in the wrong order select nothing.
func (ds *Dataset) Sel(dim string, start, stop float64) (*Dataset, error) {
	c, err := ds.dimCoord(dim)
	if err != nil {
		return nil, err
	}
	idx := LabelSlice(c.Data, start, stop)
	return ds.transform(dim, func(v *Variable) (*Variable, error) {
		return v.Isel(dim, idx)
	})
}

// LabelSlice returns the indices of values between start and stop inclusive,
// for a coordinate that is monotonic in either direction.
func LabelSlice(values []float64, start, stop float64) []int {
	descending := len(values) > 1 && values[len(values)-1] < values[0]
	lo, hi := start, stop
	if descending {
		lo, hi = stop, start
	}
	idx := []int{}
	if lo > hi {
		return idx
	}
	for i, x := range values {
		if x >= lo && x <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

// SelValue selects the single coordinate label equal to value along dim and
// drops the dimension, leaving a scalar coordinate.
func (ds *Dataset) SelValue(dim string, value float64) (*Dataset, error) {
	c, err := ds.dimCoord(dim)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(c.Data, func(x float64) bool {
		return x == value || math.Abs(x-value) <= 1e-6*math.Max(math.Abs(x), math.Abs(value))
	})
	if i < 0 {
		return nil, fmt.Errorf("%q has no label %v", dim, value)
	}
	return ds.transform(dim, func(v *Variable) (*Variable, error) {
		return v.Index(dim, i)
	})
}

// SelQuantity selects a labelled level along dim after converting q to the
// coordinate's units.
func (ds *Dataset) SelQuantity(dim string, q units.Quantity) (*Dataset, error) {
	c, err := ds.dimCoord(dim)
	if err != nil {
		return nil, err
	}
	l, err := q.To(c.Units)
	if err != nil {
		return nil, fmt.Errorf("select %s along %q: %w", q, dim, err)
	}
	return ds.SelValue(dim, l.Value)
}

// IsVertical reports whether a coordinate describes a vertical level.
func IsVertical(c *Variable) bool {
	if len(c.Dims) != 1 {
		return false
	}
	if c.Units.Dim == units.Pressure {
		return true
	}
	if p := strings.ToLower(c.StringAttr("positive")); p == "up" || p == "down" {
		return true
	}
	return strings.EqualFold(c.StringAttr("axis"), "Z")
}

// VerticalDims returns the dimensions with a vertical coordinate used by at
// least one data variable.
func (ds *Dataset) VerticalDims() []string {
	var dims []string
	for _, name := range ds.names {
		for _, dim := range ds.vars[name].Dims {
			if c, ok := ds.coords[dim]; ok && IsVertical(c) && !slices.Contains(dims, dim) {
				dims = append(dims, dim)
			}
		}
	}
	return dims
}

// SelVertical selects the level q on every vertical dimension of the
// dataset. It fails when the dataset has no vertical dimension or a vertical
// coordinate lacks the level.
func (ds *Dataset) SelVertical(q units.Quantity) (*Dataset, error) {
	dims := ds.VerticalDims()
	if len(dims) == 0 {
		return nil, fmt.Errorf("select %s: dataset has no vertical dimension", q)
	}
	out := ds
	for _, dim := range dims {
		var err error
		if out, err = out.SelQuantity(dim, q); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stride keeps every step-th index along dim, starting at 0.
func (ds *Dataset) Stride(dim string, step int) (*Dataset, error) {
	if _, err := ds.dimCoord(dim); err != nil {
		return nil, err
	}
	return ds.transform(dim, func(v *Variable) (*Variable, error) {
		return v.Stride(dim, step)
	})
}

// Subset returns a dataset holding only the named variables and the
// coordinates they use, plus scalar coordinates.
func (ds *Dataset) Subset(names ...string) (*Dataset, error) {
	out := ds.shallow()
	used := map[string]bool{}
	for _, name := range names {
		v, err := ds.Var(name)
		if err != nil {
			return nil, err
		}
		out.names = append(out.names, name)
		out.vars[name] = v
		for _, dim := range v.Dims {
			used[dim] = true
		}
	}
	for _, name := range ds.cnames {
		c := ds.coords[name]
		if used[name] || len(c.Dims) == 0 {
			out.cnames = append(out.cnames, name)
			out.coords[name] = c
		}
	}
	return out, nil
}

// LatLon returns the latitude and longitude coordinates of the dataset,
// found by name or by CF units.
func (ds *Dataset) LatLon() (lat, lon *Variable, err error) {
	for _, name := range ds.cnames {
		c := ds.coords[name]
		if len(c.Dims) != 1 {
			continue
		}
		switch {
		case c.Units == units.DegreesNorth, name == "lat", name == "latitude":
			if lat == nil {
				lat = c
			}
		case c.Units == units.DegreesEast, name == "lon", name == "longitude":
			if lon == nil {
				lon = c
			}
		}
	}
	if lat == nil || lon == nil {
		return nil, nil, fmt.Errorf("dataset has no latitude/longitude coordinates: %w", ErrNoDimension)
	}
	return lat, lon, nil
}

// ValidTime returns the first scalar time coordinate, which is what remains of
// the time dimension of a single-time dataset after Squeeze.
// Coordinates named "time..." win over others such as a reference time.
func (ds *Dataset) ValidTime() (time.Time, bool) {
	var found *Variable
	for _, name := range ds.cnames {
		c := ds.coords[name]
		if len(c.Dims) != 0 || len(c.Times) != 1 {
			continue
		}
		if strings.HasPrefix(name, "time") {
			return c.Times[0], true
		}
		if found == nil {
			found = c
		}
	}
	if found == nil {
		return time.Time{}, false
	}
	return found.Times[0], true
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (ds *Dataset) Summary() []any {
	dims := map[string]int{}
	for _, name := range ds.cnames {
		if c := ds.coords[name]; len(c.Dims) == 1 {
			dims[name] = c.Shape[0]
		}
	}
	summary := []any{
		"vars", ds.Names(),
		"dims", dims,
		"crs", ds.CRS.Name,
	}
	if t, ok := ds.ValidTime(); ok {
		summary = append(summary, "validTime", t.Format(time.DateTime))
	}
	return summary
}
