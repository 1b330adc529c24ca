// Package grid holds labelled N-dimensional variables and datasets decoded
// from gridded model output, and the label-based selections used to reduce
// them to a map slice.
package grid

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rtm0/upperair/internal/units"
)

var (
	// ErrNoVariable is returned when a dataset has no variable of the given name.
	ErrNoVariable = errors.New("no such variable")
	// ErrNoDimension is returned when a variable does not use the given dimension.
	ErrNoDimension = errors.New("no such dimension")
	// ErrShape is returned when data does not fit the declared shape.
	ErrShape = errors.New("shape mismatch")
)

// Variable is a named N-dimensional array of float64 values stored in
// row-major order. A variable with no dimensions is a scalar holding one
// value.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []float64
	Units units.Unit
	Attrs map[string]any

	// Times holds the decoded instants of a CF time coordinate, parallel to
	// Data. It is nil for every other variable.
	Times []time.Time
}

// NewVariable creates a variable, checking that data fits the shape.
func NewVariable(name string, dims []string, shape []int, data []float64) (*Variable, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("variable %q: %d dims for %d-d shape: %w", name, len(dims), len(shape), ErrShape)
	}
	if n := size(shape); n != len(data) {
		return nil, fmt.Errorf("variable %q: shape %v holds %d values, got %d: %w", name, shape, n, len(data), ErrShape)
	}
	return &Variable{
		Name:  name,
		Dims:  slices.Clone(dims),
		Shape: slices.Clone(shape),
		Data:  data,
		Units: units.One,
		Attrs: map[string]any{},
	}, nil
}

func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Size returns the number of values in the variable.
func (v *Variable) Size() int {
	return size(v.Shape)
}

// Axis returns the position of dim in v.Dims, or -1.
func (v *Variable) Axis(dim string) int {
	return slices.Index(v.Dims, dim)
}

// Has reports whether v uses dim.
func (v *Variable) Has(dim string) bool {
	return v.Axis(dim) >= 0
}

// Len returns the length of dim, or 0 when v does not use it.
func (v *Variable) Len(dim string) int {
	if a := v.Axis(dim); a >= 0 {
		return v.Shape[a]
	}
	return 0
}

// Clone returns a deep copy of v.
func (v *Variable) Clone() *Variable {
	c := *v
	c.Dims = slices.Clone(v.Dims)
	c.Shape = slices.Clone(v.Shape)
	c.Data = slices.Clone(v.Data)
	c.Times = slices.Clone(v.Times)
	c.Attrs = make(map[string]any, len(v.Attrs))
	for k, a := range v.Attrs {
		c.Attrs[k] = a
	}
	return &c
}

// Isel returns a new variable holding the given indices along dim, in order.
func (v *Variable) Isel(dim string, idx []int) (*Variable, error) {
	axis := v.Axis(dim)
	if axis < 0 {
		return nil, fmt.Errorf("variable %q has no dimension %q: %w", v.Name, dim, ErrNoDimension)
	}
	n := v.Shape[axis]
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("variable %q: index %d out of range [0, %d) along %q", v.Name, i, n, dim)
		}
	}
	outer := size(v.Shape[:axis])
	inner := size(v.Shape[axis+1:])

	c := *v
	c.Dims = slices.Clone(v.Dims)
	c.Shape = slices.Clone(v.Shape)
	c.Shape[axis] = len(idx)
	c.Data = make([]float64, outer*len(idx)*inner)
	if v.Times != nil {
		c.Times = make([]time.Time, len(c.Data))
	}
	for o := 0; o < outer; o++ {
		for j, k := range idx {
			dst := (o*len(idx) + j) * inner
			src := (o*n + k) * inner
			copy(c.Data[dst:dst+inner], v.Data[src:src+inner])
			if v.Times != nil {
				copy(c.Times[dst:dst+inner], v.Times[src:src+inner])
			}
		}
	}
	return &c, nil
}

// Index selects position i along dim and drops the dimension.
func (v *Variable) Index(dim string, i int) (*Variable, error) {
	c, err := v.Isel(dim, []int{i})
	if err != nil {
		return nil, err
	}
	return c.drop(c.Axis(dim)), nil
}

func (v *Variable) drop(axis int) *Variable {
	v.Dims = slices.Delete(v.Dims, axis, axis+1)
	v.Shape = slices.Delete(v.Shape, axis, axis+1)
	return v
}

// Squeeze drops every length-1 dimension.
func (v *Variable) Squeeze() *Variable {
	c := v.Clone()
	for a := len(c.Shape) - 1; a >= 0; a-- {
		if c.Shape[a] == 1 {
			c.drop(a)
		}
	}
	return c
}

// Stride keeps every step-th index along dim, starting at 0.
func (v *Variable) Stride(dim string, step int) (*Variable, error) {
	if step < 1 {
		return nil, fmt.Errorf("stride %d along %q: step must be positive", step, dim)
	}
	return v.Isel(dim, strideIndices(v.Len(dim), step))
}

func strideIndices(n, step int) []int {
	idx := make([]int, 0, (n+step-1)/step)
	for i := 0; i < n; i += step {
		idx = append(idx, i)
	}
	return idx
}

// Grid2D returns a two-dimensional variable as rows of rowDim, each holding
// the values along colDim. Variables stored as (colDim, rowDim) are
// transposed.
func (v *Variable) Grid2D(rowDim, colDim string) ([][]float64, error) {
	if len(v.Dims) != 2 {
		return nil, fmt.Errorf("variable %q has dims %v, want 2-d (%s, %s): %w", v.Name, v.Dims, rowDim, colDim, ErrShape)
	}
	r, c := v.Axis(rowDim), v.Axis(colDim)
	if r < 0 || c < 0 {
		return nil, fmt.Errorf("variable %q has dims %v, want (%s, %s): %w", v.Name, v.Dims, rowDim, colDim, ErrNoDimension)
	}
	rows, cols := v.Shape[r], v.Shape[c]
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			if r == 0 {
				out[i][j] = v.Data[i*cols+j]
			} else {
				out[i][j] = v.Data[j*rows+i]
			}
		}
	}
	return out, nil
}

// ConvertUnits returns a copy of v with its values expressed in u.
func (v *Variable) ConvertUnits(u units.Unit) (*Variable, error) {
	c := v.Clone()
	if err := units.ConvertSlice(c.Data, v.Data, v.Units, u); err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	c.Units = u
	return c, nil
}

// SameLayout reports whether v and o have identical dims and shape.
func (v *Variable) SameLayout(o *Variable) bool {
	return slices.Equal(v.Dims, o.Dims) && slices.Equal(v.Shape, o.Shape)
}

// StringAttr returns a string attribute, or "".
func (v *Variable) StringAttr(name string) string {
	s, _ := v.Attrs[name].(string)
	return s
}
