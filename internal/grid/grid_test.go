package grid

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/upperair/internal/units"
)

func mustVar(t *testing.T, name string, dims []string, shape []int, data []float64) *Variable {
	t.Helper()
	v, err := NewVariable(name, dims, shape, data)
	require.NoError(t, err)
	return v
}

// testDataset has dims time(1) x level(2) x lat(4, descending) x lon(3).
func testDataset(t *testing.T) *Dataset {
	t.Helper()
	ds := NewDataset()

	tc := mustVar(t, "time", []string{"time"}, []int{1}, []float64{120})
	tc.Units = units.Hour
	tc.Times = []time.Time{time.Date(2010, 10, 31, 12, 0, 0, 0, time.UTC)}
	ref := mustVar(t, "reftime", nil, nil, []float64{0})
	ref.Times = []time.Time{time.Date(2010, 10, 26, 12, 0, 0, 0, time.UTC)}
	lev := mustVar(t, "isobaric3", []string{"isobaric3"}, []int{2}, []float64{30000, 50000})
	lev.Units = units.Pascal
	lat := mustVar(t, "lat", []string{"lat"}, []int{4}, []float64{70, 50, 30, 10})
	lat.Units = units.DegreesNorth
	lon := mustVar(t, "lon", []string{"lon"}, []int{3}, []float64{210, 260, 305})
	lon.Units = units.DegreesEast
	for _, c := range []*Variable{ref, tc, lev, lat, lon} {
		require.NoError(t, ds.AddCoord(c))
	}

	data := make([]float64, 2*4*3)
	for i := range data {
		data[i] = float64(i)
	}
	z := mustVar(t, "z", []string{"time", "isobaric3", "lat", "lon"}, []int{1, 2, 4, 3}, data)
	z.Units = units.GeopotentialMeter
	require.NoError(t, ds.AddVar(z))

	sfc := mustVar(t, "sfc", []string{"lat", "lon"}, []int{4, 3}, make([]float64, 12))
	require.NoError(t, ds.AddVar(sfc))
	return ds
}

func TestNewVariableShape(t *testing.T) {
	_, err := NewVariable("x", []string{"a"}, []int{2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)
	_, err = NewVariable("x", []string{"a", "b"}, []int{3}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)
}

func TestAddVarChecksCoordinates(t *testing.T) {
	ds := testDataset(t)
	bad := mustVar(t, "bad", []string{"lat"}, []int{2}, []float64{1, 2})
	assert.ErrorIs(t, ds.AddVar(bad), ErrShape)

	err := ds.AddCoord(mustVar(t, "x", []string{"y"}, []int{1}, []float64{1}))
	assert.Error(t, err)
}

func TestSqueeze(t *testing.T) {
	ds := testDataset(t).Squeeze()

	z, err := ds.Var("z")
	require.NoError(t, err)
	assert.Equal(t, []string{"isobaric3", "lat", "lon"}, z.Dims)
	assert.Equal(t, []int{2, 4, 3}, z.Shape)

	tc, err := ds.Coord("time")
	require.NoError(t, err)
	assert.Empty(t, tc.Dims)
	assert.Len(t, tc.Data, 1)

	vt, ok := ds.ValidTime()
	require.True(t, ok)
	assert.Equal(t, time.Date(2010, 10, 31, 12, 0, 0, 0, time.UTC), vt)
}

func TestSelDescendingLatitude(t *testing.T) {
	ds := testDataset(t).Squeeze()

	sub, err := ds.Sel("lat", 60, 10)
	require.NoError(t, err)
	lat, err := sub.Coord("lat")
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 30, 10}, lat.Data)

	z, err := sub.Var("z")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 3}, z.Shape)
	// level 0, lat 50 (index 1 before selection) starts at 3.
	assert.Equal(t, []float64{3, 4, 5}, z.Data[:3])

	// Ascending bounds on a descending axis select nothing.
	empty, err := ds.Sel("lat", 10, 70)
	require.NoError(t, err)
	lat, err = empty.Coord("lat")
	require.NoError(t, err)
	assert.Empty(t, lat.Data)
	z, err = empty.Var("z")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 3}, z.Shape)

	_, err = ds.Sel("height", 0, 1)
	assert.ErrorIs(t, err, ErrNoDimension)
}

func TestLabelSlice(t *testing.T) {
	tests := []struct {
		name        string
		values      []float64
		start, stop float64
		want        []int
	}{
		{"ascending", []float64{200, 210, 220, 230}, 205, 230, []int{1, 2, 3}},
		{"ascending reversed bounds", []float64{200, 210, 220, 230}, 230, 205, []int{}},
		{"descending", []float64{70, 60, 50}, 70, 55, []int{0, 1}},
		{"descending reversed bounds", []float64{70, 60, 50}, 50, 70, []int{}},
		{"single value", []float64{5}, 0, 10, []int{0}},
		{"outside", []float64{1, 2, 3}, 10, 20, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelSlice(tt.values, tt.start, tt.stop))
		})
	}
}

func TestSelVertical(t *testing.T) {
	ds := testDataset(t).Squeeze()
	assert.Equal(t, []string{"isobaric3"}, ds.VerticalDims())

	lvl, err := ds.SelVertical(units.Q(500, units.Hectopascal))
	require.NoError(t, err)
	z, err := lvl.Var("z")
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, z.Dims)
	assert.Equal(t, 12.0, z.Data[0])

	sfc, err := lvl.Var("sfc")
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, sfc.Dims)

	c, err := lvl.Coord("isobaric3")
	require.NoError(t, err)
	assert.Empty(t, c.Dims)
	assert.Equal(t, []float64{50000}, c.Data)

	_, err = ds.SelVertical(units.Q(850, units.Hectopascal))
	assert.Error(t, err)
	_, err = ds.SelVertical(units.Q(10, units.Knot))
	assert.ErrorIs(t, err, units.ErrIncompatible)

	_, err = lvl.SelVertical(units.Q(500, units.Hectopascal))
	assert.Error(t, err, "no vertical dimension left")
}

func TestStride(t *testing.T) {
	ds := testDataset(t).Squeeze()
	s, err := ds.Stride("lat", 3)
	require.NoError(t, err)
	s, err = s.Stride("lon", 3)
	require.NoError(t, err)

	lat, err := s.Coord("lat")
	require.NoError(t, err)
	assert.Equal(t, []float64{70, 10}, lat.Data)
	lon, err := s.Coord("lon")
	require.NoError(t, err)
	assert.Equal(t, []float64{210}, lon.Data)

	z, err := s.Var("z")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, z.Shape)
	assert.Equal(t, []float64{0, 9, 12, 21}, z.Data)

	_, err = ds.Stride("lat", 0)
	assert.Error(t, err)
}

func TestSubset(t *testing.T) {
	ds := testDataset(t).Squeeze()
	sub, err := ds.Subset("sfc")
	require.NoError(t, err)
	assert.Equal(t, []string{"sfc"}, sub.Names())
	assert.Equal(t, []string{"reftime", "time", "lat", "lon"}, sub.CoordNames())

	_, err = ds.Subset("nope")
	assert.ErrorIs(t, err, ErrNoVariable)
}

func TestGrid2D(t *testing.T) {
	v := mustVar(t, "v", []string{"lat", "lon"}, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	rows, err := v.Grid2D("lat", "lon")
	require.NoError(t, err)
	if diff := cmp.Diff([][]float64{{1, 2, 3}, {4, 5, 6}}, rows); diff != "" {
		t.Errorf("Grid2D mismatch (-want +got):\n%s", diff)
	}

	rows, err = v.Grid2D("lon", "lat")
	require.NoError(t, err)
	if diff := cmp.Diff([][]float64{{1, 4}, {2, 5}, {3, 6}}, rows); diff != "" {
		t.Errorf("transposed Grid2D mismatch (-want +got):\n%s", diff)
	}

	_, err = v.Grid2D("y", "x")
	assert.ErrorIs(t, err, ErrNoDimension)

	v3 := mustVar(t, "v3", []string{"a", "b", "c"}, []int{1, 1, 1}, []float64{1})
	_, err = v3.Grid2D("a", "b")
	assert.ErrorIs(t, err, ErrShape)
}

func TestConvertUnits(t *testing.T) {
	v := mustVar(t, "ws", []string{"x"}, []int{2}, []float64{0, 10})
	v.Units = units.MetersPerSecond
	kt, err := v.ConvertUnits(units.Knot)
	require.NoError(t, err)
	assert.Equal(t, units.Knot, kt.Units)
	assert.InDelta(t, 19.438444924406046, kt.Data[1], 1e-9)
	assert.Equal(t, 10.0, v.Data[1], "source left untouched")

	_, err = v.ConvertUnits(units.Pascal)
	assert.ErrorIs(t, err, units.ErrIncompatible)
}

func TestIselKeepsTimes(t *testing.T) {
	v := mustVar(t, "time", []string{"time"}, []int{3}, []float64{0, 6, 12})
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v.Times = []time.Time{t0, t0.Add(6 * time.Hour), t0.Add(12 * time.Hour)}
	s, err := v.Isel("time", []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 0}, s.Data)
	assert.Equal(t, []time.Time{v.Times[2], v.Times[0]}, s.Times)

	_, err = v.Isel("time", []int{3})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	ds := testDataset(t).Squeeze()
	summary := ds.Summary()
	require.Len(t, summary, 8)
	assert.Equal(t, "vars", summary[0])
	assert.Equal(t, []string{"z", "sfc"}, summary[1])
	assert.Equal(t, "2010-10-31 12:00:00", summary[7])
}
