package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgba(c color.Color) [4]uint32 {
	r, g, b, a := c.RGBA()
	return [4]uint32{r, g, b, a}
}

func TestColormapBrewer(t *testing.T) {
	cols, err := Colormap("BuPu", 9)
	require.NoError(t, err)
	require.Len(t, cols, 9)
	assert.Equal(t, rgba(color.RGBA{0xf7, 0xfc, 0xfd, 0xff}), rgba(cols[0]))
	assert.Equal(t, rgba(color.RGBA{0x4d, 0x00, 0x4b, 0xff}), rgba(cols[8]))

	ends, err := Colormap("BuPu", 2)
	require.NoError(t, err)
	assert.Equal(t, rgba(cols[0]), rgba(ends[0]))
	assert.Equal(t, rgba(cols[8]), rgba(ends[1]))

	// Interpolated colours lie between their neighbours.
	many, err := Colormap("BuPu", 17)
	require.NoError(t, err)
	assert.Equal(t, rgba(cols[4]), rgba(many[8]))
	r1 := rgba(many[1])[0]
	assert.LessOrEqual(t, r1, rgba(cols[0])[0])
	assert.GreaterOrEqual(t, r1, rgba(cols[1])[0])
}

func TestColormapErrors(t *testing.T) {
	_, err := Colormap("NotAScheme", 5)
	assert.ErrorIs(t, err, ErrColormap)

	_, err = Colormap("BuPu", 0)
	assert.Error(t, err)
}

func TestNewBands(t *testing.T) {
	levels := []float64{10, 30, 50}
	b, err := NewBands(levels, "BuPu")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	require.Len(t, b.Colors, 2)
	assert.NotEqual(t, rgba(b.Colors[0]), rgba(b.Colors[1]))

	levels[0] = 0
	assert.Equal(t, 10.0, b.Levels[0])
}

func TestNewBandsLevels(t *testing.T) {
	tests := [][]float64{
		nil,
		{10},
		{10, 10},
		{30, 10},
		{10, math.Inf(1)},
	}
	for _, levels := range tests {
		_, err := NewBands(levels, "BuPu")
		assert.ErrorIs(t, err, ErrLevels, "levels %v", levels)
	}
}

func TestIndexMap(t *testing.T) {
	b, err := NewBands([]float64{0, 1, 2, 3}, "Greens")
	require.NoError(t, err)
	m := newIndexMap(b.Colors)
	assert.Equal(t, 0.0, m.Min())
	assert.Equal(t, 3.0, m.Max())

	for i, want := range b.Colors {
		c, err := m.At(float64(i) + 0.5)
		require.NoError(t, err)
		assert.Equal(t, rgba(want), rgba(c))
	}
	c, err := m.At(3)
	require.NoError(t, err)
	assert.Equal(t, rgba(b.Colors[2]), rgba(c))

	_, err = m.At(-0.1)
	assert.Error(t, err)
	_, err = m.At(3.1)
	assert.Error(t, err)
	_, err = m.At(math.NaN())
	assert.Error(t, err)

	assert.Len(t, m.Palette(5).Colors(), 5)
}
