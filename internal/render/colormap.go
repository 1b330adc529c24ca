package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
)

var (
	// ErrColormap is returned for colour map names that ColorBrewer does not
	// define.
	ErrColormap = errors.New("unknown colormap")
	// ErrLevels is returned for contour levels that are empty or not
	// strictly ascending.
	ErrLevels = errors.New("invalid contour levels")
)

// checkLevels verifies that levels holds at least n strictly ascending
// finite values.
func checkLevels(levels []float64, n int) error {
	if len(levels) < n {
		return fmt.Errorf("need at least %d levels, got %d: %w", n, len(levels), ErrLevels)
	}
	for i, l := range levels {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return fmt.Errorf("level %d is %v: %w", i, l, ErrLevels)
		}
		if i > 0 && l <= levels[i-1] {
			return fmt.Errorf("levels not ascending at %v, %v: %w", levels[i-1], l, ErrLevels)
		}
	}
	return nil
}

// Colormap samples the named ColorBrewer scheme to n colours running from
// its lightest to its darkest entry.
func Colormap(name string, n int) ([]color.Color, error) {
	if n < 1 {
		return nil, fmt.Errorf("colormap %q: %d colours requested", name, n)
	}
	var base []color.Color
	for k := 12; k >= 3; k-- {
		p, err := brewer.GetPalette(brewer.TypeAny, name, k)
		if err == nil {
			base = p.Colors()
			break
		}
	}
	if base == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrColormap)
	}
	if n == len(base) {
		return slices.Clone(base), nil
	}
	out := make([]color.Color, n)
	for i := range out {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		out[i] = sample(base, f)
	}
	return out, nil
}

// sample interpolates linearly between the colours of base at f in [0, 1].
func sample(base []color.Color, f float64) color.Color {
	pos := f * float64(len(base)-1)
	i := int(math.Floor(pos))
	if i >= len(base)-1 {
		return base[len(base)-1]
	}
	t := pos - float64(i)
	r0, g0, b0, a0 := base[i].RGBA()
	r1, g1, b1, a1 := base[i+1].RGBA()
	lerp := func(a, b uint32) uint16 {
		return uint16(math.Round(float64(a) + t*(float64(b)-float64(a))))
	}
	return color.RGBA64{R: lerp(r0, r1), G: lerp(g0, g1), B: lerp(b0, b1), A: lerp(a0, a1)}
}

// Bands assigns a colour to each interval between consecutive ascending
// levels. Values below the first or above the last level have no colour.
type Bands struct {
	Levels []float64
	Colors []color.Color
}

// NewBands builds the bands between levels coloured by the named scheme.
func NewBands(levels []float64, cmap string) (*Bands, error) {
	if err := checkLevels(levels, 2); err != nil {
		return nil, err
	}
	colors, err := Colormap(cmap, len(levels)-1)
	if err != nil {
		return nil, err
	}
	return &Bands{Levels: slices.Clone(levels), Colors: colors}, nil
}

// Len returns the number of bands.
func (b *Bands) Len() int {
	return len(b.Levels) - 1
}

// indexMap is a palette.ColorMap over band indices: the value x lies in band
// floor(x). Colour bars drawn with it give every band the same width.
type indexMap struct {
	colors   []color.Color
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*indexMap)(nil)

func newIndexMap(colors []color.Color) *indexMap {
	return &indexMap{colors: colors, max: float64(len(colors)), alpha: 1}
}

func (m *indexMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < m.min:
		return nil, palette.ErrUnderflow
	case v > m.max:
		return nil, palette.ErrOverflow
	}
	i := int(math.Floor(v))
	i = max(0, min(i, len(m.colors)-1))
	c := m.colors[i]
	if m.alpha == 1 {
		return c, nil
	}
	r, g, b, a := c.RGBA()
	scale := func(v uint32) uint16 { return uint16(float64(v) * m.alpha) }
	return color.RGBA64{R: scale(r), G: scale(g), B: scale(b), A: scale(a)}, nil
}

func (m *indexMap) Max() float64 { return m.max }

func (m *indexMap) SetMax(v float64) { m.max = v }

func (m *indexMap) Min() float64 { return m.min }

func (m *indexMap) SetMin(v float64) { m.min = v }

func (m *indexMap) Alpha() float64 { return m.alpha }

func (m *indexMap) SetAlpha(a float64) {
	if a < 0 || a > 1 {
		panic("render: alpha out of range")
	}
	m.alpha = a
}

type paletteColors []color.Color

func (c paletteColors) Colors() []color.Color { return c }

func (m *indexMap) Palette(n int) palette.Palette {
	out := make(paletteColors, n)
	for i := range out {
		f := 0.0
		if n > 1 {
			f = float64(i) / float64(n-1)
		}
		out[i] = sample(m.colors, f)
	}
	return out
}
