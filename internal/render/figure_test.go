package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/mapproj"
)

// testField returns a small grid with a height-like gradient and a jet-like
// speed maximum.
func testField() (lon, lat []float64, z, speed, u, v [][]float64) {
	for j := range 9 {
		lon = append(lon, -120+5*float64(j))
	}
	for i := range 7 {
		lat = append(lat, 50-5*float64(i))
	}
	for _, la := range lat {
		var zr, sr, ur, vr []float64
		for _, lo := range lon {
			zr = append(zr, 9000+20*la+lo)
			s := 120 - 4*(la-35)*(la-35)
			sr = append(sr, s)
			ur = append(ur, s)
			vr = append(vr, 0.1*(lo+100))
		}
		z, speed, u, v = append(z, zr), append(speed, sr), append(u, ur), append(v, vr)
	}
	return lon, lat, z, speed, u, v
}

func testFigure(t *testing.T) *Figure {
	t.Helper()
	lon, lat, z, speed, u, v := testField()
	pc := mapproj.PlateCarree()

	fig := NewFigure(4*vg.Inch, 4*vg.Inch)
	ax := fig.AddAxes(pc)
	fs, err := ax.Contourf(lon, lat, speed, pc, []float64{10, 30, 50, 70, 90, 110}, "BuPu")
	require.NoError(t, err)
	_, err = fig.Colorbar(fs, Horizontal, 0, 50)
	require.NoError(t, err)
	cs, err := ax.Contour(lon, lat, z, pc, ContourStyle{Levels: []float64{9800, 9900, 10000}})
	require.NoError(t, err)
	cs.Clabel(LabelStyle{Spacing: 8})
	_, err = ax.Barbs(lon, lat, u, v, pc, BarbStyle{Pivot: PivotMiddle})
	require.NoError(t, err)
	require.NoError(t, ax.AddFeature(&features.Layer{
		Name:  "coastline",
		Lines: []features.Line{{Lon: []float64{-118, -90}, Lat: []float64{22, 48}}},
	}, FeatureStyle))
	ax.SetTitle("Test chart")
	return fig
}

func TestAxesExtent(t *testing.T) {
	ax := NewFigure(vg.Inch, vg.Inch).AddAxes(mapproj.PlateCarree())
	_, err := ax.Extent()
	assert.ErrorIs(t, err, ErrNoExtent)

	require.NoError(t, ax.AddFeature(&features.Layer{Name: "borders"}, FeatureStyle))
	_, err = ax.Extent()
	assert.ErrorIs(t, err, ErrNoExtent)

	lon, lat, z, _, _, _ := testField()
	_, err = ax.Contour(lon, lat, z, mapproj.PlateCarree(), ContourStyle{Levels: []float64{9900}})
	require.NoError(t, err)
	view, err := ax.Extent()
	require.NoError(t, err)
	assert.Equal(t, mapproj.Bounds{XMin: -120, XMax: -80, YMin: 20, YMax: 50}, view)

	require.NoError(t, ax.SetExtent(-110, -90, 25, 45))
	view, err = ax.Extent()
	require.NoError(t, err)
	assert.InDelta(t, -110, view.XMin, 1e-9)
	assert.InDelta(t, 45, view.YMax, 1e-9)
	assert.Equal(t, 2, ax.Artists())
}

func TestAxesDrawOrder(t *testing.T) {
	lon, lat, z, speed, u, v := testField()
	pc := mapproj.PlateCarree()
	ax := NewFigure(vg.Inch, vg.Inch).AddAxes(pc)

	barbs, err := ax.Barbs(lon, lat, u, v, pc, BarbStyle{})
	require.NoError(t, err)
	require.NoError(t, ax.AddFeature(&features.Layer{Name: "states"}, FeatureStyle))
	lines, err := ax.Contour(lon, lat, z, pc, ContourStyle{Levels: []float64{9900}})
	require.NoError(t, err)
	fill, err := ax.Contourf(lon, lat, speed, pc, []float64{10, 50, 110}, "BuPu")
	require.NoError(t, err)

	order := ax.drawOrder()
	require.Len(t, order, 4)
	assert.Same(t, fill, order[0])
	assert.Same(t, lines, order[1])
	// Barbs and features share a layer and keep the order they were added.
	assert.Same(t, barbs, order[2])
	assert.IsType(t, &featureLines{}, order[3])
}

func TestAxesErrors(t *testing.T) {
	lon, lat, z, _, u, _ := testField()
	pc := mapproj.PlateCarree()
	ax := NewFigure(vg.Inch, vg.Inch).AddAxes(pc)

	_, err := ax.Contour(lon, lat, z[:3], pc, ContourStyle{Levels: []float64{1}})
	assert.ErrorIs(t, err, ErrGrid)
	_, err = ax.Contour(lon, lat, z, pc, ContourStyle{})
	assert.ErrorIs(t, err, ErrLevels)
	_, err = ax.Contourf(lon, lat, z, pc, []float64{3, 2, 1}, "BuPu")
	assert.ErrorIs(t, err, ErrLevels)
	_, err = ax.Contourf(lon, lat, z, pc, []float64{1, 2, 3}, "Rainbow")
	assert.ErrorIs(t, err, ErrColormap)
	_, err = ax.Barbs(lon, lat, u, u[1:], pc, BarbStyle{})
	assert.ErrorIs(t, err, ErrGrid)
	_, err = ax.Contour(lon, lat, z, mapproj.CRS{}, ContourStyle{Levels: []float64{1}})
	assert.ErrorIs(t, err, mapproj.ErrUnknownProjection)
	assert.Zero(t, ax.Artists())
}

func TestColorbarForeignSet(t *testing.T) {
	lon, lat, _, speed, _, _ := testField()
	pc := mapproj.PlateCarree()
	other := NewFigure(vg.Inch, vg.Inch)
	fs, err := other.AddAxes(pc).Contourf(lon, lat, speed, pc, []float64{10, 50, 90}, "BuPu")
	require.NoError(t, err)

	fig := NewFigure(vg.Inch, vg.Inch)
	fig.AddAxes(pc)
	_, err = fig.Colorbar(fs, Vertical, 0.05, 0)
	assert.Error(t, err)

	cb, err := other.Colorbar(fs, Vertical, 0.05, 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, cb.Aspect)
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("horizontal")
	require.NoError(t, err)
	assert.Equal(t, Horizontal, o)
	o, err = ParseOrientation("vertical")
	require.NoError(t, err)
	assert.Equal(t, Vertical, o)
	_, err = ParseOrientation("diagonal")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	c, err := testFigure(t).Render(40)
	require.NoError(t, err)
	img := c.Image()
	assert.Equal(t, image.Rect(0, 0, 160, 160), img.Bounds())

	box, ok := inkBounds(img)
	require.True(t, ok)
	assert.Less(t, box.Dx(), 160)

	_, err = NewFigure(vg.Inch, vg.Inch).Render(40)
	assert.Error(t, err)
	_, err = testFigure(t).Render(0)
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	fig := testFigure(t)

	full := filepath.Join(dir, "out", "full.png")
	require.NoError(t, fig.Save(full, 40, false))
	tight := filepath.Join(dir, "out", "tight.png")
	require.NoError(t, fig.Save(tight, 40, true))

	fullCfg := pngConfig(t, full)
	assert.Equal(t, 160, fullCfg.Width)
	tightCfg := pngConfig(t, tight)
	assert.Less(t, tightCfg.Width, fullCfg.Width)
	assert.Less(t, tightCfg.Height, fullCfg.Height)
	assert.Greater(t, tightCfg.Width, 0)
}

func pngConfig(t *testing.T, path string) image.Config {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	return cfg
}

func TestInkBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	_, ok := inkBounds(img)
	assert.False(t, ok)

	img.Set(3, 4, color.Black)
	img.Set(6, 5, color.RGBA{0xff, 0, 0, 0xff})
	box, ok := inkBounds(img)
	require.True(t, ok)
	assert.Equal(t, image.Rect(3, 4, 7, 6), box)
}
