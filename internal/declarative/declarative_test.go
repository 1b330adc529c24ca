package declarative

import (
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/grid"
	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/render"
	"github.com/rtm0/upperair/internal/units"
)

const (
	height = "Geopotential_height_isobaric"
	uwind  = "u-component_of_wind_isobaric"
	vwind  = "v-component_of_wind_isobaric"
	speed  = "wind_speed"
)

var (
	lats   = []float64{50, 45, 40, 35, 30, 25, 20}
	lons   = []float64{240, 245, 250, 255, 260, 265, 270, 275, 280}
	levels = []float64{30000, 50000}
)

func heightAt(k int, lat, lon float64) float64 { return 9600 - 4000*float64(k) - 20*lat + 0.5*lon }

func uAt(k int, lat, lon float64) float64 { return 40 - 10*float64(k) - 0.5*(lat-35)*(lat-35) }

func vAt(k int, lat, lon float64) float64 { return 0.2 * (lon - 260) }

func speedAt(k int, lat, lon float64) float64 { return math.Hypot(uAt(k, lat, lon), vAt(k, lat, lon)) }

func newVar(t *testing.T, name string, dims []string, shape []int, data []float64, u units.Unit) *grid.Variable {
	t.Helper()
	v, err := grid.NewVariable(name, dims, shape, data)
	require.NoError(t, err)
	v.Units = u
	return v
}

func testData(t *testing.T) *grid.Dataset {
	t.Helper()
	ds := grid.NewDataset()
	ds.CRS = mapproj.PlateCarree()
	require.NoError(t, ds.AddCoord(newVar(t, "isobaric3", []string{"isobaric3"}, []int{2}, levels, units.Pascal)))
	require.NoError(t, ds.AddCoord(newVar(t, "lat", []string{"lat"}, []int{len(lats)}, lats, units.DegreesNorth)))
	require.NoError(t, ds.AddCoord(newVar(t, "lon", []string{"lon"}, []int{len(lons)}, lons, units.DegreesEast)))

	fields := []struct {
		name string
		at   func(k int, lat, lon float64) float64
		unit units.Unit
	}{
		{height, heightAt, units.GeopotentialMeter},
		{uwind, uAt, units.MetersPerSecond},
		{vwind, vAt, units.MetersPerSecond},
		{speed, speedAt, units.MetersPerSecond},
	}
	dims := []string{"isobaric3", "lat", "lon"}
	shape := []int{len(levels), len(lats), len(lons)}
	for _, f := range fields {
		var data []float64
		for k := range levels {
			for _, la := range lats {
				for _, lo := range lons {
					data = append(data, f.at(k, la, lo))
				}
			}
		}
		require.NoError(t, ds.AddVar(newVar(t, f.name, dims, shape, data, f.unit)))
	}
	return ds
}

func level300() *units.Quantity {
	q := units.Q(300, units.Hectopascal)
	return &q
}

func TestContourPlotFields(t *testing.T) {
	p := &ContourPlot{Data: testData(t), Field: height, Level: level300()}
	fields, err := p.Fields()
	require.NoError(t, err)
	require.Len(t, fields, 1)

	f := fields[0]
	assert.Equal(t, lats, f.Lat)
	assert.Equal(t, lons, f.Lon)
	assert.Equal(t, units.GeopotentialMeter, f.Units)
	assert.Equal(t, mapproj.PlateCarree(), f.CRS)
	require.Len(t, f.Values, len(lats))
	for i, la := range lats {
		for j, lo := range lons {
			assert.Equal(t, heightAt(0, la, lo), f.Values[i][j])
		}
	}
}

func TestFilledContourPlotUnits(t *testing.T) {
	p := &FilledContourPlot{Data: testData(t), Field: speed, Level: level300(), PlotUnits: units.Knot}
	fields, err := p.Fields()
	require.NoError(t, err)
	f := fields[0]
	assert.Equal(t, units.Knot, f.Units)
	want := speedAt(0, lats[2], lons[4]) * 3600 / 1852
	assert.InDelta(t, want, f.Values[2][4], 1e-9)

	p.PlotUnits = units.Hectopascal
	_, err = p.Fields()
	assert.ErrorIs(t, err, units.ErrIncompatible)
}

func TestBarbPlotSkip(t *testing.T) {
	p := &BarbPlot{
		Data:      testData(t),
		Field:     [2]string{uwind, vwind},
		Level:     level300(),
		Skip:      [2]int{3, 3},
		PlotUnits: units.Knot,
	}
	fields, err := p.Fields()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	u, v := fields[0], fields[1]
	assert.Equal(t, []float64{50, 35, 20}, u.Lat)
	assert.Equal(t, []float64{240, 255, 270}, u.Lon)
	assert.Equal(t, u.Lat, v.Lat)
	assert.Equal(t, u.Lon, v.Lon)

	want := [][]float64{}
	for _, la := range u.Lat {
		var row []float64
		for _, lo := range u.Lon {
			row = append(row, vAt(0, la, lo)*3600/1852)
		}
		want = append(want, row)
	}
	if diff := cmp.Diff(want, v.Values, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("v mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsErrors(t *testing.T) {
	_, err := (&ContourPlot{Field: height}).Fields()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = (&ContourPlot{Data: testData(t), Field: "temperature"}).Fields()
	assert.ErrorIs(t, err, grid.ErrNoVariable)

	q := units.Q(850, units.Hectopascal)
	_, err = (&ContourPlot{Data: testData(t), Field: height, Level: &q}).Fields()
	assert.Error(t, err)

	// Without a level the field is still three-dimensional.
	_, err = (&ContourPlot{Data: testData(t), Field: height}).Fields()
	assert.ErrorIs(t, err, grid.ErrShape)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPanel(t *testing.T) *MapPanel {
	t.Helper()
	ds := testData(t)
	return &MapPanel{
		Area:       [4]float64{-115, -85, 25, 45},
		Projection: "lcc",
		Layers:     []string{"states", "coastline", "borders"},
		Title:      "300 hPa Heights and Wind Speed",
		Plots: []Plot{
			&FilledContourPlot{
				Data: ds, Field: speed, Level: level300(),
				Contours: []float64{10, 30, 50, 70}, Colormap: "BuPu",
				Colorbar: "horizontal", PlotUnits: units.Knot,
			},
			&ContourPlot{
				Data: ds, Field: height, Level: level300(),
				Contours: []float64{8800, 8900, 9000, 9100}, Clabels: true,
			},
			&BarbPlot{
				Data: ds, Field: [2]string{uwind, vwind}, Level: level300(),
				Skip: [2]int{3, 3}, PlotUnits: units.Knot,
			},
		},
	}
}

func TestPanelContainerDraw(t *testing.T) {
	pc := NewPanelContainer(testLogger(), 4, 4)
	pc.Panels = []*MapPanel{testPanel(t)}
	fig, err := pc.Draw()
	require.NoError(t, err)

	assert.Equal(t, 4*72.0, float64(fig.Width))
	require.Len(t, fig.Axes(), 1)
	ax := fig.Axes()[0]
	assert.Equal(t, mapproj.LambertConformal(40, -100, 30, 60), ax.CRS)
	assert.Equal(t, "300 hPa Heights and Wind Speed", ax.Title)
	// No feature library: only the three plots are drawn.
	assert.Equal(t, 3, ax.Artists())
	_, err = ax.Extent()
	assert.NoError(t, err)
}

func TestPanelContainerFeatures(t *testing.T) {
	pc := NewPanelContainer(testLogger(), 4, 4)
	mp := testPanel(t)
	mp.Layers = []string{"rivers"}
	pc.Panels = []*MapPanel{mp}
	_, err := pc.Draw()
	assert.ErrorIs(t, err, features.ErrUnknownLayer)

	pc.Features = features.NewLibrary(t.TempDir())
	mp.Layers = []string{"states"}
	_, err = pc.Draw()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPanelErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(mp *MapPanel)
		target error
	}{
		{"projection", func(mp *MapPanel) { mp.Projection = "gnomonic" }, mapproj.ErrUnknownProjection},
		{"levels", func(mp *MapPanel) { mp.Plots[1].(*ContourPlot).Contours = []float64{3, 2, 1} }, render.ErrLevels},
		{"colormap", func(mp *MapPanel) { mp.Plots[0].(*FilledContourPlot).Colormap = "Nope" }, render.ErrColormap},
		{"colorbar", func(mp *MapPanel) { mp.Plots[0].(*FilledContourPlot).Colorbar = "diagonal" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := testPanel(t)
			tt.modify(mp)
			pc := &PanelContainer{Size: [2]float64{4, 4}, Panels: []*MapPanel{mp}}
			_, err := pc.Draw()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	_, err := (&PanelContainer{Size: [2]float64{4, 4}}).Draw()
	assert.Error(t, err)
}

func TestDataProjection(t *testing.T) {
	mp := testPanel(t)
	mp.Projection = DataProjection
	mp.Area = [4]float64{}
	pc := NewPanelContainer(testLogger(), 4, 4)
	pc.Panels = []*MapPanel{mp}
	fig, err := pc.Draw()
	require.NoError(t, err)
	ax := fig.Axes()[0]
	assert.Equal(t, mapproj.PlateCarree(), ax.CRS)

	view, err := ax.Extent()
	require.NoError(t, err)
	// Longitudes are folded onto -180..180 around the data's meridian.
	assert.Equal(t, mapproj.Bounds{XMin: -120, XMax: -80, YMin: 20, YMax: 50}, view)
}

// colored returns the share of pixels whose channels differ by more than a
// grey would.
func colored(img image.Image) float64 {
	b := img.Bounds()
	var n int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lo, hi := min(r, g, bl), max(r, g, bl)
			if hi-lo > 0x1000 {
				n++
			}
		}
	}
	return float64(n) / float64(b.Dx()*b.Dy())
}

func TestPlateCarreePanel(t *testing.T) {
	chart := func(area [4]float64) image.Image {
		mp := testPanel(t)
		mp.Projection = "platecarree"
		mp.Area = area
		pc := NewPanelContainer(testLogger(), 4, 4)
		pc.Panels = []*MapPanel{mp}
		fig, err := pc.Draw()
		require.NoError(t, err)
		c, err := fig.Render(20)
		require.NoError(t, err)
		return c.Image()
	}

	west := chart([4]float64{-125, -74, 20, 55})
	// The fill covers a good part of the map, not only the colour bar.
	assert.Greater(t, colored(west), 0.08)

	east := chart([4]float64{235, 286, 20, 55})
	assert.Equal(t, west, east)
}

func TestPanelContainerSave(t *testing.T) {
	pc := NewPanelContainer(testLogger(), 4, 4)
	pc.Panels = []*MapPanel{testPanel(t)}
	path := filepath.Join(t.TempDir(), "output", "panel.png")
	require.NoError(t, pc.Save(path, 30, true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
