package declarative

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/plot/vg"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/mapproj"
	"github.com/rtm0/upperair/internal/render"
)

// DataProjection is the MapPanel projection that draws in the coordinate
// system of the first plot's data.
const DataProjection = "data"

// MapPanel is one map of a container.
type MapPanel struct {
	// Area is [west, east, south, north] in degrees. A zero area fits the
	// view to the data.
	Area [4]float64
	// Projection is "lcc", "merc", "platecarree" or DataProjection.
	Projection string
	// Layers names map features drawn over the plots: "states",
	// "coastline" or "borders".
	Layers []string
	Title  string
	// Plots are painted in order, later plots on top.
	Plots []Plot
}

func (mp *MapPanel) crs() (mapproj.CRS, error) {
	if mp.Projection != DataProjection {
		return mapproj.Named(mp.Projection)
	}
	if len(mp.Plots) == 0 {
		return mapproj.PlateCarree(), nil
	}
	fields, err := mp.Plots[0].Fields()
	if err != nil {
		return mapproj.CRS{}, err
	}
	return fields[0].CRS, nil
}

func (mp *MapPanel) draw(logger *slog.Logger, fig *render.Figure, lib *features.Library) error {
	crs, err := mp.crs()
	if err != nil {
		return fmt.Errorf("panel %q: %w", mp.Title, err)
	}
	ax := fig.AddAxes(crs)
	for _, p := range mp.Plots {
		if err := p.draw(fig, ax); err != nil {
			return fmt.Errorf("panel %q: %w", mp.Title, err)
		}
	}
	for _, name := range mp.Layers {
		layer, err := lib.Layer(name)
		if errors.Is(err, features.ErrNoData) {
			logger.Warn("Map features are not available", "layer", name, "err", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("panel %q: %w", mp.Title, err)
		}
		if err := ax.AddFeature(layer, render.FeatureStyle); err != nil {
			return fmt.Errorf("panel %q: %w", mp.Title, err)
		}
	}
	if mp.Area != [4]float64{} {
		if err := ax.SetExtent(mp.Area[0], mp.Area[1], mp.Area[2], mp.Area[3]); err != nil {
			return fmt.Errorf("panel %q: %w", mp.Title, err)
		}
	}
	ax.SetTitle(mp.Title)
	return nil
}

// PanelContainer is a page of map panels stacked top to bottom.
type PanelContainer struct {
	// Size is the page width and height in inches.
	Size   [2]float64
	Panels []*MapPanel
	// Features supplies the panels' background layers. Without one the
	// layers are skipped with a warning.
	Features *features.Library

	logger *slog.Logger
}

// NewPanelContainer returns an empty container of the given size in
// inches, logging to logger.
func NewPanelContainer(logger *slog.Logger, width, height float64) *PanelContainer {
	return &PanelContainer{Size: [2]float64{width, height}, logger: logger}
}

// Draw lays out every panel on a new figure.
func (pc *PanelContainer) Draw() (*render.Figure, error) {
	if len(pc.Panels) == 0 {
		return nil, errors.New("panel container has no panels")
	}
	logger := pc.logger
	if logger == nil {
		logger = slog.Default()
	}
	fig := render.NewFigure(vg.Length(pc.Size[0])*vg.Inch, vg.Length(pc.Size[1])*vg.Inch)
	for _, mp := range pc.Panels {
		if err := mp.draw(logger, fig, pc.Features); err != nil {
			return nil, err
		}
	}
	return fig, nil
}

// Save draws the container and writes it to path as a PNG image at dpi dots
// per inch. With tight set the blank page margins are cropped.
func (pc *PanelContainer) Save(path string, dpi int, tight bool) error {
	fig, err := pc.Draw()
	if err != nil {
		return err
	}
	return fig.Save(path, dpi, tight)
}
