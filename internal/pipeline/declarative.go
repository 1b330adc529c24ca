package pipeline

import (
	"log/slog"

	"github.com/rtm0/upperair/internal/declarative"
	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/grid"
)

// Declarative describes the chart as plots on a Lambert conformal map panel.
// Nothing is drawn until the returned container is saved.
func Declarative(logger *slog.Logger, ds *grid.Dataset, p Params, lib *features.Library) (*declarative.PanelContainer, error) {
	title, err := title(ds, p)
	if err != nil {
		return nil, err
	}
	level := p.Level

	contour := &declarative.ContourPlot{
		Data:     ds,
		Field:    HeightField,
		Level:    &level,
		Contours: p.Heights,
		Clabels:  true,
	}
	cfill := &declarative.FilledContourPlot{
		Data:      ds,
		Field:     SpeedField,
		Level:     &level,
		Contours:  p.Speeds,
		Colormap:  p.Colormap,
		Colorbar:  "horizontal",
		PlotUnits: p.PlotUnits,
	}
	barbs := &declarative.BarbPlot{
		Data:      ds,
		Field:     [2]string{UWindField, VWindField},
		Level:     &level,
		Skip:      p.Skip,
		PlotUnits: p.PlotUnits,
	}

	panel := &declarative.MapPanel{
		Area:       p.Area,
		Projection: "lcc",
		Layers:     []string{"states", "coastline", "borders"},
		Title:      title,
		Plots:      []declarative.Plot{cfill, contour, barbs},
	}

	pc := declarative.NewPanelContainer(logger, p.Size[0], p.Size[1])
	pc.Panels = []*declarative.MapPanel{panel}
	pc.Features = lib
	return pc, nil
}
