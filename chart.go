package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/rtm0/upperair/internal/features"
	"github.com/rtm0/upperair/internal/gfs"
	"github.com/rtm0/upperair/internal/pipeline"
	"github.com/rtm0/upperair/internal/units"
)

var (
	dataDir       = flag.String("data-dir", "", "directory holding the test data; defaults to $"+gfs.TestDataEnv)
	dataset       = flag.String("dataset", "GFS_test.nc", "name of the GFS test data file")
	out           = flag.String("out", "output/fig5_declarative.png", "path of the PNG written by the declarative pipeline")
	dpi           = flag.Int("dpi", 600, "resolution of the written images in dots per inch")
	featuresDir   = flag.String("features", "", "directory with Natural Earth 50m shapefiles. Map features are skipped when empty")
	imperativeOut = flag.String("imperative-out", "", "if set, also write the imperative figure to this PNG path")
	level         = flag.String("level", "300 hPa", "isobaric level to chart")
)

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	path, err := gfs.TestData(*dataDir, *dataset)
	if err != nil {
		logger.Error("Could not find the GFS test data", "err", err)
		os.Exit(1)
	}
	lev, err := units.ParseQuantity(*level)
	if err != nil {
		logger.Error("Invalid level", "level", *level, "err", err)
		os.Exit(1)
	}
	params := pipeline.DefaultParams()
	params.Level = lev
	params.DPI = *dpi
	params.Output = *out

	ds, err := pipeline.Load(path, params)
	if err != nil {
		logger.Error("Could not load GFS data", "path", path, "err", err)
		os.Exit(1)
	}
	logger.Info("GFS summary", ds.Summary()...)
	lib := features.NewLibrary(*featuresDir)

	start := time.Now()
	pc, err := pipeline.Declarative(logger, ds, params, lib)
	if err != nil {
		logger.Error("Could not describe the declarative figure", "err", err)
		os.Exit(1)
	}
	if err := pc.Save(params.Output, params.DPI, true); err != nil {
		logger.Error("Could not save the declarative figure", "err", err)
		os.Exit(1)
	}
	logger.Info("declarative figure saved", "path", params.Output, "in", time.Since(start).Round(time.Millisecond))

	start = time.Now()
	res, err := pipeline.Imperative(logger, ds, params, lib)
	if err != nil {
		logger.Error("Could not draw the imperative figure", "err", err)
		os.Exit(1)
	}
	logger.Info("imperative figure drawn", "artists", res.Axes.Artists(), "in", time.Since(start).Round(time.Millisecond))
	if *imperativeOut == "" {
		return
	}
	if err := res.Figure.Save(*imperativeOut, params.DPI, true); err != nil {
		logger.Error("Could not save the imperative figure", "err", err)
		os.Exit(1)
	}
	logger.Info("imperative figure saved", "path", *imperativeOut)
}
