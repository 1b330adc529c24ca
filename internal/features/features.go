// Package features loads the Natural Earth background layers drawn on map
// panels.
package features

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jonas-p/go-shp"
)

var (
	// ErrUnknownLayer is returned for layer names with no Natural Earth source.
	ErrUnknownLayer = errors.New("unknown feature layer")
	// ErrNoData is returned when a library has no data directory.
	ErrNoData = errors.New("no feature data directory")
)

// Files maps each layer name to its Natural Earth 50m shapefile.
var Files = map[string]string{
	"states":    "ne_50m_admin_1_states_provinces_lakes.shp",
	"coastline": "ne_50m_coastline.shp",
	"borders":   "ne_50m_admin_0_boundary_lines_land.shp",
}

// Names returns the known layer names, sorted.
func Names() []string {
	names := make([]string, 0, len(Files))
	for name := range Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Line is a sequence of longitude/latitude points in degrees.
type Line struct {
	Lon, Lat []float64
}

// Layer is a named set of lines drawn over a map.
type Layer struct {
	Name  string
	Lines []Line
}

// Points returns the number of points on all lines of the layer.
func (l *Layer) Points() int {
	n := 0
	for _, line := range l.Lines {
		n += len(line.Lon)
	}
	return n
}

// Library reads layers from a directory of Natural Earth shapefiles and
// caches them. It is safe for concurrent use.
type Library struct {
	Dir string

	mu     sync.Mutex
	layers map[string]*Layer
}

// NewLibrary returns a library reading from dir.
func NewLibrary(dir string) *Library {
	return &Library{Dir: dir}
}

// Layer returns the named layer, reading its shapefile on first use. A nil
// library or one without a directory returns an empty layer together with
// ErrNoData so callers can warn and carry on.
func (l *Library) Layer(name string) (*Layer, error) {
	file, ok := Files[name]
	if !ok {
		return nil, fmt.Errorf("%q (known: %v): %w", name, Names(), ErrUnknownLayer)
	}
	if l == nil || l.Dir == "" {
		return &Layer{Name: name}, fmt.Errorf("layer %q: %w", name, ErrNoData)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if layer, ok := l.layers[name]; ok {
		return layer, nil
	}
	layer, err := Read(name, filepath.Join(l.Dir, file))
	if err != nil {
		return nil, err
	}
	if l.layers == nil {
		l.layers = map[string]*Layer{}
	}
	l.layers[name] = layer
	return layer, nil
}

// Read loads every polyline and polygon of a shapefile as a layer. Polygon
// rings are closed lines. Other shape types are skipped.
func Read(name, path string) (*Layer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("layer %q: %w", name, err)
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	layer := &Layer{Name: name}
	for r.Next() {
		_, shape := r.Shape()
		switch s := shape.(type) {
		case *shp.PolyLine:
			layer.Lines = append(layer.Lines, parts(s.Parts, s.Points)...)
		case *shp.Polygon:
			layer.Lines = append(layer.Lines, parts(s.Parts, s.Points)...)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return layer, nil
}

// parts splits the points of a multi-part shape at the part offsets.
func parts(offsets []int32, points []shp.Point) []Line {
	lines := make([]Line, 0, len(offsets))
	for i, start := range offsets {
		end := int32(len(points))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 2 {
			continue
		}
		line := Line{
			Lon: make([]float64, 0, end-start),
			Lat: make([]float64, 0, end-start),
		}
		for _, p := range points[start:end] {
			line.Lon = append(line.Lon, p.X)
			line.Lat = append(line.Lat, p.Y)
		}
		lines = append(lines, line)
	}
	return lines
}
