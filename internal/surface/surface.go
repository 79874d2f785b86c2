// Package surface defines the shadow-surface interface the sampling engine
// queries, plus a raster adapter over a pre-rendered shadow mask. The engine
// never computes shadows; it only samples a surface it is handed.
package surface

import (
	"image"

	"github.com/rotisserie/eris"

	"github.com/shadewalk/shadewalk/internal/model"
)

// Point is a position in the surface's query space (screen pixels).
type Point struct {
	X int
	Y int
}

// Surface answers point-wise shadow intensity for one simulated time and
// one viewport.
type Surface interface {
	// Project maps a geographic point into query space. ok is false when
	// the point falls outside the queryable region; such probes are
	// discarded by the engine.
	Project(p model.GeoPoint) (Point, bool)

	// QueryOpacity returns the shadow opacity (0 = full sun, 255 = full
	// shadow) at a query-space point. An error discards the probe without
	// aborting edge classification.
	QueryOpacity(x, y int) (uint8, error)

	// Bounds returns the geographic viewport the surface covers.
	Bounds() model.Bounds
}

// Raster adapts a rendered shadow mask (alpha channel = shadow opacity) to
// the Surface interface using an equirectangular viewport projection.
type Raster struct {
	mask   image.Image
	bounds model.Bounds
	width  int
	height int
}

// NewRaster wraps a decoded shadow mask covering the given viewport.
func NewRaster(mask image.Image, bounds model.Bounds) (*Raster, error) {
	if mask == nil {
		return nil, eris.New("surface: nil mask image")
	}
	r := mask.Bounds()
	if r.Dx() == 0 || r.Dy() == 0 {
		return nil, eris.New("surface: empty mask image")
	}
	if bounds.North <= bounds.South || bounds.East <= bounds.West {
		return nil, eris.New("surface: degenerate viewport bounds")
	}
	return &Raster{
		mask:   mask,
		bounds: bounds,
		width:  r.Dx(),
		height: r.Dy(),
	}, nil
}

func (r *Raster) Project(p model.GeoPoint) (Point, bool) {
	if !r.bounds.Contains(p) {
		return Point{}, false
	}
	fx := (p.Lng - r.bounds.West) / (r.bounds.East - r.bounds.West)
	fy := (r.bounds.North - p.Lat) / (r.bounds.North - r.bounds.South)
	x := int(fx * float64(r.width))
	y := int(fy * float64(r.height))
	if x >= r.width {
		x = r.width - 1
	}
	if y >= r.height {
		y = r.height - 1
	}
	return Point{X: x, Y: y}, true
}

func (r *Raster) QueryOpacity(x, y int) (uint8, error) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return 0, eris.New("surface: query outside mask")
	}
	min := r.mask.Bounds().Min
	_, _, _, a := r.mask.At(min.X+x, min.Y+y).RGBA()
	return uint8(a >> 8), nil
}

func (r *Raster) Bounds() model.Bounds {
	return r.bounds
}

// Empty is a surface with no shadow anywhere over the given bounds. It is
// what a viewer gets when the building fetch fails with a cold cache:
// every probe answers "full sun" rather than erroring.
type Empty struct {
	Viewport model.Bounds
}

func (e Empty) Project(p model.GeoPoint) (Point, bool) {
	if !e.Viewport.Contains(p) {
		return Point{}, false
	}
	return Point{}, true
}

func (e Empty) QueryOpacity(x, y int) (uint8, error) { return 0, nil }

func (e Empty) Bounds() model.Bounds { return e.Viewport }
