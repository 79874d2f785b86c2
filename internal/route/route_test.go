package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/surface"
)

var routeViewport = model.Bounds{North: 40.2, South: 39.7, East: -74.9, West: -75.4}

// halfShadedSurface shades everything north of the split latitude.
type halfShadedSurface struct {
	splitLat float64
}

func (s halfShadedSurface) Project(p model.GeoPoint) (surface.Point, bool) {
	if !routeViewport.Contains(p) {
		return surface.Point{}, false
	}
	// Carry latitude through as microdegrees so QueryOpacity can decide.
	return surface.Point{X: 0, Y: int(p.Lat * 1e6)}, true
}

func (s halfShadedSurface) QueryOpacity(x, y int) (uint8, error) {
	if float64(y)/1e6 > s.splitLat {
		return 255, nil
	}
	return 0, nil
}

func (s halfShadedSurface) Bounds() model.Bounds { return routeViewport }

func TestIsNight(t *testing.T) {
	for _, hour := range []int{0, 3, 6, 19, 22, 23} {
		assert.True(t, IsNight(hour), "hour %d", hour)
	}
	for _, hour := range []int{7, 9, 12, 15, 18} {
		assert.False(t, IsNight(hour), "hour %d", hour)
	}
}

func TestShadeAwareWeight(t *testing.T) {
	// 100m edge, 40m shaded, penalty 1.0: surcharge the 60 sunny meters.
	assert.Equal(t, 160.0, ShadeAwareWeight(100, 40, 1.0, 12))

	// Fully shaded edge carries no penalty at all.
	assert.Equal(t, 100.0, ShadeAwareWeight(100, 100, 2.0, 12))

	// Night bypass.
	assert.Equal(t, 100.0, ShadeAwareWeight(100, 0, 2.0, 22))
}

func TestDeriveEdges(t *testing.T) {
	path := []model.GeoPoint{
		{Lat: 39.95, Lng: -75.16},
		{Lat: 39.951, Lng: -75.16},
		{Lat: 39.952, Lng: -75.16},
	}
	edges := DeriveEdges(path)
	require.Len(t, edges, 2)
	assert.Equal(t, "seg_0", edges[0].ID)
	assert.Equal(t, path[0], edges[0].A)
	assert.Equal(t, path[1], edges[0].B)
	assert.Equal(t, path[1], edges[1].A)
	assert.Equal(t, path[2], edges[1].B)

	assert.Nil(t, DeriveEdges(path[:1]))
	assert.Nil(t, DeriveEdges(nil))
}

func TestAnalyze_HalfShadedPath(t *testing.T) {
	// A 5-point path of 4 equal-length segments running south to north;
	// the northern two segments are fully shaded.
	step := 100.0 / 111320.0 // ~100m of latitude
	base := 39.95
	path := make([]model.GeoPoint, 5)
	for i := range path {
		path[i] = model.GeoPoint{Lat: base + float64(i)*step, Lng: -75.16}
	}
	surf := halfShadedSurface{splitLat: base + 2*step}

	stats, err := Analyze(context.Background(), path, surf, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.SegmentCount)
	assert.InDelta(t, 0.5, stats.ShadePct, 0.06)
	assert.InDelta(t, 400, stats.OriginalDistance, 1)
	assert.InDelta(t, 200, stats.ShadedLength, 25)
	assert.Zero(t, stats.PenaltyAdded)
}

func TestAnalyze_BaselineSuppliesPenalty(t *testing.T) {
	path := []model.GeoPoint{
		{Lat: 39.95, Lng: -75.16},
		{Lat: 39.951, Lng: -75.16},
	}
	stats, err := Analyze(context.Background(), path, halfShadedSurface{splitLat: 39.9}, &Baseline{
		OriginalDistance:   1200,
		ShadeAwareDistance: 1350,
	})
	require.NoError(t, err)

	assert.Equal(t, 1200.0, stats.OriginalDistance)
	assert.Equal(t, 1350.0, stats.ShadeAwareDistance)
	assert.Equal(t, 150.0, stats.PenaltyAdded)
}

func TestAnalyze_RejectsDegeneratePath(t *testing.T) {
	_, err := Analyze(context.Background(), []model.GeoPoint{{Lat: 39.95, Lng: -75.16}}, halfShadedSurface{}, nil)
	assert.Error(t, err)
}
