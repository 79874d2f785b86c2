package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/sampling"
	"github.com/shadewalk/shadewalk/internal/surface"
)

var testViewport = model.Bounds{North: 40.2, South: 39.7, East: -74.9, West: -75.4}

type opaqueSurface struct{}

func (opaqueSurface) Project(p model.GeoPoint) (surface.Point, bool) {
	if !testViewport.Contains(p) {
		return surface.Point{}, false
	}
	return surface.Point{}, true
}
func (opaqueSurface) QueryOpacity(x, y int) (uint8, error) { return 255, nil }
func (opaqueSurface) Bounds() model.Bounds                 { return testViewport }

func makeEdges(n int) []model.Edge {
	edges := make([]model.Edge, n)
	for i := range edges {
		lat := 39.95 + float64(i)*1e-4
		edges[i] = model.Edge{
			ID: fmt.Sprintf("edge_%d", i),
			A:  model.GeoPoint{Lat: lat, Lng: -75.16},
			B:  model.GeoPoint{Lat: lat + 5e-5, Lng: -75.16},
		}
	}
	return edges
}

func TestRun_ClassifiesEverythingInOrder(t *testing.T) {
	edges := makeEdges(120)

	res, err := Run(context.Background(), edges, opaqueSurface{}, sampling.DefaultParams(), Options{
		BatchSize: 50,
		Seed:      7,
	})
	require.NoError(t, err)

	assert.Equal(t, 120, res.TotalEdges)
	assert.Equal(t, 120, res.ProcessedEdges)
	assert.Equal(t, 0, res.Errors)
	require.Len(t, res.Edges, 120)
	for i, c := range res.Edges {
		assert.Equal(t, edges[i].ID, c.EdgeID)
		assert.Equal(t, 1.0, c.ShadePct)
		assert.True(t, c.Shaded)
	}
}

func TestRun_ProgressSnapshotsNeverGoBackward(t *testing.T) {
	edges := makeEdges(130)

	var snaps []model.Progress
	_, err := Run(context.Background(), edges, opaqueSurface{}, sampling.DefaultParams(), Options{
		BatchSize:  50,
		Seed:       7,
		OnProgress: func(p model.Progress) { snaps = append(snaps, p) },
	})
	require.NoError(t, err)

	require.Len(t, snaps, 3)
	assert.Equal(t, 50, snaps[0].Processed)
	assert.Equal(t, 100, snaps[1].Processed)
	assert.Equal(t, 130, snaps[2].Processed)
	for i, s := range snaps {
		assert.Equal(t, 130, s.Total)
		if i > 0 {
			assert.Greater(t, s.Processed, snaps[i-1].Processed)
		}
	}
	assert.Equal(t, "batch 3/3", snaps[2].CurrentLabel)
	assert.Equal(t, snaps[2].Processed, snaps[2].Total)
}

func TestRun_YieldsBetweenBatchesButNotAfterLast(t *testing.T) {
	edges := makeEdges(100)

	yields := 0
	_, err := Run(context.Background(), edges, opaqueSurface{}, sampling.DefaultParams(), Options{
		BatchSize: 25,
		Seed:      7,
		Yield: func(ctx context.Context) error {
			yields++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, yields) // 4 batches, no yield after the final one
}

func TestRun_CancellationStopsAtYield(t *testing.T) {
	edges := makeEdges(100)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Run(ctx, edges, opaqueSurface{}, sampling.DefaultParams(), Options{
		BatchSize: 25,
		Seed:      7,
		Yield: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SeededRunsAreReproducible(t *testing.T) {
	edges := makeEdges(60)

	a, err := Run(context.Background(), edges, opaqueSurface{}, sampling.DefaultParams(), Options{Seed: 11})
	require.NoError(t, err)
	b, err := Run(context.Background(), edges, opaqueSurface{}, sampling.DefaultParams(), Options{Seed: 11})
	require.NoError(t, err)

	assert.Equal(t, a.Edges, b.Edges)
}

func TestRun_EmptyEdgeSet(t *testing.T) {
	res, err := Run(context.Background(), nil, opaqueSurface{}, sampling.DefaultParams(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalEdges)
	assert.Empty(t, res.Edges)
}
