// Package route turns a solved path into per-segment shade classifications
// and route-level shade statistics, and carries the shade-aware edge
// weighting used by the solver graph.
package route

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/shadewalk/shadewalk/internal/geomath"
	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/sampling"
	"github.com/shadewalk/shadewalk/internal/scheduler"
	"github.com/shadewalk/shadewalk/internal/surface"
)

// Night hours get no shade penalty: there is no sun to avoid. Matches the
// solver backend's daylight window.
const (
	nightBeforeHour = 6
	nightAfterHour  = 19
)

// IsNight reports whether the simulated hour is outside the daylight
// window.
func IsNight(hour int) bool {
	return hour <= nightBeforeHour || hour >= nightAfterHour
}

// ShadeAwareWeight computes the solver edge weight with the shade penalty
// applied: the unshaded portion of the edge is surcharged by the penalty
// factor. At night the base weight passes through unchanged.
func ShadeAwareWeight(baseWeight, shadeLength, penalty float64, hour int) float64 {
	if IsNight(hour) {
		return baseWeight
	}
	return baseWeight + (baseWeight-shadeLength)*penalty
}

// DeriveEdges converts an ordered coordinate list into consecutive-pair
// edges: an N-point path yields N-1 edges.
func DeriveEdges(path []model.GeoPoint) []model.Edge {
	if len(path) < 2 {
		return nil
	}
	edges := make([]model.Edge, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		edges = append(edges, model.Edge{
			ID: fmt.Sprintf("seg_%d", i),
			A:  path[i],
			B:  path[i+1],
		})
	}
	return edges
}

// Baseline carries the solver's route costs, when available, so the stats
// can report the penalty the shade weighting added.
type Baseline struct {
	OriginalDistance   float64
	ShadeAwareDistance float64
}

// Analyze classifies every segment of path against surf with path-tuned
// sampling parameters and aggregates route-level shade statistics.
// baseline may be nil; distances then fall back to the summed segment
// lengths and no penalty is reported.
func Analyze(ctx context.Context, path []model.GeoPoint, surf surface.Surface, baseline *Baseline) (*model.RouteShadeStats, error) {
	edges := DeriveEdges(path)
	if len(edges) == 0 {
		return nil, eris.New("route: path has fewer than two points")
	}

	res, err := scheduler.Run(ctx, edges, surf, sampling.PathParams(), scheduler.Options{
		BatchSize: scheduler.BatchSizeFine,
	})
	if err != nil {
		return nil, eris.Wrap(err, "route: classify segments")
	}

	var totalLength, shadedLength float64
	for i, c := range res.Edges {
		length := geomath.EdgeLength(edges[i].A, edges[i].B)
		totalLength += length
		shadedLength += length * c.ShadePct
	}

	stats := &model.RouteShadeStats{
		OriginalDistance:   totalLength,
		ShadeAwareDistance: totalLength,
		ShadedLength:       shadedLength,
		SegmentCount:       len(edges),
	}
	if totalLength > 0 {
		stats.ShadePct = shadedLength / totalLength
	}
	if baseline != nil {
		stats.OriginalDistance = baseline.OriginalDistance
		stats.ShadeAwareDistance = baseline.ShadeAwareDistance
		stats.PenaltyAdded = baseline.ShadeAwareDistance - baseline.OriginalDistance
	}
	return stats, nil
}
