// Package model holds the shared data types of the shade analysis engine.
package model

import (
	"time"
)

// GeoPoint is a geographic coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Edge is a straight path segment between two geographic points. Edges are
// directionless for classification: a/b order only affects interpolation
// parameterization, not the result.
type Edge struct {
	ID string   `json:"id"`
	A  GeoPoint `json:"a"`
	B  GeoPoint `json:"b"`
}

// EdgeClassification is the shade estimate for a single edge against a
// single shadow-surface state. It is never mutated; a new surface state
// (new simulated time) produces a new classification.
type EdgeClassification struct {
	EdgeID      string  `json:"id"`
	ShadePct    float64 `json:"shadePct"`
	Shaded      bool    `json:"shaded"`
	SampleCount int     `json:"nSamples"`

	// Indeterminate is set when no probe landed inside the queryable
	// region (SampleCount == 0). ShadePct is 0 in that case, matching the
	// wire contract, but callers that care can tell "no data" apart from
	// "confirmed sunny".
	Indeterminate bool `json:"-"`
}

// Progress is an immutable snapshot of an in-flight classification job.
// The scheduler is the single writer; observers only ever see copies.
type Progress struct {
	Processed    int           `json:"processed"`
	Total        int           `json:"total"`
	ErrorCount   int           `json:"error_count"`
	CurrentLabel string        `json:"current_label"`
	Elapsed      time.Duration `json:"elapsed"`
	EdgesPerSec  float64       `json:"edges_per_sec"`
	ETA          time.Duration `json:"eta"`
}

// RouteShadeStats aggregates per-edge classifications over a solved path.
// Derived on demand, never stored.
type RouteShadeStats struct {
	OriginalDistance   float64 `json:"original_distance_m"`
	ShadeAwareDistance float64 `json:"shade_aware_distance_m"`
	ShadedLength       float64 `json:"total_shade_length_m"`
	ShadePct           float64 `json:"shade_percentage"`
	PenaltyAdded       float64 `json:"shade_penalty_added_m"`
	SegmentCount       int     `json:"num_segments"`
}

// RoutingMode selects the path solver's weighting.
type RoutingMode string

const (
	ModeStandard   RoutingMode = "standard"
	ModeShadeAware RoutingMode = "shade"
)

// Bounds is a geographic viewport (north/south/east/west, degrees).
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether the point lies inside the bounds.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat <= b.North && p.Lat >= b.South && p.Lng <= b.East && p.Lng >= b.West
}
