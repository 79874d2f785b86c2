// Package sampling estimates the shaded fraction of a path edge by probing
// a shadow surface at jittered points along the segment.
package sampling

import (
	"math"
	"math/rand/v2"

	"github.com/shadewalk/shadewalk/internal/geomath"
	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/surface"
)

// Params tunes a classification. Zero numeric fields are replaced with the
// defaults below; EarlyExit is honored as given, so build Params from
// DefaultParams or PathParams rather than a zero value.
type Params struct {
	// StepMeters is the target spacing between sample cross-sections.
	StepMeters float64

	// SamplesPerPoint is the number of jittered probes per cross-section.
	SamplesPerPoint int

	// JitterRadiusMeters bounds the random polar offset of each probe.
	JitterRadiusMeters float64

	// AlphaThreshold is the minimum surface opacity that counts as shadow.
	AlphaThreshold uint8

	// MaxSteps caps the number of cross-sections per edge.
	MaxSteps int

	// EarlyExit stops sampling once the majority outcome cannot flip.
	EarlyExit bool
}

const (
	defaultStepMeters         = 15.0
	defaultSamplesPerPoint    = 3
	defaultJitterRadiusMeters = 1.5
	defaultAlphaThreshold     = 16
	defaultMaxSteps           = 20

	pathStepMeters = 10.0
	pathMaxSteps   = 10

	// earlyExitMinSamples is the floor below which the early-exit rule
	// never triggers; a unanimous handful of probes is not yet evidence.
	earlyExitMinSamples = 6
)

// DefaultParams returns the tuning for arbitrary network edges.
func DefaultParams() Params {
	return Params{
		StepMeters:         defaultStepMeters,
		SamplesPerPoint:    defaultSamplesPerPoint,
		JitterRadiusMeters: defaultJitterRadiusMeters,
		AlphaThreshold:     defaultAlphaThreshold,
		MaxSteps:           defaultMaxSteps,
		EarlyExit:          true,
	}
}

// PathParams returns the tighter tuning for solved-path segments, which are
// shorter and more predictable than arbitrary network edges.
func PathParams() Params {
	p := DefaultParams()
	p.StepMeters = pathStepMeters
	p.MaxSteps = pathMaxSteps
	return p
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.StepMeters <= 0 {
		p.StepMeters = d.StepMeters
	}
	if p.SamplesPerPoint <= 0 {
		p.SamplesPerPoint = d.SamplesPerPoint
	}
	if p.JitterRadiusMeters <= 0 {
		p.JitterRadiusMeters = d.JitterRadiusMeters
	}
	if p.AlphaThreshold == 0 {
		p.AlphaThreshold = d.AlphaThreshold
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = d.MaxSteps
	}
	return p
}

// ClassifyEdge estimates what fraction of edge lies in shadow on surf.
//
// Probes that project outside the queryable region or whose surface query
// fails are discarded: they count toward neither hits nor total. The
// function itself never fails; a classification with SampleCount == 0 (and
// Indeterminate set) is the only degenerate signal.
//
// rng may be nil, in which case a non-deterministic source is used. Tests
// pass a seeded source.
func ClassifyEdge(edge model.Edge, surf surface.Surface, p Params, rng *rand.Rand) model.EdgeClassification {
	p = p.withDefaults()
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	length := geomath.EdgeLength(edge.A, edge.B)

	// A zero-length edge gets a single cross-section at the midpoint.
	steps := int(math.Ceil(length / p.StepMeters))
	if steps > p.MaxSteps {
		steps = p.MaxSteps
	}

	hits := 0
	total := 0

	for j := 0; j <= steps; j++ {
		t := 0.5
		if steps > 0 {
			t = float64(j) / float64(steps)
		}
		base := geomath.Interpolate(edge.A, edge.B, t)

		for s := 0; s < p.SamplesPerPoint; s++ {
			probe := geomath.Jitter(base, p.JitterRadiusMeters, rng)
			pt, ok := surf.Project(probe)
			if !ok {
				continue
			}
			opacity, err := surf.QueryOpacity(pt.X, pt.Y)
			if err != nil {
				continue
			}
			total++
			if geomath.InShadow(opacity, p.AlphaThreshold) {
				hits++
			}
		}

		// Early exit: once the remaining probe budget is too small to flip
		// a unanimous majority, further sampling only refines a foregone
		// conclusion.
		if p.EarlyExit && total >= earlyExitMinSamples {
			remaining := (steps - j) * p.SamplesPerPoint
			unanimous := hits == total || hits == 0
			if unanimous && float64(remaining) < float64(total)/2 {
				break
			}
		}
	}

	shadePct := 0.0
	if total > 0 {
		shadePct = float64(hits) / float64(total)
	}

	return model.EdgeClassification{
		EdgeID:        edge.ID,
		ShadePct:      shadePct,
		Shaded:        shadePct >= 0.5,
		SampleCount:   total,
		Indeterminate: total == 0,
	}
}
