// Package graph merges classification results into a persisted pedestrian
// network graph, keyed by simulated hour, so the path solver can weight
// edges by shade without re-sampling at query time.
package graph

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
)

// ErrHourExists is returned when enhancing with an hour the graph already
// carries and overwrite was not requested.
var ErrHourExists = eris.New("graph: shade data for hour already present")

// Node is a graph vertex.
type Node struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HourShade is the per-hour shade annotation on an edge.
type HourShade struct {
	Fraction float64 `json:"shade_fraction"`
	LengthM  float64 `json:"shade_length_m"`
	Samples  int     `json:"shade_samples"`
	Shaded   bool    `json:"is_shaded"`
}

// Edge is a graph edge with its base weight and hour-keyed shade data.
// Shade map keys are decimal hour strings ("9", "15").
type Edge struct {
	ID      string               `json:"id"`
	From    string               `json:"from"`
	To      string               `json:"to"`
	WeightM float64              `json:"weight_m"`
	Shade   map[string]HourShade `json:"shade,omitempty"`
}

// Metadata tracks which hours have been merged into the graph.
type Metadata struct {
	AnalyzedHours  []int     `json:"shade_analysis_hours,omitempty"`
	EnhancedAt     time.Time `json:"shade_enhanced_at,omitempty"`
	LastEnhancedAt time.Time `json:"shade_last_enhanced_at,omitempty"`
}

// Graph is the serialized pedestrian network.
type Graph struct {
	Metadata Metadata `json:"metadata"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
}

// Load reads a graph JSON file.
func Load(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "graph: read %s", path)
	}
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrapf(err, "graph: parse %s", path)
	}
	return &g, nil
}

// Save writes the graph as JSON.
func (g *Graph) Save(path string) error {
	raw, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return eris.Wrap(err, "graph: marshal")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "graph: write %s", path)
	}
	return nil
}

// HasHour reports whether shade data for the hour was already merged.
func (g *Graph) HasHour(hour int) bool {
	for _, h := range g.Metadata.AnalyzedHours {
		if h == hour {
			return true
		}
	}
	return false
}

// EnhanceSummary reports what an Enhance pass touched.
type EnhanceSummary struct {
	Updated      int
	MissingShade int
}

// Enhance merges one hour's classification results into the graph by edge
// ID, preserving every other hour's annotations. Edges absent from the
// result keep any existing data for the hour, or get zeroed defaults so the
// solver sees a complete attribute set.
func (g *Graph) Enhance(result *model.AnalysisResult, hour int, overwrite bool) (EnhanceSummary, error) {
	if hour < 0 || hour > 23 {
		return EnhanceSummary{}, eris.Errorf("graph: hour must be 0-23, got %d", hour)
	}
	if g.HasHour(hour) && !overwrite {
		return EnhanceSummary{}, ErrHourExists
	}

	byID := make(map[string]model.EdgeClassification, len(result.Edges))
	for _, c := range result.Edges {
		byID[c.EdgeID] = c
	}

	key := strconv.Itoa(hour)
	var sum EnhanceSummary
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.Shade == nil {
			e.Shade = make(map[string]HourShade, 1)
		}
		c, ok := byID[e.ID]
		if !ok {
			if _, had := e.Shade[key]; !had {
				e.Shade[key] = HourShade{}
				sum.MissingShade++
			}
			continue
		}
		e.Shade[key] = HourShade{
			Fraction: c.ShadePct,
			LengthM:  c.ShadePct * e.WeightM,
			Samples:  c.SampleCount,
			Shaded:   c.Shaded,
		}
		sum.Updated++
	}

	now := time.Now().UTC()
	if len(g.Metadata.AnalyzedHours) == 0 {
		g.Metadata.EnhancedAt = now
	}
	if !g.HasHour(hour) {
		g.Metadata.AnalyzedHours = append(g.Metadata.AnalyzedHours, hour)
		sort.Ints(g.Metadata.AnalyzedHours)
	}
	g.Metadata.LastEnhancedAt = now

	zap.L().Info("graph: merged shade data",
		zap.Int("hour", hour),
		zap.Int("updated", sum.Updated),
		zap.Int("missing", sum.MissingShade),
		zap.Ints("hours", g.Metadata.AnalyzedHours),
	)
	return sum, nil
}

// HourStats summarizes one hour's merged shade data.
type HourStats struct {
	TotalEdges    int
	ShadedEdges   int
	AvgShadeFrac  float64
	TotalShadeLen float64
}

// StatsForHour computes summary statistics over the merged hour data.
func (g *Graph) StatsForHour(hour int) HourStats {
	key := strconv.Itoa(hour)
	stats := HourStats{TotalEdges: len(g.Edges)}
	for _, e := range g.Edges {
		hs, ok := e.Shade[key]
		if !ok {
			continue
		}
		if hs.Shaded {
			stats.ShadedEdges++
		}
		stats.AvgShadeFrac += hs.Fraction
		stats.TotalShadeLen += hs.LengthM
	}
	if stats.TotalEdges > 0 {
		stats.AvgShadeFrac /= float64(stats.TotalEdges)
	}
	return stats
}

// ShadeAwareEdges returns each edge's base weight and shade length for the
// hour, falling back to the given fallback hour when the requested hour was
// never analyzed (the solver's fallback-to-9am behavior).
func (g *Graph) ShadeAwareEdges(hour, fallbackHour int) map[string]HourShade {
	key := strconv.Itoa(hour)
	if !g.HasHour(hour) {
		key = strconv.Itoa(fallbackHour)
	}
	out := make(map[string]HourShade, len(g.Edges))
	for _, e := range g.Edges {
		if hs, ok := e.Shade[key]; ok {
			out[e.ID] = hs
		}
	}
	return out
}
