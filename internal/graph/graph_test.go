package graph

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/internal/model"
)

func testGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			{ID: "n0", Lat: 39.950, Lng: -75.160},
			{ID: "n1", Lat: 39.951, Lng: -75.160},
			{ID: "n2", Lat: 39.952, Lng: -75.160},
		},
		Edges: []Edge{
			{ID: "edge_0", From: "n0", To: "n1", WeightM: 110},
			{ID: "edge_1", From: "n1", To: "n2", WeightM: 90},
		},
	}
}

func testResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		AnalysisTime:   time.Now().UTC(),
		TotalEdges:     2,
		ProcessedEdges: 2,
		Edges: []model.EdgeClassification{
			{EdgeID: "edge_0", ShadePct: 0.8, Shaded: true, SampleCount: 24},
			{EdgeID: "edge_1", ShadePct: 0.1, Shaded: false, SampleCount: 18},
		},
	}
}

func TestEnhance_MergesHourData(t *testing.T) {
	g := testGraph()

	sum, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Updated)
	assert.Equal(t, 0, sum.MissingShade)

	hs := g.Edges[0].Shade["9"]
	assert.Equal(t, 0.8, hs.Fraction)
	assert.InDelta(t, 88.0, hs.LengthM, 1e-9) // 0.8 * 110m
	assert.Equal(t, 24, hs.Samples)
	assert.True(t, hs.Shaded)

	assert.Equal(t, []int{9}, g.Metadata.AnalyzedHours)
	assert.False(t, g.Metadata.LastEnhancedAt.IsZero())
}

func TestEnhance_PreservesOtherHours(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)

	afternoon := testResult()
	afternoon.Edges[0].ShadePct = 0.2
	afternoon.Edges[0].Shaded = false
	_, err = g.Enhance(afternoon, 15, false)
	require.NoError(t, err)

	assert.Equal(t, 0.8, g.Edges[0].Shade["9"].Fraction)
	assert.Equal(t, 0.2, g.Edges[0].Shade["15"].Fraction)
	assert.Equal(t, []int{9, 15}, g.Metadata.AnalyzedHours)
}

func TestEnhance_RefusesDuplicateHourWithoutOverwrite(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)

	_, err = g.Enhance(testResult(), 9, false)
	assert.True(t, eris.Is(err, ErrHourExists))

	_, err = g.Enhance(testResult(), 9, true)
	assert.NoError(t, err)
}

func TestEnhance_MissingEdgesGetZeroDefaults(t *testing.T) {
	g := testGraph()
	res := testResult()
	res.Edges = res.Edges[:1] // edge_1 has no classification

	sum, err := g.Enhance(res, 9, false)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.MissingShade)

	hs, ok := g.Edges[1].Shade["9"]
	require.True(t, ok)
	assert.Zero(t, hs.Fraction)
	assert.False(t, hs.Shaded)
}

func TestEnhance_RejectsBadHour(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 24, false)
	assert.Error(t, err)
}

func TestStatsForHour(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)

	stats := g.StatsForHour(9)
	assert.Equal(t, 2, stats.TotalEdges)
	assert.Equal(t, 1, stats.ShadedEdges)
	assert.InDelta(t, 0.45, stats.AvgShadeFrac, 1e-9)
	assert.InDelta(t, 97.0, stats.TotalShadeLen, 1e-9) // 88 + 9
}

func TestShadeAwareEdges_FallbackHour(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)

	// Hour 14 was never analyzed; fall back to 9.
	byID := g.ShadeAwareEdges(14, 9)
	require.Contains(t, byID, "edge_0")
	assert.Equal(t, 0.8, byID["edge_0"].Fraction)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	g := testGraph()
	_, err := g.Enhance(testResult(), 9, false)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, g.Metadata.AnalyzedHours, loaded.Metadata.AnalyzedHours)
	require.Len(t, loaded.Edges, 2)
	assert.Equal(t, 0.8, loaded.Edges[0].Shade["9"].Fraction)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
