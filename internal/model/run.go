package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusFetching    RunStatus = "fetching"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// AnalysisResult is the exported artifact of a classification run. Field
// names are the stable interop contract with downstream consumers (the
// graph-enhancement tooling parses exactly this shape).
type AnalysisResult struct {
	AnalysisTime     time.Time            `json:"analysisTime"`
	TotalEdges       int                  `json:"totalEdges"`
	ProcessedEdges   int                  `json:"processedEdges"`
	Errors           int                  `json:"errors"`
	ProcessingTimeMs int64                `json:"processingTimeMs"`
	Edges            []EdgeClassification `json:"edges"`
}

// Run records a single analysis run for the runs history store.
type Run struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Hour      int             `json:"hour"`
	Status    RunStatus       `json:"status"`
	Result    *AnalysisResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
