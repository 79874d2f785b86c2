package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/route"
	"github.com/shadewalk/shadewalk/internal/scheduler"
	"github.com/shadewalk/shadewalk/internal/solver"
	"github.com/shadewalk/shadewalk/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pathRequest struct {
	StartLat     float64  `json:"start_lat"`
	StartLng     float64  `json:"start_lng"`
	EndLat       float64  `json:"end_lat"`
	EndLng       float64  `json:"end_lng"`
	Hour         *int     `json:"time,omitempty"`
	ShadePenalty *float64 `json:"shade_penalty,omitempty"`
}

func (r pathRequest) hour() int {
	if r.Hour == nil {
		return 9
	}
	return *r.Hour
}

func (r pathRequest) penalty() float64 {
	if r.ShadePenalty == nil {
		return 1.0
	}
	return *r.ShadePenalty
}

// routeResponse mirrors the solver backend's path response shape.
type routeResponse struct {
	Path               [][]float64 `json:"path"`
	OriginalDistance   float64     `json:"original_distance_m"`
	ShadeAwareDistance float64     `json:"shade_aware_distance_m"`
	ShadePenalty       float64     `json:"shade_penalty_applied"`
	AnalysisTime       string      `json:"analysis_time,omitempty"`
	ShadeMode          string      `json:"shade_mode"`
	SegmentCount       int         `json:"num_segments"`
	ShadedLength       float64     `json:"total_shade_length_m"`
	ShadePercentage    float64     `json:"shade_percentage"`
	PenaltyAdded       float64     `json:"shade_penalty_added_m"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.solveAndRespond(w, r, req, model.ModeStandard, "standard")
}

func (s *Server) handleRouteShade(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Night time gets a plain shortest path; there is no sun to avoid.
	if route.IsNight(req.hour()) {
		s.solveAndRespond(w, r, req, model.ModeStandard, "night")
		return
	}
	s.solveAndRespond(w, r, req, model.ModeShadeAware, "daylight")
}

func (s *Server) solveAndRespond(w http.ResponseWriter, r *http.Request, req pathRequest, mode model.RoutingMode, shadeMode string) {
	if s.solver == nil {
		writeError(w, http.StatusServiceUnavailable, "path solver not configured")
		return
	}

	res, err := s.solver.Solve(r.Context(), solver.Request{
		Start:              model.GeoPoint{Lat: req.StartLat, Lng: req.StartLng},
		End:                model.GeoPoint{Lat: req.EndLat, Lng: req.EndLng},
		SimulatedHour:      req.hour(),
		ShadePenaltyWeight: req.penalty(),
		Mode:               mode,
	})
	if err != nil {
		if eris.Is(err, solver.ErrNoPath) {
			writeError(w, http.StatusNotFound, "No path found between the points")
			return
		}
		zap.L().Error("server: solve failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "path computation failed")
		return
	}

	stats, err := route.Analyze(r.Context(), res.Path, s.surf, &route.Baseline{
		OriginalDistance:   res.OriginalDistance,
		ShadeAwareDistance: res.ShadeAwareDistance,
	})
	if err != nil {
		zap.L().Error("server: route analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "route analysis failed")
		return
	}

	path := make([][]float64, len(res.Path))
	for i, p := range res.Path {
		path[i] = []float64{p.Lat, p.Lng}
	}

	resp := routeResponse{
		Path:               path,
		OriginalDistance:   stats.OriginalDistance,
		ShadeAwareDistance: stats.ShadeAwareDistance,
		ShadeMode:          shadeMode,
		SegmentCount:       stats.SegmentCount,
		ShadedLength:       stats.ShadedLength,
		ShadePercentage:    stats.ShadePct * 100,
		PenaltyAdded:       stats.PenaltyAdded,
	}
	if mode == model.ModeShadeAware {
		resp.ShadePenalty = req.penalty()
		resp.AnalysisTime = fmt.Sprintf("%d:00", req.hour())
	}
	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Label string       `json:"label"`
	Hour  int          `json:"hour"`
	Edges []model.Edge `json:"edges"`
}

type analyzeResponse struct {
	RunID  string                `json:"run_id,omitempty"`
	Result *model.AnalysisResult `json:"result"`
}

func (s *Server) handleEdgesAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Edges) == 0 {
		writeError(w, http.StatusBadRequest, "edges is required")
		return
	}

	var runID string
	if s.store != nil {
		run, err := s.store.CreateRun(r.Context(), req.Label, req.Hour)
		if err != nil {
			zap.L().Error("server: create run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not record run")
			return
		}
		runID = run.ID
		if err := s.store.UpdateRunStatus(r.Context(), runID, model.RunStatusClassifying); err != nil {
			zap.L().Warn("server: update run status", zap.Error(err))
		}
	}

	result, err := scheduler.Run(r.Context(), req.Edges, s.surf, s.params, scheduler.Options{
		BatchSize: scheduler.BatchSizeBulk,
	})
	if err != nil {
		if s.store != nil && runID != "" {
			if ferr := s.store.FailRun(r.Context(), runID); ferr != nil {
				zap.L().Warn("server: mark run failed", zap.Error(ferr))
			}
		}
		zap.L().Error("server: classification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	if s.store != nil && runID != "" {
		if err := s.store.CompleteRun(r.Context(), runID, result); err != nil {
			zap.L().Warn("server: complete run", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{RunID: runID, Result: result})
}

func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.refiner.Refine(r.Context(), req.Prompt))
}

func (s *Server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRunsShow(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
