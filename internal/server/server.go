// Package server exposes the shade analysis engine over HTTP, mirroring
// the path-solver backend's API shapes so existing frontends keep working.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shadewalk/shadewalk/internal/sampling"
	"github.com/shadewalk/shadewalk/internal/solver"
	"github.com/shadewalk/shadewalk/internal/store"
	"github.com/shadewalk/shadewalk/internal/surface"
	"github.com/shadewalk/shadewalk/internal/weights"
)

// Options wires the server's collaborators.
type Options struct {
	Solver   solver.Client
	Surface  surface.Surface
	Store    store.Store
	Refiner  *weights.Refiner
	Sampling sampling.Params
}

// Server handles the HTTP API.
type Server struct {
	solver  solver.Client
	surf    surface.Surface
	store   store.Store
	refiner *weights.Refiner
	params  sampling.Params
}

// New builds a Server. Surface defaults to the empty (all-sunlit) surface;
// Store and Refiner may be nil, disabling run history and LLM refinement.
// Zero-value sampling params fall back to the engine defaults downstream.
func New(opts Options) *Server {
	surf := opts.Surface
	if surf == nil {
		surf = surface.Empty{}
	}
	return &Server{
		solver:  opts.Solver,
		surf:    surf,
		store:   opts.Store,
		refiner: opts.Refiner,
		params:  opts.Sampling,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/route", s.handleRoute)
	r.Post("/route/shade", s.handleRouteShade)
	r.Post("/edges/analyze", s.handleEdgesAnalyze)
	r.Post("/llm/weights", s.handleWeights)
	r.Get("/runs", s.handleRunsList)
	r.Get("/runs/{runID}", s.handleRunsShow)

	return r
}
