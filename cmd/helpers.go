package main

import (
	"context"
	"encoding/json"
	"image/png"
	"os"

	"github.com/rotisserie/eris"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/sampling"
	"github.com/shadewalk/shadewalk/internal/store"
	"github.com/shadewalk/shadewalk/internal/surface"
)

// initStore opens the configured run-history backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// samplingParams maps the config section onto engine tuning.
func samplingParams() sampling.Params {
	return sampling.Params{
		StepMeters:         cfg.Sampling.StepMeters,
		MaxSteps:           cfg.Sampling.MaxSteps,
		SamplesPerPoint:    cfg.Sampling.SamplesPerPoint,
		JitterRadiusMeters: cfg.Sampling.JitterRadiusM,
		AlphaThreshold:     uint8(cfg.Sampling.AlphaThreshold),
		EarlyExit:          cfg.Sampling.EarlyExit,
	}
}

// loadEdges reads an edge list from a JSON file.
func loadEdges(path string) ([]model.Edge, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read edges %s", path)
	}
	var edges []model.Edge
	if err := json.Unmarshal(raw, &edges); err != nil {
		return nil, eris.Wrapf(err, "parse edges %s", path)
	}
	if len(edges) == 0 {
		return nil, eris.Errorf("no edges in %s", path)
	}
	return edges, nil
}

// loadMaskSurface decodes a shadow mask PNG and wraps it for the viewport.
func loadMaskSurface(path string, bounds model.Bounds) (surface.Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open mask %s", path)
	}
	defer f.Close() //nolint:errcheck

	img, err := png.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "decode mask %s", path)
	}
	return surface.NewRaster(img, bounds)
}
