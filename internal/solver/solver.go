// Package solver is the client for the external shade-weighted path
// solver. The solver is an opaque remote call: its failures are terminal
// for the current request and surfaced to the caller, never retried here.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/resilience"
)

// ErrNoPath is returned when the solver finds no route between the points.
var ErrNoPath = eris.New("solver: no path found between the points")

// Request asks for a route between two points under the given parameters.
type Request struct {
	Start              model.GeoPoint
	End                model.GeoPoint
	SimulatedHour      int
	ShadePenaltyWeight float64
	Mode               model.RoutingMode
}

// Result is the solved route. ShadeAwareDistance equals OriginalDistance
// when the solver ran in standard mode (no penalty applied).
type Result struct {
	Path               []model.GeoPoint
	OriginalDistance   float64
	ShadeAwareDistance float64
	ShadeMode          string
	SegmentCount       int
}

// Client is the solver interface consumed by the engine.
type Client interface {
	Solve(ctx context.Context, req Request) (*Result, error)
}

// HTTPOptions configures the HTTP solver client.
type HTTPOptions struct {
	BaseURL string
	Timeout time.Duration
	Circuit resilience.CircuitBreakerConfig
}

// HTTPClient calls the solver backend over HTTP, guarded by a circuit
// breaker so a dead solver fails fast instead of queueing timeouts.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	breaker *resilience.CircuitBreaker
}

// NewHTTPClient creates a solver client.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: opts.BaseURL,
		breaker: resilience.NewCircuitBreaker(opts.Circuit),
	}
}

// solveRequest is the solver backend's wire format.
type solveRequest struct {
	StartLat     float64 `json:"start_lat"`
	StartLng     float64 `json:"start_lng"`
	EndLat       float64 `json:"end_lat"`
	EndLng       float64 `json:"end_lng"`
	Hour         int     `json:"time,omitempty"`
	ShadePenalty float64 `json:"shade_penalty,omitempty"`
}

type solveResponse struct {
	Path               [][]float64 `json:"path"`
	OriginalDistance   float64     `json:"original_distance_m"`
	ShadeAwareDistance float64     `json:"shade_aware_distance_m"`
	TotalDistance      float64     `json:"total_distance_m"`
	ShadeMode          string      `json:"shade_mode"`
	NumSegments        int         `json:"num_segments"`
	Error              string      `json:"error"`
}

// Solve requests a route. Shade-aware mode posts to the shade endpoint
// with the simulated hour and penalty weight; standard mode ignores both.
func (c *HTTPClient) Solve(ctx context.Context, req Request) (*Result, error) {
	if !c.breaker.Allow() {
		return nil, resilience.ErrCircuitOpen
	}

	res, err := c.solve(ctx, req)
	if err != nil {
		// No-path is a valid answer from a healthy solver, not a failure
		// of the service.
		if !eris.Is(err, ErrNoPath) {
			c.breaker.RecordFailure()
		}
		return nil, err
	}
	c.breaker.RecordSuccess()
	return res, nil
}

func (c *HTTPClient) solve(ctx context.Context, req Request) (*Result, error) {
	endpoint := c.baseURL + "/shortest_path"
	body := solveRequest{
		StartLat: req.Start.Lat,
		StartLng: req.Start.Lng,
		EndLat:   req.End.Lat,
		EndLng:   req.End.Lng,
	}
	if req.Mode == model.ModeShadeAware {
		endpoint = c.baseURL + "/shortest_path_shade"
		body.Hour = req.SimulatedHour
		body.ShadePenalty = req.ShadePenaltyWeight
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "solver: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "solver: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "solver: call backend")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("solver: backend returned %d: %s", resp.StatusCode, string(raw))
	}

	var sr solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "solver: decode response")
	}
	if sr.Error != "" {
		if sr.Error == "No path found between the points" {
			return nil, ErrNoPath
		}
		return nil, eris.Errorf("solver: %s", sr.Error)
	}

	path := make([]model.GeoPoint, 0, len(sr.Path))
	for _, pair := range sr.Path {
		if len(pair) != 2 {
			return nil, eris.New("solver: malformed path coordinate")
		}
		path = append(path, model.GeoPoint{Lat: pair[0], Lng: pair[1]})
	}

	result := &Result{
		Path:               path,
		OriginalDistance:   sr.OriginalDistance,
		ShadeAwareDistance: sr.ShadeAwareDistance,
		ShadeMode:          sr.ShadeMode,
		SegmentCount:       sr.NumSegments,
	}
	if result.OriginalDistance == 0 {
		result.OriginalDistance = sr.TotalDistance
	}
	if result.ShadeAwareDistance == 0 {
		result.ShadeAwareDistance = result.OriginalDistance
	}
	if result.SegmentCount == 0 && len(path) > 1 {
		result.SegmentCount = len(path) - 1
	}

	zap.L().Debug("solver: solved route",
		zap.Int("points", len(path)),
		zap.String("mode", string(req.Mode)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
