package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/resilience"
)

// Fetcher retrieves the building FeatureSet for a viewport.
type Fetcher interface {
	FetchFeatures(ctx context.Context, bounds model.Bounds) (*FeatureSet, error)
}

// ClientOptions configures the HTTP feature client.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSec throttles the remote feature service. Default: 2.
	RequestsPerSec float64

	Retry resilience.RetryConfig
}

// Client fetches building footprints from a GeoJSON feature service.
type Client struct {
	http    *http.Client
	opts    ClientOptions
	limiter *rate.Limiter
}

// NewClient creates a rate-limited feature service client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "shadewalk/1.0"
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
	}
}

// FetchFeatures queries the service for footprints inside bounds.
func (c *Client) FetchFeatures(ctx context.Context, bounds model.Bounds) (*FeatureSet, error) {
	return resilience.DoVal(ctx, c.opts.Retry, "features.fetch", func(ctx context.Context) (*FeatureSet, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "features: rate limiter")
		}
		return c.fetchOnce(ctx, bounds)
	})
}

func (c *Client) fetchOnce(ctx context.Context, bounds model.Bounds) (*FeatureSet, error) {
	url := fmt.Sprintf("%s?bbox=%f,%f,%f,%f",
		c.opts.BaseURL, bounds.West, bounds.South, bounds.East, bounds.North)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "features: build request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "features: fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("features: service returned %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "features: decode geojson")
	}

	fs := FromGeoJSON(&fc, bounds)
	zap.L().Debug("features: fetched viewport",
		zap.Int("buildings", len(fs.Buildings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return fs, nil
}
