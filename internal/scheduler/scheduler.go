// Package scheduler drives the sampling engine over large edge collections
// in bounded batches, yielding to the host between batches so a rendering
// loop (or any other cooperative caller) never starves.
package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shadewalk/shadewalk/internal/model"
	"github.com/shadewalk/shadewalk/internal/sampling"
	"github.com/shadewalk/shadewalk/internal/surface"
)

// Batch sizes. Bulk favors throughput; fine keeps progress updates frequent
// enough for an interactive progress bar.
const (
	BatchSizeBulk = 300
	BatchSizeFine = 50
)

// Yield hands control back to the host between batches. It should return
// once the host is ready for more work, or with ctx's error on cancellation.
type Yield func(ctx context.Context) error

// DefaultYield gives other goroutines a turn without imposing a delay.
func DefaultYield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	return nil
}

// Options configures a classification run.
type Options struct {
	// BatchSize is the number of edges processed between yields.
	// Default: BatchSizeBulk.
	BatchSize int

	// Yield is called after each batch except the last. Default: DefaultYield.
	Yield Yield

	// OnProgress receives an immutable snapshot after every batch,
	// strictly in batch order. Optional.
	OnProgress func(model.Progress)

	// Seed makes sampling reproducible when nonzero.
	Seed uint64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = BatchSizeBulk
	}
	if o.Yield == nil {
		o.Yield = DefaultYield
	}
	if o.nowFunc == nil {
		o.nowFunc = time.Now
	}
	return o
}

// Run classifies every edge against surf and returns the analysis artifact.
//
// Edges within one batch are classified concurrently (they have no data
// dependency on each other); batches run strictly in order, and a progress
// snapshot is published after each. A failure classifying one edge is
// counted and that edge reported with zero samples; it never aborts the
// batch. Only context cancellation ends the run early.
func Run(ctx context.Context, edges []model.Edge, surf surface.Surface, params sampling.Params, opts Options) (*model.AnalysisResult, error) {
	opts = opts.withDefaults()
	log := zap.L()

	start := opts.nowFunc()
	results := make([]model.EdgeClassification, len(edges))

	var mu sync.Mutex
	errorCount := 0

	totalBatches := (len(edges) + opts.BatchSize - 1) / opts.BatchSize

	for bi := 0; bi < totalBatches; bi++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lo := bi * opts.BatchSize
		hi := lo + opts.BatchSize
		if hi > len(edges) {
			hi = len(edges)
		}

		g := new(errgroup.Group)
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						mu.Lock()
						errorCount++
						mu.Unlock()
						results[i] = model.EdgeClassification{
							EdgeID:        edges[i].ID,
							Indeterminate: true,
						}
						log.Warn("scheduler: edge classification panicked",
							zap.String("edge_id", edges[i].ID),
							zap.Any("panic", r),
						)
					}
				}()
				rng := edgeRNG(opts.Seed, i)
				results[i] = sampling.ClassifyEdge(edges[i], surf, params, rng)
				return nil
			})
		}
		_ = g.Wait()

		if opts.OnProgress != nil {
			opts.OnProgress(snapshot(hi, len(edges), errorCount, bi, totalBatches, opts.nowFunc().Sub(start)))
		}

		if hi < len(edges) {
			if err := opts.Yield(ctx); err != nil {
				return nil, err
			}
		}
	}

	elapsed := opts.nowFunc().Sub(start)
	log.Info("scheduler: classification complete",
		zap.Int("edges", len(edges)),
		zap.Int("errors", errorCount),
		zap.Duration("elapsed", elapsed),
	)

	return &model.AnalysisResult{
		AnalysisTime:     start.UTC(),
		TotalEdges:       len(edges),
		ProcessedEdges:   len(edges),
		Errors:           errorCount,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Edges:            results,
	}, nil
}

// edgeRNG derives a per-edge random source. Every edge gets its own stream
// so in-batch concurrency cannot perturb reproducibility of a seeded run.
func edgeRNG(seed uint64, index int) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, uint64(index)))
}

func snapshot(processed, total, errorCount, batchIndex, totalBatches int, elapsed time.Duration) model.Progress {
	p := model.Progress{
		Processed:    processed,
		Total:        total,
		ErrorCount:   errorCount,
		CurrentLabel: fmt.Sprintf("batch %d/%d", batchIndex+1, totalBatches),
		Elapsed:      elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 && processed > 0 {
		p.EdgesPerSec = float64(processed) / secs
		remaining := total - processed
		p.ETA = time.Duration(float64(remaining) / p.EdgesPerSec * float64(time.Second))
	}
	return p
}
