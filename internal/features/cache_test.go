package features

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/internal/model"
)

var (
	boundsA = model.Bounds{North: 39.97, South: 39.94, East: -75.15, West: -75.17}
	boundsB = model.Bounds{North: 40.97, South: 40.94, East: -74.15, West: -74.17}
)

// gateFetcher blocks each fetch on a per-viewport gate so tests can force
// out-of-order completion.
type gateFetcher struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan float64
	gates   map[float64]chan struct{}
}

func (f *gateFetcher) FetchFeatures(ctx context.Context, b model.Bounds) (*FeatureSet, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[b.North]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- b.North
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &FeatureSet{
		Bounds:    b,
		Buildings: []Building{{ID: fmt.Sprintf("b_%.2f", b.North), HeightM: 10}},
	}, nil
}

func (f *gateFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCache_IdenticalBoundsFetchOnce(t *testing.T) {
	f := &gateFetcher{}
	c := NewCache(f, CacheOptions{})

	first, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	second, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)

	assert.Equal(t, 1, f.callCount())
	assert.Same(t, first, second)
}

func TestCache_SubPrecisionWobbleIsAHit(t *testing.T) {
	f := &gateFetcher{}
	c := NewCache(f, CacheOptions{})

	_, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)

	wobbled := boundsA
	wobbled.North += 0.000004
	_, err = c.GetFeatures(context.Background(), wobbled)
	require.NoError(t, err)

	assert.Equal(t, 1, f.callCount())
}

func TestCache_NewBoundsReplaceSlot(t *testing.T) {
	f := &gateFetcher{}
	c := NewCache(f, CacheOptions{})

	_, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	got, err := c.GetFeatures(context.Background(), boundsB)
	require.NoError(t, err)

	assert.Equal(t, 2, f.callCount())
	assert.Equal(t, boundsB, got.Bounds)

	// boundsA was replaced wholesale; asking again refetches.
	_, err = c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	assert.Equal(t, 3, f.callCount())
}

func TestCache_StaleFetchDoesNotOverwriteNewer(t *testing.T) {
	f := &gateFetcher{
		started: make(chan float64, 2),
		gates: map[float64]chan struct{}{
			boundsA.North: make(chan struct{}),
			boundsB.North: make(chan struct{}),
		},
	}
	c := NewCache(f, CacheOptions{})

	type result struct {
		fs  *FeatureSet
		err error
	}
	resA := make(chan result, 1)
	resB := make(chan result, 1)

	// A starts first...
	go func() {
		fs, err := c.GetFeatures(context.Background(), boundsA)
		resA <- result{fs, err}
	}()
	<-f.started

	// ...then B starts and completes before A.
	go func() {
		fs, err := c.GetFeatures(context.Background(), boundsB)
		resB <- result{fs, err}
	}()
	<-f.started
	close(f.gates[boundsB.North])
	rb := <-resB
	require.NoError(t, rb.err)

	// A completes late. Its caller still gets a usable set...
	close(f.gates[boundsA.North])
	ra := <-resA
	require.NoError(t, ra.err)
	assert.Equal(t, boundsA, ra.fs.Bounds)

	// ...but the slot still belongs to B: re-asking for B is a hit,
	// re-asking for A is a miss.
	calls := f.callCount()
	_, err := c.GetFeatures(context.Background(), boundsB)
	require.NoError(t, err)
	assert.Equal(t, calls, f.callCount())

	_, err = c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	assert.Equal(t, calls+1, f.callCount())
}

func TestCache_FetchFailurePrefersStaleContents(t *testing.T) {
	f := &gateFetcher{}
	c := NewCache(f, CacheOptions{})

	warm, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)

	f.err = eris.New("service down")
	got, err := c.GetFeatures(context.Background(), boundsB)
	require.NoError(t, err)
	assert.Same(t, warm, got)
}

func TestCache_ColdCacheFailureFailsOpenToEmptySet(t *testing.T) {
	f := &gateFetcher{err: eris.New("service down")}
	c := NewCache(f, CacheOptions{FailOpen: true})

	got, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, boundsA, got.Bounds)
}

func TestCache_ColdCacheFailurePropagatesWhenFailClosed(t *testing.T) {
	f := &gateFetcher{err: eris.New("service down")}
	c := NewCache(f, CacheOptions{FailOpen: false})

	_, err := c.GetFeatures(context.Background(), boundsA)
	assert.Error(t, err)
}

func TestCache_EmptyCachedEntryRefetches(t *testing.T) {
	f := &gateFetcher{err: eris.New("service down")}
	c := NewCache(f, CacheOptions{FailOpen: true})

	_, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)

	// The empty fail-open set is not cached as a live entry; recovery on
	// the next call replaces it with real data.
	f.err = nil
	got, err := c.GetFeatures(context.Background(), boundsA)
	require.NoError(t, err)
	assert.False(t, got.Empty())
	assert.Equal(t, 2, f.callCount())
}
