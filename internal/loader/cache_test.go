package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	id     string
	source string
	calls  atomic.Int32
	err    error
	delay  time.Duration
}

func (c *countingLoader) ID() string     { return c.id }
func (c *countingLoader) Source() string { return c.source }

func (c *countingLoader) Load(_ context.Context) (*traffic.Dataset, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	recs := []traffic.Record{
		traffic.NewRecord(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), 100, "Clear", nil),
	}
	return traffic.NewDataset(c.source, nil, recs, time.Time{}), nil
}

type recordingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	rows   int
}

func (r *recordingObserver) ObserveCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingObserver) ObserveDatasetLoaded(rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func TestCacheLoadsOnce(t *testing.T) {
	obs := &recordingObserver{}
	c := NewCache(obs)
	l := &countingLoader{id: "a", source: "data.csv"}

	first, err := c.Get(context.Background(), l)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), l)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), l.calls.Load())
	assert.True(t, c.Cached(l))
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 1, obs.rows)
}

func TestCacheKeyIncludesLoaderIdentity(t *testing.T) {
	c := NewCache(nil)
	a := &countingLoader{id: "a", source: "data.csv"}
	b := &countingLoader{id: "b", source: "data.csv"}
	other := &countingLoader{id: "a", source: "other.csv"}

	for _, l := range []*countingLoader{a, b, other} {
		_, err := c.Get(context.Background(), l)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, int32(1), other.calls.Load())
}

func TestCacheConcurrentFirstAccess(t *testing.T) {
	c := NewCache(nil)
	l := &countingLoader{id: "slow", source: "data.csv", delay: 50 * time.Millisecond}

	var wg sync.WaitGroup
	results := make([]*traffic.Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := c.Get(context.Background(), l)
			assert.NoError(t, err)
			results[i] = ds
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), l.calls.Load())
	for _, ds := range results[1:] {
		assert.Same(t, results[0], ds)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := NewCache(nil)
	l := &countingLoader{id: "bad", source: "missing.csv", err: traffic.ErrDataUnavailable}

	_, err := c.Get(context.Background(), l)
	assert.True(t, errors.Is(err, traffic.ErrDataUnavailable))
	assert.False(t, c.Cached(l))

	_, err = c.Get(context.Background(), l)
	assert.Error(t, err)
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestCacheWithCSVLoaderReturnsIdenticalContent(t *testing.T) {
	path := writeCSV(t, "metro.csv", metroSample)
	c := NewCache(nil)

	first, err := c.Get(context.Background(), newTestLoader(t, path, nil))
	require.NoError(t, err)
	// A second loader with the same options maps to the same entry
	second, err := c.Get(context.Background(), newTestLoader(t, path, nil))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())
}
