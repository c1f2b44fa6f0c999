package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/shared/testutil"
	"salesdash/pkg/contracts/domain"
)

type countingLoader struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (l *countingLoader) ParseFile(_ context.Context, path string) (*domain.SalesTable, *LoadReport, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.err != nil {
		return nil, nil, l.err
	}
	table := testutil.FourRowTable()
	return domain.NewSalesTable(path, table.Records()), &LoadReport{Source: path, Rows: table.Len()}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
	loads  []error
}

func (o *recordingObserver) RecordCacheLookup(_ context.Context, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) RecordTableLoad(_ context.Context, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, err)
}

func TestTableCache_LoadsOnce(t *testing.T) {
	loader := &countingLoader{}
	observer := &recordingObserver{}
	cache := NewTableCache(loader, observer, nil)
	ctx := context.Background()

	first, err := cache.Get(ctx, "data/sales.csv")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "data/sales.csv")
	require.NoError(t, err)

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Same(t, first, second)
	assert.Equal(t, first.Records(), second.Records())

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Loads)
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)

	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
	require.Len(t, observer.loads, 1)
	assert.NoError(t, observer.loads[0])
}

func TestTableCache_EquivalentPathsShareEntry(t *testing.T) {
	loader := &countingLoader{}
	cache := NewTableCache(loader, nil, nil)
	ctx := context.Background()

	abs, err := filepath.Abs("sales.csv")
	require.NoError(t, err)

	for _, p := range []string{"sales.csv", "./sales.csv", "x/../sales.csv", abs} {
		_, err := cache.Get(ctx, p)
		require.NoError(t, err, p)
	}
	assert.Equal(t, int32(1), loader.calls.Load())

	other, err := cache.Get(ctx, "other.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Equal(t, filepath.Join(filepath.Dir(abs), "other.csv"), other.Source())
}

func TestTableCache_ErrorsNotCached(t *testing.T) {
	loader := &countingLoader{err: errors.New("disk on fire")}
	observer := &recordingObserver{}
	cache := NewTableCache(loader, observer, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx, "sales.csv")
	require.Error(t, err)
	_, ok := cache.Report("sales.csv")
	assert.False(t, ok)

	loader.err = nil
	table, err := cache.Get(ctx, "sales.csv")
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, int32(2), loader.calls.Load())

	require.Len(t, observer.loads, 2)
	assert.Error(t, observer.loads[0])
	assert.NoError(t, observer.loads[1])
}

func TestTableCache_ConcurrentFirstLoadShared(t *testing.T) {
	loader := &countingLoader{delay: 50 * time.Millisecond}
	cache := NewTableCache(loader, nil, nil)

	var wg sync.WaitGroup
	tables := make([]*domain.SalesTable, 16)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table, err := cache.Get(context.Background(), "sales.csv")
			assert.NoError(t, err)
			tables[i] = table
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for _, table := range tables[1:] {
		assert.Same(t, tables[0], table)
	}
}

func TestTableCache_Report(t *testing.T) {
	cache := NewTableCache(&countingLoader{}, nil, nil)

	_, ok := cache.Report("sales.csv")
	assert.False(t, ok)

	_, err := cache.Get(context.Background(), "sales.csv")
	require.NoError(t, err)

	report, ok := cache.Report("./sales.csv")
	require.True(t, ok)
	assert.Equal(t, 4, report.Rows)
}

func TestTableCache_WithParserLoadTwiceEqual(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	parser, err := NewParser(logger, ParserConfig{})
	require.NoError(t, err)
	path := testutil.WriteSampleCSV(t)

	cache := NewTableCache(parser, nil, logger)
	first, err := cache.Get(context.Background(), path)
	require.NoError(t, err)

	// a fresh cache reloads from disk and must produce an equal table
	fresh, err := NewTableCache(parser, nil, logger).Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.Records(), fresh.Records())

	// the cache never rereads, even after the file changes
	require.NoError(t, os.WriteFile(path, []byte(testutil.SalesHeader+"\n"), 0o644))
	again, err := cache.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, first, again)
}
