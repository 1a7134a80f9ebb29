package liquidity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"csgo-liquidity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory Source with optional error injection and a
// hook that blocks Scan until released, for exercising the single-flight
// refresh guard.
type fakeSource struct {
	mu      sync.Mutex
	rows    []models.MarketRecord
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) Scan(ctx context.Context) ([]models.MarketRecord, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.MarketRecord, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeSource) setRows(rows []models.MarketRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

func marketRow(key string, listingsWhite, listingsFloat int) models.MarketRecord {
	return models.MarketRecord{
		ItemKey:         key,
		PriceBuff:       100,
		BestBuyBuff:     90,
		ListingsWhite:   listingsWhite,
		ListingsCSFloat: listingsFloat,
	}
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	src := &fakeSource{rows: []models.MarketRecord{
		marketRow("AK-47 | Redline|FT", 300, 250),
		marketRow("Karambit | Doppler|FN", 10, 5),
		marketRow("Glock-18 | Sand Dune|BS", 0, 0),
	}}
	store := NewStore(src)

	stats, err := store.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SourceRows)
	assert.Equal(t, 3, stats.ScoredRows)

	snap := store.Snapshot()
	require.Equal(t, 3, snap.Len())

	rec, ok := snap.Lookup("AK-47 | Redline|FT")
	require.True(t, ok)
	assert.Equal(t, 550, rec.TotalListings) // listings_white + listings_csfloat
	assert.Equal(t, 25, rec.ScoreListings)

	dopplers := snap.Dopplers()
	require.Len(t, dopplers, 1)
	assert.Equal(t, "Karambit | Doppler|FN", dopplers[0].ItemKey)

	_, ok = snap.Lookup("missing")
	assert.False(t, ok)
}

func TestRefreshIsIdempotentOnUnchangedSource(t *testing.T) {
	src := &fakeSource{rows: []models.MarketRecord{
		marketRow("B", 100, 0),
		marketRow("A", 0, 60),
		marketRow("C", 500, 500),
	}}
	store := NewStore(src)

	_, err := store.Refresh(context.Background())
	require.NoError(t, err)
	first := store.Snapshot().All()

	_, err = store.Refresh(context.Background())
	require.NoError(t, err)
	second := store.Snapshot().All()

	assert.Equal(t, first, second)
	// Ordering is deterministic by item key.
	assert.Equal(t, "A", second[0].ItemKey)
	assert.Equal(t, "B", second[1].ItemKey)
	assert.Equal(t, "C", second[2].ItemKey)
}

func TestRefreshDuplicateKeyPreservesOldSnapshot(t *testing.T) {
	src := &fakeSource{rows: []models.MarketRecord{marketRow("A", 1, 1)}}
	store := NewStore(src)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)
	old := store.Snapshot()

	src.setRows([]models.MarketRecord{marketRow("A", 1, 1), marketRow("A", 2, 2)})
	_, err = store.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateItemKey))

	// The failed rebuild must not have been published.
	assert.Same(t, old, store.Snapshot())
	assert.Equal(t, 1, store.Snapshot().Len())
}

func TestRefreshSourceErrorPreservesOldSnapshot(t *testing.T) {
	src := &fakeSource{rows: []models.MarketRecord{marketRow("A", 1, 1)}}
	store := NewStore(src)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)
	old := store.Snapshot()

	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	_, err = store.Refresh(context.Background())
	require.Error(t, err)
	assert.Same(t, old, store.Snapshot())
}

func TestConcurrentRefreshIsRejected(t *testing.T) {
	src := &fakeSource{
		rows:    []models.MarketRecord{marketRow("A", 1, 1)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewStore(src)

	done := make(chan error, 1)
	go func() {
		_, err := store.Refresh(context.Background())
		done <- err
	}()

	<-src.started
	assert.True(t, store.Refreshing())

	_, err := store.Refresh(context.Background())
	assert.True(t, errors.Is(err, ErrRefreshInProgress))

	close(src.release)
	require.NoError(t, <-done)
	assert.False(t, store.Refreshing())

	// With the first refresh finished the store accepts new ones again.
	src.started = nil
	src.release = nil
	_, err = store.Refresh(context.Background())
	require.NoError(t, err)
}

func TestReadersNeverSeeTornSnapshot(t *testing.T) {
	// Each generation writes rows whose DopplerBuffCount equals the
	// generation number; a torn snapshot would mix generations.
	const rowsPerGen = 50

	genRows := func(gen int) []models.MarketRecord {
		rows := make([]models.MarketRecord, rowsPerGen)
		for i := range rows {
			rows[i] = models.MarketRecord{
				ItemKey:          string(rune('a'+i/26)) + string(rune('a'+i%26)),
				DopplerBuffCount: gen,
			}
		}
		return rows
	}

	src := &fakeSource{rows: genRows(0)}
	store := NewStore(src)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var torn sync.Map

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Snapshot()
				records := snap.All()
				if len(records) != rowsPerGen {
					torn.Store("len", len(records))
					return
				}
				gen := records[0].DopplerBuffCount
				for _, rec := range records {
					if rec.DopplerBuffCount != gen {
						torn.Store("mixed", rec.ItemKey)
						return
					}
				}
			}
		}()
	}

	for gen := 1; gen <= 20; gen++ {
		src.setRows(genRows(gen))
		_, err := store.Refresh(context.Background())
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	close(stop)
	wg.Wait()

	torn.Range(func(k, v interface{}) bool {
		t.Fatalf("reader observed torn snapshot: %v=%v", k, v)
		return false
	})
}
