package liquidity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

var (
	// ErrRefreshInProgress is returned when a refresh is requested while
	// another one is still running on the same store.
	ErrRefreshInProgress = errors.New("liquidity refresh already in progress")

	// ErrDuplicateItemKey aborts a rebuild whose source data contains the
	// same item_key twice; the ambiguous snapshot is never published.
	ErrDuplicateItemKey = errors.New("duplicate item_key in source data")
)

// Snapshot is one immutable, fully-built set of scored records. A snapshot
// is never mutated after Build returns; the store publishes new ones with a
// pointer swap so readers keep whichever snapshot they started with.
type Snapshot struct {
	builtAt  time.Time
	records  []ScoredRecord // sorted by item key
	byKey    map[string]int
	dopplers []int
}

func emptySnapshot() *Snapshot {
	return &Snapshot{byKey: map[string]int{}}
}

// BuildSnapshot normalizes, scores and indexes the given raw rows. It fails
// with ErrDuplicateItemKey when the same key appears twice; no partial
// result is returned.
func BuildSnapshot(rows []NormalizedRecord) (*Snapshot, error) {
	snap := &Snapshot{
		builtAt: time.Now().UTC(),
		records: make([]ScoredRecord, 0, len(rows)),
		byKey:   make(map[string]int, len(rows)),
	}

	for _, n := range rows {
		snap.records = append(snap.records, Score(n))
	}
	// Deterministic order keeps back-to-back refreshes of unchanged data
	// byte-identical.
	sort.Slice(snap.records, func(i, j int) bool {
		return snap.records[i].ItemKey < snap.records[j].ItemKey
	})

	for i, r := range snap.records {
		if _, dup := snap.byKey[r.ItemKey]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItemKey, r.ItemKey)
		}
		snap.byKey[r.ItemKey] = i
		if r.IsDoppler {
			snap.dopplers = append(snap.dopplers, i)
		}
	}
	return snap, nil
}

// Len returns the number of scored records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// BuiltAt reports when the snapshot was materialized.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Lookup returns the scored record for an item key.
func (s *Snapshot) Lookup(itemKey string) (ScoredRecord, bool) {
	i, ok := s.byKey[itemKey]
	if !ok {
		return ScoredRecord{}, false
	}
	return s.records[i], true
}

// All returns every scored record ordered by item key. Callers must not
// modify the returned slice.
func (s *Snapshot) All() []ScoredRecord {
	return s.records
}

// Dopplers returns the Doppler-flagged records, ordered by item key.
func (s *Snapshot) Dopplers() []ScoredRecord {
	out := make([]ScoredRecord, 0, len(s.dopplers))
	for _, i := range s.dopplers {
		out = append(out, s.records[i])
	}
	return out
}

// RefreshStats summarizes one completed refresh cycle.
type RefreshStats struct {
	SourceRows int           `json:"source_rows"`
	ScoredRows int           `json:"scored_rows"`
	Duration   time.Duration `json:"duration"`
	BuiltAt    time.Time     `json:"built_at"`
}

// Store holds the latest published snapshot and coordinates refreshes.
// Reads are wait-free; at most one refresh runs at a time.
type Store struct {
	source     Source
	snap       atomic.Pointer[Snapshot]
	refreshing atomic.Bool
}

// NewStore creates a store serving an empty snapshot until the first
// successful refresh.
func NewStore(source Source) *Store {
	st := &Store{source: source}
	st.snap.Store(emptySnapshot())
	return st
}

// Snapshot returns the currently published snapshot. Never nil.
func (st *Store) Snapshot() *Snapshot {
	return st.snap.Load()
}

// Refreshing reports whether a rebuild is currently running.
func (st *Store) Refreshing() bool {
	return st.refreshing.Load()
}

// Refresh rebuilds the snapshot from the source and publishes it with a
// single pointer swap. Concurrent calls are rejected with
// ErrRefreshInProgress. On any failure the previously published snapshot
// stays authoritative; readers never observe a partial rebuild.
func (st *Store) Refresh(ctx context.Context) (RefreshStats, error) {
	if !st.refreshing.CompareAndSwap(false, true) {
		return RefreshStats{}, ErrRefreshInProgress
	}
	defer st.refreshing.Store(false)

	start := time.Now()

	rows, err := st.source.Scan(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("refresh aborted: %w", err)
	}

	normalized := make([]NormalizedRecord, len(rows))
	for i, raw := range rows {
		normalized[i] = Normalize(raw)
	}

	snap, err := BuildSnapshot(normalized)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("refresh aborted: %w", err)
	}

	st.snap.Store(snap)
	return RefreshStats{
		SourceRows: len(rows),
		ScoredRows: snap.Len(),
		Duration:   time.Since(start),
		BuiltAt:    snap.builtAt,
	}, nil
}
