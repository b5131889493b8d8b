package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/naamaleah/CookSmart/domain"
	"github.com/naamaleah/CookSmart/eventstore"
	"github.com/naamaleah/CookSmart/projection"
	"github.com/naamaleah/CookSmart/snapshot"
)

func newFavoritesStore(t *testing.T, threshold int) (*Store, *eventstore.MemoryLog, *snapshot.MemoryCache) {
	t.Helper()

	log := eventstore.NewMemoryLog()
	cache := snapshot.NewMemoryCache()
	registry := projection.NewRegistry()
	domain.RegisterProjectors(registry)

	return New(log, cache, registry, threshold), log, cache
}

func TestAppendThenLoadFavorites(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 0)
	ctx := context.Background()

	record, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 7}, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, record.EventVersion)

	// A stale writer still believes version 0 is current
	_, err = st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 9}, 0, nil)
	require.True(t, eventstore.IsVersionConflict(err))

	state, version, err := st.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	require.Equal(t, 1, version)
	require.True(t, state.(*domain.FavoritesState).Contains(7))
}

func TestConflictedWriterRetriesWithFreshVersion(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 0)
	ctx := context.Background()

	_, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 7}, 0, nil)
	require.NoError(t, err)

	_, err = st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 9}, 0, nil)
	require.True(t, eventstore.IsVersionConflict(err))

	// Reload, re-derive intent, resubmit against the fresh version
	_, version, err := st.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)

	record, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 9}, version, nil)
	require.NoError(t, err)
	require.Equal(t, 2, record.EventVersion)
}

func TestLoadNonExistentAggregate(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 0)

	state, version, err := st.Load(context.Background(), domain.AggregateFavorite, "nobody")
	require.NoError(t, err)
	require.Equal(t, 0, version)
	require.Empty(t, state.(*domain.FavoritesState).RecipeIDs)
}

func TestLoadUnregisteredAggregateType(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 0)

	_, _, err := st.Load(context.Background(), "shopping-list", "user-42")
	require.Error(t, err)
}

func TestAppendRejectsUnserializablePayload(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 0)

	_, err := st.Append(context.Background(), domain.AggregateFavorite, "user-42",
		domain.FavoriteAdded, make(chan int), 0, nil)
	require.True(t, eventstore.IsValidation(err))
}

func TestLoadCapturesSnapshotPastThreshold(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
			domain.FavoriteAddedPayload{UserID: 42, RecipeID: i + 1}, i, nil)
		require.NoError(t, err)
	}

	_, version, err := st.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	require.Equal(t, 3, version)

	snap, err := st.LoadSnapshot(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, 3, snap.AsOfVersion)
}

func TestLoadBelowThresholdSkipsSnapshot(t *testing.T) {
	st, _, _ := newFavoritesStore(t, 10)
	ctx := context.Background()

	_, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
		domain.FavoriteAddedPayload{UserID: 42, RecipeID: 7}, 0, nil)
	require.NoError(t, err)

	_, _, err = st.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)

	snap, err := st.LoadSnapshot(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	require.Nil(t, snap)
}

// trackingProjector counts Apply invocations, so tests can see which
// events a load actually replayed.
type trackingProjector struct {
	calls *int
}

type trackingState struct {
	Versions []int `json:"versions"`
}

func (p trackingProjector) NewState() interface{} {
	return &trackingState{}
}

func (p trackingProjector) Apply(state interface{}, record eventstore.EventRecord) (interface{}, error) {
	*p.calls++
	current := state.(*trackingState)
	next := &trackingState{Versions: append(append([]int(nil), current.Versions...), record.EventVersion)}
	return next, nil
}

func TestLoadReplaysOnlyEventsAfterSnapshot(t *testing.T) {
	ctx := context.Background()
	log := eventstore.NewMemoryLog()
	cache := snapshot.NewMemoryCache()
	registry := projection.NewRegistry()

	calls := 0
	registry.Register("tracked", trackingProjector{calls: &calls}, projection.PolicyStrict)
	st := New(log, cache, registry, 0)

	for version := 1; version <= 2; version++ {
		_, err := st.Append(ctx, "tracked", "agg-1", "TICK", nil, version-1, nil)
		require.NoError(t, err)
	}

	// Snapshot at version 2
	stateJSON, err := json.Marshal(&trackingState{Versions: []int{1, 2}})
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, snapshot.Snapshot{
		AggregateType: "tracked",
		AggregateID:   "agg-1",
		AsOfVersion:   2,
		State:         stateJSON,
		CapturedAt:    time.Now().UTC(),
	}))

	_, err = st.Append(ctx, "tracked", "agg-1", "TICK", nil, 2, nil)
	require.NoError(t, err)

	calls = 0
	state, version, err := st.Load(ctx, "tracked", "agg-1")
	require.NoError(t, err)
	require.Equal(t, 3, version)
	require.Equal(t, 1, calls)
	require.Equal(t, []int{1, 2, 3}, state.(*trackingState).Versions)
}

func TestLoadSurvivesCorruptSnapshotState(t *testing.T) {
	st, _, cache := newFavoritesStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := st.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
			domain.FavoriteAddedPayload{UserID: 42, RecipeID: i + 1}, i, nil)
		require.NoError(t, err)
	}

	// A snapshot whose body no longer parses must not poison loads
	require.NoError(t, cache.Put(ctx, snapshot.Snapshot{
		AggregateType: domain.AggregateFavorite,
		AggregateID:   "user-42",
		AsOfVersion:   1,
		State:         []byte(`{"recipe_ids": [1`),
		CapturedAt:    time.Now().UTC(),
	}))

	state, version, err := st.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	require.Equal(t, 2, version)
	require.True(t, state.(*domain.FavoritesState).Contains(1))
	require.True(t, state.(*domain.FavoritesState).Contains(2))
}

func TestSnapshotTransparency(t *testing.T) {
	ctx := context.Background()
	log := eventstore.NewMemoryLog()
	registry := projection.NewRegistry()
	domain.RegisterProjectors(registry)

	seedStore := New(log, snapshot.NewMemoryCache(), registry, 2)
	for i := 0; i < 4; i++ {
		recipe := 10 + i
		_, err := seedStore.Append(ctx, domain.AggregateFavorite, "user-42", domain.FavoriteAdded,
			domain.FavoriteAddedPayload{UserID: 42, RecipeID: recipe}, i, nil)
		require.NoError(t, err)
	}

	// Same log behind a snapshotting store and a snapshot-free store
	withSnapshots := New(log, snapshot.NewMemoryCache(), registry, 2)
	withoutSnapshots := New(log, snapshot.NewMemoryCache(), registry, 0)

	// First load plants the snapshot, second load uses it
	_, _, err := withSnapshots.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)

	snappedState, snappedVersion, err := withSnapshots.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)
	plainState, plainVersion, err := withoutSnapshots.Load(ctx, domain.AggregateFavorite, "user-42")
	require.NoError(t, err)

	require.Equal(t, plainVersion, snappedVersion)

	snappedJSON, err := json.Marshal(snappedState)
	require.NoError(t, err)
	plainJSON, err := json.Marshal(plainState)
	require.NoError(t, err)
	require.Equal(t, plainJSON, snappedJSON)
}
