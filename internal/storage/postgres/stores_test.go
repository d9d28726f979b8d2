package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

func TestRunStore_InsertGetList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	seedRun(t, pool, "run-a")
	require.NoError(t, store.Insert(ctx, &domain.Run{
		RunID: "run-b", CreatedAt: 1700000005000, Species: []string{"POPC"},
		Lower: 0.45, Upper: 0.6, MinSite: 3, TimeUnit: domain.TimeUnitNanosecond, Replicates: 1,
	}))

	got, err := store.GetByID(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"POPC", "CHOL"}, got.Species)
	assert.Equal(t, domain.TimeUnitMicrosecond, got.TimeUnit)
	assert.Equal(t, 0.7, got.Upper)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Insert(ctx, got)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSiteStore_InsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedRun(t, pool, "run-1")
	store := NewSiteStore(pool)
	ctx := context.Background()

	sites := []*domain.BindingSite{
		{SiteID: 1, Species: "POPC", Key: "key-b", Residues: []int{7, 8, 9, 10}},
		{SiteID: 0, Species: "POPC", Key: "key-a", Residues: []int{1, 2, 3, 4, 5}, Flags: []domain.Flag{domain.FlagInsufficientData}},
		{SiteID: 0, Species: "CHOL", Key: "key-c", Residues: []int{2, 3, 4, 5}},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", sites))

	got, err := store.GetByRun(ctx, "run-1", "POPC")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].SiteID)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got[0].Residues)
	assert.Equal(t, []domain.Flag{domain.FlagInsufficientData}, got[0].Flags)
	assert.Nil(t, got[1].Flags)

	byKey, err := store.GetByKey(ctx, "key-c")
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, "CHOL", byKey[0].Species)

	// Whole batch is rolled back on a duplicate.
	err = store.InsertBulk(ctx, "run-1", []*domain.BindingSite{
		{SiteID: 5, Species: "CHOL", Key: "key-d", Residues: []int{1}},
		{SiteID: 0, Species: "CHOL", Key: "key-c", Residues: []int{2, 3, 4, 5}},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	chol, err := store.GetByRun(ctx, "run-1", "CHOL")
	require.NoError(t, err)
	assert.Len(t, chol, 1)
}

func TestSiteStore_UnknownRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	err := NewSiteStore(pool).InsertBulk(context.Background(), "no-such-run", []*domain.BindingSite{
		{SiteID: 0, Species: "POPC", Key: "k", Residues: []int{1, 2}},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestKineticsStore_NullableRates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedRun(t, pool, "run-1")
	store := NewKineticsStore(pool)
	ctx := context.Background()

	rows := []*domain.SiteKinetics{
		{
			SiteID: 0, Species: "POPC", TimeUnit: domain.TimeUnitMicrosecond,
			NumEvents: 40, NumClosed: 38, Occupancy: 0.62,
			ResidenceTimeMean: 0.21, ResidenceTimeMode: 0.18, SurfaceArea: 3.4,
			FitModel: domain.FitModelBiExponential,
			KOffFit:  ptr(4.8), KOffFast: ptr(40.0), KOffSlow: ptr(4.8), FitR2: ptr(0.97),
			KOffBootstrap: ptr(5.1), KOffBootStd: ptr(0.4), DeltaKOff: ptr(0.3),
		},
		{
			SiteID: 1, Species: "POPC", TimeUnit: domain.TimeUnitMicrosecond,
			NumEvents: 3, NumClosed: 2, Occupancy: 0.01,
			FitModel: domain.FitModelNone,
			Flags:    []domain.Flag{domain.FlagInsufficientData},
		},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", rows))

	got, err := store.GetByRun(ctx, "run-1", "POPC")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.FitModelBiExponential, got[0].FitModel)
	require.NotNil(t, got[0].KOffFit)
	assert.InDelta(t, 4.8, *got[0].KOffFit, 1e-12)
	assert.InDelta(t, 0.3, *got[0].DeltaKOff, 1e-12)

	assert.Nil(t, got[1].KOffFit)
	assert.Nil(t, got[1].FitR2)
	assert.True(t, got[1].Insufficient())
}

func TestRankingStore_OrderAndCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedRun(t, pool, "run-1")
	store := NewRankingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "run-1", []domain.RankedSite{
		{Rank: 2, SiteID: 0, Species: "POPC", Unreliable: true, Flags: []domain.Flag{domain.FlagUnreliableKOff}},
		{Rank: 1, SiteID: 3, Species: "POPC"},
	}))

	got, err := store.GetByRun(ctx, "run-1", "POPC")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].SiteID)
	assert.True(t, got[1].Unreliable)
	assert.Nil(t, got[1].Kinetics)

	err = store.InsertBulk(ctx, "run-1", []domain.RankedSite{{Rank: 0, SiteID: 9, Species: "POPC"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCorrespondenceStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedRun(t, pool, "run-1")
	store := NewCorrespondenceStore(pool)
	ctx := context.Background()

	entry := &domain.CorrespondenceEntry{
		Species:   []string{"POPC", "CHOL"},
		Locations: 3,
		Assignments: map[string][]int{
			"POPC": {0, 1, domain.NoSite},
			"CHOL": {2, domain.NoSite, 0},
		},
		Source: domain.CorrespondenceUser,
	}
	require.NoError(t, store.Insert(ctx, "run-1", entry))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Species, got.Species)
	assert.Equal(t, entry.Locations, got.Locations)
	assert.Equal(t, entry.Assignments, got.Assignments)
	assert.Equal(t, domain.CorrespondenceUser, got.Source)

	err = store.Insert(ctx, "run-1", entry)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByRun(ctx, "run-x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
