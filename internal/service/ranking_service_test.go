package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRankingStore struct {
	mu       sync.Mutex
	rows     []models.RankingRow
	latest   map[int64]int
	inserted []models.RankingSnapshot
	failFor  map[int64]bool
}

func (f *fakeRankingStore) GetRankingRows(ctx context.Context) ([]models.RankingRow, error) {
	return f.rows, nil
}

func (f *fakeRankingStore) GetLatestRanks(ctx context.Context) (map[int64]int, error) {
	if f.latest == nil {
		return map[int64]int{}, nil
	}
	return f.latest, nil
}

func (f *fakeRankingStore) InsertRankingSnapshot(ctx context.Context, snap *models.RankingSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[snap.ProductID] {
		return errors.New("write failed")
	}
	f.inserted = append(f.inserted, *snap)
	return nil
}

func TestAssignDenseRanks(t *testing.T) {
	rows := []models.RankingRow{
		{ID: 1, APK: 10, Price: 100},
		{ID: 2, APK: 10, Price: 120},
		{ID: 3, APK: 8, Price: 80},
		{ID: 4, APK: 5, Price: 50},
	}

	ranked := AssignDenseRanks(rows)

	require.Len(t, ranked, 4)
	ranks := []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank}
	// tied top APK shares rank 1; next distinct value takes rank 2, not 3
	assert.Equal(t, []int{1, 1, 2, 3}, ranks)
}

func TestAssignDenseRanksEmpty(t *testing.T) {
	assert.Empty(t, AssignDenseRanks(nil))
}

func TestRankingAppendsOnlyChangedRanks(t *testing.T) {
	store := &fakeRankingStore{
		rows: []models.RankingRow{
			{ID: 1, APK: 10, Price: 100},
			{ID: 2, APK: 8, Price: 80},
			{ID: 3, APK: 5, Price: 50},
		},
		// product 1 already holds rank 1; product 2 moved from 3 to 2;
		// product 3 has no history yet
		latest: map[int64]int{1: 1, 2: 3},
	}

	svc := NewRankingService(store, nil, nil)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Ranked)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, int64(2), store.inserted[0].ProductID)
	assert.Equal(t, 2, store.inserted[0].Rank)
	assert.Equal(t, int64(3), store.inserted[1].ProductID)
	assert.Equal(t, 3, store.inserted[1].Rank)
}

func TestRankingUnchangedPassWritesNothing(t *testing.T) {
	store := &fakeRankingStore{
		rows: []models.RankingRow{
			{ID: 1, APK: 10, Price: 100},
			{ID: 2, APK: 8, Price: 80},
		},
		latest: map[int64]int{1: 1, 2: 2},
	}

	svc := NewRankingService(store, nil, nil)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Written)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, store.inserted)
}

func TestRankingContinuesAfterSnapshotFailure(t *testing.T) {
	store := &fakeRankingStore{
		rows: []models.RankingRow{
			{ID: 1, APK: 10, Price: 100},
			{ID: 2, APK: 8, Price: 80},
			{ID: 3, APK: 5, Price: 50},
		},
		failFor: map[int64]bool{2: true},
	}

	svc := NewRankingService(store, nil, nil)
	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, store.inserted, 2)
}

type blockingRankingStore struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRankingStore) GetRankingRows(ctx context.Context) ([]models.RankingRow, error) {
	b.entered <- struct{}{}
	<-b.release
	return nil, nil
}

func (b *blockingRankingStore) GetLatestRanks(ctx context.Context) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (b *blockingRankingStore) InsertRankingSnapshot(ctx context.Context, snap *models.RankingSnapshot) error {
	return nil
}

func TestRankingSingleFlight(t *testing.T) {
	store := &blockingRankingStore{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}

	svc := NewRankingService(store, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background())
		done <- err
	}()

	<-store.entered

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(store.release)
	require.NoError(t, <-done)

	// the guard resets once the first pass finishes
	_, err = svc.Run(context.Background())
	require.NoError(t, err)
}
