package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryStore struct {
	mu         sync.Mutex
	listParams store.ListParams
	products   []models.Product
	total      int
	updatedAt  *time.Time
	history    []models.RankingSnapshot
}

func (f *fakeQueryStore) ListProducts(ctx context.Context, p store.ListParams) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listParams = p
	return f.products, nil
}

func (f *fakeQueryStore) CountProducts(ctx context.Context, p store.ListParams) (int, error) {
	return f.total, nil
}

func (f *fakeQueryStore) LatestUpdatedAt(ctx context.Context) (*time.Time, error) {
	return f.updatedAt, nil
}

func (f *fakeQueryStore) GetRankingHistory(ctx context.Context, productID int64) ([]models.RankingSnapshot, error) {
	return f.history, nil
}

func newTestQueryService(fake *fakeQueryStore) *QueryService {
	return NewQueryService(fake, nil, config.QueryConfig{
		FirstPageSize: 20,
		PageSize:      50,
	})
}

func TestPaginationContract(t *testing.T) {
	tests := []struct {
		page       int
		wantLimit  int
		wantOffset int
	}{
		{1, 20, 0},
		{2, 50, 20},
		{3, 50, 70},
		{4, 50, 120},
		{0, 20, 0}, // clamps to page 1
	}

	for _, tt := range tests {
		fake := &fakeQueryStore{}
		svc := newTestQueryService(fake)

		_, err := svc.ListProducts(context.Background(), ListRequest{Page: tt.page})
		require.NoError(t, err)

		assert.Equal(t, tt.wantLimit, fake.listParams.Limit, "page %d limit", tt.page)
		assert.Equal(t, tt.wantOffset, fake.listParams.Offset, "page %d offset", tt.page)
	}
}

func TestTotalPagesUsesRequestedPageSize(t *testing.T) {
	fake := &fakeQueryStore{total: 101}
	svc := newTestQueryService(fake)

	resp, err := svc.ListProducts(context.Background(), ListRequest{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 6, resp.TotalPages) // ceil(101/20)

	resp, err = svc.ListProducts(context.Background(), ListRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalPages) // ceil(101/50)
}

func TestFiltersArePassedThrough(t *testing.T) {
	fake := &fakeQueryStore{}
	svc := newTestQueryService(fake)

	_, err := svc.ListProducts(context.Background(), ListRequest{
		Page:              1,
		Category:          "beer",
		SubCategory:       "ipa",
		ExcludeOrderItems: true,
		Search:            "stout imperial",
		SortBy:            "price",
		SortOrder:         "asc",
	})
	require.NoError(t, err)

	assert.Equal(t, "beer", fake.listParams.Category)
	assert.Equal(t, "ipa", fake.listParams.SubCategory)
	assert.True(t, fake.listParams.ExcludeOrderItems)
	assert.Equal(t, []string{"stout", "imperial"}, fake.listParams.SearchTokens)
	assert.Nil(t, fake.listParams.CreatedAfter)
	assert.Equal(t, "price", fake.listParams.SortBy)
	assert.Equal(t, "asc", fake.listParams.SortOrder)
}

func TestSearchRewriteForNewProducts(t *testing.T) {
	fake := &fakeQueryStore{}
	svc := newTestQueryService(fake)

	before := time.Now().AddDate(0, -1, 0).Add(-time.Minute)
	_, err := svc.ListProducts(context.Background(), ListRequest{Page: 1, Search: "nyhet ipa"})
	require.NoError(t, err)
	after := time.Now().AddDate(0, -1, 0).Add(time.Minute)

	assert.Equal(t, []string{"ipa"}, fake.listParams.SearchTokens)
	require.NotNil(t, fake.listParams.CreatedAfter)
	assert.True(t, fake.listParams.CreatedAfter.After(before))
	assert.True(t, fake.listParams.CreatedAfter.Before(after))
}

func TestSearchRewriteIsCaseInsensitive(t *testing.T) {
	tokens, createdAfter := rewriteSearch("NYHET Ipa")
	assert.Equal(t, []string{"Ipa"}, tokens)
	assert.NotNil(t, createdAfter)

	tokens, createdAfter = rewriteSearch("")
	assert.Nil(t, tokens)
	assert.Nil(t, createdAfter)
}

func TestLastUpdated(t *testing.T) {
	ts := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	fake := &fakeQueryStore{updatedAt: &ts}
	svc := newTestQueryService(fake)

	got, err := svc.LastUpdated(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, ts.Equal(*got))
}

func TestLastUpdatedEmptyStore(t *testing.T) {
	fake := &fakeQueryStore{}
	svc := newTestQueryService(fake)

	got, err := svc.LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
