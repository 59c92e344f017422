package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/redisclient"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/store"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"go.uber.org/zap"
)

// newSearchKeyword marks a search for recently added products; it is
// stripped from the query and rewritten into a created-at filter.
const newSearchKeyword = "nyhet"

// QueryStore is the read-only slice of the store the query engine uses.
type QueryStore interface {
	ListProducts(ctx context.Context, p store.ListParams) ([]models.Product, error)
	CountProducts(ctx context.Context, p store.ListParams) (int, error)
	LatestUpdatedAt(ctx context.Context) (*time.Time, error)
	GetRankingHistory(ctx context.Context, productID int64) ([]models.RankingSnapshot, error)
}

// ListRequest is a filter/sort/pagination request from the presentation
// layer. GlutenFree and DetailedView are presentation preferences that
// are accepted but not part of the filter contract.
type ListRequest struct {
	Page              int
	Category          string
	SubCategory       string
	ExcludeOrderItems bool
	Search            string
	SortBy            string
	SortOrder         string
	GlutenFree        bool
	DetailedView      bool
}

// ListResponse is one page of products plus the total page count.
type ListResponse struct {
	Products   []models.Product `json:"products"`
	TotalPages int              `json:"totalPages"`
}

// QueryService serves paginated, filtered and sorted product listings.
type QueryService struct {
	store         QueryStore
	cache         *redisclient.Client
	firstPageSize int
	pageSize      int
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewQueryService creates a query service
func NewQueryService(store QueryStore, cache *redisclient.Client, cfg config.QueryConfig) *QueryService {
	firstPageSize := cfg.FirstPageSize
	if firstPageSize <= 0 {
		firstPageSize = 20
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &QueryService{
		store:         store,
		cache:         cache,
		firstPageSize: firstPageSize,
		pageSize:      pageSize,
		cacheTTL:      cfg.CacheTTL,
		logger:        util.GetLogger(),
	}
}

// ListProducts returns one listing page. The row page and the total
// count are independent read-only queries and run concurrently; slight
// skew between them is acceptable.
func (s *QueryService) ListProducts(ctx context.Context, req ListRequest) (*ListResponse, error) {
	ctx, span := util.StartSpan(ctx, "QueryService.ListProducts")
	defer span.End()

	params, pageSize := s.buildParams(req)

	cacheKey := s.cacheKey(params)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		return cached, nil
	}

	type countResult struct {
		total int
		err   error
	}
	countCh := make(chan countResult, 1)
	go func() {
		total, err := s.store.CountProducts(ctx, params)
		countCh <- countResult{total: total, err: err}
	}()

	products, err := s.store.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	count := <-countCh
	if count.err != nil {
		return nil, fmt.Errorf("failed to count products: %w", count.err)
	}

	resp := &ListResponse{
		Products:   products,
		TotalPages: (count.total + pageSize - 1) / pageSize,
	}

	s.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// LastUpdated returns the most recent product update timestamp, or nil
// when the store is empty.
func (s *QueryService) LastUpdated(ctx context.Context) (*time.Time, error) {
	if s.cache != nil {
		if val, ok, err := s.cache.GetLastUpdated(ctx); err == nil && ok {
			if t, perr := time.Parse(time.RFC3339Nano, val); perr == nil {
				return &t, nil
			}
		}
	}

	ts, err := s.store.LatestUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}

	if ts != nil && s.cache != nil {
		if err := s.cache.SetLastUpdated(ctx, ts.Format(time.RFC3339Nano), s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache last-updated timestamp", zap.Error(err))
		}
	}

	return ts, nil
}

// RankingHistory returns a product's ranking snapshots, newest first.
func (s *QueryService) RankingHistory(ctx context.Context, productID int64) ([]models.RankingSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "QueryService.RankingHistory")
	defer span.End()

	return s.store.GetRankingHistory(ctx, productID)
}

// buildParams maps a request to store parameters. Page 1 uses the
// smaller first-page size; later pages use the regular size with the
// offset shifted so pages tile contiguously: 20 + (N-2)*50.
func (s *QueryService) buildParams(req ListRequest) (store.ListParams, int) {
	page := req.Page
	if page < 1 {
		page = 1
	}

	var limit, offset int
	if page == 1 {
		limit = s.firstPageSize
		offset = 0
	} else {
		limit = s.pageSize
		offset = s.firstPageSize + (page-2)*s.pageSize
	}

	tokens, createdAfter := rewriteSearch(req.Search)

	return store.ListParams{
		Category:          req.Category,
		SubCategory:       req.SubCategory,
		ExcludeOrderItems: req.ExcludeOrderItems,
		SearchTokens:      tokens,
		CreatedAfter:      createdAfter,
		SortBy:            req.SortBy,
		SortOrder:         req.SortOrder,
		Limit:             limit,
		Offset:            offset,
	}, limit
}

// rewriteSearch tokenizes the free-text query on whitespace. The "new"
// keyword is stripped and becomes a created-within-a-month filter.
func rewriteSearch(query string) ([]string, *time.Time) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, nil
	}

	tokens := make([]string, 0, len(fields))
	var createdAfter *time.Time

	for _, field := range fields {
		if strings.EqualFold(field, newSearchKeyword) {
			cutoff := time.Now().AddDate(0, -1, 0)
			createdAfter = &cutoff
			continue
		}
		tokens = append(tokens, field)
	}

	return tokens, createdAfter
}

func (s *QueryService) cacheKey(params store.ListParams) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

func (s *QueryService) cacheGet(ctx context.Context, key string) (*ListResponse, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}

	payload, found, err := s.cache.GetListPage(ctx, key)
	if err != nil {
		s.logger.Warn("Listing cache read failed", zap.Error(err))
		return nil, false
	}
	if !found {
		util.QueryCacheMissesTotal.Inc()
		return nil, false
	}

	var resp ListResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, false
	}
	util.QueryCacheHitsTotal.Inc()
	return &resp, true
}

func (s *QueryService) cacheSet(ctx context.Context, key string, resp *ListResponse) {
	if s.cache == nil || key == "" {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.SetListPage(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger.Warn("Listing cache write failed", zap.Error(err))
	}
}
