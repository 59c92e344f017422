package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/broker"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/redisclient"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a ranking pass is triggered while
// another one is still in flight.
var ErrAlreadyRunning = errors.New("ranking pass already running")

// RankingStore is the slice of the store the accumulator reads and writes.
type RankingStore interface {
	GetRankingRows(ctx context.Context) ([]models.RankingRow, error)
	GetLatestRanks(ctx context.Context) (map[int64]int, error)
	InsertRankingSnapshot(ctx context.Context, snap *models.RankingSnapshot) error
}

// RankingResult summarizes one ranking pass.
type RankingResult struct {
	Ranked  int `json:"ranked"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RankedProduct is one product with its dense rank assigned.
type RankedProduct struct {
	ProductID int64
	Rank      int
	APK       float64
	Price     float64
}

// RankingService recomputes the dense ranking over all products and
// appends history snapshots only where a product's rank changed.
type RankingService struct {
	store   RankingStore
	cache   *redisclient.Client
	events  *broker.EventPublisher
	running atomic.Bool
	logger  *zap.Logger
}

// NewRankingService creates a ranking service
func NewRankingService(store RankingStore, cache *redisclient.Client, events *broker.EventPublisher) *RankingService {
	return &RankingService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// AssignDenseRanks walks rows already sorted by APK descending and
// assigns dense ranks: tied APK values share a rank and the counter
// advances by exactly one at the next distinct value, never skipping.
func AssignDenseRanks(rows []models.RankingRow) []RankedProduct {
	ranked := make([]RankedProduct, 0, len(rows))
	rank := 0
	var prevAPK float64

	for i, row := range rows {
		if i == 0 || row.APK != prevAPK {
			rank++
			prevAPK = row.APK
		}
		ranked = append(ranked, RankedProduct{
			ProductID: row.ID,
			Rank:      rank,
			APK:       row.APK,
			Price:     row.Price,
		})
	}

	return ranked
}

// Run executes one ranking pass. The guard is process-local only, not a
// distributed lock; ranking runs at most once per day so overlap across
// instances is an accepted staleness window. A concurrent trigger
// returns ErrAlreadyRunning. Per-product snapshot failures are logged
// and skipped.
func (s *RankingService) Run(ctx context.Context) (*RankingResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ctx, span := util.StartSpan(ctx, "RankingService.Run")
	defer span.End()

	rows, err := s.store.GetRankingRows(ctx)
	if err != nil {
		util.RankingRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	latest, err := s.store.GetLatestRanks(ctx)
	if err != nil {
		util.RankingRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	ranked := AssignDenseRanks(rows)
	result := &RankingResult{Ranked: len(ranked)}
	now := time.Now()

	for _, r := range ranked {
		if prev, ok := latest[r.ProductID]; ok && prev == r.Rank {
			result.Skipped++
			continue
		}

		snap := &models.RankingSnapshot{
			ProductID:  r.ProductID,
			SnapshotAt: now,
			Rank:       r.Rank,
			APK:        r.APK,
			Price:      r.Price,
		}
		if err := s.store.InsertRankingSnapshot(ctx, snap); err != nil {
			result.Failed++
			util.RankingSnapshotFailuresTotal.Inc()
			s.logger.Error("Failed to append ranking snapshot",
				zap.Int64("product_id", r.ProductID),
				zap.Int("rank", r.Rank),
				zap.Error(err))
			continue
		}
		result.Written++
	}

	util.RankingRunsTotal.WithLabelValues("success").Inc()
	util.RankingSnapshotsWrittenTotal.Add(float64(result.Written))

	s.invalidateCache(ctx)
	s.publishUpdated(ctx, result)

	s.logger.Info("Ranking pass completed",
		zap.Int("ranked", result.Ranked),
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *RankingService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("Failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *RankingService) publishUpdated(ctx context.Context, result *RankingResult) {
	if s.events == nil {
		return
	}
	event := &models.RankingUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRankingUpdated,
			Timestamp: time.Now(),
		},
		Ranked:           result.Ranked,
		SnapshotsWritten: result.Written,
		Skipped:          result.Skipped,
		Failed:           result.Failed,
	}
	if err := s.events.PublishRankingUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish RankingUpdated event", zap.Error(err))
	}
}
