package service

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/broker"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/catalog"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/notify"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/redisclient"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogFetcher retrieves the full upstream catalog.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]models.RawProduct, error)
}

// IngestStore is the slice of the store the reconciler writes through.
type IngestStore interface {
	UpsertProductsBatch(ctx context.Context, batch []models.Product) error
	DeleteStaleProducts(ctx context.Context, cutoff time.Time) (int64, error)
}

// IngestResult summarizes one ingestion cycle.
type IngestResult struct {
	Fetched       int           `json:"fetched"`
	Upserted      int           `json:"upserted"`
	Rejected      int           `json:"rejected"`
	FailedBatches int           `json:"failedBatches"`
	Evicted       int64         `json:"evicted"`
	Duration      time.Duration `json:"-"`
}

// IngestService runs the fetch -> normalize -> reconcile pipeline.
type IngestService struct {
	fetcher    CatalogFetcher
	normalizer *catalog.Normalizer
	store      IngestStore
	cache      *redisclient.Client
	events     *broker.EventPublisher
	mailer     *notify.Mailer
	batchSize  int
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewIngestService creates an ingest service
func NewIngestService(
	fetcher CatalogFetcher,
	normalizer *catalog.Normalizer,
	store IngestStore,
	cache *redisclient.Client,
	events *broker.EventPublisher,
	mailer *notify.Mailer,
	batchSize int,
	staleAfterDays int,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &IngestService{
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		cache:      cache,
		events:     events,
		mailer:     mailer,
		batchSize:  batchSize,
		staleAfter: time.Duration(staleAfterDays) * 24 * time.Hour,
		logger:     util.GetLogger(),
	}
}

// Run executes one full ingestion cycle. A fetch failure aborts the run
// and notifies the operator; a failed upsert batch is logged and skipped
// so the run continues with reduced coverage.
func (s *IngestService) Run(ctx context.Context) (*IngestResult, error) {
	ctx, span := util.StartSpan(ctx, "IngestService.Run")
	defer span.End()

	start := time.Now()

	raw, err := s.fetcher.FetchCatalog(ctx)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	normalized := s.normalizer.Normalize(raw)
	if normalized.Rejected > 0 {
		util.ProductsRejectedTotal.Add(float64(normalized.Rejected))
		s.logger.Warn("Rejected records during normalization",
			zap.Int("rejected", normalized.Rejected))
	}

	result := &IngestResult{
		Fetched:  len(raw),
		Rejected: normalized.Rejected,
	}
	s.logger.Info("Catalog normalized",
		zap.Int("fetched", result.Fetched),
		zap.Int("seen_urls", len(normalized.SeenURLs)))

	for i := 0; i < len(normalized.Products); i += s.batchSize {
		end := i + s.batchSize
		if end > len(normalized.Products) {
			end = len(normalized.Products)
		}
		chunk := normalized.Products[i:end]

		if err := s.store.UpsertProductsBatch(ctx, chunk); err != nil {
			result.FailedBatches++
			util.UpsertBatchFailuresTotal.Inc()
			s.logger.Error("Upsert batch failed, skipping",
				zap.Int("batch_start", i),
				zap.Int("batch_size", len(chunk)),
				zap.Error(err))
			continue
		}
		result.Upserted += len(chunk)
	}

	cutoff := time.Now().Add(-s.staleAfter)
	evicted, err := s.store.DeleteStaleProducts(ctx, cutoff)
	if err != nil {
		// Eviction re-runs on the next cycle, so a failure here only
		// retains stale rows a little longer.
		s.logger.Error("Stale product eviction failed", zap.Error(err))
	} else {
		result.Evicted = evicted
		util.ProductsEvictedTotal.Add(float64(evicted))
	}

	result.Duration = time.Since(start)
	util.ProductsUpsertedTotal.Add(float64(result.Upserted))
	util.IngestRunsTotal.WithLabelValues("success").Inc()
	util.IngestDuration.Observe(result.Duration.Seconds())

	s.invalidateCache(ctx)
	s.publishSynced(ctx, result)

	s.logger.Info("Catalog ingestion completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("upserted", result.Upserted),
		zap.Int("rejected", result.Rejected),
		zap.Int("failed_batches", result.FailedBatches),
		zap.Int64("evicted", result.Evicted),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (s *IngestService) fail(ctx context.Context, cause error) {
	util.IngestRunsTotal.WithLabelValues("failed").Inc()
	s.logger.Error("Catalog ingestion aborted", zap.Error(cause))

	if s.events != nil {
		event := &models.CatalogSyncFailedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeCatalogSyncFailed,
				Timestamp: time.Now(),
			},
			Error: cause.Error(),
		}
		if err := s.events.PublishCatalogSyncFailed(ctx, event); err != nil {
			s.logger.Error("Failed to publish CatalogSyncFailed event", zap.Error(err))
		}
	}

	if s.mailer != nil {
		body := fmt.Sprintf("The catalog ingestion run aborted with:\n\n%v", cause)
		if err := s.mailer.SendAlert(ctx, "Catalog ingestion failed", body); err != nil {
			s.logger.Error("Failed to send operator alert", zap.Error(err))
		}
	}
}

func (s *IngestService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.logger.Warn("Failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *IngestService) publishSynced(ctx context.Context, result *IngestResult) {
	if s.events == nil {
		return
	}
	event := &models.CatalogSyncedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCatalogSynced,
			Timestamp: time.Now(),
		},
		Upserted:      result.Upserted,
		Rejected:      result.Rejected,
		FailedBatches: result.FailedBatches,
		Evicted:       result.Evicted,
		DurationMS:    result.Duration.Milliseconds(),
	}
	if err := s.events.PublishCatalogSynced(ctx, event); err != nil {
		s.logger.Error("Failed to publish CatalogSynced event", zap.Error(err))
	}
}
