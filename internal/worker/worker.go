package worker

import (
	"context"
	"errors"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/broker"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/service"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"go.uber.org/zap"
)

// RankingWorker chains a ranking pass after each completed catalog
// ingestion by consuming CatalogSynced events. The accumulator's own
// single-flight guard makes an overlapping external trigger harmless.
type RankingWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	rankings     *service.RankingService
	logger       *zap.Logger
}

// NewRankingWorker creates a ranking worker
func NewRankingWorker(consumer *broker.Consumer, rankings *service.RankingService) *RankingWorker {
	w := &RankingWorker{
		consumer: consumer,
		rankings: rankings,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnCatalogSynced(w.handleCatalogSynced)
	w.eventHandler = eventHandler

	return w
}

func (w *RankingWorker) handleCatalogSynced(ctx context.Context, event *models.CatalogSyncedEvent) error {
	w.logger.Info("Catalog synced, starting ranking pass",
		zap.String("event_id", event.EventID),
		zap.Int("upserted", event.Upserted))

	result, err := w.rankings.Run(ctx)
	if errors.Is(err, service.ErrAlreadyRunning) {
		w.logger.Info("Ranking pass already running, skipping trigger")
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("Ranking pass finished",
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped))
	return nil
}

// Start starts the worker
func (w *RankingWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting ranking worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RankingWorker) Stop() error {
	w.logger.Info("Stopping ranking worker")
	return w.consumer.Close()
}
