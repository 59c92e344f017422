package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// catalogKey keeps all catalog events on one partition so consumers see
// them in order.
const catalogKey = "catalog"

// EventPublisher handles publishing catalog domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCatalogSynced publishes CatalogSynced event
func (ep *EventPublisher) PublishCatalogSynced(ctx context.Context, event *models.CatalogSyncedEvent) error {
	return ep.producer.PublishEvent(ctx, catalogKey, event)
}

// PublishCatalogSyncFailed publishes CatalogSyncFailed event
func (ep *EventPublisher) PublishCatalogSyncFailed(ctx context.Context, event *models.CatalogSyncFailedEvent) error {
	return ep.producer.PublishEvent(ctx, catalogKey, event)
}

// PublishRankingUpdated publishes RankingUpdated event
func (ep *EventPublisher) PublishRankingUpdated(ctx context.Context, event *models.RankingUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, catalogKey, event)
}

// EventHandler routes incoming catalog events
type EventHandler struct {
	onCatalogSynced func(context.Context, *models.CatalogSyncedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnCatalogSynced registers a handler for CatalogSynced events
func (eh *EventHandler) OnCatalogSynced(handler func(context.Context, *models.CatalogSyncedEvent) error) {
	eh.onCatalogSynced = handler
}

// HandleMessage routes messages to the registered handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeCatalogSynced:
		if eh.onCatalogSynced != nil {
			var event models.CatalogSyncedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CatalogSynced event: %w", err)
			}
			return eh.onCatalogSynced(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
