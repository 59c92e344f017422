package models

import "time"

// Event types
const (
	EventTypeCatalogSynced     = "CATALOG_SYNCED"
	EventTypeCatalogSyncFailed = "CATALOG_SYNC_FAILED"
	EventTypeRankingUpdated    = "RANKING_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogSyncedEvent published after a successful ingestion cycle
type CatalogSyncedEvent struct {
	BaseEvent
	Upserted      int   `json:"upserted"`
	Rejected      int   `json:"rejected"`
	FailedBatches int   `json:"failed_batches"`
	Evicted       int64 `json:"evicted"`
	DurationMS    int64 `json:"duration_ms"`
}

// CatalogSyncFailedEvent published when an ingestion cycle aborts
type CatalogSyncFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// RankingUpdatedEvent published after a ranking pass completes
type RankingUpdatedEvent struct {
	BaseEvent
	Ranked           int `json:"ranked"`
	SnapshotsWritten int `json:"snapshots_written"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
}
