package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IngestRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_ingest_runs_total",
		Help: "Total number of catalog ingestion runs by outcome",
	}, []string{"status"})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_ingest_duration_seconds",
		Help:    "Duration of full catalog ingestion runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	ProductsUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_upserted_total",
		Help: "Total number of products upserted into the store",
	})

	ProductsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_rejected_total",
		Help: "Total number of raw records rejected during normalization",
	})

	ProductsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_evicted_total",
		Help: "Total number of stale products evicted",
	})

	UpsertBatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_upsert_batch_failures_total",
		Help: "Total number of upsert batches that failed and were skipped",
	})

	RankingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_runs_total",
		Help: "Total number of ranking passes by outcome",
	}, []string{"status"})

	RankingSnapshotsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranking_snapshots_written_total",
		Help: "Total number of ranking snapshots appended",
	})

	RankingSnapshotFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ranking_snapshot_failures_total",
		Help: "Total number of ranking snapshot writes that failed",
	})

	QueryCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_hits_total",
		Help: "Total number of product listing cache hits",
	})

	QueryCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_misses_total",
		Help: "Total number of product listing cache misses",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
