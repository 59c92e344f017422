package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/service"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProductQueries serves listing and metadata requests.
type ProductQueries interface {
	ListProducts(ctx context.Context, req service.ListRequest) (*service.ListResponse, error)
	LastUpdated(ctx context.Context) (*time.Time, error)
	RankingHistory(ctx context.Context, productID int64) ([]models.RankingSnapshot, error)
}

// IngestRunner triggers one catalog ingestion cycle.
type IngestRunner interface {
	Run(ctx context.Context) (*service.IngestResult, error)
}

// RankingRunner triggers one ranking pass.
type RankingRunner interface {
	Run(ctx context.Context) (*service.RankingResult, error)
}

// Handler contains HTTP handlers
type Handler struct {
	queries         ProductQueries
	ingest          IngestRunner
	rankings        RankingRunner
	triggersEnabled bool
}

// NewHandler creates a new HTTP handler
func NewHandler(queries ProductQueries, ingest IngestRunner, rankings RankingRunner, triggersEnabled bool) *Handler {
	return &Handler{
		queries:         queries,
		ingest:          ingest,
		rankings:        rankings,
		triggersEnabled: triggersEnabled,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id/rankings", h.rankingHistory)
		v1.GET("/meta/last-updated", h.lastUpdated)
		v1.POST("/jobs/ingest", h.runIngest)
		v1.POST("/jobs/rankings", h.runRankings)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listProducts handles filtered, sorted and paginated product listings
func (h *Handler) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	req := service.ListRequest{
		Page:              page,
		Category:          c.Query("category"),
		SubCategory:       c.Query("subCategory"),
		ExcludeOrderItems: c.Query("excludeOrderItems") == "true",
		Search:            c.Query("search"),
		SortBy:            c.Query("sortBy"),
		SortOrder:         c.Query("sortOrder"),
		GlutenFree:        c.Query("glutenFree") == "true",
		DetailedView:      c.Query("detailedView") == "true",
	}

	resp, err := h.queries.ListProducts(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list products",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// rankingHistory returns a product's ranking snapshots, newest first
func (h *Handler) rankingHistory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	snapshots, err := h.queries.RankingHistory(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load ranking history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rankings": snapshots,
	})
}

// lastUpdated returns the most recent product update timestamp
func (h *Handler) lastUpdated(c *gin.Context) {
	ts, err := h.queries.LastUpdated(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load last update time",
		})
		return
	}

	if ts == nil {
		c.JSON(http.StatusOK, gin.H{"lastUpdated": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"lastUpdated": ts.Format(time.RFC3339)})
}

// runIngest triggers one catalog ingestion cycle
func (h *Handler) runIngest(c *gin.Context) {
	if !h.triggersEnabled {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Job triggers are disabled in this environment",
		})
		return
	}

	result, err := h.ingest.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Catalog ingestion failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// runRankings triggers one ranking pass
func (h *Handler) runRankings(c *gin.Context) {
	if !h.triggersEnabled {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Job triggers are disabled in this environment",
		})
		return
	}

	result, err := h.rankings.Run(c.Request.Context())
	if errors.Is(err, service.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{
			"status": "already running",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ranking pass failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
