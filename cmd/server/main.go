package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/api"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/broker"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/catalog"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/notify"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/redisclient"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/service"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/store"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting APK catalog service")

	tp, err := util.InitTracer("apk-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	schemaCancel()
	log.Println("Database connected")

	// The listing cache is an optimization; run without it when Redis
	// is unreachable.
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Redis unavailable, running without listing cache: %v", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)
	mailer := notify.NewMailer(cfg.Notify)

	fetcher := catalog.NewFetcher(cfg.Catalog)
	normalizer := catalog.NewNormalizer(cfg.Catalog)

	ingestService := service.NewIngestService(
		fetcher, normalizer, db, redisClient, eventPublisher, mailer,
		cfg.Catalog.BatchSize, cfg.Catalog.StaleAfterDays)
	rankingService := service.NewRankingService(db, redisClient, eventPublisher)
	queryService := service.NewQueryService(db, redisClient, cfg.Query)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
	rankingWorker := worker.NewRankingWorker(catalogConsumer, rankingService)
	go func() {
		if err := rankingWorker.Start(workerCtx); err != nil {
			log.Printf("Ranking worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(queryService, ingestService, rankingService, cfg.Jobs.TriggersEnabled)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	rankingWorker.Stop()

	log.Println("Server exited")
}
