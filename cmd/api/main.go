package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pharmacy-platform/stock-request-service/pkg/auth"
	"github.com/pharmacy-platform/stock-request-service/pkg/cloudevents"
	"github.com/pharmacy-platform/stock-request-service/pkg/kafka"
	"github.com/pharmacy-platform/stock-request-service/pkg/logging"
	"github.com/pharmacy-platform/stock-request-service/pkg/metrics"
	"github.com/pharmacy-platform/stock-request-service/pkg/middleware"
	"github.com/pharmacy-platform/stock-request-service/pkg/mongodb"
	"github.com/pharmacy-platform/stock-request-service/pkg/outbox"

	"github.com/pharmacy-platform/stock-request-service/internal/api/handlers"
	"github.com/pharmacy-platform/stock-request-service/internal/application"
	mongoRepo "github.com/pharmacy-platform/stock-request-service/internal/infrastructure/mongodb"

	outboxMongo "github.com/pharmacy-platform/stock-request-service/pkg/outbox/mongodb"

	"github.com/gin-gonic/gin"
)

const serviceName = "stock-request-service"

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := run(context.Background(), quit); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, quit <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stock-request-service API")

	config := loadConfig()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// MongoDB with circuit breaker and operation metrics
	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Repositories
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceStockRequest)
	outboxRepo := outboxMongo.NewOutboxRepository(mongoClient)
	inventoryRepo := mongoRepo.NewInventoryRepository(mongoClient)
	vendorRepo := mongoRepo.NewVendorRepository(mongoClient)
	counterRepo := mongoRepo.NewRequestCounterRepository(mongoClient)
	requestRepo := mongoRepo.NewStockRequestRepository(mongoClient, inventoryRepo, outboxRepo, eventFactory, counterRepo)

	indexCtx, cancelIndex := context.WithTimeout(ctx, 30*time.Second)
	if err := requestRepo.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		logger.WithError(err).Error("Failed to create indexes")
		return err
	}
	cancelIndex()
	logger.Info("MongoDB indexes ensured")

	// Kafka producer feeding the outbox publisher
	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		instrumentedProducer,
		logger,
		m,
		outbox.DefaultPublisherConfig(),
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
	} else {
		defer outboxPublisher.Stop()
		logger.Info("Outbox publisher started")
	}

	// Application services
	requestService := application.NewStockRequestService(requestRepo, inventoryRepo, vendorRepo, logger, m)
	analyticsService := application.NewAnalyticsService(requestRepo, logger)
	vendorService := application.NewVendorService(vendorRepo)

	requestHandler := handlers.NewStockRequestHandler(requestService, analyticsService, logger)
	vendorHandler := handlers.NewVendorHandler(vendorService, logger)

	tokenManager := auth.NewTokenManager(config.JWTSecret, config.JWTTTL)

	// Router
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	v1.Use(auth.Authenticate(tokenManager))
	requestHandler.RegisterRoutes(v1)
	vendorHandler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", "addr", config.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	JWTSecret  string
	JWTTTL     time.Duration
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoConfig.Database = getEnv("MONGODB_DATABASE", "pharmacy_stock_db")

	jwtTTL := 24 * time.Hour
	if raw := getEnv("JWT_TTL", ""); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			jwtTTL = parsed
		}
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:     jwtTTL,
		MongoDB:    mongoConfig,
		Kafka:      kafkaConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
