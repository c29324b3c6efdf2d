package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finance-service/internal/config"
	hrest "finance-service/internal/handler/rest"
	"finance-service/internal/repository"
	"finance-service/internal/service"
	"finance-service/internal/usecase"
	"finance-service/internal/worker"
	"finance-service/pkg/utils"

	publisher "finance-service/internal/pub"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// FinanceServer bundles the HTTP API, the background worker and every
// shared resource they run on, so shutdown can drain them in order.
type FinanceServer struct {
	httpServer  *http.Server
	worker      *worker.Worker
	enqueuer    *worker.Enqueuer
	dbpool      *pgxpool.Pool
	redisClient *redis.Client
	kafkaWriter *kafka.Writer
	logger      *zap.Logger
}

// NewFinanceServer wires repositories, services, usecases, the REST
// handler and the asynq worker from config.
func NewFinanceServer(cfg config.AppConfig) (*FinanceServer, error) {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	logger.Info("🚀 Starting Finance Service",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("environment", cfg.Environment),
	)

	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("✅ Database connected",
		zap.Int32("max_conns", dbpool.Config().MaxConns),
		zap.Int32("min_conns", dbpool.Config().MinConns),
	)

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPass,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test Redis connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("⚠️ Redis connection failed, balance cache and fee overrides degraded", zap.Error(err))
	} else {
		logger.Info("✅ Redis connected", zap.String("addr", cfg.RedisAddr))
	}

	// --- Kafka writer ---
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info("✅ Kafka writer initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
	)

	// --- ID generator ---
	idGen := utils.NewIDGenerator()

	// --- Event publisher ---
	events := publisher.NewFinanceEventPublisher(rdb, writer)

	// --- Repositories ---
	walletRepo := repository.NewWalletRepo(dbpool)
	transactionRepo := repository.NewTransactionRepo(dbpool)
	paymentMethodRepo := repository.NewPaymentMethodRepo(dbpool)
	reportRepo := repository.NewReportRepo(dbpool)
	logger.Info("✅ Repositories initialized")

	// --- Services ---
	feeCalc := service.NewFeeCalculator(rdb)
	rails := service.NewRailRegistry()
	feeds := service.NewPlatformFeedService(cfg.PlatformFeedURL)
	if cfg.PlatformFeedURL == "" {
		logger.Warn("⚠️ PLATFORM_FEED_URL not set, scheduled reconciliation runs against an empty feed")
	}

	// --- Task queue client ---
	enqueuer := worker.NewEnqueuer(cfg.RedisAddr, cfg.RedisPass)
	logger.Info("✅ Task queue client initialized")

	// --- Usecases ---
	walletUC := usecase.NewWalletUsecase(
		walletRepo,
		transactionRepo,
		paymentMethodRepo,
		feeCalc,
		rails,
		idGen,
		rdb,
		events,
		enqueuer,
		logger,
	)
	txUC := usecase.NewTransactionUsecase(transactionRepo, walletRepo, rdb, events, logger)
	reconUC := usecase.NewReconciliationUsecase(
		transactionRepo,
		walletRepo,
		walletUC,
		feeCalc,
		feeds,
		idGen,
		rdb,
		events,
		logger,
	)
	reportUC := usecase.NewReportUsecase(reportRepo, walletUC, idGen, logger)
	logger.Info("✅ Usecases initialized")

	// --- Background worker ---
	w := worker.New(worker.Options{
		RedisAddr:   cfg.RedisAddr,
		RedisPass:   cfg.RedisPass,
		Concurrency: cfg.WorkerConcurrency,
		Platforms:   cfg.EnabledPlatforms,
	}, walletUC, reconUC, enqueuer)
	logger.Info("✅ Background worker initialized",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Strings("platforms", cfg.EnabledPlatforms),
	)

	// --- REST handler ---
	restHandler := hrest.NewFinanceRestHandler(walletUC, txUC, reconUC, reportUC, feeCalc, logger)
	logger.Info("✅ REST handler initialized")

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      restHandler.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &FinanceServer{
		httpServer:  httpServer,
		worker:      w,
		enqueuer:    enqueuer,
		dbpool:      dbpool,
		redisClient: rdb,
		kafkaWriter: writer,
		logger:      logger,
	}, nil
}

// Start runs the worker and blocks serving HTTP until Shutdown.
func (s *FinanceServer) Start() error {
	s.worker.Start()

	s.logger.Info("🚀 Finance HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains HTTP first so in-flight requests finish, then stops
// the worker and closes shared resources.
func (s *FinanceServer) Shutdown(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown failed", zap.Error(err))
	}

	s.worker.Shutdown()

	if err := s.enqueuer.Close(); err != nil {
		s.logger.Error("task queue client close failed", zap.Error(err))
	}
	if err := s.kafkaWriter.Close(); err != nil {
		s.logger.Error("kafka writer close failed", zap.Error(err))
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("redis close failed", zap.Error(err))
	}
	s.dbpool.Close()

	s.logger.Info("🛑 Finance service stopped")
	s.logger.Sync()
}
