package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/orders/internal/bus"
	"github.com/fjod/go_cart/orders/internal/cache"
	"github.com/fjod/go_cart/orders/internal/config"
	"github.com/fjod/go_cart/orders/internal/domain"
	orderhttp "github.com/fjod/go_cart/orders/internal/http"
	"github.com/fjod/go_cart/orders/internal/payment"
	"github.com/fjod/go_cart/orders/internal/pricing"
	"github.com/fjod/go_cart/orders/internal/publisher"
	"github.com/fjod/go_cart/orders/internal/repository"
	"github.com/fjod/go_cart/orders/internal/service"
	"github.com/fjod/go_cart/orders/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)

	l.Info("orders starting...", zap.String("env", cfg.Env))

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Orders: Postgres
	creds := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	orderRepo, err := repository.NewPostgresRepository(creds, l)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer orderRepo.Close()

	if err := orderRepo.RunMigrations(creds); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
	l.Info("Database migrations completed")

	// Carts: MongoDB behind a Redis cache
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startupCancel()

	mongoDB, err := repository.ConnectMongoDB(startupCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		l.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if err := cartRepo.CreateIndexes(startupCtx); err != nil {
		l.Fatal("Failed to create cart indexes", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Pricing: SQLite catalog
	catalog, err := pricing.NewCatalogGateway(cfg.Catalog.DSN)
	if err != nil {
		l.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		l.Fatal("Failed to run catalog migrations", zap.Error(err))
	}

	// Metrics and the in-process bus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	eventBus := bus.New(l, bus.WithMetrics(registry))

	cartService := service.NewCartService(cartRepo, cache.NewRedisCache(redisClient), l)
	orderService := service.NewOrderService(orderRepo, cartService, catalog, eventBus, l)

	payment.NewListener(payment.NewSimulatedCharger(cfg.Payment.SuccessRate), orderService, l).Register(eventBus)

	var forwarder *publisher.KafkaForwarder
	if cfg.Kafka.Enabled {
		forwarder = publisher.NewKafkaForwarder(cfg.Kafka.Topic, l, cfg.Kafka.Brokers...)
		forwarder.Forward(eventBus, domain.OrderPlacedTopic)
		l.Info("Forwarding events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// HTTP
	srv := &http.Server{
		Addr: cfg.HTTP.Port,
		Handler: orderhttp.NewRouter(orderhttp.RouterConfig{
			Carts:          cartService,
			Orders:         orderService,
			Logger:         l,
			Registry:       registry,
			RequestTimeout: cfg.HTTP.Timeout,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// gRPC: health and reflection only
	lis, err := net.Listen("tcp", cfg.GRPC.Port)
	if err != nil {
		l.Fatal("Failed to listen", zap.Error(err))
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		l.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Port))
		if err := grpcServer.Serve(lis); err != nil {
			l.Fatal("Failed to serve", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down orders...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	doneChan := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		l.Info("Event handlers drained")
	case <-shutdownCtx.Done():
		l.Warn("Event handlers didn't finish in time")
	}

	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			l.Warn("Failed to close kafka writer", zap.Error(err))
		}
	}
	l.Info("Orders stopped")
}
