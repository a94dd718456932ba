package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopmesh/order/internal/client"
	"github.com/shopmesh/order/internal/config"
	"github.com/shopmesh/order/internal/handler"
	"github.com/shopmesh/order/internal/metrics"
	"github.com/shopmesh/order/internal/repository"
	"github.com/shopmesh/order/internal/service"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/redisx"
	"github.com/shopmesh/order/pkg/response"
	"github.com/shopmesh/order/pkg/saga"
	"github.com/shopmesh/order/pkg/tracing"
)

func main() {
	cfg := config.Load()
	appLog := logger.New(cfg.ServiceName, os.Stdout)
	log.Printf("Starting %s...", cfg.ServiceName)

	// 链路追踪
	shutdownTracing, err := tracing.Init(tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Tracing.JaegerEndpoint,
		Enabled:     cfg.Tracing.Enabled,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// 连接数据库
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to PostgreSQL")

	// 连接 Redis
	redisClient, err := redisx.NewClient(&redisx.Config{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		PoolSize:     redisx.DefaultConfig.PoolSize,
		MinIdleConns: redisx.DefaultConfig.MinIdleConns,
		DialTimeout:  redisx.DefaultConfig.DialTimeout,
		ReadTimeout:  redisx.DefaultConfig.ReadTimeout,
		WriteTimeout: redisx.DefaultConfig.WriteTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Printf("Connected to Redis")

	// 创建服务
	users := client.NewUserClient(cfg.UserServiceURL, cfg.ClientConnectTimeout, cfg.ClientTimeout, appLog)
	products := client.NewProductClient(cfg.ProductServiceURL, cfg.ClientConnectTimeout, cfg.ClientTimeout, appLog)
	repo := repository.NewOrderRepository(db)
	sagas := saga.NewExecutor(saga.NewRedisStore(redisClient, "order-saga", cfg.SagaLogTTL))
	metricsClient := metrics.New()

	svc := service.NewOrderService(
		repo, users, products, redisClient, sagas, metricsClient, appLog,
		cfg.OrderStream, cfg.OrderCacheTTL,
	)

	// HTTP 服务
	mux := http.NewServeMux()
	handler.New(svc, appLog, cfg.Debug).Register(mux)
	mux.Handle("/metrics", metricsClient.Handler())

	chain := response.CorrelationMiddleware(
		response.RecoveryMiddleware(
			tracing.HTTPMiddleware(mux),
		),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: chain,
	}

	go func() {
		log.Printf("HTTP server listening on :%d", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}
