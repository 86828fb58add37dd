package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davidjwilkins/declarative-settlements/api"
	"github.com/davidjwilkins/declarative-settlements/config"
	"github.com/davidjwilkins/declarative-settlements/logger"
	"github.com/davidjwilkins/declarative-settlements/metrics"
	"github.com/davidjwilkins/declarative-settlements/settlement"
	"github.com/davidjwilkins/declarative-settlements/settlement/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("RECONCILER_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	router := handlers.NewRouter()
	for _, m := range cfg.Methods {
		router.Register(m.ID, handlers.NewBreezHandler(handlers.BreezConfig{
			ServerURL: m.ServerURL,
			APIKey:    m.APIKey,
			StoreID:   m.StoreID,
			Flow:      m.Flow,
			Timeout:   m.Timeout,
		}, nil, zapLogger))
		zapLogger.Info("Registered payment method",
			zap.String("method_id", m.ID),
			zap.String("flow", string(m.Flow)),
			zap.String("server_url", m.ServerURL),
		)
	}
	if len(cfg.Methods) == 0 {
		zapLogger.Warn("No payment methods configured, every lookup will fail")
	}

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	reconciler := settlement.NewReconciler(router, handlers.NewLogNotifier(zapLogger), zapLogger, recorder)
	validator := settlement.NewValidator(reconciler, cfg.Policy, cfg.Concurrency)
	server := api.NewServer(zapLogger, reconciler, validator, router, prometheus.DefaultGatherer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("API server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}
