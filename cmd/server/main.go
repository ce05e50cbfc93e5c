package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Skufu/skinscreen/internal/config"
	"github.com/Skufu/skinscreen/internal/metrics"
	"github.com/Skufu/skinscreen/internal/store"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	logger := newLogger(cfg, os.Stdout)
	defer logger.Sync()

	ctx := context.Background()
	var (
		db      HealthChecker
		backend store.Store
	)
	if cfg.EnableDB {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		db = pg
		backend = pg
	} else {
		logger.Warn("ENABLE_DB is false, predictions are kept in memory only")
		backend = store.NewMemory()
	}
	predictions, err := store.NewCached(backend, cfg.HistoryCacheTTL)
	if err != nil {
		logger.Fatal("history cache setup failed", zap.Error(err))
	}
	defer predictions.Close()

	m, err := metrics.New()
	if err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}

	api := newAPI(predictions, m, logger.With(zap.String("module", "api")), cfg.RecentDefaultLimit)
	router := setupRouter(api, db, routerOptions{
		Logger:       logger.With(zap.String("module", "http")),
		Metrics:      m,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  cfg.CORSOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening", zap.String("port", cfg.Port), zap.Bool("db_enabled", cfg.EnableDB))
	waitForShutdown(server, logger)
}

// newLogger builds a JSON (production) or console (development) encoder
// depending on LOG_FORMAT. Unknown levels fall back to info.
func newLogger(cfg *config.Config, w io.Writer) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.LogFormat == "text" {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller())
}

func waitForShutdown(server *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
