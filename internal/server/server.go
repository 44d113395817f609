package server

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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JustJay7/court-data-service/internal/api"
	"github.com/JustJay7/court-data-service/internal/cache"
	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/scraper"
	"github.com/JustJay7/court-data-service/internal/service"
	"github.com/JustJay7/court-data-service/internal/storage"
	"github.com/JustJay7/court-data-service/internal/store"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

type Server struct {
	cfg      *config.Config
	db       *gorm.DB
	logger   *logger.Logger
	router   *gin.Engine
	provider provider.CourtDataProvider
	limiter  *cache.WindowCounter
	svc      *service.QueryService
}

// NewProvider returns the provider selected by cfg.Provider.
func NewProvider(cfg *config.Config, logger *logger.Logger) (provider.CourtDataProvider, error) {
	switch cfg.Provider {
	case config.ProviderMock, "":
		return provider.NewMock(), nil
	case config.ProviderPortal:
		return scraper.NewScraper(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// NewService wires the stores, file storage, court directory and provider
// into a QueryService.
func NewService(cfg *config.Config, db *gorm.DB, p provider.CourtDataProvider, logger *logger.Logger) (*service.QueryService, error) {
	directory, err := courts.Load(cfg.CourtsFile)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.DownloadDir, logger)
	if err != nil {
		return nil, err
	}

	svc := service.NewQueryService(
		store.NewQueryStore(db, logger),
		store.NewJudgmentStore(db, logger),
		p,
		files,
		directory,
		logger,
	)
	return svc.WithHistoryLimit(cfg.HistoryLimit), nil
}

// New builds the HTTP server and fails queries left pending by a previous
// run. The database must already be migrated.
func New(cfg *config.Config, db *gorm.DB, logger *logger.Logger) (*Server, error) {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	p, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := NewService(cfg, db, p, logger)
	if err != nil {
		closeProvider(p, logger)
		return nil, err
	}

	swept, err := svc.ReconcileStalePending(context.Background(), cfg.PendingSweepAfter)
	if err != nil {
		closeProvider(p, logger)
		return nil, fmt.Errorf("failed to sweep pending queries: %w", err)
	}
	if swept > 0 {
		logger.Warn("Failed abandoned pending queries", "count", swept, "older_than", cfg.PendingSweepAfter.String())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestID())
	router.Use(api.RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	limiter := cache.NewWindowCounter(cfg.APIRateLimit, cfg.APIRateWindow)
	api.SetupRoutes(router, api.NewHandlers(svc, db, limiter, logger))

	return &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		router:   router,
		provider: p,
		limiter:  limiter,
		svc:      svc,
	}, nil
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.ScraperTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("Server started", "address", srv.Addr, "provider", s.provider.Name())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := srv.Shutdown(ctx)
	s.Close()
	if err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	s.logger.Info("Server exited gracefully")
	return nil
}

// Close releases the provider and the database.
func (s *Server) Close() {
	closeProvider(s.provider, s.logger)
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", "error", err)
	}
}

func closeProvider(p provider.CourtDataProvider, logger *logger.Logger) {
	if closer, ok := p.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close provider", "provider", p.Name(), "error", err)
		}
	}
}

// corsConfig allows any origin without credentials for "*", otherwise
// only the listed origins with credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Accept", "Authorization", api.RequestIDHeader)
	cfg.ExposeHeaders = []string{api.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
