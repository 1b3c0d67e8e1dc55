package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"scanpos/internal/config"
	"scanpos/internal/database"
	"scanpos/internal/jobs"
	"scanpos/internal/middleware"
	"scanpos/internal/repository"
	"scanpos/internal/scan"
	"scanpos/internal/service"
	"scanpos/internal/transport"
)

// Server wires the store, services, scan pipeline and HTTP transport
// together and owns their lifecycles.
type Server struct {
	port int

	db     database.Service
	store  repository.Store
	bus    EventBus.Bus
	logger *zap.Logger
	cfg    *config.Config

	redisClient *redis.Client
	pipeline    *scan.Pipeline
	scheduler   *jobs.Scheduler

	catalog service.CatalogService
	ledger  service.LedgerService
	orders  service.OrderService
	reports service.ReportService
	alerts  service.AlertService

	cancelConsumer context.CancelFunc
}

// NewServer builds the full application and returns the HTTP server ready to
// listen.
func NewServer(cfg *config.Config, db database.Service, logger *zap.Logger) (*http.Server, *Server, error) {
	store := repository.NewStore(db.DB())
	bus := EventBus.New()

	s := &Server{
		db:     db,
		store:  store,
		bus:    bus,
		logger: logger,
		cfg:    cfg,
	}

	s.port = resolvePort(cfg.Server.Port)

	s.catalog = service.NewCatalogService(store, logger)
	s.ledger = service.NewLedgerService(store, bus, logger)
	s.orders = service.NewOrderService(store, bus, logger)
	s.reports = service.NewReportService(store)
	s.alerts = service.NewAlertService(store, logger)

	if err := service.SubscribeThresholds(bus, s.alerts, logger); err != nil {
		return nil, nil, fmt.Errorf("subscribe threshold events: %w", err)
	}

	dedup := scan.NewDeduplicator(cfg.Scan.Cooldown)
	s.pipeline = scan.NewPipeline(dedup, bus, cfg.Scan.QueueSize, logger)

	consumerCtx, cancel := context.WithCancel(context.Background())
	s.cancelConsumer = cancel
	go s.consumeAcceptedScans(consumerCtx)

	if cfg.Alerts.SweepSchedule != "" {
		scheduler, err := jobs.NewScheduler(s.alerts, cfg.Alerts.SweepSchedule, logger)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("create scheduler: %w", err)
		}
		s.scheduler = scheduler
		s.scheduler.Start()
	}

	if cfg.Redis.Host != "" {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return httpServer, s, nil
}

// resolvePort coerces the configured port, falling back to 8080 when it is
// empty or not a valid port number.
func resolvePort(port string) int {
	if p := cast.ToInt(port); p > 0 {
		return p
	}
	return 8080
}

// RegisterRoutes assembles the middleware stack and mounts every handler.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(s.logger))
	r.Use(middleware.ErrorHandlingMiddleware(s.logger))
	r.Use(middleware.CORSMiddleware(nil, s.cfg.Server.Env == "development"))

	if s.redisClient != nil && s.cfg.Redis.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimitMiddleware(s.redisClient, middleware.RateLimitConfig{
			RequestsPerWindow: s.cfg.Redis.RateLimitPerMinute,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit",
		}, s.logger))
	}

	transport.NewProductHandler(s.catalog, s.ledger, s.reports, s.logger).RegisterRoutes(r)
	transport.NewOrderHandler(s.orders, s.catalog, s.logger).RegisterRoutes(r)
	transport.NewReportHandler(s.reports, s.alerts, s.logger).RegisterRoutes(r)
	transport.NewScanHandler(s.pipeline, s.catalog, s.logger).RegisterRoutes(r)

	r.Get("/health", s.healthHandler)

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, s.db.Health())
}

// consumeAcceptedScans drains the pipeline's accepted-code stream, logging
// each code against the catalog. Keeping a consumer attached means the
// bounded channel only drops under real sustained pressure.
func (s *Server) consumeAcceptedScans(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case code := <-s.pipeline.Accepted():
			lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			product, err := s.catalog.FindByBarcode(lookupCtx, code)
			cancel()
			if err != nil {
				s.logger.Info("Accepted scan for unknown barcode", zap.String("code", code))
				continue
			}
			s.logger.Info("Accepted scan",
				zap.String("code", code),
				zap.String("name", product.Name),
				zap.Int("quantity", product.Quantity),
			)
		}
	}
}

// Shutdown stops background work and releases connections. Call after the
// HTTP server has stopped accepting requests.
func (s *Server) Shutdown() error {
	s.cancelConsumer()

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}

	return s.db.Close()
}
