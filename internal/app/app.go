package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/catalog"
	"github.com/temcen/shelfrec/internal/config"
	"github.com/temcen/shelfrec/internal/database"
	"github.com/temcen/shelfrec/internal/handlers"
	"github.com/temcen/shelfrec/internal/middleware"
	"github.com/temcen/shelfrec/internal/recommender"
	"github.com/temcen/shelfrec/internal/services"
	"github.com/temcen/shelfrec/internal/validation"
)

type App struct {
	config           *config.Config
	logger           *logrus.Logger
	db               *database.Database
	holder           *recommender.Holder
	services         *services.Services
	handlers         *handlers.Handlers
	validation       *middleware.ValidationMiddleware
	router           *gin.Engine
	metricsCollector *services.MetricsCollector
	metricsHandler   http.Handler
	stopConsumer     context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	return newApp(cfg, prometheus.DefaultRegisterer, promhttp.Handler())
}

func newApp(cfg *config.Config, reg prometheus.Registerer, metricsHandler http.Handler) (*App, error) {
	app := &App{
		config:         cfg,
		logger:         setupLogger(cfg),
		metricsHandler: metricsHandler,
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize metrics collector
	app.metricsCollector = services.NewMetricsCollector(reg, app.logger)

	// Build the first engine; a service without a catalog has nothing to serve.
	source := newSource(cfg, db, app.logger)
	snapshot, err := source.Load(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load catalog from %s: %w", source.Name(), err)
	}

	opts := engineOptions(cfg, app.metricsCollector)
	engine, err := recommender.NewEngine(snapshot, opts, app.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build recommendation engine: %w", err)
	}
	app.holder = recommender.NewHolder(engine, opts, app.logger)
	app.metricsCollector.SetEngineInfo(engine.Info())

	// Initialize services
	svcs, err := services.New(cfg, app.logger, db, app.holder, source, app.metricsCollector, reg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	if svcs.ReloadBus != nil {
		ctx, cancel := context.WithCancel(context.Background())
		app.stopConsumer = cancel
		svcs.Reload.Start(ctx, svcs.ReloadBus)
	}

	schemaValidator, err := validation.NewEmbeddedSchemaValidator()
	if err != nil {
		app.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.validation = middleware.NewValidationMiddleware(schemaValidator)

	// Initialize handlers
	app.handlers = handlers.New(app.logger, svcs)

	// Setup router
	app.setupRouter()

	info := engine.Info()
	app.logger.WithFields(logrus.Fields{
		"source":  source.Name(),
		"items":   info.Items,
		"terms":   info.Terms,
		"ratings": info.Ratings,
	}).Info("Recommendation engine ready")

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.stopConsumer != nil {
		a.stopConsumer()
	}

	if a.services != nil && a.services.ReloadBus != nil {
		if err := a.services.ReloadBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing reload bus")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// newSource picks the catalog backend; graph ratings are layered on top of
// either one.
func newSource(cfg *config.Config, db *database.Database, logger *logrus.Logger) catalog.Source {
	var source catalog.Source
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		source = catalog.NewPostgresSource(db.PG, logger)
	default:
		source = catalog.NewFileSource(cfg.Catalog.SnapshotPath, logger)
	}

	if cfg.Catalog.GraphRatings && db.Neo4j != nil {
		source = catalog.NewGraphRatingSource(source, db.Neo4j, logger)
	}
	return source
}

func engineOptions(cfg *config.Config, metrics *services.MetricsCollector) recommender.Options {
	opts := recommender.DefaultOptions()
	rc := cfg.Recommendation

	if rc.Index.MinDF > 0 {
		opts.Index.MinDF = rc.Index.MinDF
	}
	if rc.Index.MaxFeatures > 0 {
		opts.Index.MaxFeatures = rc.Index.MaxFeatures
	}
	if rc.Index.NGramMin > 0 && rc.Index.NGramMax >= rc.Index.NGramMin {
		opts.Index.NGramMin = rc.Index.NGramMin
		opts.Index.NGramMax = rc.Index.NGramMax
	}
	if rc.SimilarityThreshold > 0 {
		opts.SimilarityThreshold = rc.SimilarityThreshold
	}
	if rc.FactorRank > 0 {
		opts.FactorRank = rc.FactorRank
	}
	if rc.DefaultCount > 0 {
		opts.DefaultCount = rc.DefaultCount
	}
	opts.Seed = rc.RandomSeed

	if metrics != nil {
		opts.OnStageFailure = metrics.RecordStageFailure
	}
	return opts
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health check endpoint
	router.GET("/health", a.handlers.Health.Check)

	// Prometheus metrics endpoint
	if a.config.Monitoring.Enabled {
		path := a.config.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(a.metricsHandler))
	}

	// API routes
	api := router.Group("/api/v1")
	api.Use(a.validation.ValidateHeaders())
	{
		api.GET("/recommendations", a.validation.ValidateQueryParams(), a.handlers.Recommendation.Get)
		api.GET("/books/:itemId/similar", a.validation.ValidateQueryParams(), a.handlers.Recommendation.Similar)
		api.POST("/chat", a.validation.ValidateChatRequest(), a.handlers.Chat.Post)

		admin := api.Group("/admin")
		{
			admin.POST("/reload", a.validation.ValidateReloadRequest(), a.handlers.Admin.Reload)
		}
	}

	a.router = router
}
