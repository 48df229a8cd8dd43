package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dropapi/internal/cleanup"
	"dropapi/internal/config"
	"dropapi/internal/database"
	"dropapi/internal/database/migration"
	"dropapi/internal/failover"
	handlers "dropapi/internal/http/handler"
	"dropapi/internal/http/middleware"
	"dropapi/internal/ingest"
	"dropapi/internal/mempool"
	"dropapi/internal/otel"
	"dropapi/internal/ratelimit"
	"dropapi/internal/repository"
	"dropapi/internal/repository/memory"
	"dropapi/internal/repository/postgres"
	"dropapi/internal/service"
	"dropapi/internal/shortcode"
	"dropapi/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stdout)

	ctx := context.Background()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer shutdownTracing(ctx)

	// Size the in-memory payload tier from what the host can spare.
	pool := mempool.NewFromSystem(cfg.Pool.Ratio, cfg.Pool.ReservedBytes)
	mem := storage.NewMemoryStore(pool)

	// The database is optional. Without one the service runs entirely on
	// in-process storage and the failover state is permanently degraded.
	var (
		db        service.Pinger
		stats     service.StatsProvider
		fileRepo  repository.FileRepository
		aliasRepo repository.AliasRepository
		rateRepo  repository.RateLimitRepository
		sweeper   *cleanup.Sweeper
	)

	engine := ingest.NewEngine(cfg.Upload.TempDir, cfg.Upload.MaxFileSize, cfg.Upload.MinFileSize)

	if cfg.Database.Configured() {
		sqlDB, err := database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer sqlDB.Close()

		if err := migration.EnsureMigrated(ctx, sqlDB, cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}

		filePostgres := postgres.NewFilePostgres(sqlDB)
		ratePostgres := postgres.NewRateLimitPostgres(sqlDB)

		db = sqlDB
		stats = filePostgres
		fileRepo = filePostgres
		aliasRepo = postgres.NewAliasPostgres(sqlDB)
		rateRepo = ratePostgres
		sweeper = cleanup.NewSweeper(filePostgres, ratePostgres, mem, engine)
	} else {
		log.Warn().Msg("no database configured, running on in-process storage only")
	}

	fallbackFiles := memory.NewFileStore()

	// One health indicator shared by all three coordinators: a failure seen
	// by any of them degrades them all.
	health := failover.NewHealth(cfg.Database.Configured())
	files := failover.New("files", fileRepo, repository.FileRepository(fallbackFiles), health)
	aliases := failover.New("short_codes", aliasRepo, repository.AliasRepository(memory.NewAliasStore()), health)
	rates := failover.New("rate_limits", rateRepo, repository.RateLimitRepository(memory.NewRateLimitStore()), health)

	svc := service.NewDropService(service.Deps{
		Limiter:        ratelimit.New(rates, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests),
		Engine:         engine,
		Selector:       ingest.NewSelector(pool, mem, cfg.Upload.StreamThreshold),
		Pool:           pool,
		Mem:            mem,
		Files:          files,
		Aliases:        aliases,
		Resolver:       shortcode.NewResolver(aliases),
		FallbackFiles:  fallbackFiles,
		DB:             db,
		Stats:          stats,
		AppHost:        cfg.AppHost,
		MaxRequestSize: cfg.Upload.MaxRequestSize,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             int(cfg.Upload.MaxRequestSize),
		StreamRequestBody:     true,
		DisableStartupMessage: true,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, svc)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if sweeper != nil {
		sweepCtx, cancelSweep := context.WithCancel(ctx)
		defer cancelSweep()
		go sweeper.Run(sweepCtx, cfg.CleanupInterval)
	}

	log.Info().
		Str("port", cfg.Port).
		Int64("pool_capacity_mb", pool.Capacity()/(1024*1024)).
		Bool("database", cfg.Database.Configured()).
		Msg("starting server")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
