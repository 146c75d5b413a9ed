package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dex-sentinel/internal/alerting"
	"dex-sentinel/internal/bot"
	"dex-sentinel/internal/cache"
	"dex-sentinel/internal/config"
	"dex-sentinel/internal/db"
	"dex-sentinel/internal/handler"
	"dex-sentinel/internal/history"
	"dex-sentinel/internal/insight"
	"dex-sentinel/internal/job"
	"dex-sentinel/internal/metrics"
	"dex-sentinel/internal/provider"
	"dex-sentinel/internal/repository"
	"dex-sentinel/internal/service"
	"dex-sentinel/pkg/logger"
	"dex-sentinel/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	loadTokensFunc         = config.LoadTokensFile
	initLoggerFunc         = logger.Init
	initTracerFunc         = tracing.InitTracer
	initRedisFunc          = cache.InitRedis
	initPostgresFunc       = db.InitPostgres
	migrateFunc            = runMigrations
	newOpenAIClientFunc    = insight.NewOpenAIClient
	newTelegramBotFunc     = bot.NewTelegramBot
	startBotFunc           = func(b *bot.TelegramBot, ctx context.Context) { b.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func runMigrations(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	migrations, err := db.LoadMigrations(db.MigrationsFS)
	if err != nil {
		return 0, err
	}
	return db.MigrateUp(ctx, pool, migrations)
}

// newAlertDispatcher registers the archive ahead of the push sinks so events
// carry their archived id when they reach subscribers.
func newAlertDispatcher(tracer trace.Tracer, log *zap.Logger, m *metrics.Metrics, archive *repository.AlertRepository, push ...alerting.Sink) *alerting.Dispatcher {
	dispatcher := alerting.NewDispatcher(tracer, log, m)
	if archive != nil {
		dispatcher.Register(alerting.NewArchiveSink(archive))
	}
	for _, s := range push {
		dispatcher.Register(s)
	}
	return dispatcher
}

// @title           dex-sentinel API
// @version         1.0
// @description     Token pair monitoring, risk and sentiment reports for DEX pairs.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	log, err := initLoggerFunc(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "server")
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	m := metrics.New()

	tokens := cfg.TrackedTokens
	if cfg.TokensFile != "" {
		extra, err := loadTokensFunc(cfg.TokensFile)
		if err != nil {
			log.Warn("failed to load tokens file", zap.String("path", cfg.TokensFile), zap.Error(err))
		}
		tokens = config.MergeTokens(tokens, extra)
	}

	// Redis backs the latest-report cache; without it reads fall back to the weekly files.
	var reportCache *service.ReportCache
	if rdb, err := initRedisFunc(ctx, cfg.RedisURL, log); err != nil {
		log.Warn("redis unavailable, report cache disabled", zap.Error(err))
	} else if rdb != nil {
		defer rdb.Close()
		reportCache = service.NewReportCache(rdb, cfg.ReportCacheTTL())
	}

	// Postgres is optional. With it alerts are archived and pruned on a schedule.
	var alertRepo *repository.AlertRepository
	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Warn("postgres unavailable, alert archive disabled", zap.Error(err))
	} else if pool != nil {
		defer pool.Close()
		applied, err := migrateFunc(ctx, pool)
		if err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("migrations applied", zap.Int("count", applied))
		alertRepo = repository.NewAlertRepository(pool, tracer)

		retention, err := job.NewRetentionScheduler(tracer, log, alertRepo, cfg.AlertRetentionDays, cfg.AlertRetentionCron)
		if err != nil {
			log.Fatal("failed to create retention scheduler", zap.Error(err))
		}
		go retention.Start(ctx)
	}

	dex := provider.NewDexScreenerProvider(tracer, provider.Options{
		BaseURL:    cfg.DexScreenerBaseURL,
		Timeout:    cfg.FetchTimeout(),
		RatePerMin: cfg.DexScreenerRatePerMin,
	})

	var llm insight.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llm = newOpenAIClientFunc(cfg.OpenAIAPIKey)
		log.Info("narrative insights enabled", zap.String("model", cfg.OpenAIModel))
	}
	insights := insight.NewGenerator(tracer, log, llm, m, cfg.OpenAIModel, cfg.InsightTimeout())

	store := history.NewStore(cfg.HistoryCap)
	weekly := history.NewWeeklyStore(cfg.DataDir, log)
	reports := service.NewReportService(tracer, log, dex, insights, weekly, store, reportCache, nil)

	hub := alerting.NewHub(log, 0)
	dispatcher := newAlertDispatcher(tracer, log, m, alertRepo, hub)

	tg, err := newTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatID, reports, log)
	if err != nil {
		log.Warn("telegram bot disabled", zap.Error(err))
	} else if tg != nil {
		dispatcher.Register(tg)
		startBotFunc(tg, ctx)
	}
	log.Info("alert sinks registered", zap.Strings("sinks", dispatcher.Sinks()))

	monitor := job.NewTokenMonitor(tracer, log, m, dex, store, weekly, reports, dispatcher, cfg.PollInterval())
	monitors := job.NewManager(ctx, monitor, log, m)
	started := monitors.TrackAll(tokens)
	log.Info("token monitors started", zap.Int("count", started), zap.Duration("interval", monitor.Interval()))

	var archive handler.AlertArchive
	if alertRepo != nil {
		archive = alertRepo
	}
	h := handler.New(tracer, log, reports, monitors, archive, hub)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "X-API-Key"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info("Shutting down server...")

	cancel()
	monitors.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
