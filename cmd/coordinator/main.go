// Command coordinator runs the RSS coordination server: the sync, crawl, and
// vectorization scheduler APIs, the retrieval and digest endpoints, the live
// summarization transformers, and the scheduled maintenance jobs.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rss-coordinator/internal/common/pagination"
	"rss-coordinator/internal/config"
	"rss-coordinator/internal/domain/entity"
	pgRepo "rss-coordinator/internal/infra/adapter/persistence/postgres"
	"rss-coordinator/internal/infra/db"
	"rss-coordinator/internal/infra/feedpreview"
	"rss-coordinator/internal/infra/notifier"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/infra/vectorstore"
	"rss-coordinator/internal/observability/logging"
	"rss-coordinator/internal/observability/tracing"
	"rss-coordinator/internal/repository"
	"rss-coordinator/pkg/ratelimit"

	"rss-coordinator/internal/usecase/crawl"
	"rss-coordinator/internal/usecase/digest"
	"rss-coordinator/internal/usecase/feedsync"
	"rss-coordinator/internal/usecase/hottopic"
	"rss-coordinator/internal/usecase/retrieve"
	"rss-coordinator/internal/usecase/stream"
	"rss-coordinator/internal/usecase/summarize"
	"rss-coordinator/internal/usecase/vectorize"

	hhttp "rss-coordinator/internal/handler/http"
	"rss-coordinator/internal/handler/http/admin"
	"rss-coordinator/internal/handler/http/articleapi"
	"rss-coordinator/internal/handler/http/assist"
	"rss-coordinator/internal/handler/http/crawlapi"
	"rss-coordinator/internal/handler/http/digestapi"
	"rss-coordinator/internal/handler/http/requestid"
	"rss-coordinator/internal/handler/http/syncapi"
	"rss-coordinator/internal/handler/http/topicapi"
	"rss-coordinator/internal/handler/http/vectorapi"
)

func main() {
	cfg, warnings := config.Load()

	logger := logging.NewLogger()
	slog.SetDefault(logger)
	for _, w := range warnings {
		logger.Warn("configuration fallback applied", slog.String("warning", w))
	}

	otel.SetTracerProvider(sdktrace.NewTracerProvider())

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	registry := initProviders(logger, cfg)

	app := buildApp(logger, cfg, database, registry)
	runServer(logger, cfg, app)
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// initProviders loads the provider registry. A missing config file leaves
// the registry empty; enrichment endpoints then fail per-request instead of
// keeping the scheduler APIs down.
func initProviders(logger *slog.Logger, cfg *config.Config) *provider.Registry {
	regCfg, err := provider.LoadRegistryConfig(cfg.ProviderConfigPath)
	if err != nil {
		logger.Warn("provider config not loaded, enrichment disabled",
			slog.String("path", cfg.ProviderConfigPath),
			slog.Any("error", err))
		regCfg = &provider.RegistryConfig{}
	}
	registry, err := provider.NewRegistry(regCfg)
	if err != nil {
		logger.Error("invalid provider configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("providers configured", slog.Any("names", registry.Names()))
	return registry
}

// app bundles everything the server and the maintenance jobs share.
type app struct {
	Handler   http.Handler
	Crawl     *crawl.Service
	Digest    *digest.Service
	Topics    *hottopic.Service
	RateLimit *hhttp.RateLimiter
}

// inlineSummarizer adapts the summarization service to the crawl pipeline,
// which only cares whether a summary was persisted.
type inlineSummarizer struct {
	svc *summarize.Service
}

func (a inlineSummarizer) GenerateForArticle(ctx context.Context, articleID int64) error {
	_, err := a.svc.GenerateForArticle(ctx, articleID)
	return err
}

func buildApp(logger *slog.Logger, cfg *config.Config, database *sql.DB, registry *provider.Registry) *app {
	feeds := pgRepo.NewFeedRepo(database)
	articles := pgRepo.NewArticleRepo(database)
	contents := pgRepo.NewContentRepo(database)
	crawls := pgRepo.NewCrawlRepo(database)
	scripts := pgRepo.NewScriptRepo(database)
	syncLogs := pgRepo.NewSyncLogRepo(database)
	topics := pgRepo.NewHotTopicRepo(database)
	summaries := pgRepo.NewDailySummaryRepo(database)
	tasks := pgRepo.NewVectorizationTaskRepo(database)

	store := vectorstore.NewPGStore(database)
	ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := vectorstore.EnsureCollection(ensureCtx, store, cfg.Collection, cfg.Dimension); err != nil {
		logger.Error("failed to ensure vector collection",
			slog.String("collection", cfg.Collection),
			slog.Any("error", err))
		os.Exit(1)
	}

	chatProvider, chatModel, chatErr := registry.Create("", cfg.SummaryModel)
	if chatErr != nil {
		logger.Warn("no chat provider active, summarization endpoints will fail",
			slog.Any("error", chatErr))
	}
	embedProvider, embedModel, embedErr := registry.Embedder()
	if embedErr != nil {
		logger.Warn("no embedding provider active, vectorization endpoints will fail",
			slog.Any("error", embedErr))
	}
	if cfg.EmbeddingModel != "" {
		embedModel = cfg.EmbeddingModel
	}

	syncSvc := &feedsync.Service{
		Feeds:    feeds,
		Articles: articles,
		SyncLogs: syncLogs,
		Notifier: buildNotifier(cfg),
		Config:   cfg.FeedSync,
	}

	summarySvc := &summarize.Service{
		Chat:     chatProvider,
		Model:    chatModel,
		Articles: articles,
		Contents: contents,
	}

	crawlSvc := &crawl.Service{
		Articles:     articles,
		Contents:     contents,
		Crawls:       crawls,
		Scripts:      scripts,
		Summarizer:   inlineSummarizer{svc: summarySvc},
		LeaseTimeout: cfg.CrawlLeaseTimeout,
	}

	vecSvc := &vectorize.Service{
		Articles:   articles,
		Tasks:      tasks,
		Store:      store,
		Embedder:   embedProvider,
		Model:      embedModel,
		Collection: cfg.Collection,
		Dimension:  cfg.Dimension,
	}

	retrieveSvc := &retrieve.Service{
		Articles:   articles,
		Contents:   contents,
		Store:      store,
		Embedder:   embedProvider,
		Model:      embedModel,
		Collection: cfg.Collection,
	}

	digestProvider, digestModel := chatProvider, chatModel
	digestName := cfg.DigestProvider
	if digestName != "" || cfg.DigestModel != "" {
		if p, m, err := registry.Create(digestName, cfg.DigestModel); err == nil {
			digestProvider, digestModel = p, m
		} else {
			logger.Warn("digest provider unavailable, using default",
				slog.String("provider", digestName), slog.Any("error", err))
		}
	}
	digestSvc := &digest.Service{
		Feeds:       feeds,
		Articles:    articles,
		Summaries:   summaries,
		Chat:        digestProvider,
		Provider:    digestName,
		Model:       digestModel,
		Concurrency: cfg.DigestConcurrency,
	}

	topicModel := chatModel
	if cfg.TopicModel != "" {
		topicModel = cfg.TopicModel
	}
	topicSvc := &hottopic.Service{
		Topics: topics,
		Chat:   chatProvider,
		Model:  topicModel,
	}

	streamModel := chatModel
	if cfg.StreamModel != "" {
		streamModel = cfg.StreamModel
	}
	streamSvc := stream.NewService(articles, contents, chatProvider, streamModel, int64(cfg.StreamMaxSessions))

	handler, limiter := buildHandler(logger, cfg, database, registry, store, feeds, scripts,
		syncSvc, crawlSvc, vecSvc, retrieveSvc, digestSvc, topicSvc, streamSvc)

	return &app{
		Handler:   handler,
		Crawl:     crawlSvc,
		Digest:    digestSvc,
		Topics:    topicSvc,
		RateLimit: limiter,
	}
}

func buildNotifier(cfg *config.Config) feedsync.Notifier {
	var channels notifier.Multi
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notifier.NewSlackNotifier(notifier.SlackConfig{
			Enabled:    true,
			WebhookURL: cfg.SlackWebhookURL,
			Timeout:    cfg.WebhookTimeout,
		}))
	}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, notifier.NewDiscordNotifier(notifier.DiscordConfig{
			Enabled:    true,
			WebhookURL: cfg.DiscordWebhookURL,
			Timeout:    cfg.WebhookTimeout,
		}))
	}
	if len(channels) == 0 {
		return notifier.NewNoOpNotifier()
	}
	return channels
}

func buildHandler(
	logger *slog.Logger,
	cfg *config.Config,
	database *sql.DB,
	registry *provider.Registry,
	store vectorstore.Store,
	feeds repository.FeedRepository,
	scripts repository.ScriptRepository,
	syncSvc *feedsync.Service,
	crawlSvc *crawl.Service,
	vecSvc *vectorize.Service,
	retrieveSvc *retrieve.Service,
	digestSvc *digest.Service,
	topicSvc *hottopic.Service,
	streamSvc *stream.Service,
) (http.Handler, *hhttp.RateLimiter) {
	apiMux := http.NewServeMux()
	syncapi.Register(apiMux, syncSvc, logger)
	crawlapi.Register(apiMux, crawlSvc, logger)
	vectorapi.Register(apiMux, vecSvc, logger)
	articleapi.Register(apiMux, retrieveSvc, pagination.LoadFromEnv(), logger)
	digestapi.Register(apiMux, digestSvc, logger)
	topicapi.Register(apiMux, topicSvc, logger)
	assist.Register(apiMux, streamSvc, logger)
	admin.Register(apiMux, feeds, scripts, feedpreview.New(nil), logger)

	var limiter *hhttp.RateLimiter
	protected := http.Handler(apiMux)
	if cfg.RateLimit.Enabled {
		limiter = hhttp.NewRateLimiter(hhttp.RateLimiterConfig{
			Limit:    cfg.RateLimit.Limit,
			Window:   cfg.RateLimit.Window,
			BlockFor: cfg.RateLimit.BlockFor,
			MaxKeys:  cfg.RateLimit.MaxKeys,
			Metrics:  ratelimit.NewPrometheusMetrics(),
			Logger:   logger,
		})
		protected = limiter.Limit(protected)
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}
	protected = hhttp.AppKeyAuth(cfg.AppKeys)(protected)
	if len(cfg.AppKeys) == 0 {
		logger.Warn("APP_KEYS is empty, authentication is DISABLED")
	}

	var limiterStore ratelimit.Store
	if limiter != nil {
		limiterStore = limiter.Store()
	}
	rootMux := http.NewServeMux()
	rootMux.Handle("/health", &hhttp.HealthHandler{
		DB:             database,
		Version:        cfg.Version,
		Collection:     cfg.Collection,
		Vectors:        store,
		RateLimitStore: limiterStore,
		Providers:      registry,
	})
	rootMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	rootMux.Handle("/live", hhttp.LiveHandler{})
	rootMux.Handle("/metrics", promhttp.Handler())
	rootMux.Handle("/", protected)

	handler := hhttp.Chain(rootMux,
		hhttp.CORS(cfg.CORSAllowedOrigins),
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.Metrics(),
		hhttp.LimitRequestBody(cfg.MaxBodyBytes),
	)
	return handler, limiter
}

// runServer starts the HTTP server plus the maintenance jobs and handles
// graceful shutdown.
func runServer(logger *slog.Logger, cfg *config.Config, a *app) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := startMaintenance(ctx, logger, cfg, a)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()
	if scheduler != nil {
		cronCtx := scheduler.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(30 * time.Second):
			logger.Warn("maintenance jobs did not finish before shutdown deadline")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// startMaintenance schedules the daily digest and hot topic jobs and starts
// the crawl lease sweeper.
func startMaintenance(ctx context.Context, logger *slog.Logger, cfg *config.Config, a *app) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone))
		loc = time.UTC
	}

	scheduler := cron.New(cron.WithLocation(loc))

	if _, err := scheduler.AddFunc(cfg.DigestCron, func() {
		runDigestJob(ctx, logger, a.Digest)
	}); err != nil {
		logger.Error("failed to schedule digest job", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.TopicCron, func() {
		runTopicJob(ctx, logger, a.Topics)
	}); err != nil {
		logger.Error("failed to schedule hot topic job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("maintenance jobs scheduled",
		slog.String("digest_cron", cfg.DigestCron),
		slog.String("topic_cron", cfg.TopicCron),
		slog.String("timezone", loc.String()))

	go sweepLeases(ctx, logger, cfg, a.Crawl)
	return scheduler
}

// runDigestJob generates yesterday's digests in both languages. The digest
// covers a finished day, so it runs against the previous date.
func runDigestJob(ctx context.Context, logger *slog.Logger, svc *digest.Service) {
	date := time.Now().UTC().AddDate(0, 0, -1)
	for _, lang := range []entity.SummaryLanguage{entity.LanguageChinese, entity.LanguageEnglish} {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		result, err := svc.Run(jobCtx, date, lang)
		cancel()
		if err != nil {
			logger.Error("digest job failed",
				slog.String("date", date.Format("2006-01-02")),
				slog.String("language", string(lang)),
				slog.Any("error", err))
			continue
		}
		logger.Info("digest job finished",
			slog.String("date", date.Format("2006-01-02")),
			slog.String("language", string(lang)),
			slog.Int("generated", result.Generated),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed))
	}
}

// runTopicJob aggregates today's raw topics into unified hot topics.
func runTopicJob(ctx context.Context, logger *slog.Logger, svc *hottopic.Service) {
	jobCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	date := time.Now().UTC()
	result, err := svc.Run(jobCtx, date)
	if err != nil {
		logger.Error("hot topic job failed",
			slog.String("date", date.Format("2006-01-02")),
			slog.Any("error", err))
		return
	}
	logger.Info("hot topic job finished",
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("raw_topics", result.RawTopics),
		slog.Int("groups", result.Groups),
		slog.Int("dropped", result.Dropped))
}

// sweepLeases periodically returns abandoned crawl leases to the queue.
func sweepLeases(ctx context.Context, logger *slog.Logger, cfg *config.Config, svc *crawl.Service) {
	ticker := time.NewTicker(cfg.LeaseSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := svc.ReleaseExpiredLeases(ctx)
			if err != nil {
				logger.Error("crawl lease sweep failed", slog.Any("error", err))
				continue
			}
			if released > 0 {
				logger.Info("crawl leases released", slog.Int64("count", released))
			}
		}
	}
}
