package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"

	"github.com/magictales/server/internal/adapter/repo"
	"github.com/magictales/server/internal/billing"
	"github.com/magictales/server/internal/http/handlers"
	"github.com/magictales/server/internal/http/httpapi"
	"github.com/magictales/server/internal/infra"
	"github.com/magictales/server/internal/infra/geoip"
	"github.com/magictales/server/internal/leads"
	"github.com/magictales/server/internal/ledger"
	"github.com/magictales/server/internal/persona"
	"github.com/magictales/server/internal/replicate"
	"github.com/magictales/server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	// Generation provider.
	client, err := replicate.NewClient(replicate.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("replicate client init failed")
	}
	poller := replicate.NewPoller(client, logger)
	pollOpts := replicate.PollOptions{Timeout: cfg.PollTimeout, Interval: cfg.PollInterval}

	// Blob storage: S3 when a bucket is configured, local filesystem otherwise.
	var blobs storage.BlobStore
	var staticDir string
	if cfg.S3Bucket != "" {
		blobs, err = storage.NewS3Store(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("s3 store init failed")
		}
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("using s3 blob store")
	} else {
		fileStore, err := storage.NewFileStore(cfg.StorageBasePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("file store init failed")
		}
		blobs = fileStore
		staticDir = fileStore.BasePath()
		logger.Info().Str("path", staticDir).Msg("using filesystem blob store")
	}

	// Credit ledger: Redis when configured, in-memory otherwise.
	var accounts ledger.AccountStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis ping failed")
		}
		defer rdb.Close()
		accounts = ledger.NewRedisStore(rdb, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis account store")
	} else {
		accounts = ledger.NewMemoryStore()
		logger.Warn().Msg("using in-memory account store, balances reset on restart")
	}
	credits := ledger.New(accounts, logger)

	// Billing, enabled only when both Stripe secrets are present.
	var webhookHandler *billing.StripeWebhook
	var processor *billing.Processor
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "" {
		stripe.Key = cfg.StripeSecretKey
		directory := billing.StripeDirectory{}
		webhookHandler = billing.NewStripeWebhook(cfg.StripeWebhookSecret, directory, directory, logger)
		processor = billing.NewProcessor(credits, billing.Pricing{
			PackCredits:   cfg.PackCreditPrices,
			MonthlyGrants: cfg.SubscriptionGrants,
		}, logger)
	} else {
		logger.Warn().Msg("stripe not configured, webhook endpoint disabled")
	}

	// Optional generation audit log.
	var audit repo.RequestRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connect failed")
		}
		defer pool.Close()
		audit = repo.NewRequestRepository(pool)
	}

	// Optional geo lookup for lead capture.
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("geoip init failed")
	}
	if resolver != nil {
		defer resolver.Close()
	}

	models := persona.Models{
		Kontext: cfg.FluxKontextModel,
		Fill:    cfg.FluxFillModel,
		Segment: cfg.SegmentModel,
		Canny:   cfg.CannyModel,
		Depth:   cfg.DepthModel,
		Page:    cfg.PageModel,
	}
	personaSvc := persona.NewService(poller, models, blobs, pollOpts, logger)

	app := &handlers.App{
		Ledger:      credits,
		Persona:     personaSvc,
		Leads:       leads.NewStore(blobs, logger),
		Blobs:       blobs,
		Predictions: client,
		Webhook:     webhookHandler,
		Processor:   processor,
		Audit:       audit,
		Logger:      logger,
	}
	if resolver != nil {
		app.GeoIP = resolver
	}

	router := httpapi.New(app, logger, httpapi.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		StaticDir:          staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
