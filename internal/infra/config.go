package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Generation provider.
	ReplicateAPIToken string
	ReplicateBaseURL  string
	FluxKontextModel  string
	FluxFillModel     string
	SegmentModel      string
	CannyModel        string
	DepthModel        string
	PageModel         string
	PollTimeout       time.Duration
	PollInterval      time.Duration

	// Credit ledger backend. Empty address selects the in-memory store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Billing.
	StripeSecretKey     string
	StripeWebhookSecret string
	PackCreditPrices    map[string]int
	SubscriptionGrants  map[string]int

	// Blob storage. Empty bucket selects the filesystem store.
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	StorageBasePath string
	StorageBaseURL  string

	// Optional collaborators.
	DatabaseURL string
	GeoIPDBPath string

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Only the Replicate token is mandatory; every other
// collaborator degrades to a local fallback.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		FluxKontextModel:  getEnv("FLUX_KONTEXT_MODEL", "black-forest-labs/flux-kontext-pro"),
		FluxFillModel:     getEnv("FLUX_FILL_MODEL", "black-forest-labs/flux-fill-pro"),
		SegmentModel:      getEnv("SEGMENT_MODEL", "meta/sam-2"),
		CannyModel:        getEnv("CANNY_MODEL", "replicate/canny"),
		DepthModel:        getEnv("DEPTH_MODEL", "chenxwh/depth-anything-v2"),
		PageModel:         getEnv("REPLICATE_PAGE_MODEL", "black-forest-labs/flux-schnell"),
		PollTimeout:       time.Millisecond * time.Duration(getEnvInt("POLL_TIMEOUT_MS", 60000)),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1200)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PackCreditPrices: map[string]int{
			os.Getenv("STRIPE_PRICE_PACK_STARTER"): 10,
			os.Getenv("STRIPE_PRICE_PACK_VALUE"):   30,
			os.Getenv("STRIPE_PRICE_PACK_MEGA"):    100,
		},
		SubscriptionGrants: map[string]int{
			os.Getenv("STRIPE_PRICE_SUB_STARTER"): 20,
			os.Getenv("STRIPE_PRICE_SUB_PRO"):     60,
		},

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		StorageBasePath: getEnv("STORAGE_BASE_PATH", "./data/blobs"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	cfg.StorageBaseURL = getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", cfg.Port))

	// Unset price env vars would otherwise all alias onto the empty key.
	delete(cfg.PackCreditPrices, "")
	delete(cfg.SubscriptionGrants, "")

	if cfg.ReplicateAPIToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
