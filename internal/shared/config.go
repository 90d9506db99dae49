package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	RedisAddr string
	RedisDB   int
	RedisPass string

	UpstreamBase string
	TokenURL     string
	ClientID     string
	ClientSecret string
	TokenMargin  time.Duration

	ContentTTL       time.Duration // freshness window
	ContentRetention time.Duration // how long stale data stays servable
	ContentFetchWin  int           // simultaneous content fetches per batch

	PricingTTL  time.Duration // short window for deduplicated pricing results
	SearchChunk int           // property ids per batched pricing call

	ImageDir     string
	ImageTimeout time.Duration

	SyncInterval time.Duration
	SyncBatch    int
	SyncPause    time.Duration
	SyncImages   int // images pre-warmed per property
	Countries    []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	secs := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Second
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		UpstreamBase: env("INVENTORY_BASE_URL", "https://partner.hotel-inventory.example/api/v1"),
		TokenURL:     env("INVENTORY_TOKEN_URL", "https://partner.hotel-inventory.example/auth/token"),
		ClientID:     env("INVENTORY_CLIENT_ID", ""),
		ClientSecret: env("INVENTORY_CLIENT_SECRET", ""),
		TokenMargin:  secs("TOKEN_MARGIN_SECONDS", 120),

		ContentTTL:       secs("CONTENT_TTL_SECONDS", 24*3600),
		ContentRetention: secs("CONTENT_RETENTION_SECONDS", 7*24*3600),
		ContentFetchWin:  atoi("CONTENT_FETCH_WINDOW", 10),

		PricingTTL:  secs("PRICING_TTL_SECONDS", 300),
		SearchChunk: atoi("SEARCH_CHUNK_SIZE", 200),

		ImageDir:     env("IMAGE_CACHE_DIR", "/var/cache/tour/images"),
		ImageTimeout: secs("IMAGE_TIMEOUT_SECONDS", 15),

		SyncInterval: secs("SYNC_INTERVAL_SECONDS", 24*3600),
		SyncBatch:    atoi("SYNC_BATCH_SIZE", 5),
		SyncPause:    time.Duration(atoi("SYNC_PAUSE_MS", 500)) * time.Millisecond,
		SyncImages:   atoi("SYNC_IMAGES_PER_PROPERTY", 3),
		Countries:    splitCSV(env("INVENTORY_COUNTRIES", "RU")),
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		log.Warn().Msg("INVENTORY_CLIENT_ID / INVENTORY_CLIENT_SECRET are empty")
	}
	if c.TokenMargin < 60*time.Second {
		log.Warn().Dur("margin", c.TokenMargin).Msg("token margin below 60s, raising to 60s")
		c.TokenMargin = 60 * time.Second
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
