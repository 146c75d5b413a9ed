package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dex-sentinel/internal/domain"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string
	APIKey   string

	CORSOrigins []string

	PollIntervalSecs      int
	FetchTimeoutSecs      int
	InsightTimeoutSecs    int
	DexScreenerBaseURL    string
	DexScreenerRatePerMin int

	DataDir    string
	HistoryCap int

	RedisURL           string
	ReportCacheTTLSecs int

	DatabaseURL        string
	AlertRetentionDays int
	AlertRetentionCron string

	OpenAIAPIKey string
	OpenAIModel  string

	TelegramBotToken string
	TelegramChatID   int64

	TrackedTokens []domain.TrackedToken
	TokensFile    string

	SSHPort           int
	SSHHostKeyPath    string
	SSHAuthorizedKeys string
	SSHRefreshSecs    int

	// Warnings collected while loading; main logs them once the logger is up.
	Warnings []string
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

func (c *Config) InsightTimeout() time.Duration {
	return time.Duration(c.InsightTimeoutSecs) * time.Second
}

func (c *Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSecs) * time.Second
}

func Load() *Config {
	cfg := &Config{
		APIKey:           os.Getenv("API_KEY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TokensFile:       strings.TrimSpace(os.Getenv("TOKENS_FILE")),
	}

	cfg.AppEnv = stringOr("APP_ENV", "development")
	cfg.LogLevel = stringOr("LOG_LEVEL", "info")
	cfg.HTTPAddr = stringOr("HTTP_ADDR", ":8080")

	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	if cfg.RedisURL == "" {
		cfg.warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.DatabaseURL == "" {
		cfg.warn("DATABASE_URL not set, alert archive disabled")
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.warn("OPENAI_API_KEY not set, narrative insights will use placeholder text")
	}

	cfg.PollIntervalSecs = positiveInt("POLL_INTERVAL_SECS", 20)
	cfg.FetchTimeoutSecs = positiveInt("FETCH_TIMEOUT_SECS", 10)
	cfg.InsightTimeoutSecs = positiveInt("INSIGHT_TIMEOUT_SECS", 30)
	cfg.DexScreenerBaseURL = strings.TrimRight(stringOr("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"), "/")
	cfg.DexScreenerRatePerMin = positiveInt("DEXSCREENER_RATE_PER_MIN", 300)

	cfg.DataDir = stringOr("DATA_DIR", "data")
	cfg.HistoryCap = positiveInt("HISTORY_CAP", 1000)
	cfg.ReportCacheTTLSecs = positiveInt("REPORT_CACHE_TTL_SECS", 600)

	cfg.AlertRetentionDays = positiveInt("ALERT_RETENTION_DAYS", 30)
	cfg.AlertRetentionCron = stringOr("ALERT_RETENTION_CRON", "0 0 3 * * *")

	cfg.OpenAIModel = stringOr("OPENAI_MODEL", "gpt-4o-mini")

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			cfg.warn(fmt.Sprintf("invalid TELEGRAM_CHAT_ID=%q, alert push disabled", v))
		}
	}

	if v := strings.TrimSpace(os.Getenv("TRACKED_TOKENS")); v != "" {
		for _, ref := range strings.Split(v, ",") {
			if strings.TrimSpace(ref) == "" {
				continue
			}
			tok, err := domain.ParseTrackedToken(ref)
			if err != nil {
				cfg.warn(fmt.Sprintf("skipping tracked token: %v", err))
				continue
			}
			cfg.TrackedTokens = append(cfg.TrackedTokens, tok)
		}
	}

	cfg.SSHPort = positiveInt("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = stringOr("SSH_HOST_KEY_PATH", ".ssh/dex_sentinel_ed25519")
	cfg.SSHAuthorizedKeys = strings.TrimSpace(os.Getenv("SSH_AUTHORIZED_KEYS"))
	cfg.SSHRefreshSecs = positiveInt("SSH_REFRESH_SECS", 5)

	return cfg
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
