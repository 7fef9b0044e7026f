package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	LogLevel        string
	HTTPAddr        string
	MetricsAddr     string
	AQIBase         string
	AQIToken        string
	UpstreamTimeout time.Duration
	RequestTimeout  time.Duration
	TranslateErrors bool
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	ProbeWorkers    int
}

// Load reads configuration from the environment. Files named in envFiles (or
// ".env" when none are given) are loaded first; a missing file is not an error.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			log.Debug().Str("file", f).Msg("env file not loaded")
		}
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		AQIBase:         env("AQI_BASE_URL", "https://api.waqi.info"),
		AQIToken:        env("AQI_API_TOKEN", ""),
		UpstreamTimeout: time.Duration(atoi("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
		RequestTimeout:  time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		TranslateErrors: truthy(os.Getenv("TRANSLATE_UPSTREAM_ERRORS")),
		MySQLDSN:        env("MYSQL_DSN", ""),
		RedisAddr:       env("REDIS_ADDR", ""),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		ProbeWorkers:    atoi("PROBE_WORKERS", 4),
	}
	if c.AQIToken == "" {
		log.Warn().Msg("AQI_API_TOKEN is empty")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	// the upstream call must give up before the inbound request does
	if c.UpstreamTimeout <= 0 || c.UpstreamTimeout >= c.RequestTimeout {
		clamped := c.RequestTimeout - c.RequestTimeout/10
		log.Warn().
			Dur("upstream_timeout", c.UpstreamTimeout).
			Dur("request_timeout", c.RequestTimeout).
			Dur("clamped_to", clamped).
			Msg("UPSTREAM_TIMEOUT_SECONDS must be below REQUEST_TIMEOUT_SECONDS")
		c.UpstreamTimeout = clamped
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
