package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all app configuration
type Config struct {
	// Server
	Env      string
	HTTPPort string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Aggregation
	CacheTTL     time.Duration // aggregate-level cache entries
	DefaultQuery string        // "popular" base fetch when no search is given
	TopTokens    int           // tokens inspected per broadcast cycle

	// Broadcast loop; defaults to CacheTTL so polling never outpaces the
	// cache refresh.
	BroadcastInterval time.Duration

	// Providers
	DexScreenerBaseURL   string
	GeckoTerminalBaseURL string
	DexScreenerTTL       time.Duration
	GeckoTerminalTTL     time.Duration
	SourceMaxRequests    int
	SourceWindow         time.Duration
	HTTPClientTimeout    time.Duration
	UseMockSource        bool
	MockTokenCount       int

	// Kafka (optional change-event feed)
	KafkaBrokers []string
	KafkaTopic   string

	// App settings
	Debug bool
}

// LoadConfig loads configuration from environment variables, with optional .env file
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cacheTTL := time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 30)) * time.Second

	cfg := &Config{
		// Server
		Env:      getEnv("ENV", "local"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Aggregation
		CacheTTL:          cacheTTL,
		DefaultQuery:      getEnv("DEFAULT_QUERY", "SOL"),
		TopTokens:         getEnvAsInt("TOP_TOKENS", 50),
		BroadcastInterval: time.Duration(getEnvAsInt("BROADCAST_INTERVAL_SECONDS", int(cacheTTL/time.Second))) * time.Second,

		// Providers
		DexScreenerBaseURL:   getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
		GeckoTerminalBaseURL: getEnv("GECKOTERMINAL_BASE_URL", "https://api.geckoterminal.com"),
		DexScreenerTTL:       time.Duration(getEnvAsInt("DEXSCREENER_TTL_SECONDS", 30)) * time.Second,
		GeckoTerminalTTL:     time.Duration(getEnvAsInt("GECKOTERMINAL_TTL_SECONDS", 60)) * time.Second,
		SourceMaxRequests:    getEnvAsInt("SOURCE_MAX_REQUESTS", 30),
		SourceWindow:         time.Duration(getEnvAsInt("SOURCE_WINDOW_MS", 60000)) * time.Millisecond,
		HTTPClientTimeout:    time.Duration(getEnvAsInt("HTTP_CLIENT_TIMEOUT_SECONDS", 10)) * time.Second,
		UseMockSource:        getEnvAsBool("USE_MOCK_SOURCE", false),
		MockTokenCount:       getEnvAsInt("MOCK_TOKEN_COUNT", 25),

		// Kafka
		KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS", nil, ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "token-events"),

		// App settings
		Debug: getEnvAsBool("DEBUG", false),
	}

	return cfg
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, sep)
}
