package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the server configuration
type Config struct {
	MongoURI  string
	MongoDB   string
	RedisAddr string
	Port      string
	JWTSecret string

	Analyzer  AnalyzerConfig
	LLM       *LLMConfig
	Log       LogConfig
	Analytics *AnalyticsConfig
}

// AnalyzerConfig points at the external projection/classification service
type AnalyzerConfig struct {
	URL       string `json:"url"`
	TimeoutMS int    `json:"timeoutMs"`
}

// IsEnabled returns true if an analyzer URL is configured
func (c AnalyzerConfig) IsEnabled() bool {
	return c.URL != ""
}

// LogConfig selects the logger flavour
type LogConfig struct {
	Level string
	Dev   bool
}

// Load reads an optional .env file and then the environment. The analytics
// YAML file named by ANALYTICS_CONFIG is loaded when set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	analyzerTimeout, err := getEnvInt("ANALYZER_TIMEOUT_MS", 15000)
	if err != nil {
		return nil, err
	}
	llm, err := DefaultLLMConfig()
	if err != nil {
		return nil, err
	}

	analytics := DefaultAnalyticsConfig()
	if path := os.Getenv("ANALYTICS_CONFIG"); path != "" {
		analytics, err = LoadAnalytics(path)
		if err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("ANALYTICS_POSITIVE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold <= 0 {
			return nil, fmt.Errorf("ANALYTICS_POSITIVE_THRESHOLD: invalid value %q", v)
		}
		analytics.PositiveThreshold = threshold
	}

	return &Config{
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "campaignlens"),
		RedisAddr: strings.TrimPrefix(getEnv("REDIS_URI", "localhost:6379"), "redis://"),
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		Analyzer: AnalyzerConfig{
			URL:       strings.TrimRight(os.Getenv("ANALYZER_URL"), "/"),
			TimeoutMS: analyzerTimeout,
		},
		LLM: llm,
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dev:   getEnvBool("LOG_DEV"),
		},
		Analytics: analytics,
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid value %q", key, val)
	}
	return n, nil
}

func getEnvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
