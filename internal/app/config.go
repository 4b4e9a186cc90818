package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr             string
	FetchTimeout         time.Duration
	LogLevel             string
	LogFormat            string
	UserAgent            string
	SourceURLTemplate    string
	QueueConfigFile      string
	MaxConcurrentSources int
	RedisURL             string
	RedisKey             string
	MongoURI             string
	MongoDatabase        string
	MongoCollection      string
	OTLPEndpoint         string
	RateLimitRPS         int
	RateLimitBurst       int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8091"),
		FetchTimeout:         time.Duration(getEnvInt("QUEUE_FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:            getEnv("QUEUE_USER_AGENT", "torrent-stream-queue/1.0"),
		SourceURLTemplate:    getEnv("QUEUE_SOURCE_URL_TEMPLATE", "http://localhost:7575/api/apps/{appId}/queue"),
		QueueConfigFile:      getEnv("QUEUE_CONFIG_FILE", ""),
		MaxConcurrentSources: getEnvInt("QUEUE_MAX_CONCURRENT_SOURCES", 10),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisKey:             getEnv("QUEUE_REDIS_KEY", ""),
		MongoURI:             getEnv("MONGO_URI", ""),
		MongoDatabase:        getEnv("MONGO_DB", "torrentstream"),
		MongoCollection:      getEnv("MONGO_COLLECTION", "queue_configs"),
		OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RateLimitRPS:         getEnvInt("HTTP_RATE_LIMIT_RPS", 50),
		RateLimitBurst:       getEnvInt("HTTP_RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
