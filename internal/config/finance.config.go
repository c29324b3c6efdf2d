package config

import (
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	HTTPAddr          string
	RedisAddr         string
	RedisPass         string
	KafkaBrokers      []string
	KafkaTopic        string
	WorkerConcurrency int
	EnabledPlatforms  []string
	PlatformFeedURL   string
	Environment       string
}

func Load() AppConfig {
	return AppConfig{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8020"),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:         getEnv("REDIS_PASS", ""),
		KafkaBrokers:      getEnvSlice("KAFKA_BROKERS", []string{"kafka:9092"}),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "finance.events"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
		EnabledPlatforms:  getEnvSlice("ENABLED_PLATFORMS", []string{"upwork", "fiverr", "freelancer", "reddit"}),
		PlatformFeedURL:   getEnv("PLATFORM_FEED_URL", ""),
		Environment:       getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
