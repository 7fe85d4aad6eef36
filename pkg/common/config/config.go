package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Operational store (Postgres)
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Clinical registry store (MySQL, read-only)
	RegistryHost     string
	RegistryPort     string
	RegistryUser     string
	RegistryPassword string
	RegistryDB       string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers          []string
	KafkaGroupID          string
	VisionEventsTopic     string
	MonitoringEventsTopic string

	// Alerts
	AlertRulesPath        string
	RegistryLookupTimeout time.Duration

	// Broadcast
	SubscriberBuffer int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 8*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "wardwatch"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "wardwatch123"),
		PostgresDB:       getEnv("POSTGRES_DB", "wardwatch"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RegistryHost:     getEnv("REGISTRY_DB_HOST", "localhost"),
		RegistryPort:     getEnv("REGISTRY_DB_PORT", "3306"),
		RegistryUser:     getEnv("REGISTRY_DB_USER", "registry_reader"),
		RegistryPassword: getEnv("REGISTRY_DB_PASSWORD", ""),
		RegistryDB:       getEnv("REGISTRY_DB_NAME", "clinical_registry"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "wardwatch-platform"),
		VisionEventsTopic:     getEnv("VISION_EVENTS_TOPIC", "vision.events"),
		MonitoringEventsTopic: getEnv("MONITORING_EVENTS_TOPIC", "monitoring.events"),

		AlertRulesPath:        getEnv("ALERT_RULES_PATH", ""),
		RegistryLookupTimeout: getDuration("REGISTRY_LOOKUP_TIMEOUT", 2*time.Second),

		SubscriberBuffer: getIntEnv("SUBSCRIBER_BUFFER", 64),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
