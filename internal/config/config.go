package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CatalogFile          string
	PrivilegedIdentities string
	PersistTimeoutMS     string

	AuthEnabled    string
	AuthHMACSecret string
	AuthIssuer     string

	ScanRatePerMinute string
	ScanRateBurst     string

	KafkaBrokers           string
	KafkaClientID          string
	KafkaGroupID           string
	KafkaInstanceID        string
	KafkaTopicPartitions   string
	KafkaReplicationFactor string
	EventDrivenEnabled     string
}

func Load() *Config {
	instanceID := os.Getenv("KAFKA_INSTANCE_ID")
	if instanceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			instanceID = "unknown"
		} else {
			instanceID = hostname
		}
	}

	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "creditsdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CatalogFile:          getEnv("CATALOG_FILE", ""),
		PrivilegedIdentities: getEnv("PRIVILEGED_IDENTITIES", "admin@admin.com"),
		PersistTimeoutMS:     getEnv("PERSIST_TIMEOUT_MS", "5000"),

		AuthEnabled:    getEnv("AUTH_ENABLED", "false"),
		AuthHMACSecret: getEnv("AUTH_HMAC_SECRET", ""),
		AuthIssuer:     getEnv("AUTH_ISSUER", ""),

		ScanRatePerMinute: getEnv("SCAN_RATE_PER_MINUTE", "60"),
		ScanRateBurst:     getEnv("SCAN_RATE_BURST", "10"),

		KafkaBrokers:           getEnv("KAFKA_BROKERS", "kafka:9092"),
		KafkaClientID:          getEnv("KAFKA_CLIENT_ID", "credit-service"),
		KafkaGroupID:           getEnv("KAFKA_GROUP_ID", "credit-consumers"),
		KafkaInstanceID:        instanceID,
		KafkaTopicPartitions:   getEnv("KAFKA_TOPIC_PARTITIONS", "3"),
		KafkaReplicationFactor: getEnv("KAFKA_REPLICATION_FACTOR", "1"),
		EventDrivenEnabled:     getEnv("EVENT_DRIVEN_ENABLED", "true"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) DSN() string {
	return "postgresql://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func (c *Config) EventDriven() bool {
	return parseBool(c.EventDrivenEnabled)
}

func (c *Config) AuthRequired() bool {
	return parseBool(c.AuthEnabled)
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) PersistTimeout() time.Duration {
	return time.Duration(parseInt(c.PersistTimeoutMS, 5000)) * time.Millisecond
}

func (c *Config) ScanRate() (perMinute float64, burst int) {
	return float64(parseInt(c.ScanRatePerMinute, 60)), parseInt(c.ScanRateBurst, 10)
}

func (c *Config) TopicPartitions() int {
	return parseInt(c.KafkaTopicPartitions, 3)
}

func (c *Config) ReplicationFactor() int16 {
	value := parseInt(c.KafkaReplicationFactor, 1)
	return int16(value)
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
