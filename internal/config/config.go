package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Feed modes.
const (
	FeedModePoll  = "poll"
	FeedModeKafka = "kafka"
)

// Config holds the service configuration.
type Config struct {
	Port            string
	DatabaseURL     string
	LocalRoutingNum string
	HistoryLimit    int
	PubKeyPath      string
	Version         string
	ReconcilePolicy string
	FeedMode        string
	PollInterval    time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
	RedisAddr       string
	ExtraLatency    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LocalRoutingNum: os.Getenv("LOCAL_ROUTING_NUM"),
		HistoryLimit:    getenvInt("HISTORY_LIMIT", 100),
		PubKeyPath:      os.Getenv("PUB_KEY_PATH"),
		Version:         getenv("VERSION", "dev"),
		ReconcilePolicy: getenv("RECONCILE_POLICY", "strict"),
		FeedMode:        getenv("FEED_MODE", FeedModePoll),
		PollInterval:    getenvMillis("POLL_INTERVAL_MILLIS", 100*time.Millisecond),
		KafkaTopic:      getenv("KAFKA_TOPIC", "transaction_completed"),
		KafkaGroupID:    getenv("KAFKA_GROUP_ID", "transaction-history"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ExtraLatency:    getenvMillis("EXTRA_LATENCY_MILLIS", 0),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is complete and coherent.
func (c *Config) Validate() error {
	var missing []string

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.LocalRoutingNum == "" {
		missing = append(missing, "LOCAL_ROUTING_NUM")
	}
	if c.PubKeyPath == "" {
		missing = append(missing, "PUB_KEY_PATH")
	}

	if len(missing) > 0 {
		return errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	if c.HistoryLimit <= 0 {
		return errors.New("HISTORY_LIMIT must be positive")
	}

	switch c.FeedMode {
	case FeedModePoll:
	case FeedModeKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("FEED_MODE=kafka requires KAFKA_BROKERS")
		}
	default:
		return errors.New("FEED_MODE must be poll or kafka")
	}

	return nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
