package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	// PredictionThreshold is the binary suspended/not-suspended cut applied
	// to the model probability. Risk tiers use their own fixed boundaries.
	PredictionThreshold float64

	// ModelArtifactPath overrides the embedded model when set.
	ModelArtifactPath string

	// HistoryDBPath is the SQLite file backing batch persistence. Empty
	// disables persistence.
	HistoryDBPath string

	// Holiday calendar API.
	HolidayAPIBaseURL string
	HolidayAPITimeout time.Duration
	HolidayCountry    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	holidayTimeout, err := parseDuration("HOLIDAY_API_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-weather-cycles"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "suspension-predictions"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "suspension-forecast"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		PredictionThreshold: threshold,
		ModelArtifactPath:   os.Getenv("MODEL_ARTIFACT"),
		HistoryDBPath:       envOrDefault("HISTORY_DB", "suspension-history.db"),

		HolidayAPIBaseURL: envOrDefault("HOLIDAY_API_URL", "https://date.nager.at/api/v3"),
		HolidayAPITimeout: holidayTimeout,
		HolidayCountry:    envOrDefault("HOLIDAY_COUNTRY", "PH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseThreshold() (float64, error) {
	s := envOrDefault("PREDICTION_THRESHOLD", "0.5")
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t <= 0 || t >= 1 {
		return 0, errors.New("invalid PREDICTION_THRESHOLD")
	}
	return t, nil
}
