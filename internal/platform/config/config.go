package config

import (
	"os"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	// OwnerPrincipal is the verified identifier allowed to administer the
	// election. Required for both processes.
	OwnerPrincipal string

	// Voting window bounds applied by open-voting. Defaults are the protocol
	// values (1 day / 1 year).
	MinVotingWindow time.Duration
	MaxVotingWindow time.Duration

	EnableAuditConsumer   bool
	EnableDeadlineWatcher bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "tally"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		OwnerPrincipal:  strings.TrimSpace(os.Getenv("ELECTION_OWNER")),
		MinVotingWindow: envDuration("ELECTION_MIN_VOTING_WINDOW", 24*time.Hour),
		MaxVotingWindow: envDuration("ELECTION_MAX_VOTING_WINDOW", 365*24*time.Hour),

		EnableAuditConsumer:   envBool("ENABLE_ELECTION_AUDIT_CONSUMER", true),
		EnableDeadlineWatcher: envBool("ENABLE_ELECTION_DEADLINE_WATCHER", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
