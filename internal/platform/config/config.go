package config

import (
	"os"
	"strings"
)

// Server captures everything main needs to wire the process.
type Server struct {
	Addr string

	// PostgresDSN selects the persistent attendee/audit stores; empty means
	// in-memory (dev and tests).
	PostgresDSN string

	// RedisAddr enables the cross-event CPF index.
	RedisAddr string

	// KafkaBrokers enables the Kafka audit sink.
	KafkaBrokers []string
	KafkaTopic   string

	// SupplierTokenKey signs supplier capability tokens.
	SupplierTokenKey string

	// CPFDedupPolicy is "event" or "global".
	CPFDedupPolicy string

	// FacematchURL enables face verification at validation points.
	FacematchURL string

	// Static role keys. An empty key disables the role.
	AdminKey      string
	StaffKey      string
	CheckpointKey string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GATEPASS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	tokenKey := os.Getenv("SUPPLIER_TOKEN_KEY")
	if tokenKey == "" {
		// Development default; override in production.
		tokenKey = "dev-secret-key-change-in-production"
	}

	policy := os.Getenv("CPF_DEDUP_POLICY")
	if policy != "global" {
		policy = "event"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "gatepass.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:             addr,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBrokers:     brokers,
		KafkaTopic:       topic,
		SupplierTokenKey: tokenKey,
		CPFDedupPolicy:   policy,
		FacematchURL:     os.Getenv("FACEMATCH_URL"),
		AdminKey:         os.Getenv("ADMIN_API_KEY"),
		StaffKey:         os.Getenv("STAFF_API_KEY"),
		CheckpointKey:    os.Getenv("CHECKPOINT_API_KEY"),
	}
}
