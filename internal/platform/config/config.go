package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Pricing tiers live in their
// own YAML file (see internal/registry/pricing) so operators can adjust the
// rent table without touching the environment.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string
	PricingFile   string

	Registry Registry
}

// Registry holds the lease-policy knobs of the engine.
type Registry struct {
	// MinRentDuration is the shortest lease a registration or renewal may buy.
	MinRentDuration time.Duration
	// GracePeriod is how long after expiry a name stays unavailable to
	// third parties before it can be re-registered.
	GracePeriod time.Duration
	// AllowExpiredRenewal permits the original owner to renew a fully
	// lapsed name instead of forcing a fresh registration. Off by default:
	// silently reviving a lapsed name could conflict with a third party
	// that already re-registered it.
	AllowExpiredRenewal bool
	// MinNameLength and MaxNameLength bound the validated name charset.
	MinNameLength int
	MaxNameLength int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("REGISTRAR_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "registrar.audit"
	}

	return Config{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  brokers,
		AuditTopic:    auditTopic,
		JWTSigningKey: jwtSigningKey,
		PricingFile:   os.Getenv("PRICING_FILE"),
		Registry: Registry{
			MinRentDuration:     durationEnv("MIN_RENT_DURATION_SECONDS", 365*24*time.Hour/4),
			GracePeriod:         durationEnv("GRACE_PERIOD_SECONDS", 0),
			AllowExpiredRenewal: os.Getenv("ALLOW_EXPIRED_RENEWAL") == "true",
			MinNameLength:       intEnv("MIN_NAME_LENGTH", 3),
			MaxNameLength:       intEnv("MAX_NAME_LENGTH", 64),
		},
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
