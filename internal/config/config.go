package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"foodpay/internal/domain"
)

// GatewayMode selects how the adapter talks to the card network.
type GatewayMode string

const (
	ModeSimulated  GatewayMode = "simulated"
	ModeSandbox    GatewayMode = "sandbox"
	ModeProduction GatewayMode = "production"
)

// Gateway holds everything the adapter needs: mode, credentials and the
// per-transaction limits enforced before any network attempt.
type Gateway struct {
	Mode       GatewayMode
	BaseURL    string
	MerchantID string
	TerminalID string
	SecretKey  string
	Timeout    time.Duration
	MinAmount  domain.Amount
	MaxAmount  domain.Amount
}

type Config struct {
	Port      string
	JWTSecret string
	RedisAddr string
	RedisPass string

	Gateway Gateway

	ReconcileInterval time.Duration
	StuckAfter        time.Duration
}

// Load reads the environment once at startup. Credentials missing while the
// mode says sandbox/production is a configuration error handled by the caller;
// an empty GATEWAY_MODE degrades to simulated.
func Load() Config {
	mode := GatewayMode(getEnv("GATEWAY_MODE", string(ModeSimulated)))
	switch mode {
	case ModeSimulated, ModeSandbox, ModeProduction:
	default:
		mode = ModeSimulated
	}

	return Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASS", ""),
		Gateway: Gateway{
			Mode:       mode,
			BaseURL:    getEnv("SATIM_BASE_URL", "https://test.satim.dz/payment/rest"),
			MerchantID: getEnv("SATIM_MERCHANT_ID", ""),
			TerminalID: getEnv("SATIM_TERMINAL_ID", ""),
			SecretKey:  getEnv("SATIM_SECRET_KEY", ""),
			Timeout:    getDuration("GATEWAY_TIMEOUT", 15*time.Second),
			MinAmount:  getAmount("PAYMENT_MIN_DZD", domain.AmountFromMinor(10000)),    // 100.00 DZD
			MaxAmount:  getAmount("PAYMENT_MAX_DZD", domain.AmountFromMinor(50000000)), // 500000.00 DZD
		},
		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 1*time.Minute),
		StuckAfter:        getDuration("RECONCILE_STUCK_AFTER", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getAmount(key string, fallback domain.Amount) domain.Amount {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		// whole DZD shorthand
		return domain.AmountFromMinor(n * 100)
	}
	a, err := domain.ParseAmount(v)
	if err != nil {
		return fallback
	}
	return a
}
