package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and shared by the handlers.
type Config struct {
	Port string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIURL        string
	StripeTimeout       time.Duration
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	RPCURL              string
	TokenContract       string
	OperatorPrivateKey  string
	GasLimit            uint64
	ChainCallTimeout    time.Duration
	ChainConfirmTimeout time.Duration

	StoreDriver     string
	StoreURL        string
	StoreCredential string
	StoreDatabase   string

	JWTSecret         string
	AdminPasswordHash string
}

// LoadEnv loads environment variables from a .env file
func LoadEnv() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Error loading .env file")
	}
}

// GetEnv retrieves environment variables with a fallback
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Load reads the process environment (after .env) into a Config.
// STRIPE_WEBHOOK_SECRET is optional here; the webhook endpoint answers 500 without it.
func Load() (*Config, error) {
	LoadEnv()

	var missing []string
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Port:                GetEnv("PORT", "3000"),
		StripeSecretKey:     required("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIURL:        os.Getenv("STRIPE_API_URL"),
		CheckoutSuccessURL:  GetEnv("CHECKOUT_SUCCESS_URL", "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:   GetEnv("CHECKOUT_CANCEL_URL", "http://localhost:5173/purchase"),
		RPCURL:              required("RPC_URL"),
		TokenContract:       required("TOKEN_CONTRACT_ADDRESS"),
		OperatorPrivateKey:  required("ADMIN_PRIVATE_KEY"),
		StoreDriver:         GetEnv("STORE_DRIVER", "postgres"),
		StoreURL:            required("STORE_URL"),
		StoreCredential:     os.Getenv("STORE_CREDENTIAL"),
		StoreDatabase:       GetEnv("STORE_DATABASE", "cleen_tokens"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AdminPasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.StripeTimeout, err = durationEnv("STRIPE_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChainCallTimeout, err = durationEnv("CHAIN_CALL_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChainConfirmTimeout, err = durationEnv("CHAIN_CONFIRM_TIMEOUT", 3*time.Minute); err != nil {
		return nil, err
	}
	gas := GetEnv("CHAIN_GAS_LIMIT", "100000")
	if cfg.GasLimit, err = strconv.ParseUint(gas, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid CHAIN_GAS_LIMIT %q: %w", gas, err)
	}

	switch cfg.StoreDriver {
	case "postgres", "mongo", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
