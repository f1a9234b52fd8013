package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Envelope store backends
const (
	EnvelopeStorePostgres = "postgres"
	EnvelopeStoreVault    = "vault"
)

// Consent ledger backends
const (
	LedgerBackendEthereum = "ethereum"
	LedgerBackendDev      = "dev"
)

// Config holds infrastructure-level configuration for the CareVault service.
type Config struct {
	// Database
	PostgresDSN string

	// Ciphertext envelope store backend
	EnvelopeStore string
	VaultAddress  string
	VaultToken    string
	VaultMount    string

	// Consent ledger
	LedgerBackend     string
	EthRPCURL         string
	ConsentContract   string
	LedgerOperatorKey string // hex-encoded secp256k1 key of the submitting operator

	// Key wrapping for custodial signing keys
	KeywrapProvider        string
	KeywrapLocalMasterKey  string
	KeywrapAWSKeyID        string
	KeywrapAWSRegion       string
	KeywrapVaultTransitKey string

	// How long a derive-key call waits for the signing capability before the
	// caller treats non-response as SigningUnavailable.
	SigningTimeout time.Duration

	// Server
	Port             int
	RateLimitRPS     int
	RateLimitBurst   int
	RateLimitEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		EnvelopeStore: getEnv("ENVELOPE_STORE", EnvelopeStorePostgres),
		VaultAddress:  getEnv("VAULT_ADDR", ""),
		VaultToken:    getEnv("VAULT_TOKEN", ""),
		VaultMount:    getEnv("VAULT_MOUNT", "carevault"),

		LedgerBackend:     getEnv("LEDGER_BACKEND", LedgerBackendDev),
		EthRPCURL:         getEnv("ETH_RPC_URL", ""),
		ConsentContract:   getEnv("CONSENT_CONTRACT", ""),
		LedgerOperatorKey: getEnv("LEDGER_OPERATOR_KEY", ""),

		KeywrapProvider:        getEnv("KEYWRAP_PROVIDER", "local"),
		KeywrapLocalMasterKey:  getEnv("KEYWRAP_LOCAL_MASTER_KEY", ""),
		KeywrapAWSKeyID:        getEnv("KEYWRAP_AWS_KMS_KEY_ID", ""),
		KeywrapAWSRegion:       getEnv("KEYWRAP_AWS_REGION", ""),
		KeywrapVaultTransitKey: getEnv("KEYWRAP_VAULT_TRANSIT_KEY", ""),

		SigningTimeout: getEnvDuration("SIGNING_TIMEOUT", 30*time.Second),

		Port:             getEnvInt("PORT", 8080),
		RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 40),
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}

	switch c.EnvelopeStore {
	case EnvelopeStorePostgres:
	case EnvelopeStoreVault:
		if c.VaultAddress == "" || c.VaultToken == "" {
			return fmt.Errorf("VAULT_ADDR and VAULT_TOKEN are required when ENVELOPE_STORE is 'vault'")
		}
	default:
		return fmt.Errorf("ENVELOPE_STORE must be 'postgres' or 'vault', got: %s", c.EnvelopeStore)
	}

	switch c.LedgerBackend {
	case LedgerBackendDev:
	case LedgerBackendEthereum:
		if c.EthRPCURL == "" {
			return fmt.Errorf("ETH_RPC_URL is required when LEDGER_BACKEND is 'ethereum'")
		}
		if c.ConsentContract == "" {
			return fmt.Errorf("CONSENT_CONTRACT is required when LEDGER_BACKEND is 'ethereum'")
		}
		if c.LedgerOperatorKey == "" {
			return fmt.Errorf("LEDGER_OPERATOR_KEY is required when LEDGER_BACKEND is 'ethereum'")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be 'ethereum' or 'dev', got: %s", c.LedgerBackend)
	}

	switch c.KeywrapProvider {
	case "local":
		if c.KeywrapLocalMasterKey == "" {
			return fmt.Errorf("KEYWRAP_LOCAL_MASTER_KEY is required when KEYWRAP_PROVIDER is 'local'")
		}
	case "aws-kms":
		if c.KeywrapAWSKeyID == "" || c.KeywrapAWSRegion == "" {
			return fmt.Errorf("KEYWRAP_AWS_KMS_KEY_ID and KEYWRAP_AWS_REGION are required when KEYWRAP_PROVIDER is 'aws-kms'")
		}
	case "vault":
		if c.VaultAddress == "" || c.VaultToken == "" || c.KeywrapVaultTransitKey == "" {
			return fmt.Errorf("VAULT_ADDR, VAULT_TOKEN and KEYWRAP_VAULT_TRANSIT_KEY are required when KEYWRAP_PROVIDER is 'vault'")
		}
	default:
		return fmt.Errorf("KEYWRAP_PROVIDER must be 'local', 'aws-kms' or 'vault', got: %s", c.KeywrapProvider)
	}

	if c.SigningTimeout <= 0 {
		return fmt.Errorf("SIGNING_TIMEOUT must be positive")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
