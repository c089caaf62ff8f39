package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Default values used when the environment does not set a variable.
const (
	DefaultPort           = "8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultModelName      = "gemini-2.5-flash"
	DefaultOracleTimeout  = 60 * time.Second
	DefaultMaxUploadBytes = 10 << 20 // 10 MB
)

// Config holds the runtime settings of the analyzer.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiAPIVersion string
	OracleTimeout    time.Duration

	MaxUploadBytes int64

	Tolerance       decimal.Decimal
	DefaultCurrency string
	UnknownTypes    reconcile.UnknownTypePolicy

	// GCSCredentialsFile is an optional service account key used by the CLI
	// when reading gs:// statements. Empty means Application Default Credentials.
	GCSCredentialsFile string

	// Warnings collects values that were invalid and replaced by defaults,
	// so the caller can log them once a logger exists.
	Warnings []string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}
	cfg := &Config{
		Port:               env.str("PORT", DefaultPort),
		LogLevel:           env.str("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          env.str("LOG_FORMAT", DefaultLogFormat),
		GeminiAPIKey:       env.str("GEMINI_API_KEY", ""),
		GeminiModel:        env.str("GEMINI_MODEL", DefaultModelName),
		GeminiAPIVersion:   env.str("GEMINI_API_VERSION", ""),
		OracleTimeout:      env.duration("ORACLE_TIMEOUT", DefaultOracleTimeout),
		MaxUploadBytes:     env.positiveInt("MAX_UPLOAD_SIZE_BYTES", DefaultMaxUploadBytes),
		DefaultCurrency:    env.str("DEFAULT_CURRENCY", reconcile.DefaultCurrency),
		GCSCredentialsFile: env.str("GCS_CREDENTIALS_FILE", ""),
	}

	def := reconcile.DefaultPolicy()
	cfg.Tolerance = def.Tolerance
	if raw, ok := env.lookup("RECONCILE_TOLERANCE"); ok && raw != "" {
		tol, err := reconcile.ParseTolerance(raw)
		if err != nil {
			env.warn("invalid RECONCILE_TOLERANCE %q, using %s: %v", raw, def.Tolerance, err)
		} else {
			cfg.Tolerance = tol
		}
	}

	cfg.UnknownTypes = def.UnknownTypes
	if raw, ok := env.lookup("UNKNOWN_TRANSACTION_TYPES"); ok && raw != "" {
		policy, err := reconcile.ParseUnknownTypePolicy(raw)
		if err != nil {
			env.warn("invalid UNKNOWN_TRANSACTION_TYPES %q, using %s: %v", raw, def.UnknownTypes, err)
		} else {
			cfg.UnknownTypes = policy
		}
	}

	cfg.Warnings = env.warnings
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload size must be positive, got %d", c.MaxUploadBytes)
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("config: oracle timeout must be positive, got %s", c.OracleTimeout)
	}
	if c.Tolerance.Sign() <= 0 {
		return fmt.Errorf("config: reconcile tolerance must be positive, got %s", c.Tolerance)
	}
	return nil
}

// ReconcilePolicy returns the reconciliation policy described by the config.
func (c *Config) ReconcilePolicy() reconcile.Policy {
	return reconcile.Policy{
		Tolerance:       c.Tolerance,
		DefaultCurrency: c.DefaultCurrency,
		UnknownTypes:    c.UnknownTypes,
	}
}

type envReader struct {
	lookup   func(string) (string, bool)
	warnings []string
}

func (e *envReader) warn(format string, args ...interface{}) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		e.warn("invalid %s %q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func (e *envReader) positiveInt(key string, fallback int64) int64 {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		e.warn("invalid %s %q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
