package config

import (
	"testing"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultModelName, cfg.GeminiModel)
	assert.Equal(t, DefaultOracleTimeout, cfg.OracleTimeout)
	assert.Equal(t, int64(10485760), cfg.MaxUploadBytes)
	assert.Equal(t, "0.01", cfg.Tolerance.String())
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, reconcile.UnknownTypesIgnore, cfg.UnknownTypes)
	assert.Empty(t, cfg.Warnings)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":                      "9090",
		"GEMINI_MODEL":              "gemini-2.5-pro",
		"ORACLE_TIMEOUT":            "90s",
		"MAX_UPLOAD_SIZE_BYTES":     "2048",
		"RECONCILE_TOLERANCE":       "0.5",
		"DEFAULT_CURRENCY":          "GBP",
		"UNKNOWN_TRANSACTION_TYPES": "reject",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, 90*time.Second, cfg.OracleTimeout)
	assert.Equal(t, int64(2048), cfg.MaxUploadBytes)

	policy := cfg.ReconcilePolicy()
	assert.Equal(t, "0.5", policy.Tolerance.String())
	assert.Equal(t, "GBP", policy.DefaultCurrency)
	assert.Equal(t, reconcile.UnknownTypesReject, policy.UnknownTypes)
}

func TestFromLookup_InvalidValuesFallBack(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"ORACLE_TIMEOUT":        "soon",
		"MAX_UPLOAD_SIZE_BYTES": "-5",
		"RECONCILE_TOLERANCE":   "zero",
	}))
	require.NoError(t, err)

	assert.Equal(t, DefaultOracleTimeout, cfg.OracleTimeout)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, "0.01", cfg.Tolerance.String())
	assert.Len(t, cfg.Warnings, 3)
}

func TestFromLookup_BadPolicyFallsBack(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{"UNKNOWN_TRANSACTION_TYPES": "maybe"}))
	require.NoError(t, err)

	assert.Equal(t, reconcile.UnknownTypesIgnore, cfg.UnknownTypes)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "UNKNOWN_TRANSACTION_TYPES")
}

func TestValidate(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	cfg.MaxUploadBytes = 0
	assert.Error(t, cfg.Validate())
}
