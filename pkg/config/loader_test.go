package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitledhq/entitled/pkg/config"
)

type gateConfig struct {
	ReadTimeoutMS int    `env:"TEST_GATE_READ_TIMEOUT_MS" envDefault:"2000"`
	CacheSize     int    `env:"TEST_GATE_CACHE_SIZE" envDefault:"10000"`
	Mode          string `env:"TEST_GATE_MODE" envDefault:"enforce"`
}

type requiredConfig struct {
	Secret string `env:"TEST_WEBHOOK_SECRET_REQ,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_CACHED_VALUE" envDefault:"initial"`
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("TEST_GATE_READ_TIMEOUT_MS", "500")
	t.Setenv("TEST_GATE_MODE", "observe")

	var cfg gateConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, 500, cfg.ReadTimeoutMS)
	assert.Equal(t, 10000, cfg.CacheSize)
	assert.Equal(t, "observe", cfg.Mode)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("TEST_CACHED_VALUE", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	require.Equal(t, "first", a.Value)

	// Environment changes after first load are intentionally ignored.
	t.Setenv("TEST_CACHED_VALUE", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[gateConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
