package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 2*time.Minute, cfg.ApprovalLockTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "0.1", cfg.CollapseRatio().String())
	assert.Equal(t, "35", cfg.ServingML().String())
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, 30*time.Second, cfg.PGStatementTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("CATEGORY_COLLAPSE_RATIO", "0.25")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "0.25", cfg.CollapseRatio().String())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsBadRatio(t *testing.T) {
	t.Setenv("CATEGORY_COLLAPSE_RATIO", "1.5")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CATEGORY_COLLAPSE_RATIO", "abc")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadServingSize(t *testing.T) {
	t.Setenv("SYRUP_SERVING_ML", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage)
}

func TestLoadRejectsBadPoolSettings(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PG_MAX_CONNS", "4")
	t.Setenv("PG_STATEMENT_TIMEOUT", "-1s")
	_, err = Load()
	assert.Error(t, err)
}
