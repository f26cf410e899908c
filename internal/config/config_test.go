package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kintai/internal/errors"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envFrom(map[string]string{
		"DATABASE_URL":   "postgres://kintai@localhost/kintai",
		"JWT_SECRET":     "s3cret",
		"JWT_EXPIRES_IN": "3600",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 20, cfg.DBMaxOpenConns)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.IsProd())
}

func TestFromEnv_ZeroTTLIsAllowed(t *testing.T) {
	cfg, err := FromEnv(envFrom(map[string]string{
		"DATABASE_URL":   "postgres://x",
		"JWT_SECRET":     "s",
		"JWT_EXPIRES_IN": "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	_, err := FromEnv(envFrom(map[string]string{}))
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "JWT_EXPIRES_IN")
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"negative ttl", "JWT_EXPIRES_IN", "-5"},
		{"non numeric ttl", "JWT_EXPIRES_IN", "1h"},
		{"bad port", "PORT", "http"},
		{"unknown driver", "DB_DRIVER", "sqlite"},
		{"bad env", "APP_ENV", "staging"},
		{"low bcrypt cost", "BCRYPT_COST", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{
				"DATABASE_URL":   "postgres://x",
				"JWT_SECRET":     "s",
				"JWT_EXPIRES_IN": "60",
			}
			env[tt.key] = tt.val
			_, err := FromEnv(envFrom(env))
			require.ErrorIs(t, err, apperrors.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
