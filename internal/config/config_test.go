package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpire)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Second, cfg.Redis.UserCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=ride_hailing sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRE", "30d")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/rides?sslmode=disable")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.JWTExpire)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres://u:p@db:5432/rides?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoad_RejectsBadExpiry(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	for _, value := range []string{"soon", "-1h", "0d", "1.5d"} {
		t.Setenv("JWT_EXPIRE", value)
		_, err := Load()
		assert.Error(t, err, value)
	}
}
