package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SECRET_KEY", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "duckpay.db", cfg.DBDSN)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.UsingDevSecret())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://duck@localhost/duckpay")
	t.Setenv("SECRET_KEY", "from-secret-key")
	t.Setenv("ALGORITHM", "hs512")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("DB_AUTO_MIGRATE", "no")
	t.Setenv("PERMISSION_CACHE_TTL", "90s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-secret-key", cfg.JWTSecret)
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 90*time.Second, cfg.PermissionCacheTTL)
}

func TestValidateRejects(t *testing.T) {
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "postgres")
		t.Setenv("DB_DSN", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		t.Setenv("DB_DSN", "x")
		_, err := FromEnv()
		assert.Error(t, err)
	})
	t.Run("asymmetric algorithm", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("ALGORITHM", "RS256")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nDUCKPAY_TEST_A=from-file\nDUCKPAY_TEST_B=\"quoted\"\n"), 0o600))
	t.Setenv("DUCKPAY_TEST_A", "from-env")
	os.Unsetenv("DUCKPAY_TEST_B")
	t.Cleanup(func() { os.Unsetenv("DUCKPAY_TEST_B") })

	LoadDotEnv(path)
	assert.Equal(t, "from-env", os.Getenv("DUCKPAY_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("DUCKPAY_TEST_B"))
}
