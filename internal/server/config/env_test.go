package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "Listings Test")
	t.Setenv("APP_ENV", "staging")
	t.Setenv("DATABASE_URL", "postgres://env-db")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("TOKEN_ALGORITHM", "hs384")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("BUCKET_NAME", "listing-images")
	t.Setenv("SA_KEY_PATH", "/secrets/key.json")
	t.Setenv("MAX_UPLOAD_MB", "5")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg, ""))

	assert.Equal(t, "Listings Test", cfg.AppName)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "postgres://env-db", cfg.DatabaseDSN)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, "HS384", cfg.TokenAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "listing-images", cfg.S3Bucket)
	assert.Equal(t, "/secrets/key.json", cfg.S3CredentialsFile)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestParseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LISTINGS_TEST_ONLY=1\nGRPC_ADDR=:6000\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("LISTINGS_TEST_ONLY")
		_ = os.Unsetenv("GRPC_ADDR")
	})

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg, path))

	assert.Equal(t, ":6000", cfg.GRPCAddr)
	assert.Equal(t, "1", os.Getenv("LISTINGS_TEST_ONLY"))
}

func TestParseEnv_MissingDotenvIsFine(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "HS256", cfg.TokenAlgorithm)
}
