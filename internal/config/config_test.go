package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "HTTP_ADDR", "GIN_MODE", "TIMEZONE", "CLIENT_URLS", "DB_DRIVER", "DATABASE_URL",
	"DB_QUERY_TIMEOUT", "JWT_SECRET", "JWT_TTL", "OPENAI_API_KEY", "OPENAI_API_URL", "OPENAI_MODEL",
	"TELEGRAM_TOKEN", "DIGEST_TIME", "MONGO_URI", "MONGO_DATABASE", "ANALYTICS_STRICT_GRANULARITY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 168*time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, "20:00", cfg.Telegram.DigestTime)
	assert.False(t, cfg.Analytics.StrictGranularity)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoadRequiresSecret(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/pulse?parseTime=true")
	t.Setenv("JWT_TTL", "24h")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("CLIENT_URLS", "https://a.example, https://b.example ,")
	t.Setenv("ANALYTICS_STRICT_GRANULARITY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.ClientURLs)
	assert.True(t, cfg.Analytics.StrictGranularity)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taskpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":7000"
database:
  query_timeout: 3s
auth:
  jwt_secret: from-file
telegram:
  digest_time: "08:30"
mongo:
  uri: mongodb://localhost:27017
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "08:30", cfg.Telegram.DigestTime)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "taskpulse", cfg.Mongo.Database)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"duration": {"JWT_TTL", "a week"},
		"bool":     {"ANALYTICS_STRICT_GRANULARITY", "sometimes"},
		"driver":   {"DB_DRIVER", "postgres"},
		"timezone": {"TIMEZONE", "Mars/Olympus"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(kv[0], kv[1])
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read config file")
	})
}
