package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test. cleanenv treats a
// variable that is set but empty as a value, so t.Setenv(k, "") is not enough.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var managedKeys = []string{
	"ENV", "STORAGE_DRIVER", "STORAGE_PATH", "FRONTEND_URL", "HTTP_SERVER_ADDR", "PORT",
	"MONGO_URI", "MONGO_DATABASE", "MONGO_COLLECTION", "CODEFORCES_BASE_URL", "CODEFORCES_TIMEOUT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_CACHE_TTL", "SYNC_ENABLED", "SYNC_SCHEDULE",
}

func TestLoad_EnvDefaults(t *testing.T) {
	unsetEnv(t, managedKeys...)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.Codeforces.Timeout)
	assert.Equal(t, "students", cfg.Mongo.Collection)
	assert.True(t, cfg.Sync.Enabled)
}

func TestLoad_PortOverridesAddr(t *testing.T) {
	unsetEnv(t, managedKeys...)
	t.Setenv("PORT", "8082")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8082", cfg.Addr)

	t.Setenv("HTTP_SERVER_ADDR", "localhost:5000")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8082", cfg.Addr, "host is kept")

	t.Setenv("HTTP_SERVER_ADDR", "no-port-here")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_MongoRequiresURI(t *testing.T) {
	unsetEnv(t, managedKeys...)
	t.Setenv("STORAGE_DRIVER", DriverMongo)

	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
}

func TestLoad_UnknownDriver(t *testing.T) {
	unsetEnv(t, managedKeys...)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	unsetEnv(t, managedKeys...)

	path := filepath.Join(t.TempDir(), "local.yaml")
	yaml := `env: prod
storage_path: /tmp/students.db
frontend_url: http://localhost:5173
http_server:
  address: localhost:8082
redis:
  addr: localhost:6379
  cache_ttl: 1m
sync:
  schedule: "30 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "/tmp/students.db", cfg.StoragePath)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.Equal(t, "localhost:8082", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "30 * * * *", cfg.Sync.Schedule)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
