package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "node-s3-workshop", cfg.Database.Name)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
	assert.Equal(t, 5*time.Second, cfg.Database.RetryDelay)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "8088")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_URL", "file::memory:")
	t.Setenv("DB_CONNECT_RETRIES", "2")
	t.Setenv("DB_RETRY_DELAY", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.URL)
	assert.Equal(t, 2, cfg.Database.ConnectRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.RetryDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_FileOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("SERVER_PORT", "8088")

	yaml := []byte(`
server:
  port: 9090
database:
  driver: postgres
  url: postgres://u:p@localhost:5432/cryptos
pagination:
  default_limit: 20
  max_limit: 50
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 50, cfg.Pagination.MaxLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "cassandra" }, false},
		{"empty url", func(c *Config) { c.Database.URL = "" }, false},
		{"negative retries", func(c *Config) { c.Database.ConnectRetries = -1 }, false},
		{"max below default", func(c *Config) { c.Pagination.MaxLimit = 5 }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
