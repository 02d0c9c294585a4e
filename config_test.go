package sqlspec

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestLoadConfig_StrictMode_UnknownKeys(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqlspec.yaml")

	configContent := `
dialect: "postgres"
unknown_key: "should cause error"
queue:
  table: "events"
  unknown_queue_key: "should also cause error"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	_, err = LoadConfig(configPath)
	assert.Error(t, err, "expected error for unknown keys in strict mode")
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sqlspec.yaml")

	configContent := `
dialect: "postgres"
default_environment: "staging"
databases:
  primary:
    driver: "pgx"
    connection: "postgres://localhost/app"
queue:
  table: "app_event_queue"
  lease_seconds: 45
event_bus:
  backend: "hybrid"
`

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	assert.NoError(t, err)

	config, err := LoadConfig(configPath)
	assert.NoError(t, err)
	assert.Equal(t, "postgres", config.Dialect)
	assert.Equal(t, "staging", config.DefaultEnvironment)
	assert.Equal(t, "pgx", config.Databases["primary"].Driver)
	assert.Equal(t, "app_event_queue", config.Queue.Table)
	assert.Equal(t, 45, config.Queue.LeaseSeconds)
	assert.Equal(t, "hybrid", config.EventBus.Backend)

	// Defaults still apply to fields the file didn't set.
	assert.Equal(t, 512, config.ParseCache.MaxEntries)
	assert.Equal(t, 500*time.Millisecond, config.Queue.PollInterval)
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, string(DialectPostgres), config.Dialect)
	assert.Equal(t, "sqlspec_event_queue", config.Queue.Table)
	assert.Equal(t, 30, config.Queue.LeaseSeconds)
	assert.Equal(t, "durable", config.EventBus.Backend)
}

func TestValidateConfig_InvalidDialect(t *testing.T) {
	config := &Config{Dialect: "invalid_dialect"}

	err := validateConfig(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dialect")
}

func TestValidateConfig_InvalidBackend(t *testing.T) {
	config := &Config{EventBus: EventBusConfig{Backend: "carrier_pigeon"}}

	err := validateConfig(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "event_bus.backend")
}

func TestValidateConfig_NegativeLeaseSeconds(t *testing.T) {
	config := &Config{Queue: QueueConfig{LeaseSeconds: -1}}

	err := validateConfig(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lease_seconds")
}

func TestValidateConfig_DatabaseMissingDriver(t *testing.T) {
	config := &Config{Databases: map[string]Database{"primary": {}}}

	err := validateConfig(config)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "driver is required")
}

func TestGetDefaultConfig(t *testing.T) {
	config := getDefaultConfig()

	assert.Equal(t, string(DialectPostgres), config.Dialect)
	assert.Equal(t, true, config.Queue.SkipLocked)
	assert.Equal(t, 8000, config.EventBus.MaxPayloadBytes)
	assert.Equal(t, "sqlspec_events", config.EventBus.Channel)
}

func TestExpandConfigEnvVars(t *testing.T) {
	os.Setenv("SQLSPEC_TEST_DSN", "postgres://env-supplied")
	defer os.Unsetenv("SQLSPEC_TEST_DSN")

	config := &Config{
		Databases: map[string]Database{
			"primary": {Driver: "pgx", Connection: "${SQLSPEC_TEST_DSN}"},
		},
		Queue:    QueueConfig{Table: "$SQLSPEC_TEST_DSN"},
		EventBus: EventBusConfig{Channel: "static"},
	}

	expandConfigEnvVars(config)

	assert.Equal(t, "postgres://env-supplied", config.Databases["primary"].Connection)
	assert.Equal(t, "postgres://env-supplied", config.Queue.Table)
}
