package sqlspec

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// Config is the root configuration for a sqlspec deployment: which
// dialect to render for, where the databases live, and how the Event
// Queue and parse cache are tuned.
type Config struct {
	Dialect            string              `yaml:"dialect"`
	DefaultEnvironment string              `yaml:"default_environment"`
	Databases          map[string]Database `yaml:"databases"`
	ParseCache         ParseCacheConfig    `yaml:"parse_cache"`
	Queue              QueueConfig         `yaml:"queue"`
	EventBus           EventBusConfig      `yaml:"event_bus"`
}

// Database represents one named database connection target.
type Database struct {
	Driver     string `yaml:"driver"`
	Connection string `yaml:"connection"`
	Schema     string `yaml:"schema"`
	Database   string `yaml:"database"`
}

// ParseCacheConfig tunes the AST Engine's bounded LRU parse cache, keyed
// on (dialect, text) rather than raw SQL alone.
type ParseCacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// QueueConfig tunes the durable Event Queue table.
type QueueConfig struct {
	Table               string        `yaml:"table"`
	LeaseSeconds        int           `yaml:"lease_seconds"`
	RetentionSeconds    int           `yaml:"retention_seconds"`
	SelectForUpdate     bool          `yaml:"select_for_update"`
	SkipLocked          bool          `yaml:"skip_locked"`
	JSONPassthrough     bool          `yaml:"json_passthrough"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	MaxDeliveryAttempts int           `yaml:"max_delivery_attempts"`
}

// EventBusConfig selects and tunes one of the three Event Backends:
// native, durable, or hybrid.
type EventBusConfig struct {
	Backend         string `yaml:"backend"` // native | durable | hybrid
	MaxPayloadBytes int    `yaml:"max_payload_bytes"`
	Channel         string `yaml:"channel"`
}

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	// Check if config file exists
	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		// Return default configuration if file doesn't exist
		config := getDefaultConfig()
		expandConfigEnvVars(config)

		return config, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML with strict mode to detect unknown fields
	var config Config

	err = yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&config)

	// Expand environment variables
	expandConfigEnvVars(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	validDialects := map[string]bool{
		string(DialectPostgres): true,
		string(DialectMySQL):    true,
		string(DialectSQLite):   true,
		string(DialectOracle):   true,
		string(DialectDuckDB):   true,
		string(DialectSpanner):  true,
		string(DialectBigQuery): true,
		string(DialectANSI):     true,
	}
	if config.Dialect != "" && !validDialects[config.Dialect] {
		return fmt.Errorf("%w: invalid dialect '%s'", ErrConfigValidation, config.Dialect)
	}

	if config.ParseCache.MaxEntries < 0 {
		return fmt.Errorf("%w: parse_cache.max_entries must be non-negative, got %d", ErrConfigValidation, config.ParseCache.MaxEntries)
	}

	if config.Queue.LeaseSeconds < 0 {
		return fmt.Errorf("%w: queue.lease_seconds must be non-negative, got %d", ErrConfigValidation, config.Queue.LeaseSeconds)
	}

	if config.Queue.RetentionSeconds < 0 {
		return fmt.Errorf("%w: queue.retention_seconds must be non-negative, got %d", ErrConfigValidation, config.Queue.RetentionSeconds)
	}

	if config.Queue.MaxDeliveryAttempts < 0 {
		return fmt.Errorf("%w: queue.max_delivery_attempts must be non-negative, got %d", ErrConfigValidation, config.Queue.MaxDeliveryAttempts)
	}

	if config.EventBus.Backend != "" {
		validBackends := map[string]bool{"native": true, "durable": true, "hybrid": true}
		if !validBackends[config.EventBus.Backend] {
			return fmt.Errorf("%w: event_bus.backend '%s' is invalid: must be one of native, durable, hybrid", ErrConfigValidation, config.EventBus.Backend)
		}
	}

	if config.EventBus.MaxPayloadBytes < 0 {
		return fmt.Errorf("%w: event_bus.max_payload_bytes must be non-negative, got %d", ErrConfigValidation, config.EventBus.MaxPayloadBytes)
	}

	for name, db := range config.Databases {
		if db.Driver == "" {
			return fmt.Errorf("%w: databases.%s.driver is required", ErrConfigValidation, name)
		}
	}

	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Dialect:            string(DialectPostgres),
		DefaultEnvironment: "development",
		Databases:          make(map[string]Database),
		ParseCache: ParseCacheConfig{
			MaxEntries: 512,
		},
		Queue: QueueConfig{
			Table:               "sqlspec_event_queue",
			LeaseSeconds:        30,
			RetentionSeconds:    0,
			SelectForUpdate:     true,
			SkipLocked:          true,
			JSONPassthrough:     true,
			PollInterval:        500 * time.Millisecond,
			MaxDeliveryAttempts: 5,
		},
		EventBus: EventBusConfig{
			Backend:         "durable",
			MaxPayloadBytes: 8000,
			Channel:         "sqlspec_events",
		},
	}
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	if config.Dialect == "" {
		config.Dialect = string(DialectPostgres)
	}

	if config.DefaultEnvironment == "" {
		config.DefaultEnvironment = "development"
	}

	if config.Databases == nil {
		config.Databases = make(map[string]Database)
	}

	if config.ParseCache.MaxEntries == 0 {
		config.ParseCache.MaxEntries = 512
	}

	if config.Queue.Table == "" {
		config.Queue.Table = "sqlspec_event_queue"
	}

	if config.Queue.LeaseSeconds == 0 {
		config.Queue.LeaseSeconds = 30
	}

	if config.Queue.PollInterval == 0 {
		config.Queue.PollInterval = 500 * time.Millisecond
	}

	if config.Queue.MaxDeliveryAttempts == 0 {
		config.Queue.MaxDeliveryAttempts = 5
	}

	if config.EventBus.Backend == "" {
		config.EventBus.Backend = "durable"
	}

	if config.EventBus.MaxPayloadBytes == 0 {
		config.EventBus.MaxPayloadBytes = 8000
	}

	if config.EventBus.Channel == "" {
		config.EventBus.Channel = "sqlspec_events"
	}
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	re1 := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re1.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1] // Remove ${ and }
		return os.Getenv(varName)
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:] // Remove $
		return os.Getenv(varName)
	})

	return s
}

// expandConfigEnvVars recursively expands environment variables in config
func expandConfigEnvVars(config *Config) {
	for name, db := range config.Databases {
		db.Connection = expandEnvVars(db.Connection)
		db.Driver = expandEnvVars(db.Driver)
		db.Schema = expandEnvVars(db.Schema)
		db.Database = expandEnvVars(db.Database)
		config.Databases[name] = db
	}

	config.Queue.Table = expandEnvVars(config.Queue.Table)
	config.EventBus.Channel = expandEnvVars(config.EventBus.Channel)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
