package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "WOODPECKER"
	defaultHTTPAddress    = "0.0.0.0:3001"
	defaultDatabaseDriver = DriverSQLite
	defaultDatabasePath   = "woodpecker.db"
	defaultAuthIssuer     = "woodpecker-api"
	defaultAuthAudience   = "woodpecker-trainer"
	defaultTokenTTL       = 7 * 24 * time.Hour
	defaultPuzzleStore    = "woodpecker-puzzles"
	defaultRoomBuffer     = 64
	defaultLogLevel       = "info"
	defaultLogEncoding    = "json"
	defaultAPIBaseURL     = "http://localhost:3001"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	AuthSigningSecret  string
	AuthIssuer         string
	AuthAudience       string
	AuthTokenTTL       time.Duration
	PuzzleStorePath    string
	PuzzleSeedPath     string
	CORSAllowedOrigins []string
	RoomBufferSize     int
	LogLevel           string
	LogEncoding        string
}

// ClientConfig captures runtime configuration for the terminal trainer.
type ClientConfig struct {
	APIBaseURL  string
	LogLevel    string
	LogEncoding string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.issuer", defaultAuthIssuer)
	configViper.SetDefault("auth.audience", defaultAuthAudience)
	configViper.SetDefault("auth.token_ttl", defaultTokenTTL)
	configViper.SetDefault("puzzles.store_path", defaultPuzzleStore)
	configViper.SetDefault("puzzles.seed_path", "")
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("rooms.buffer_size", defaultRoomBuffer)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.encoding", defaultLogEncoding)
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        strings.TrimSpace(configViper.GetString("http.address")),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:       strings.TrimSpace(configViper.GetString("database.path")),
		DatabaseDSN:        strings.TrimSpace(configViper.GetString("database.dsn")),
		AuthSigningSecret:  configViper.GetString("auth.signing_secret"),
		AuthIssuer:         strings.TrimSpace(configViper.GetString("auth.issuer")),
		AuthAudience:       strings.TrimSpace(configViper.GetString("auth.audience")),
		AuthTokenTTL:       configViper.GetDuration("auth.token_ttl"),
		PuzzleStorePath:    strings.TrimSpace(configViper.GetString("puzzles.store_path")),
		PuzzleSeedPath:     strings.TrimSpace(configViper.GetString("puzzles.seed_path")),
		CORSAllowedOrigins: splitList(configViper.GetStringSlice("cors.allowed_origins")),
		RoomBufferSize:     configViper.GetInt("rooms.buffer_size"),
		LogLevel:           configViper.GetString("log.level"),
		LogEncoding:        configViper.GetString("log.encoding"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadClient parses the terminal trainer configuration from viper.
func LoadClient(configViper *viper.Viper) (ClientConfig, error) {
	cfg := ClientConfig{
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(configViper.GetString("api.base_url")), "/"),
		LogLevel:    configViper.GetString("log.level"),
		LogEncoding: configViper.GetString("log.encoding"),
	}
	if cfg.APIBaseURL == "" {
		return ClientConfig{}, fmt.Errorf("api.base_url is required")
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthSigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.AuthIssuer == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if c.AuthAudience == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.DatabaseDriver)
	}
	if c.RoomBufferSize <= 0 {
		return fmt.Errorf("rooms.buffer_size must be positive")
	}
	return nil
}

// splitList flattens comma separated entries, which is how list values
// arrive from environment variables.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
