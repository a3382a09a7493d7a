package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Storage drivers accepted by [StorageConfig].
const (
	DriverSQLite3 = "sqlite3" // mattn/go-sqlite3 (cgo)
	DriverSQLite  = "sqlite"  // modernc.org/sqlite (pure Go)
	DriverFile    = "file"
	DriverMemory  = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Storage     StorageConfig     `toml:"storage"`
	Remote      RemoteConfig      `toml:"remote"`
	YouTube     YouTubeConfig     `toml:"youtube"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// StorageConfig selects the local cache backend.
type StorageConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	MaxBytes int64  `toml:"max_bytes"` // file driver quota, 0 disables
}

// RemoteConfig points the client at the backend API.
type RemoteConfig struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request remote timeout, defaulting to ten seconds.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// YouTubeConfig contains video metadata lookup settings.
type YouTubeConfig struct {
	OEmbedURL    string  `toml:"oembed_url"`
	ThumbnailURL string  `toml:"thumbnail_url"`
	Workers      int     `toml:"workers"`
	RateLimit    float64 `toml:"rate_limit"`
}

// DatabaseConfig contains backend database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains backend HTTP server settings.
type ServerConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	PublicURL           string `toml:"public_url"`
	JWTSecret           string `toml:"jwt_secret"`
	TokenTTLHours       int    `toml:"token_ttl_hours"`
	MagicLinkTTLMinutes int    `toml:"magic_link_ttl_minutes"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// TokenTTL returns the session token lifetime.
func (s ServerConfig) TokenTTL() time.Duration {
	if s.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.TokenTTLHours) * time.Hour
}

// MagicLinkTTL returns how long an emailed sign-in link stays valid.
func (s ServerConfig) MagicLinkTTL() time.Duration {
	if s.MagicLinkTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.MagicLinkTTLMinutes) * time.Minute
}

// CredentialsConfig contains OAuth provider credentials.
type CredentialsConfig struct {
	GitHub GitHubConfig `toml:"github"`
}

// GitHubConfig contains GitHub OAuth app credentials.
type GitHubConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether real (non-placeholder) credentials are present.
func (g GitHubConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.ClientID != "your_github_client_id"
}

// Validate checks driver names and the fields the client needs.
//
// Server-only fields are checked by [Config.ValidateServer].
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite3, DriverSQLite, DriverFile, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.Driver != DriverMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required for driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Remote.Enabled && c.Remote.URL == "" {
		return fmt.Errorf("%w: remote.url is required when remote is enabled", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ValidateServer checks the settings required by the backend API.
func (c *Config) ValidateServer() error {
	switch c.Database.Driver {
	case DriverSQLite3, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("%w: server.jwt_secret is required", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path with owner-only permissions.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
