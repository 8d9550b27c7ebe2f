package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/storage"
	"github.com/starford/doclib/pkg/retry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Store backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Auth    AuthConfig        `yaml:"auth"`
	Remote  RemoteConfig      `yaml:"remote"`
	Library LibraryConfig     `yaml:"library"`
	Store   StoreConfig       `yaml:"store"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// The same token guards the library API and the reference store.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RemoteConfig configures the library's connection to the document store.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	// Token is sent as a Bearer token to the store; empty sends none.
	Token string `yaml:"token"`
	// FilesPrefix is the leading path segment stripped when deriving a
	// document's directory from its store path.
	FilesPrefix  string        `yaml:"files_prefix"`
	Timeout      time.Duration `yaml:"timeout"`
	// MaxBodyBytes caps store responses and every upload the library
	// accepts, over the API and MCP alike.
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Retry        retry.Config  `yaml:"retry"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxBodyBytes, validation.Min(int64(0))),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Retry,
		validation.Field(&c.Retry.MaxAttempts, validation.Min(0)),
		validation.Field(&c.Retry.Multiplier, validation.Min(0.0)),
		validation.Field(&c.Retry.Jitter, validation.Min(0.0), validation.Max(1.0)),
	)
}

// LibraryConfig holds library service settings.
type LibraryConfig struct {
	PageSize        int           `yaml:"page_size"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 = refresh on start only
	PreviewTimeout  time.Duration `yaml:"preview_timeout"`
	EventThrottle   time.Duration `yaml:"event_throttle"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(500)),
		validation.Field(&c.RefreshInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.PreviewTimeout, validation.Min(time.Duration(0))),
	)
}

// StoreConfig configures the reference document store.
type StoreConfig struct {
	HTTP           HTTPConfig       `yaml:"http"`
	Backend        string           `yaml:"backend"`
	FS             FSConfig         `yaml:"fs"`
	S3             storage.S3Config `yaml:"s3"`
	SQLite         SQLiteConfig     `yaml:"sqlite"`
	Extensions     []string         `yaml:"extensions"`
	ResyncInterval time.Duration    `yaml:"resync_interval"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendFS, BackendS3)),
		validation.Field(&c.SQLite),
		validation.Field(&c.ResyncInterval, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	switch c.Backend {
	case BackendFS:
		return c.FS.Validate()
	case BackendS3:
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Bucket, validation.Required),
			validation.Field(&c.S3.Region, validation.Required),
		)
	}
	return nil
}

// FSConfig holds the path to the store's document directory.
type FSConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the file system configuration.
func (c *FSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Remote: RemoteConfig{
			BaseURL:      "http://localhost:5000",
			FilesPrefix:  document.DefaultStripPrefix,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 32 << 20,
			Retry:        retry.DefaultConfig(),
		},
		Library: LibraryConfig{
			PageSize:       8,
			PreviewTimeout: time.Minute,
			EventThrottle:  2 * time.Second,
		},
		Store: StoreConfig{
			HTTP:       HTTPConfig{Port: 5000},
			Backend:    BackendFS,
			FS:         FSConfig{Path: "./documents"},
			SQLite:     SQLiteConfig{Path: "./doclib.db"},
			Extensions: storage.DefaultExtensions,
			S3:         storage.S3Config{Region: "us-east-1"},

			ResyncInterval: time.Minute,
		},
	}
}
