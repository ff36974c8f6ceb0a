package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Data   DataConfig        `yaml:"data"`
	File   FileConfig        `yaml:"file"`
	Auth   AuthConfig        `yaml:"auth"`
	Prompt PromptConfig      `yaml:"prompt"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if err := c.File.Validate(); err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if err := c.Prompt.Validate(); err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
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

// DataConfig locates the durable cache and the settings file. Ephemeral keeps
// both in memory, for kiosk or test runs that must leave nothing behind.
type DataConfig struct {
	Dir          string `yaml:"dir"`
	CacheFile    string `yaml:"cache_file"`
	SettingsFile string `yaml:"settings_file"`
	Ephemeral    bool   `yaml:"ephemeral"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Ephemeral {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.CacheFile, validation.Required),
		validation.Field(&c.SettingsFile, validation.Required),
	)
}

// CachePath returns the SQLite cache location.
func (c *DataConfig) CachePath() string { return c.resolve(c.CacheFile) }

// SettingsPath returns the settings file location.
func (c *DataConfig) SettingsPath() string { return c.resolve(c.SettingsFile) }

func (c *DataConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// FileConfig controls handle-based file access. With Enabled false the
// session runs cache-only and every file action reports the capability as
// unavailable.
type FileConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Root     string        `yaml:"root"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the file configuration.
func (c *FileConfig) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	}
	if c.Enabled {
		rules = append(rules, validation.Field(&c.Root, validation.Required))
	}
	return validation.ValidateStruct(c, rules...)
}

// PromptConfig throttles password submissions. SubmitRate is attempts per
// second; zero disables the limit.
type PromptConfig struct {
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// Validate validates the prompt configuration.
func (c *PromptConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SubmitRate, validation.Min(0.0)),
		validation.Field(&c.SubmitBurst, validation.When(c.SubmitRate > 0, validation.Required, validation.Min(1))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir:          "./data",
			CacheFile:    "cache.db",
			SettingsFile: "settings.toml",
		},
		File: FileConfig{
			Enabled:  true,
			Root:     "./journals",
			Debounce: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Prompt: PromptConfig{
			SubmitRate:  1,
			SubmitBurst: 5,
		},
	}
}
