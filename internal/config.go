package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Data        DataConfig        `yaml:"data"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Auth        AuthConfig        `yaml:"auth"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Audio       AudioConfig       `yaml:"audio"`
	Jobs        JobsConfig        `yaml:"jobs"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.SQLite, &c.Data, &c.Auth, &c.Providers, &c.Audio, &c.Jobs,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
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

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DataConfig locates the two key/value areas. SyncDir holds the settings
// record and may be shared between machines; LocalDir holds credentials and
// the install secret and must not be.
type DataConfig struct {
	SyncDir  string `yaml:"sync_dir"`
	LocalDir string `yaml:"local_dir"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SyncDir, validation.Required),
		validation.Field(&c.LocalDir, validation.Required),
	); err != nil {
		return err
	}
	if c.SyncDir == c.LocalDir {
		return fmt.Errorf("data: sync_dir and local_dir must differ")
	}
	return nil
}

// CredentialsConfig overrides the generated install secret when set.
type CredentialsConfig struct {
	InstallSecret string `yaml:"install_secret"`
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

// ProvidersConfig holds the vendor endpoints and the shared outbound rate limit.
type ProvidersConfig struct {
	OpenAIBaseURL     string  `yaml:"openai_base_url"`
	GeminiBaseURL     string  `yaml:"gemini_base_url"`
	ElevenLabsBaseURL string  `yaml:"elevenlabs_base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Validate validates the providers configuration.
func (c *ProvidersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenAIBaseURL, is.URL),
		validation.Field(&c.GeminiBaseURL, is.URL),
		validation.Field(&c.ElevenLabsBaseURL, is.URL),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// AudioConfig sizes the decode worker pool.
type AudioConfig struct {
	DecodeWorkers int `yaml:"decode_workers"`
}

// Validate validates the audio configuration.
func (c *AudioConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DecodeWorkers, validation.Required, validation.Min(1), validation.Max(32)),
	)
}

// JobsConfig holds the background job schedule.
type JobsConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Validate validates the jobs configuration.
func (c *JobsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Minute)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./data/quest.db",
		},
		Data: DataConfig{
			SyncDir:  "./data/sync",
			LocalDir: "./data/local",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Providers: ProvidersConfig{
			OpenAIBaseURL:     "https://api.openai.com/v1",
			GeminiBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			ElevenLabsBaseURL: "https://api.elevenlabs.io/v1",
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Audio: AudioConfig{
			DecodeWorkers: 1,
		},
		Jobs: JobsConfig{
			Interval: time.Hour,
		},
	}
}
