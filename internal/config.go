package internal

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quill/internal/catalog"
)

// Auth modes accepted in auth.mode.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config is the content of the quill YAML file. The CLI reads only Notes;
// serve and mcp read every section.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Notes  NotesConfig       `yaml:"notes"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate checks every section and names the failing one.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"notes", &c.Notes},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig configures the serve process.
type ApplicationConfig struct {
	// LogLevel applies to the JSON logs of serve and mcp. CLI commands log at
	// WARN, or DEBUG with --verbose.
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig is the listener of the notes API.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address is the listen address on every interface.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig locates the note tree. Every non-hidden directory under Root
// is a category; --root on the command line overrides it.
type NotesConfig struct {
	Root string `yaml:"root"`
}

func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required, validation.Length(1, catalog.MaxPathLen)),
	)
}

// SQLiteConfig locates the search index. The index only mirrors the note
// tree and is re-synced on every refresh, so deleting the file loses nothing.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig guards the notes API. Mode "disabled" (or empty) leaves it
// open, which suits a single user on localhost; "token" requires
// "Authorization: Bearer <Token>" on every /api request.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate fills an empty Mode with "disabled" before checking.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken,
			validation.Required.Error("token is empty while mode is token"))),
	)
}

// AuthEnabled reports whether API requests need a bearer token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig serves ./notes on :8080 with the index next to it and no
// authentication.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP:     HTTPConfig{Port: 8080},
		},
		Notes:  NotesConfig{Root: "./notes"},
		SQLite: SQLiteConfig{Path: "./quill.db"},
		Auth:   AuthConfig{Mode: AuthModeDisabled},
	}
}
