package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bft-labs/penpal/internal/adapters/speech"
	"github.com/bft-labs/penpal/internal/app"
	"github.com/bft-labs/penpal/internal/domain"
)

// Browser drivers accepted by --driver.
const (
	DriverChrome = "chrome"
	DriverStatic = "static"
)

// Config holds CLI configuration for penpal.
type Config struct {
	BaseURL  string
	LoginURL string
	Username string
	Password string

	StartPage int
	MaxPages  int

	OutputDir  string
	FilePrefix string

	Driver     string
	Headless   bool
	ChromePath string
	UserAgent  string

	LoginAttempts  int
	PageAttempts   int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	ElementTimeout time.Duration
	HTTPTimeout    time.Duration
	DelayMin       time.Duration
	DelayMax       time.Duration

	SpeechURL  string
	SpeechKey  string
	SpeechLang string

	LogFile  string
	LogLevel string

	// Selectors overrides individual CSS selectors by key.
	Selectors map[string]string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		OutputDir:      "prisoner_data",
		FilePrefix:     "prisoner_data",
		Driver:         DriverChrome,
		LoginAttempts:  app.DefaultLoginAttempts,
		PageAttempts:   app.DefaultPageAttempts,
		BackoffInitial: app.DefaultBackoffInitial,
		BackoffMax:     app.DefaultBackoffMax,
		ElementTimeout: app.DefaultElementTimeout,
		HTTPTimeout:    15 * time.Second,
		DelayMin:       app.DefaultDelayMin,
		DelayMax:       app.DefaultDelayMax,
		SpeechURL:      speech.DefaultEndpoint,
		SpeechLang:     "en-US",
		LogFile:        "app.log",
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors. Every failure wraps
// domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"base-url", c.BaseURL},
		{"login-url", c.LoginURL},
		{"username", c.Username},
		{"password", c.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidConfig, r.name)
		}
	}

	for name, raw := range map[string]string{"base-url": c.BaseURL, "login-url": c.LoginURL, "speech-url": c.SpeechURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q is not an absolute URL", domain.ErrInvalidConfig, name, raw)
		}
	}

	if c.Driver != DriverChrome && c.Driver != DriverStatic {
		return fmt.Errorf("%w: driver must be %q or %q, got %q", domain.ErrInvalidConfig, DriverChrome, DriverStatic, c.Driver)
	}
	if c.OutputDir == "" || c.FilePrefix == "" {
		return fmt.Errorf("%w: output-dir and file-prefix must not be empty", domain.ErrInvalidConfig)
	}
	if c.StartPage < 0 || c.MaxPages < 0 {
		return fmt.Errorf("%w: start-page and max-pages must not be negative", domain.ErrInvalidConfig)
	}
	if c.LoginAttempts <= 0 {
		return fmt.Errorf("%w: login attempts must be positive", domain.ErrInvalidConfig)
	}
	if c.PageAttempts <= 0 {
		return fmt.Errorf("%w: page attempts must be positive", domain.ErrInvalidConfig)
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("%w: backoff must be positive with max >= initial", domain.ErrInvalidConfig)
	}
	if c.ElementTimeout <= 0 {
		return fmt.Errorf("%w: element timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("%w: delay-min %s exceeds delay-max %s", domain.ErrInvalidConfig, c.DelayMin, c.DelayMax)
	}

	sel := app.DefaultSelectors()
	if err := sel.Apply(c.Selectors); err != nil {
		return err
	}
	return nil
}

// Credential returns the login credential.
func (c *Config) Credential() domain.Credential {
	return domain.Credential{Username: c.Username, Password: c.Password}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.Password != "" {
		c.Password = "*****"
	}
	if c.SpeechKey != "" {
		c.SpeechKey = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Values below min are rejected. Used for environment variables that come as
// strings, where an explicit 0 is a real value.
func (s *configSetter) setIntFromString(flag, value string, min int, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < min {
		return fmt.Errorf("%w: %s must be at least %d, got %d", domain.ErrInvalidConfig, flag, min, i)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
