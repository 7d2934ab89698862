package cliconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BaseURL        string            `toml:"base_url"`
	LoginURL       string            `toml:"login_url"`
	Username       string            `toml:"username"`
	Password       string            `toml:"password"`
	StartPage      int               `toml:"start_page"`
	MaxPages       int               `toml:"max_pages"`
	OutputDir      string            `toml:"output_dir"`
	FilePrefix     string            `toml:"file_prefix"`
	Driver         string            `toml:"driver"`
	Headless       *bool             `toml:"headless"`
	ChromePath     string            `toml:"chrome_path"`
	UserAgent      string            `toml:"user_agent"`
	LoginAttempts  int               `toml:"login_attempts"`
	PageAttempts   int               `toml:"page_attempts"`
	BackoffInitial string            `toml:"backoff_initial"`
	BackoffMax     string            `toml:"backoff_max"`
	ElementTimeout string            `toml:"element_timeout"`
	HTTPTimeout    string            `toml:"http_timeout"`
	DelayMin       string            `toml:"delay_min"`
	DelayMax       string            `toml:"delay_max"`
	SpeechURL      string            `toml:"speech_url"`
	SpeechKey      string            `toml:"speech_key"`
	SpeechLang     string            `toml:"speech_lang"`
	LogFile        string            `toml:"log_file"`
	LogLevel       string            `toml:"log_level"`
	Selectors      map[string]string `toml:"selectors"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// Unknown keys are rejected.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.penpal/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".penpal", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("login-url", fc.LoginURL, &cfg.LoginURL)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("file-prefix", fc.FilePrefix, &cfg.FilePrefix)
	s.setString("driver", fc.Driver, &cfg.Driver)
	s.setString("chrome-path", fc.ChromePath, &cfg.ChromePath)
	s.setString("user-agent", fc.UserAgent, &cfg.UserAgent)
	s.setString("speech-url", fc.SpeechURL, &cfg.SpeechURL)
	s.setString("speech-key", fc.SpeechKey, &cfg.SpeechKey)
	s.setString("speech-lang", fc.SpeechLang, &cfg.SpeechLang)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("start-page", fc.StartPage, &cfg.StartPage)
	s.setInt("max-pages", fc.MaxPages, &cfg.MaxPages)
	s.setInt("login-attempts", fc.LoginAttempts, &cfg.LoginAttempts)
	s.setInt("page-attempts", fc.PageAttempts, &cfg.PageAttempts)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"backoff-initial", fc.BackoffInitial, &cfg.BackoffInitial},
		{"backoff-max", fc.BackoffMax, &cfg.BackoffMax},
		{"timeout", fc.ElementTimeout, &cfg.ElementTimeout},
		{"http-timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"delay-min", fc.DelayMin, &cfg.DelayMin},
		{"delay-max", fc.DelayMax, &cfg.DelayMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("headless", fc.Headless, &cfg.Headless)

	if len(fc.Selectors) > 0 {
		if cfg.Selectors == nil {
			cfg.Selectors = make(map[string]string, len(fc.Selectors))
		}
		for k, v := range fc.Selectors {
			cfg.Selectors[k] = v
		}
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
