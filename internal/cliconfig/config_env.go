package cliconfig

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable penpal reads.
const EnvPrefix = "PENPAL_"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (PENPAL_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("base-url", env("BASE_URL"), &cfg.BaseURL)
	s.setString("login-url", env("LOGIN_URL"), &cfg.LoginURL)
	s.setString("username", env("USERNAME"), &cfg.Username)
	s.setString("password", env("PASSWORD"), &cfg.Password)
	s.setString("output-dir", env("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("file-prefix", env("FILE_PREFIX"), &cfg.FilePrefix)
	s.setString("driver", env("DRIVER"), &cfg.Driver)
	s.setString("chrome-path", env("CHROME_PATH"), &cfg.ChromePath)
	s.setString("user-agent", env("USER_AGENT"), &cfg.UserAgent)
	s.setString("speech-url", env("SPEECH_URL"), &cfg.SpeechURL)
	s.setString("speech-key", env("SPEECH_KEY"), &cfg.SpeechKey)
	s.setString("speech-lang", env("SPEECH_LANG"), &cfg.SpeechLang)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	ints := []struct {
		flag, key string
		min       int
		dst       *int
	}{
		{"start-page", "START_PAGE", 0, &cfg.StartPage},
		{"max-pages", "MAX_PAGES", 0, &cfg.MaxPages},
		{"login-attempts", "LOGIN_ATTEMPTS", 1, &cfg.LoginAttempts},
		{"page-attempts", "PAGE_ATTEMPTS", 1, &cfg.PageAttempts},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.key), i.min, i.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("backoff-initial", env("BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", env("BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("ELEMENT_TIMEOUT"), &cfg.ElementTimeout); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("delay-min", env("DELAY_MIN"), &cfg.DelayMin); err != nil {
		return err
	}
	if err := s.setDuration("delay-max", env("DELAY_MAX"), &cfg.DelayMax); err != nil {
		return err
	}

	s.setBoolFromString("headless", env("HEADLESS"), &cfg.Headless)

	return nil
}
