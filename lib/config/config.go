// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the configuration file when no --config flag is given.
const EnvVar = "CLUB_VALIDATOR_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for a developer laptop against the mock backend.
	Development Environment = "development"
	// Staging is for kiosks pointed at the pre-production backend.
	Staging Environment = "staging"
	// Production is for kiosks at the venues.
	Production Environment = "production"
)

// Config is the complete validator configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Backend   BackendConfig   `yaml:"backend"`
	Validator ValidatorConfig `yaml:"validator"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tone      ToneConfig      `yaml:"tone"`
	WakeLock  WakeLockConfig  `yaml:"wakelock"`
	Journal   JournalConfig   `yaml:"journal"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains fields that can be overridden per environment.
type Overrides struct {
	Backend *BackendConfig `yaml:"backend,omitempty"`
	Scanner *ScannerConfig `yaml:"scanner,omitempty"`
	Tone    *ToneConfig    `yaml:"tone,omitempty"`
	Journal *JournalConfig `yaml:"journal,omitempty"`
}

// BackendConfig configures the Club API client.
type BackendConfig struct {
	// BaseURL is the API root; /scan and /validator/... are appended.
	BaseURL string `yaml:"base_url"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token"`

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the default club-validator/<version>.
	UserAgent string `yaml:"user_agent"`
}

// ValidatorConfig configures validation for one resource.
type ValidatorConfig struct {
	// ResourceID is the recurso this kiosk validates for.
	ResourceID int64 `yaml:"resource_id"`

	// Adults (1 or 2) and Minors (0 to 5) are the initial companion
	// counts; the operator changes them at runtime.
	Adults int `yaml:"adults"`
	Minors int `yaml:"minors"`

	// TokenPrefix is stripped from decoded payloads.
	TokenPrefix string `yaml:"token_prefix"`

	// MinTokenLength rejects shorter tokens locally.
	MinTokenLength int `yaml:"min_token_length"`

	// DisplayWindow is how long a result stays on screen.
	DisplayWindow time.Duration `yaml:"display_window"`

	// DedupWindow suppresses repeats of the same payload.
	DedupWindow time.Duration `yaml:"dedup_window"`
}

// ScannerConfig configures the QR reader.
type ScannerConfig struct {
	// Device is a line-oriented scanner device. Empty means the
	// keyboard-wedge input of the TUI, or standard input when
	// headless.
	Device string `yaml:"device"`

	// FrameRate is decode attempts per second.
	FrameRate int `yaml:"frame_rate"`
}

// MetricsConfig configures the dashboard poller.
type MetricsConfig struct {
	Interval time.Duration `yaml:"interval"`
	Days     int           `yaml:"days"`
}

// ToneConfig configures feedback tones.
type ToneConfig struct {
	Enabled bool `yaml:"enabled"`

	// Command receives a WAV on standard input. Empty falls back to
	// the terminal bell.
	Command []string `yaml:"command"`

	SampleRate int `yaml:"sample_rate"`
}

// WakeLockConfig configures the keep-awake inhibitor.
type WakeLockConfig struct {
	// Command is run for as long as the wake lock is held.
	Command []string `yaml:"command"`
}

// JournalConfig configures the local scan journal.
type JournalConfig struct {
	// Path is the SQLite database. Empty disables the journal.
	Path string `yaml:"path"`
}

// Default returns the defaults applied before the file is read.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".local", "state", "club-validator")

	return &Config{
		Environment: Development,
		Validator: ValidatorConfig{
			Adults:         1,
			Minors:         0,
			TokenPrefix:    "LPBME:QR:",
			MinTokenLength: 10,
			DisplayWindow:  2 * time.Second,
			DedupWindow:    3 * time.Second,
		},
		Scanner: ScannerConfig{
			FrameRate: 10,
		},
		Metrics: MetricsConfig{
			Interval: 15 * time.Second,
			Days:     7,
		},
		Tone: ToneConfig{
			Enabled:    true,
			Command:    []string{"aplay", "-q", "-"},
			SampleRate: 22050,
		},
		WakeLock: WakeLockConfig{
			Command: []string{
				"systemd-inhibit",
				"--what=idle:sleep",
				"--who=club-validator",
				"--why=Validating Club passes",
				"--mode=block",
				"sleep", "infinity",
			},
		},
		Journal: JournalConfig{
			Path: filepath.Join(stateDir, "journal.db"),
		},
	}
}

// Load loads the file named by CLUB_VALIDATOR_CONFIG. Fails when the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your validator config file, or use --config", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The result
// is not validated; call Validate after applying flag overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if o := overrides.Backend; o != nil {
		if o.BaseURL != "" {
			c.Backend.BaseURL = o.BaseURL
		}
		if o.Token != "" {
			c.Backend.Token = o.Token
		}
		if o.Timeout != 0 {
			c.Backend.Timeout = o.Timeout
		}
		if o.UserAgent != "" {
			c.Backend.UserAgent = o.UserAgent
		}
	}

	if o := overrides.Scanner; o != nil {
		if o.Device != "" {
			c.Scanner.Device = o.Device
		}
		if o.FrameRate != 0 {
			c.Scanner.FrameRate = o.FrameRate
		}
	}

	if o := overrides.Tone; o != nil {
		// Enabled is a bool, so an overriding tone section always
		// sets it.
		c.Tone.Enabled = o.Enabled
		if len(o.Command) > 0 {
			c.Tone.Command = o.Command
		}
		if o.SampleRate != 0 {
			c.Tone.SampleRate = o.SampleRate
		}
	}

	if o := overrides.Journal; o != nil && o.Path != "" {
		c.Journal.Path = o.Path
	}
}

func (c *Config) expandVariables() {
	c.Backend.BaseURL = expandVars(c.Backend.BaseURL)
	c.Backend.Token = expandVars(c.Backend.Token)
	c.Backend.UserAgent = expandVars(c.Backend.UserAgent)
	c.Scanner.Device = expandVars(c.Scanner.Device)
	c.Journal.Path = expandVars(c.Journal.Path)
	for i := range c.Tone.Command {
		c.Tone.Command[i] = expandVars(c.Tone.Command[i])
	}
	for i := range c.WakeLock.Command {
		c.WakeLock.Command[i] = expandVars(c.WakeLock.Command[i])
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if parsed, err := url.Parse(c.Backend.BaseURL); err != nil || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		errs = append(errs, fmt.Errorf("backend.base_url %q must be an http or https URL", c.Backend.BaseURL))
	} else if c.Environment == Production && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("backend.base_url must use https in production"))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must not be negative"))
	}

	v := c.Validator
	if v.ResourceID <= 0 {
		errs = append(errs, fmt.Errorf("validator.resource_id is required"))
	}
	if v.Adults < 1 || v.Adults > 2 {
		errs = append(errs, fmt.Errorf("validator.adults must be 1 or 2, got %d", v.Adults))
	}
	if v.Minors < 0 || v.Minors > 5 {
		errs = append(errs, fmt.Errorf("validator.minors must be between 0 and 5, got %d", v.Minors))
	}
	if v.MinTokenLength < 1 {
		errs = append(errs, fmt.Errorf("validator.min_token_length must be positive"))
	}
	if v.DisplayWindow <= 0 {
		errs = append(errs, fmt.Errorf("validator.display_window must be positive"))
	}
	if v.DedupWindow <= 0 {
		errs = append(errs, fmt.Errorf("validator.dedup_window must be positive"))
	}

	if c.Scanner.FrameRate < 1 || c.Scanner.FrameRate > 60 {
		errs = append(errs, fmt.Errorf("scanner.frame_rate must be between 1 and 60, got %d", c.Scanner.FrameRate))
	}
	if c.Metrics.Interval < time.Second {
		errs = append(errs, fmt.Errorf("metrics.interval must be at least 1s"))
	}
	if c.Metrics.Days < 1 || c.Metrics.Days > 31 {
		errs = append(errs, fmt.Errorf("metrics.days must be between 1 and 31, got %d", c.Metrics.Days))
	}
	if c.Tone.Enabled && c.Tone.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("tone.sample_rate must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
