// Package config provides node configuration loaded from environment variables.
// None of these settings change the wire protocol; they only control logging,
// the optional NATS traffic tap and metrics export.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds echo-node configuration.
type Config struct {
	// Logging. Logs never go to stdout, which carries the protocol.
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"text"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"10"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`

	// COMMS traffic tap: empty COMMSURL disables it.
	COMMSURL   string `envconfig:"COMMS_URL"`
	COMMSName  string `envconfig:"SERVICE_NAME" default:"echo-node"`
	TapSubject string `envconfig:"TAP_SUBJECT" default:"node.traffic"`

	// Prometheus textfile written when the input stream ends.
	MetricsFile string `envconfig:"METRICS_FILE"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration LoadConfig yields with no environment set.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		COMMSName:     "echo-node",
		TapSubject:    "node.traffic",
	}
}

// LoadOrDefault is LoadConfig for the node process, which must not stop over
// its ambient settings: an unparsable environment yields Default, and invalid
// values are replaced by their defaults. The returned warnings describe what
// was ignored.
func LoadOrDefault() (*Config, []error) {
	c, err := LoadConfig()
	if err != nil {
		return Default(), []error{fmt.Errorf("%s - using defaults: %w", logPrefix, err)}
	}
	return c, c.Sanitize()
}

// Validate checks values that envconfig cannot express.
func (c *Config) Validate() error {
	return errors.Join(c.check(false)...)
}

// Sanitize resets every invalid value to its default and returns one error
// per value it reset.
func (c *Config) Sanitize() []error {
	return c.check(true)
}

func (c *Config) check(reset bool) []error {
	d := Default()
	var problems []error
	fail := func(fix func(), format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf("%s - "+format, append([]interface{}{logPrefix}, args...)...))
		if reset {
			fix()
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		fail(func() { c.LogLevel = d.LogLevel }, "LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		fail(func() { c.LogFormat = d.LogFormat }, "LOG_FORMAT must be text or json (got %q)", c.LogFormat)
	}
	if c.LogFile != "" && c.LogMaxSizeMB <= 0 {
		fail(func() { c.LogMaxSizeMB = d.LogMaxSizeMB }, "LOG_MAX_SIZE_MB must be positive (got %d)", c.LogMaxSizeMB)
	}
	if c.LogMaxBackups < 0 {
		fail(func() { c.LogMaxBackups = d.LogMaxBackups }, "LOG_MAX_BACKUPS must not be negative (got %d)", c.LogMaxBackups)
	}
	if c.COMMSURL != "" && strings.TrimSpace(c.TapSubject) == "" {
		fail(func() { c.TapSubject = d.TapSubject }, "TAP_SUBJECT is required when COMMS_URL is set")
	}
	return problems
}

// TapEnabled reports whether traffic should be published to COMMS.
func (c *Config) TapEnabled() bool {
	return c.COMMSURL != ""
}
