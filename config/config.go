// Package config loads the settings of the neurosim command from defaults, an
// optional YAML file, an optional .env file, and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sarchlab/neurosim/logging"
	"github.com/sarchlab/neurosim/simulation"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the YAML config file looked up in the working directory.
	FileName = "neurosim.yaml"

	// EnvFileName is the dotenv file looked up in the working directory.
	EnvFileName = ".env"
)

// Config holds the settings shared by all neurosim commands.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// MonitorPort is 0 for a random port, or a port from 1000 up.
	MonitorPort  int           `yaml:"monitor_port"`
	PollInterval time.Duration `yaml:"poll_interval"`
	OpenBrowser  bool          `yaml:"open_browser"`

	// Record names the SQLite file unit traces are written to. Empty
	// disables recording.
	Record string `yaml:"record"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		MonitorPort:  0,
		PollInterval: simulation.DefaultPollInterval,
	}
}

// Load reads the configuration from dir. Values in the environment take
// precedence over values in dir/.env, which take precedence over
// dir/neurosim.yaml.
func Load(dir string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, EnvFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	err = applyEnvOverrides(config, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}

		return dotenv[key]
	})
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)",
			c.LogLevel)
	}

	if c.MonitorPort != 0 && (c.MonitorPort < 1000 || c.MonitorPort > 65535) {
		return fmt.Errorf(
			"invalid monitor port: %d (valid: 0 for random, or 1000-65535)",
			c.MonitorPort)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v",
			c.PollInterval)
	}

	return nil
}

func applyEnvOverrides(config *Config, getenv func(string) string) error {
	if v := getenv("NEUROSIM_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}

	if v := getenv("NEUROSIM_MONITOR_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEUROSIM_MONITOR_PORT: %w", err)
		}

		config.MonitorPort = n
	}

	if v := getenv("NEUROSIM_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NEUROSIM_POLL_INTERVAL: %w", err)
		}

		config.PollInterval = d
	}

	if v := getenv("NEUROSIM_OPEN_BROWSER"); v != "" {
		config.OpenBrowser = v == "true" || v == "1"
	}

	if v := getenv("NEUROSIM_RECORD"); v != "" {
		config.Record = v
	}

	return nil
}
