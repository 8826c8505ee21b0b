package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultProtocol and DefaultHost point at the document feed
	// endpoint when neither flags, environment, nor the config file
	// say otherwise.
	DefaultProtocol = "https"
	DefaultHost     = "docs.google.com"
)

// Config holds all configuration for docsup. Values are resolved in
// order: CLI flags (applied by the caller), environment variables,
// config file, built-in defaults.
type Config struct {
	// Account credentials. A token takes precedence over username and
	// password when both are present.
	Username string `env:"DOCSUP_USERNAME" yaml:"username"`
	Password string `env:"DOCSUP_PASSWORD" yaml:"password"`
	Token    string `env:"DOCSUP_TOKEN" yaml:"token"`

	// Endpoint of the document feed.
	Protocol string `env:"DOCSUP_PROTOCOL" yaml:"protocol"`
	Host     string `env:"DOCSUP_HOST" yaml:"host"`

	// Default conflict policy: "", "add-all", "skip-all" or
	// "replace-all". Empty means prompt interactively.
	Conflict string `env:"DOCSUP_CONFLICT" yaml:"conflict"`

	// Environment controls log format.
	Environment string `env:"DOCSUP_ENVIRONMENT" yaml:"environment"`
}

// DefaultPath returns the default config file location
// (~/.docsup/config.yaml). Empty when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docsup", "config.yaml")
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from the environment and an optional YAML
// config file. A .env file in the working directory is loaded first if
// present. path selects the config file; when empty, the default
// location is used if it exists, and a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		file, err := loadFile(path)
		if err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			cfg.merge(file)
		}
	}

	if cfg.Protocol == "" {
		cfg.Protocol = DefaultProtocol
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BaseURL assembles the feed endpoint from protocol and host.
func (c *Config) BaseURL() string {
	return c.Protocol + "://" + c.Host
}

// loadFile parses a YAML config file.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	file := &Config{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return file, nil
}

// merge fills empty fields of c from file. Environment variables
// already parsed into c win over the file.
func (c *Config) merge(file *Config) {
	if c.Username == "" {
		c.Username = file.Username
	}
	if c.Password == "" {
		c.Password = file.Password
	}
	if c.Token == "" {
		c.Token = file.Token
	}
	if c.Protocol == "" {
		c.Protocol = file.Protocol
	}
	if c.Host == "" {
		c.Host = file.Host
	}
	if c.Conflict == "" {
		c.Conflict = file.Conflict
	}
	if c.Environment == "" {
		c.Environment = file.Environment
	}
}

func (c *Config) validate() error {
	switch c.Conflict {
	case "", "add-all", "skip-all", "replace-all":
	default:
		return fmt.Errorf("invalid conflict policy %q (want add-all, skip-all or replace-all)", c.Conflict)
	}

	return nil
}
