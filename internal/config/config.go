// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the persisted configuration. Top-level keys share their names
// with the root command flags so flags override file values.
type Config struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Env       string `mapstructure:"env" yaml:"env"`
	Base      string `mapstructure:"base" yaml:"base,omitempty"`
	Users     string `mapstructure:"users" yaml:"users,omitempty"`
	Hostname  string `mapstructure:"hostname" yaml:"hostname"`
	Company   string `mapstructure:"company" yaml:"company"`
	Generator string `mapstructure:"generator" yaml:"generator"`
	Language  string `mapstructure:"language" yaml:"language"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose,omitempty"`

	TLS     TLSConfig     `mapstructure:"tls" yaml:"tls"`
	SSH     SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
	Secret  SecretConfig  `mapstructure:"secret" yaml:"secret"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
}

type TLSConfig struct {
	Country      string `mapstructure:"country" yaml:"country"`
	ValidityDays int    `mapstructure:"validity_days" yaml:"validity_days"`
	Bits         int    `mapstructure:"bits" yaml:"bits"`
}

type SSHConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Bits int    `mapstructure:"bits" yaml:"bits"`
}

type SecretConfig struct {
	Size     int    `mapstructure:"size" yaml:"size"`
	Alphabet string `mapstructure:"alphabet" yaml:"alphabet"`
}

// JournalConfig selects where run records are kept. An empty Dsn means
// <directory>/backup/journal.db with the sqlite driver.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Type    string `mapstructure:"type" yaml:"type"`
	Dsn     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// Generator backends.
const (
	GeneratorNative = "native"
	GeneratorExec   = "exec"
)

// Defaults returns the default value of every configuration key.
func Defaults() map[string]any {
	return map[string]any{
		"directory":         "~/.keymaster",
		"env":               "all",
		"base":              "",
		"users":             "",
		"hostname":          "localhost",
		"company":           "NA",
		"generator":         GeneratorNative,
		"language":          "en",
		"verbose":           false,
		"tls.country":       "US",
		"tls.validity_days": 9999,
		"tls.bits":          2048,
		"ssh.type":          "rsa",
		"ssh.bits":          2048,
		"secret.size":       32,
		"secret.alphabet":   "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
		"journal.enabled":   true,
		"journal.type":      "sqlite",
		"journal.dsn":       "",
	}
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch c.Generator {
	case GeneratorNative, GeneratorExec:
	default:
		return fmt.Errorf("unknown generator %q (want %s or %s)", c.Generator, GeneratorNative, GeneratorExec)
	}
	if c.Secret.Size <= 0 {
		return fmt.Errorf("secret.size must be positive, got %d", c.Secret.Size)
	}
	if c.Secret.Alphabet == "" {
		return errors.New("secret.alphabet must not be empty")
	}
	if !utf8.ValidString(c.Secret.Alphabet) {
		return errors.New("secret.alphabet must be valid UTF-8")
	}
	if c.TLS.ValidityDays <= 0 {
		return fmt.Errorf("tls.validity_days must be positive, got %d", c.TLS.ValidityDays)
	}
	return nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Keymaster")
		default:
			configDir = "/etc/keymaster"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "keymaster")
	}

	return filepath.Join(configDir, "keymaster.yaml"), nil
}

// LoadConfig merges defaults, keymaster.yaml, KEYMASTER_* environment
// variables and the flags of cmd, in increasing precedence. A non-nil
// configFile replaces the search for keymaster.yaml.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("keymaster")
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		if userConfigPath, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(userConfigPath))
		}
		if systemConfigPath, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(systemConfigPath))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, a broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("keymaster")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// WriteConfigFile stores c as YAML in the user or system config location
// and returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
