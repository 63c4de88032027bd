// Package config manages application configuration from files and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/klytics/fuelkit/internal/message"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/reading"
)

// EnvPrefix prefixes every environment override, e.g. FUELKIT_TOPIC.
const EnvPrefix = "FUELKIT"

const (
	defaultBroker = "localhost"
	defaultTopic  = "car/bmw/fuel_load"
)

// Config holds the application configuration.
type Config struct {
	Limit          float64       `mapstructure:"limit"`
	BrokerAddress  string        `mapstructure:"broker_address"`
	BrokerPort     int           `mapstructure:"broker_port"`
	Topic          string        `mapstructure:"topic"`
	FilePath       string        `mapstructure:"file_path"`
	Sheet          string        `mapstructure:"sheet"`
	Column         int           `mapstructure:"column"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            int           `mapstructure:"qos"`
	Retain         bool          `mapstructure:"retain"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	History        struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"history"`
	Output struct {
		Color bool `mapstructure:"color"`
	} `mapstructure:"output"`
}

// Load reads the configuration from ~/.fuelkit/config.yaml, a .env file in the
// working directory and FUELKIT_* environment variables, in increasing order
// of precedence.
func Load() (*Config, error) {
	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read %s: %w", ConfigPath(), err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.FilePath = ExpandPath(cfg.FilePath)
	cfg.History.Path = ExpandPath(cfg.History.Path)
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("limit", message.DefaultLimit)
	v.SetDefault("broker_address", defaultBroker)
	v.SetDefault("broker_port", mqtt.DefaultPort)
	v.SetDefault("topic", defaultTopic)
	v.SetDefault("file_path", DefaultFilePath())
	v.SetDefault("sheet", "")
	v.SetDefault("column", reading.DefaultColumn)
	v.SetDefault("client_id", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("qos", 0)
	v.SetDefault("retain", false)
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(configDir(), "history.jsonl"))
	v.SetDefault("output.color", true)
}

// MQTTOptions returns the publisher options for this configuration.
func (c *Config) MQTTOptions() (mqtt.Options, error) {
	broker, err := mqtt.BrokerURL(c.BrokerAddress, c.BrokerPort)
	if err != nil {
		return mqtt.Options{}, err
	}
	if c.QoS < 0 || c.QoS > 2 {
		return mqtt.Options{}, fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return mqtt.Options{
		Broker:         broker,
		ClientID:       c.ClientID,
		Username:       c.Username,
		Password:       c.Password,
		QoS:            byte(c.QoS),
		Retain:         c.Retain,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}

// DefaultFilePath returns ~/OneDrive/Gasolina.xlsx for the invoking user.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("OneDrive", "Gasolina.xlsx")
	}
	return filepath.Join(home, "OneDrive", "Gasolina.xlsx")
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "fuelkit"
	}
	return "fuelkit-" + host
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fuelkit"
	}
	return filepath.Join(home, ".fuelkit")
}
