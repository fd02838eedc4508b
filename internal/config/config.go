// Package config loads settings from flags, environment, .env and configs/config.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CO2"

var ErrInvalidConfig = errors.New("invalid config")

type MQTT struct {
	Broker   string // empty disables MQTT
	Topic    string
	ClientID string
}

type Accessory struct {
	Name         string
	Manufacturer string
	Model        string
	SerialNumber string
}

type Config struct {
	Endpoint          string
	Port              string
	RefreshInterval   time.Duration
	FetchTimeout      time.Duration // 0 keeps the transport default
	ManualRefreshRate time.Duration // 0 disables throttling
	LogLevel          string
	DBPath            string
	EventRetention    time.Duration // 0 keeps events forever
	SimulatorEnabled  bool
	Accessory         Accessory
	MQTT              MQTT
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("refresh.interval", 10*time.Second)
	v.SetDefault("refresh.manual_rate", 5*time.Second)
	v.SetDefault("fetch.timeout", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "co2.db")
	v.SetDefault("events.retention", 7*24*time.Hour)
	v.SetDefault("simulator.enabled", false)
	v.SetDefault("accessory.name", "CO2 Sensor")
	v.SetDefault("accessory.manufacturer", "Default-Manufacturer")
	v.SetDefault("accessory.model", "Default-Model")
	v.SetDefault("accessory.serial_number", "Default-Serial")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "co2-proxy")
	v.SetDefault("mqtt.client_id", "co2-proxy")
}

func newFlagSet() *pflag.FlagSet {
	set := pflag.NewFlagSet("co2-proxy", pflag.ContinueOnError)
	set.String("config", "", "path to a config file (default configs/config.yml)")
	set.String("env-file", ".env", "dotenv file loaded before reading the environment")
	set.String("endpoint", "", "upstream sensor URL")
	set.String("port", "8080", "HTTP listen port or host:port")
	set.String("log-level", "info", "debug, info, warn or error")
	return set
}

// Load resolves settings with priority flags > env > config file > defaults.
// args excludes the program name.
func Load(args []string) (Config, error) {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{"endpoint": "endpoint", "port": "port", "log.level": "log-level"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Config{}, err
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return Config{}, err
	}

	return Config{
		Endpoint:          strings.TrimSpace(v.GetString("endpoint")),
		Port:              v.GetString("port"),
		RefreshInterval:   v.GetDuration("refresh.interval"),
		FetchTimeout:      v.GetDuration("fetch.timeout"),
		ManualRefreshRate: v.GetDuration("refresh.manual_rate"),
		LogLevel:          strings.ToLower(v.GetString("log.level")),
		DBPath:            v.GetString("db.path"),
		EventRetention:    v.GetDuration("events.retention"),
		SimulatorEnabled:  v.GetBool("simulator.enabled"),
		Accessory: Accessory{
			Name:         v.GetString("accessory.name"),
			Manufacturer: v.GetString("accessory.manufacturer"),
			Model:        v.GetString("accessory.model"),
			SerialNumber: v.GetString("accessory.serial_number"),
		},
		MQTT: MQTT{
			Broker:   v.GetString("mqtt.broker"),
			Topic:    v.GetString("mqtt.topic"),
			ClientID: v.GetString("mqtt.client_id"),
		},
	}, nil
}

// readConfigFile reads --config when given, otherwise configs/config.yml if
// it exists.
func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath("configs")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate reports the first setting that would stop the proxy from running.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.Endpoint)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh.interval must be positive", ErrInvalidConfig)
	}
	if c.FetchTimeout < 0 || c.ManualRefreshRate < 0 || c.EventRetention < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}
