package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/smartfox/smartfox/internal/lib/slogcustom"
)

// Драйверы локального хранилища
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// DefaultPath — файл конфигурации по умолчанию относительно домашнего каталога.
const DefaultPath = ".smartfox/config.yaml"

// Config — настройки клиента.
type Config struct {
	APIURL               string        `yaml:"api_url"`
	Timeout              time.Duration `yaml:"timeout"`
	AutosaveInterval     time.Duration `yaml:"autosave_interval"`
	NotificationInterval time.Duration `yaml:"notification_interval"`
	Storage              Storage       `yaml:"storage"`
	Log                  Log           `yaml:"log"`
}

// Storage — где хранится сессия.
type Storage struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Namespace string `yaml:"namespace"`
}

// Log — настройки логирования.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает настройки по умолчанию.
func Default() Config {
	host, _ := os.Hostname()
	return Config{
		APIURL:               "http://localhost:3002/api",
		Timeout:              15 * time.Second,
		AutosaveInterval:     time.Second,
		NotificationInterval: 30 * time.Second,
		Storage: Storage{
			Driver:    StorageSQLite,
			Namespace: host,
		},
		Log: Log{
			Level:  "info",
			Format: "color",
		},
	}
}

// Load читает YAML-файл поверх настроек по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse собирает настройки: значения по умолчанию, затем файл, затем переменные
// окружения, затем флаги командной строки. Каждый следующий источник важнее предыдущего.
// lookup обычно os.LookupEnv.
func Parse(name string, args []string, lookup func(string) (string, bool)) (Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	flags := Default()
	path := fs.String("config", "", "path to YAML config (default ~/"+DefaultPath+")")
	fs.StringVar(&flags.APIURL, "api-url", flags.APIURL, "base URL of the REST API")
	fs.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "timeout of one API request")
	fs.DurationVar(&flags.AutosaveInterval, "autosave-interval", flags.AutosaveInterval, "autosave period")
	fs.DurationVar(&flags.NotificationInterval, "notification-interval", flags.NotificationInterval,
		"notification polling period")
	fs.StringVar(&flags.Storage.Driver, "storage", flags.Storage.Driver, "session storage: memory, sqlite or postgres")
	fs.StringVar(&flags.Storage.DSN, "storage-dsn", flags.Storage.DSN, "sqlite file or postgres DSN")
	fs.StringVar(&flags.Log.Level, "log-level", flags.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&flags.Log.Format, "log-format", flags.Log.Format, "log format: color, text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()

	configPath := *path
	explicit := configPath != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, DefaultPath)
		}
	}
	if configPath != "" {
		err := cfg.loadFile(configPath)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "api-url":
			cfg.APIURL = flags.APIURL
		case "timeout":
			cfg.Timeout = flags.Timeout
		case "autosave-interval":
			cfg.AutosaveInterval = flags.AutosaveInterval
		case "notification-interval":
			cfg.NotificationInterval = flags.NotificationInterval
		case "storage":
			cfg.Storage.Driver = flags.Storage.Driver
		case "storage-dsn":
			cfg.Storage.DSN = flags.Storage.DSN
		case "log-level":
			cfg.Log.Level = flags.Log.Level
		case "log-format":
			cfg.Log.Format = flags.Log.Format
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет настройки.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: api_url is empty")
	}
	if c.AutosaveInterval <= 0 {
		return errors.New("config: autosave_interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}

	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: postgres storage requires dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if _, err := slogcustom.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "", slogcustom.FormatColor, slogcustom.FormatText, slogcustom.FormatJSON:
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}

	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	c.APIURL = envOr(lookup, "SMARTFOX_API_URL", c.APIURL)
	c.Storage.Driver = strings.ToLower(envOr(lookup, "SMARTFOX_STORAGE", c.Storage.Driver))
	c.Storage.DSN = envOr(lookup, "SMARTFOX_STORAGE_DSN", c.Storage.DSN)
	c.Log.Level = envOr(lookup, "SMARTFOX_LOG_LEVEL", c.Log.Level)

	if v, ok := lookup("SMARTFOX_AUTOSAVE_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SMARTFOX_AUTOSAVE_INTERVAL: %w", err)
		}
		c.AutosaveInterval = d
	}

	return nil
}

func envOr(lookup func(string) (string, bool), key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}
