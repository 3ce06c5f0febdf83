// Package config loads label engine settings from a YAML file, LABEL_* environment variables and defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

const (
	// ConfigFileName is the base name of the config file (without extension)
	ConfigFileName = "label-engine"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "LABEL"
)

// Config is the full engine configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Label    LabelConfig    `mapstructure:"label"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Renderer RendererConfig `mapstructure:"renderer"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Port     int  `mapstructure:"port"`
	Headless bool `mapstructure:"headless"`
}

// StoreConfig holds the item database settings
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LabelConfig holds label defaults
type LabelConfig struct {
	Spec        string `mapstructure:"spec"`
	Brand       string `mapstructure:"brand"`
	PresetsFile string `mapstructure:"presets_file"`
	Font        string `mapstructure:"font"`
}

// PrinterConfig holds printer and queue settings
type PrinterConfig struct {
	Registry        string        `mapstructure:"registry"`
	Protocol        string        `mapstructure:"protocol"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	Network         []string      `mapstructure:"network"`
}

// RendererConfig holds rendering settings
type RendererConfig struct {
	Workers     int `mapstructure:"workers"`
	Supersample int `mapstructure:"supersample"`
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	switch c.Printer.Protocol {
	case printer.ProtocolESCPOS, printer.ProtocolTSPL:
	default:
		return fmt.Errorf("printer.protocol must be %q or %q, got %q", printer.ProtocolESCPOS, printer.ProtocolTSPL, c.Printer.Protocol)
	}
	if c.Printer.MaxRetries < 0 {
		return fmt.Errorf("printer.max_retries cannot be negative")
	}
	if c.Printer.MonitorInterval <= 0 {
		return fmt.Errorf("printer.monitor_interval must be positive")
	}
	if c.Renderer.Workers <= 0 {
		return fmt.Errorf("renderer.workers must be positive")
	}
	if c.Renderer.Supersample < renderer.MinSupersample || c.Renderer.Supersample > renderer.MaxSupersample {
		return fmt.Errorf("renderer.supersample must be between %d and %d, got %d",
			renderer.MinSupersample, renderer.MaxSupersample, c.Renderer.Supersample)
	}
	return nil
}

// Loader reads configuration into a Config
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with its own viper instance
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Viper exposes the underlying instance for flag binding
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configFile, or searches the usual locations when it is empty.
// A missing config file is not an error. Presets listed in label.presets_file
// are registered before the label spec is checked.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(home + "/.config/label-engine")
		}
		l.v.AddConfigPath("/etc/label-engine")
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	setDefaults(l.v)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Label.PresetsFile != "" {
		if _, err := labelformat.LoadPresets(cfg.Label.PresetsFile); err != nil {
			return nil, fmt.Errorf("failed to load presets: %w", err)
		}
	}
	if _, err := labelformat.LookupSpec(cfg.Label.Spec); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path of the file that was read, if any
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 12212)
	v.SetDefault("server.headless", false)

	v.SetDefault("store.path", "labels.db")

	v.SetDefault("label.spec", labelformat.DefaultSpecName)
	v.SetDefault("label.brand", "AUTO GEEK")
	v.SetDefault("label.presets_file", "")
	v.SetDefault("label.font", "")

	v.SetDefault("printer.registry", "printer_registry.json")
	v.SetDefault("printer.protocol", printer.ProtocolESCPOS)
	v.SetDefault("printer.max_retries", 3)
	v.SetDefault("printer.monitor_interval", 2*time.Second)
	v.SetDefault("printer.network", []string{})

	v.SetDefault("renderer.workers", 4)
	v.SetDefault("renderer.supersample", 4)
}
