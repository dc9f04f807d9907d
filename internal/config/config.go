// Package config loads runtime configuration for the respond demo service.
//
// Sources, highest precedence first:
//  1. Environment variables prefixed with RESPOND_
//  2. A YAML file (explicit path, or respond.yaml / respond.yml in the
//     working directory, or ~/.config/respond/config.yaml)
//  3. Built-in defaults
//
// Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/raysh454/respond/logging"
	"github.com/raysh454/respond/respond"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RESPOND_"

// Config contains the runtime options for the demo service.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Formatter FormatterConfig `yaml:"formatter" envPrefix:"FORMATTER_"`
}

type ServerConfig struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`

	// EnableH2C serves HTTP/2 over cleartext next to HTTP/1.1.
	EnableH2C bool `yaml:"enable_h2c" env:"ENABLE_H2C"`

	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`

	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN"`
}

type StorageConfig struct {
	// Path of the SQLite database file. ":memory:" keeps records in memory.
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// FormatterConfig mirrors respond.Config in a flat, file and env friendly shape.
type FormatterConfig struct {
	AddStatus         bool     `yaml:"add_status" env:"ADD_STATUS"`
	AddRecordStatus   bool     `yaml:"add_record_status" env:"ADD_RECORD_STATUS"`
	StatusField       string   `yaml:"status_field" env:"STATUS_FIELD"`
	PrettyPrint       bool     `yaml:"pretty_print" env:"PRETTY_PRINT"`
	StringQuotes      bool     `yaml:"string_quotes" env:"STRING_QUOTES"`
	NDJSONContentType string   `yaml:"ndjson_content_type" env:"NDJSON_CONTENT_TYPE"`
	JSONPCallbacks    []string `yaml:"jsonp_callbacks" env:"JSONP_CALLBACKS" envSeparator:","`
	JSONPOptional     bool     `yaml:"jsonp_optional" env:"JSONP_OPTIONAL"`
	JSONLCallbacks    []string `yaml:"jsonl_callbacks" env:"JSONL_CALLBACKS" envSeparator:","`
	JSONLOptional     bool     `yaml:"jsonl_optional" env:"JSONL_OPTIONAL"`
	JSONLContentType  string   `yaml:"jsonl_content_type" env:"JSONL_CONTENT_TYPE"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	fd := respond.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			ListenAddr:    ":8080",
			EnableH2C:     false,
			ReadTimeout:   15 * time.Second,
			AllowedOrigin: "*",
		},
		Storage: StorageConfig{
			Path: "~/.config/respond/records.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Formatter: FormatterConfig{
			AddStatus:         fd.AddStatus,
			AddRecordStatus:   fd.AddRecordStatus,
			StatusField:       fd.StatusField,
			PrettyPrint:       fd.PrettyPrint,
			StringQuotes:      fd.StringQuotes,
			NDJSONContentType: fd.NDJSONContentType,
			JSONPCallbacks:    fd.JSONP.QueryCallbacks,
			JSONPOptional:     fd.JSONP.Optional,
			JSONLCallbacks:    fd.JSONL.QueryCallbacks,
			JSONLOptional:     fd.JSONL.Optional,
			JSONLContentType:  fd.JSONL.ContentType,
		},
	}
}

// Respond converts the formatter section into a respond.Config.
func (f FormatterConfig) Respond() respond.Config {
	cfg := respond.DefaultConfig()
	cfg.AddStatus = f.AddStatus
	cfg.AddRecordStatus = f.AddRecordStatus
	cfg.StatusField = f.StatusField
	cfg.PrettyPrint = f.PrettyPrint
	cfg.StringQuotes = f.StringQuotes
	cfg.NDJSONContentType = f.NDJSONContentType
	cfg.JSONP.QueryCallbacks = append([]string(nil), f.JSONPCallbacks...)
	cfg.JSONP.Optional = f.JSONPOptional
	cfg.JSONL.QueryCallbacks = append([]string(nil), f.JSONLCallbacks...)
	cfg.JSONL.Optional = f.JSONLOptional
	cfg.JSONL.ContentType = f.JSONLContentType
	return cfg
}

// Load reads configuration from defaults, an optional YAML file and the
// process environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv is Load with an explicit environment instead of os.Environ.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(path, environ)
}

func load(path string, environ map[string]string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else {
		for _, candidate := range defaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				if err := loadFile(candidate, cfg); err != nil {
					return nil, fmt.Errorf("loading config from %s: %w", candidate, err)
				}
				break
			}
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultPaths() []string {
	paths := []string{"respond.yaml", "respond.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "respond", "config.yaml"))
	}
	return paths
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// Validate reports the first invalid option.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := c.Formatter.Respond().Validate(); err != nil {
		return fmt.Errorf("formatter: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
