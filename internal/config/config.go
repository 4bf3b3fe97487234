// Package config manages configuration for the lambdahost container handler.
// It uses Viper for unified configuration management from files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the recognized configuration surface of the container handler.
// Every field can be set from a lambdahost.yaml file or a LAMBDAHOST_ prefixed environment variable.
type Config struct {
	Environment constants.Environment `mapstructure:"environment" yaml:"environment" validate:"required,oneof=production development cli"`
	LogLevel    string                `mapstructure:"log_level" yaml:"log_level"`

	// BasePath is removed from the front of incoming paths when StripBasePath is set,
	// e.g. a custom domain mapping "/api" in front of the function.
	BasePath      string `mapstructure:"base_path" yaml:"base_path" validate:"omitempty,startswith=/"`
	StripBasePath bool   `mapstructure:"strip_base_path" yaml:"strip_base_path"`
	// StripStage removes the leading "/{stage}" segment of REST API paths.
	StripStage bool `mapstructure:"strip_stage" yaml:"strip_stage"`

	// BinaryMediaTypes forces base64 response bodies for matching content types.
	// Entries may use "type/*" or "*/*" wildcards.
	BinaryMediaTypes []string `mapstructure:"binary_media_types" yaml:"binary_media_types" validate:"dive,contains=/"`

	DisableExceptionMapper bool `mapstructure:"disable_exception_mapper" yaml:"disable_exception_mapper"`
	DefaultErrorStatus     int  `mapstructure:"default_error_status" yaml:"default_error_status" validate:"gte=400,lt=600"`

	AsyncInit        bool          `mapstructure:"async_init" yaml:"async_init"`
	AsyncInitTimeout time.Duration `mapstructure:"async_init_timeout" yaml:"async_init_timeout" validate:"gt=0"`
	AsyncTimeout     time.Duration `mapstructure:"async_timeout" yaml:"async_timeout" validate:"gt=0"`

	ValidatePaths     bool `mapstructure:"validate_paths" yaml:"validate_paths"`
	InvalidPathStatus int  `mapstructure:"invalid_path_status" yaml:"invalid_path_status" validate:"gte=400,lt=600"`

	MaxResponseBytes int `mapstructure:"max_response_bytes" yaml:"max_response_bytes" validate:"gt=0"`
}

var validate = validator.New()

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Environment:        constants.Production,
		LogLevel:           "INFO",
		DefaultErrorStatus: constants.DefaultErrorStatus,
		AsyncInitTimeout:   constants.DefaultAsyncInitTimeout,
		AsyncTimeout:       constants.DefaultAsyncTimeout,
		ValidatePaths:      true,
		InvalidPathStatus:  constants.DefaultInvalidPathStatus,
		MaxResponseBytes:   constants.DefaultMaxResponseBytes,
	}
}

// Load loads the configuration using Viper.
// Values come from defaults, then an optional lambdahost.yaml in the working directory or
// LAMBDA_TASK_ROOT, then LAMBDAHOST_ environment variables, which take precedence.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName(strings.TrimSuffix(constants.ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if root := os.Getenv("LAMBDA_TASK_ROOT"); root != "" {
		v.AddConfigPath(root)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFile loads the configuration from an explicit YAML file, still honoring environment overrides.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error loading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// MustLoad loads configuration and exits on error.
// Suitable for function startup where configuration errors should be fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Validate checks the struct tags and normalizes list values.
func (c *Config) Validate() error {
	c.BinaryMediaTypes = normalizeMediaTypes(c.BinaryMediaTypes)
	c.BasePath = normalizeBasePath(c.BasePath)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// GetLogLevel returns the slog.Level from the string configuration.
// Defaults to INFO if the level string is invalid.
func (c *Config) GetLogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Helper functions

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("environment", string(d.Environment))
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("base_path", "")
	v.SetDefault("strip_base_path", false)
	v.SetDefault("strip_stage", false)
	v.SetDefault("binary_media_types", []string{})
	v.SetDefault("disable_exception_mapper", false)
	v.SetDefault("default_error_status", d.DefaultErrorStatus)
	v.SetDefault("async_init", false)
	v.SetDefault("async_init_timeout", d.AsyncInitTimeout.String())
	v.SetDefault("async_timeout", d.AsyncTimeout.String())
	v.SetDefault("validate_paths", d.ValidatePaths)
	v.SetDefault("invalid_path_status", d.InvalidPathStatus)
	v.SetDefault("max_response_bytes", d.MaxResponseBytes)
}

func bindEnvVars(v *viper.Viper) {
	envVars := []string{
		"ASYNC_INIT",
		"ASYNC_INIT_TIMEOUT",
		"ASYNC_TIMEOUT",
		"BASE_PATH",
		"BINARY_MEDIA_TYPES",
		"DEFAULT_ERROR_STATUS",
		"DISABLE_EXCEPTION_MAPPER",
		"ENVIRONMENT",
		"INVALID_PATH_STATUS",
		"LOG_LEVEL",
		"MAX_RESPONSE_BYTES",
		"STRIP_BASE_PATH",
		"STRIP_STAGE",
		"VALIDATE_PATHS",
	}

	for _, envVar := range envVars {
		// Convert to lowercase to match mapstructure tags (keep underscores)
		_ = v.BindEnv(strings.ToLower(envVar), constants.EnvPrefix+"_"+envVar)
	}
}

// normalizeMediaTypes lowercases, trims and drops empty media type entries.
func normalizeMediaTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath trims whitespace and a trailing slash; "/" becomes empty.
func normalizeBasePath(basePath string) string {
	basePath = strings.TrimRight(strings.TrimSpace(basePath), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return basePath
}
