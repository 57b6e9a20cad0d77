// Package config loads process settings from HESIOD_* environment variables.
// Zone contents live in the zone configuration file named by ConfigFile.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is stripped from variable names before they are matched to keys.
const EnvPrefix = "HESIOD_"

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel is any level zap understands.
	LogLevel string `koanf:"log_level" validate:"required,zap_level"`

	// ConfigFile is the zone configuration file (JSON, YAML or TOML).
	ConfigFile string `koanf:"config_file"`

	// CacheSize is the number of resolved names to memoise; 0 disables the cache.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// MaxQuestions caps answered questions per datagram.
	MaxQuestions int `koanf:"max_questions" validate:"required,gte=1,lte=256"`

	// BloomFPRate is the key filter's target false-positive rate.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`

	// BindAddress is the IP both listeners bind to.
	BindAddress string `koanf:"bind_address" validate:"required,ip"`

	// DNSPort and HTTPPort override the ports from the zone configuration when non-zero.
	DNSPort  int `koanf:"dns_port" validate:"gte=0,lte=65535"`
	HTTPPort int `koanf:"http_port" validate:"gte=0,lte=65535"`
}

// DEFAULT_APP_CONFIG holds the values used when no variable overrides them.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:          "prod",
	LogLevel:     "info",
	ConfigFile:   "/etc/hesiod/hesiod.json",
	CacheSize:    1024,
	MaxQuestions: 16,
	BloomFPRate:  0.01,
	BindAddress:  "0.0.0.0",
	DNSPort:      0,
	HTTPPort:     0,
}

// validZapLevel accepts the level names zapcore.ParseLevel does.
func validZapLevel(fl validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fl.Field().String())
	return err == nil
}

// envLoader loads HESIOD_* variables, lowercasing keys and dropping the prefix.
// It can be replaced in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "zap_level" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("zap_level", validZapLevel)
}

// Load returns defaults overlaid with the environment, validated.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
