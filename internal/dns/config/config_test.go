package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if *cfg != DEFAULT_APP_CONFIG {
		t.Errorf("expected defaults %+v, got %+v", DEFAULT_APP_CONFIG, *cfg)
	}
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("HESIOD_ENV", "dev")
	t.Setenv("HESIOD_LOG_LEVEL", "debug")
	t.Setenv("HESIOD_CONFIG_FILE", "/tmp/hesiod.yaml")
	t.Setenv("HESIOD_CACHE_SIZE", "0")
	t.Setenv("HESIOD_MAX_QUESTIONS", "4")
	t.Setenv("HESIOD_BLOOM_FP_RATE", "0.001")
	t.Setenv("HESIOD_BIND_ADDRESS", "::1")
	t.Setenv("HESIOD_DNS_PORT", " 5353 ")
	t.Setenv("HESIOD_HTTP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	want := AppConfig{
		Env:          "dev",
		LogLevel:     "debug",
		ConfigFile:   "/tmp/hesiod.yaml",
		CacheSize:    0,
		MaxQuestions: 4,
		BloomFPRate:  0.001,
		BindAddress:  "::1",
		DNSPort:      5353,
		HTTPPort:     9090,
	}
	if *cfg != want {
		t.Errorf("expected %+v, got %+v", want, *cfg)
	}
}

func TestLoad_IgnoresOtherPrefixes(t *testing.T) {
	t.Setenv("DNS_ENV", "staging")
	t.Setenv("HESIODX_ENV", "staging")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %q", cfg.Env)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"env", "HESIOD_ENV", "staging"},
		{"log level", "HESIOD_LOG_LEVEL", "trace"},
		{"negative cache size", "HESIOD_CACHE_SIZE", "-1"},
		{"cache size not a number", "HESIOD_CACHE_SIZE", "lots"},
		{"zero max questions", "HESIOD_MAX_QUESTIONS", "0"},
		{"too many questions", "HESIOD_MAX_QUESTIONS", "1000"},
		{"fp rate zero", "HESIOD_BLOOM_FP_RATE", "0"},
		{"fp rate one", "HESIOD_BLOOM_FP_RATE", "1"},
		{"bind address", "HESIOD_BIND_ADDRESS", "localhost"},
		{"dns port range", "HESIOD_DNS_PORT", "70000"},
		{"http port not a number", "HESIOD_HTTP_PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q, got nil", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading defaults, got nil")
	}
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading env, got nil")
	}
}

func TestLoad_RegisterValidationFails(t *testing.T) {
	orig := registerValidation
	registerValidation = func(v *validator.Validate) error { return errors.New("mocked validation error") }
	defer func() { registerValidation = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked validation error") {
		t.Fatal("expected error when registering validation, got nil")
	}
}

func TestValidZapLevel(t *testing.T) {
	cases := []struct {
		input    string
		expected bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"dpanic", true},
		{"fatal", true},
		{"WARN", true},
		{"trace", false},
		{"verbose", false},
	}

	validate := validator.New()
	_ = validate.RegisterValidation("zap_level", validZapLevel)

	for _, tc := range cases {
		type S struct {
			Level string `validate:"zap_level"`
		}
		err := validate.Struct(S{Level: tc.input})
		if tc.expected && err != nil {
			t.Errorf("validZapLevel(%q) = false, want true", tc.input)
		}
		if !tc.expected && err == nil {
			t.Errorf("validZapLevel(%q) = true, want false", tc.input)
		}
	}
}

func TestDefaultLoader_InvalidDefault_ValidationFails(t *testing.T) {
	orig := DEFAULT_APP_CONFIG
	defer func() { DEFAULT_APP_CONFIG = orig }()

	DEFAULT_APP_CONFIG.MaxQuestions = 0

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for invalid defaults, got nil")
	}
}
