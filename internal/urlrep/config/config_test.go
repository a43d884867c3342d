package config

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/etc/rr-urlrep/policy.yaml", cfg.Policy.Path)
	assert.Empty(t, cfg.Policy.DB)
	assert.InDelta(t, 0.001, cfg.Policy.BloomFPRate, 1e-12)
	assert.Equal(t, 4, cfg.Check.Workers)
	assert.Equal(t, "text", cfg.Check.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("URLREP_ENV", "dev")
	t.Setenv("URLREP_LOG_LEVEL", "debug")
	t.Setenv("URLREP_POLICY", "/tmp/policy.yaml")
	t.Setenv("URLREP_POLICY_DB", "/tmp/blocked.db")
	t.Setenv("URLREP_BLOOM_FP_RATE", "0.01")
	t.Setenv("URLREP_WORKERS", "16")
	t.Setenv("URLREP_FORMAT", "json")
	t.Setenv("URLREP_WATCH_DEBOUNCE", "1s")
	t.Setenv("URLREP_UNKNOWN", "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/policy.yaml", cfg.Policy.Path)
	assert.Equal(t, "/tmp/blocked.db", cfg.Policy.DB)
	assert.InDelta(t, 0.01, cfg.Policy.BloomFPRate, 1e-12)
	assert.Equal(t, 16, cfg.Check.Workers)
	assert.Equal(t, "json", cfg.Check.Format)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"env", "URLREP_ENV", "staging"},
		{"log level", "URLREP_LOG_LEVEL", "trace"},
		{"empty policy", "URLREP_POLICY", ""},
		{"directory policy", "URLREP_POLICY", "/etc/rr-urlrep/"},
		{"fp rate too high", "URLREP_BLOOM_FP_RATE", "1.5"},
		{"fp rate zero", "URLREP_BLOOM_FP_RATE", "0"},
		{"workers zero", "URLREP_WORKERS", "0"},
		{"workers nan", "URLREP_WORKERS", "many"},
		{"format", "URLREP_FORMAT", "xml"},
		{"debounce too short", "URLREP_WATCH_DEBOUNCE", "1ms"},
		{"debounce garbage", "URLREP_WATCH_DEBOUNCE", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mocked error")
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mocked error")
}

func TestLoad_RegisterValidationFails(t *testing.T) {
	orig := registerValidation
	registerValidation = func(v *validator.Validate) error { return errors.New("mocked validation error") }
	defer func() { registerValidation = orig }()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mocked validation error")
}

func TestDefaultLoader_InvalidDefault_ValidationFails(t *testing.T) {
	orig := DEFAULT_APP_CONFIG
	defer func() { DEFAULT_APP_CONFIG = orig }()

	DEFAULT_APP_CONFIG.Check.Workers = 0
	_, err := Load()
	assert.Error(t, err)
}

func TestValidPolicyFile(t *testing.T) {
	cases := []struct {
		input    string
		expected bool
	}{
		{"/etc/rr-urlrep/policy.yaml", true},
		{"policy.yml", true},
		{"./conf/policy.yaml", true},
		{"", false},
		{"   ", false},
		{"/etc/rr-urlrep/", false},
		{"bad\x00name", false},
	}

	validate := validator.New()
	require.NoError(t, validate.RegisterValidation("policy_file", validPolicyFile))

	type S struct {
		Path string `validate:"policy_file"`
	}
	for _, tc := range cases {
		err := validate.Struct(S{Path: tc.input})
		assert.Equal(t, tc.expected, err == nil, "validPolicyFile(%q)", tc.input)
	}
}
