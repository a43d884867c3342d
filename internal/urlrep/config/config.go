package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "URLREP_"

// AppConfig holds runtime settings for the urlrep CLI. The reputation policy
// itself lives in the YAML file named by Policy.Path.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log LoggingConfig `koanf:"log" validate:"required"`

	Policy PolicyConfig `koanf:"policy" validate:"required"`

	Check CheckConfig `koanf:"check" validate:"required"`

	Watch WatchConfig `koanf:"watch" validate:"required"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// PolicyConfig locates the policy document and tunes how it is compiled.
type PolicyConfig struct {
	// Path is the YAML policy file.
	Path string `koanf:"path" validate:"required,policy_file"`

	// DB overrides the policy's domain_db snapshot when set.
	DB string `koanf:"db" validate:"omitempty,policy_file"`

	// BloomFPRate is the false-positive target of the domain set prefilters.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`
}

// CheckConfig tunes batch validation.
type CheckConfig struct {
	// Workers bounds concurrent validations for `check --file`.
	Workers int `koanf:"workers" validate:"gte=1,lte=256"`

	// Format is the verdict output format.
	Format string `koanf:"format" validate:"required,oneof=text json"`
}

// WatchConfig tunes policy hot reload.
type WatchConfig struct {
	// Debounce coalesces bursts of file events into one reload.
	Debounce time.Duration `koanf:"debounce" validate:"gte=10ms,lte=1m"`
}

// DEFAULT_APP_CONFIG defines the default settings: production logging at info,
// the system policy path, four workers and text output.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{Level: "info"},
	Policy: PolicyConfig{
		Path:        "/etc/rr-urlrep/policy.yaml",
		BloomFPRate: 0.001,
	},
	Check: CheckConfig{
		Workers: 4,
		Format:  "text",
	},
	Watch: WatchConfig{Debounce: 250 * time.Millisecond},
}

// envKeys maps environment variable names (without prefix) to config keys.
// Variables not listed here are ignored.
var envKeys = map[string]string{
	"ENV":            "env",
	"LOG_LEVEL":      "log.level",
	"POLICY":         "policy.path",
	"POLICY_DB":      "policy.db",
	"BLOOM_FP_RATE":  "policy.bloom_fp_rate",
	"WORKERS":        "check.workers",
	"FORMAT":         "check.format",
	"WATCH_DEBOUNCE": "watch.debounce",
}

// validPolicyFile accepts paths that end in a file name: not empty, not a
// directory path and free of NUL bytes. Existence is checked when the file is read.
func validPolicyFile(fl validator.FieldLevel) bool {
	p := strings.TrimSpace(fl.Field().String())
	if p == "" || strings.ContainsRune(p, 0) {
		return false
	}
	return !strings.HasSuffix(p, "/")
}

// envLoader loads environment variables with the prefix "URLREP_".
// It maps known keys onto their nested config paths and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[strings.TrimPrefix(key, EnvPrefix)]
			if !ok {
				return "", nil
			}
			return path, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into k using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "policy_file" rule with v.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("policy_file", validPolicyFile)
}

// Load applies defaults, then environment overrides, and validates the result.
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
