package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is where qcman looks for its config, relative
	// to the working directory.
	DefaultConfigPath = ".qcman/config.yaml"

	// EnvPrefix prefixes environment variable overrides, e.g.
	// QCMAN_STORE_DIR.
	EnvPrefix = "QCMAN"
)

// LoadError says which config file failed and at which step.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads the YAML config through viper with environment
// variable support.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// LoadConfig reads path (DefaultConfigPath when empty) on top of the
// built-in defaults, applies QCMAN_* environment overrides, and
// validates the result.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	fail := func(message string, err error) (*Config, error) {
		return nil, &LoadError{Path: path, Message: message, Err: err}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fail("config file not found", err)
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fail("failed to read config file", err)
	}

	cfg := NewConfig()
	if err := l.v.Unmarshal(cfg, viperDecodeHook); err != nil {
		return fail("failed to parse config file", err)
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return fail("configuration validation failed", err)
	}
	return cfg, nil
}

// LoadConfigFromDir reads .qcman/config.yaml under dir.
func (l *Loader) LoadConfigFromDir(dir string) (*Config, error) {
	return l.LoadConfig(filepath.Join(dir, DefaultConfigPath))
}

// Load reads the config at path with a fresh Loader.
func Load(path string) (*Config, error) {
	return NewLoader().LoadConfig(path)
}

// LoadFromDir reads .qcman/config.yaml under dir with a fresh Loader.
func LoadFromDir(dir string) (*Config, error) {
	return NewLoader().LoadConfigFromDir(dir)
}

// Environment overrides beat the config file. Values that fail to
// parse are ignored rather than erroring, so a bad override cannot
// brick the CLI.
func applyEnvOverrides(cfg *Config) {
	envString("STORE_DIR", &cfg.Store.Dir)

	envString("ENVIRONMENT_MANIFEST", &cfg.Environment.Manifest)
	envBool("ENVIRONMENT_STRICT", &cfg.Environment.Strict)

	envString("HARDWARE_DAQ_ADDR", &cfg.Hardware.DAQAddr)
	envString("HARDWARE_PULL_ADDR", &cfg.Hardware.PullAddr)
	envString("HARDWARE_I2C_ADDR", &cfg.Hardware.I2CAddr)
	envDuration("HARDWARE_DIAL_TIMEOUT", &cfg.Hardware.DialTimeout)
	envDuration("HARDWARE_REQUEST_TIMEOUT", &cfg.Hardware.RequestTimeout)

	envInt("ACQUIRE_EVENTS", &cfg.Acquire.Events)
	envInt("ACQUIRE_BATCH_SIZE", &cfg.Acquire.BatchSize)
	envDuration("ACQUIRE_TIMEOUT", &cfg.Acquire.Timeout)

	envDuration("TIMEOUT_ACTIVE", &cfg.Timeout.Active)
	envDuration("TIMEOUT_STUCK", &cfg.Timeout.Stuck)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_DIR", &cfg.Log.Dir)
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		*dst = v == "true" || v == "1" || v == "yes"
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// viperDecodeHook composes duration parsing with decoding of our
// string-backed config types.
func viperDecodeHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
			if from.Kind() == reflect.String && to == reflect.TypeOf(FailureMode("")) {
				return FailureMode(data.(string)), nil
			}
			return data, nil
		},
	)
}

// Save writes cfg as YAML to path (DefaultConfigPath when empty),
// creating parent directories. qcman init uses this to seed a
// commented starting config.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &LoadError{Path: path, Message: "failed to create config directory", Err: err}
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &LoadError{Path: path, Message: "failed to marshal config", Err: err}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &LoadError{Path: path, Message: "failed to write config file", Err: err}
	}
	return nil
}
