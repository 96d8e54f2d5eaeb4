// Package config provides configuration data structures for qcman.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete qcman configuration loaded from
// .qcman/config.yaml.
type Config struct {
	Store       StoreConfig       `yaml:"store"       json:"store"`
	Environment EnvironmentConfig `yaml:"environment" json:"environment"`
	Hardware    HardwareConfig    `yaml:"hardware"    json:"hardware"`
	Acquire     AcquireConfig     `yaml:"acquire"     json:"acquire"`
	Timeout     TimeoutConfig     `yaml:"timeout"     json:"timeout"`
	Hooks       HooksConfig       `yaml:"hooks"       json:"hooks"`
	Log         LogConfig         `yaml:"log"         json:"log"`
}

// StoreConfig configures where session data is kept.
type StoreConfig struct {
	// Dir is the base directory for board sessions (default: results).
	Dir string `yaml:"dir" json:"dir"`
}

// EnvironmentConfig configures the control environment manifest.
type EnvironmentConfig struct {
	// Manifest is the path to the environment manifest file.
	Manifest string `yaml:"manifest" json:"manifest"`
	// Strict escalates manifest warnings to failures (default: false).
	Strict bool `yaml:"strict" json:"strict"`
}

// HardwareConfig configures the board service connections.
type HardwareConfig struct {
	// DAQAddr is the address of the DAQ control service.
	DAQAddr string `yaml:"daq_addr" json:"daq_addr"`
	// PullAddr is the address of the data pull service.
	PullAddr string `yaml:"pull_addr" json:"pull_addr"`
	// I2CAddr is the address of the slow control service.
	I2CAddr string `yaml:"i2c_addr" json:"i2c_addr"`
	// DialTimeout bounds a single connection attempt (default: 5s).
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	// RequestTimeout bounds a single command round trip (default: 10s).
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// AcquireConfig configures data acquisition defaults.
type AcquireConfig struct {
	// Events is the default event count per acquisition (default: 5000).
	Events int `yaml:"events" json:"events"`
	// BatchSize is the default events per batch (default: 1000).
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// PollInterval is how often acquisition status is polled (default: 500ms).
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// Timeout bounds a single acquisition (default: 10m).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// TimeoutConfig configures the procedure watchdog.
type TimeoutConfig struct {
	// Active is the overall limit for one procedure run (default: 1h).
	Active time.Duration `yaml:"active" json:"active"`
	// Stuck is the limit with no progress reported (default: 10m).
	Stuck time.Duration `yaml:"stuck" json:"stuck"`
}

// FailureMode defines how hook failures are handled.
type FailureMode string

const (
	// FailureModeSkipProcedure skips the current procedure and moves to next.
	FailureModeSkipProcedure FailureMode = "skip_procedure"
	// FailureModeWarnContinue logs a warning but continues with the procedure.
	FailureModeWarnContinue FailureMode = "warn_continue"
	// FailureModeAbortSession stops the remaining procedure queue.
	FailureModeAbortSession FailureMode = "abort_session"
)

// HookDefinition defines a single shell hook.
type HookDefinition struct {
	// Command is the shell command to run.
	Command string `yaml:"command" json:"command"`
	// OnFailure defines how to handle hook failures (default: warn_continue).
	OnFailure FailureMode `yaml:"on_failure" json:"on_failure"`
	// Timeout bounds the hook execution (default: 1m).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// HooksConfig configures pre/post procedure hooks.
type HooksConfig struct {
	// PreProcedure hooks run before each procedure.
	PreProcedure []HookDefinition `yaml:"pre_procedure" json:"pre_procedure"`
	// PostProcedure hooks run after each procedure.
	PostProcedure []HookDefinition `yaml:"post_procedure" json:"post_procedure"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum level written (default: info).
	Level string `yaml:"level" json:"level"`
	// Dir is the log file directory (default: .qcman/logs).
	Dir string `yaml:"dir" json:"dir"`
	// JSON switches the log file to JSON lines (default: false).
	JSON bool `yaml:"json" json:"json"`
}

// Default values.
const (
	DefaultStoreDir       = "results"
	DefaultDAQAddr        = "localhost:6000"
	DefaultPullAddr       = "localhost:6001"
	DefaultI2CAddr        = "localhost:5555"
	DefaultDialTimeout    = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultEvents         = 5000
	DefaultBatchSize      = 1000
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultAcquireTimeout = 10 * time.Minute
	DefaultActiveTimeout  = time.Hour
	DefaultStuckTimeout   = 10 * time.Minute
	DefaultHookTimeout    = time.Minute
	DefaultLogLevel       = "info"
	DefaultLogDir         = ".qcman/logs"
)

// NewConfig returns a new Config with default values applied.
func NewConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Dir: DefaultStoreDir,
		},
		Environment: EnvironmentConfig{},
		Hardware: HardwareConfig{
			DAQAddr:        DefaultDAQAddr,
			PullAddr:       DefaultPullAddr,
			I2CAddr:        DefaultI2CAddr,
			DialTimeout:    DefaultDialTimeout,
			RequestTimeout: DefaultRequestTimeout,
		},
		Acquire: AcquireConfig{
			Events:       DefaultEvents,
			BatchSize:    DefaultBatchSize,
			PollInterval: DefaultPollInterval,
			Timeout:      DefaultAcquireTimeout,
		},
		Timeout: TimeoutConfig{
			Active: DefaultActiveTimeout,
			Stuck:  DefaultStuckTimeout,
		},
		Hooks: HooksConfig{
			PreProcedure:  []HookDefinition{},
			PostProcedure: []HookDefinition{},
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
			Dir:   DefaultLogDir,
		},
	}
}

// ApplyDefaults applies default values to any unset fields.
// This is used after loading config from file to fill in missing values.
func (c *Config) ApplyDefaults() {
	defaults := NewConfig()

	if c.Store.Dir == "" {
		c.Store.Dir = defaults.Store.Dir
	}

	if c.Hardware.DAQAddr == "" {
		c.Hardware.DAQAddr = defaults.Hardware.DAQAddr
	}
	if c.Hardware.PullAddr == "" {
		c.Hardware.PullAddr = defaults.Hardware.PullAddr
	}
	if c.Hardware.I2CAddr == "" {
		c.Hardware.I2CAddr = defaults.Hardware.I2CAddr
	}
	if c.Hardware.DialTimeout == 0 {
		c.Hardware.DialTimeout = defaults.Hardware.DialTimeout
	}
	if c.Hardware.RequestTimeout == 0 {
		c.Hardware.RequestTimeout = defaults.Hardware.RequestTimeout
	}

	if c.Acquire.Events == 0 {
		c.Acquire.Events = defaults.Acquire.Events
	}
	if c.Acquire.BatchSize == 0 {
		c.Acquire.BatchSize = defaults.Acquire.BatchSize
	}
	if c.Acquire.PollInterval == 0 {
		c.Acquire.PollInterval = defaults.Acquire.PollInterval
	}
	if c.Acquire.Timeout == 0 {
		c.Acquire.Timeout = defaults.Acquire.Timeout
	}

	if c.Timeout.Active == 0 {
		c.Timeout.Active = defaults.Timeout.Active
	}
	if c.Timeout.Stuck == 0 {
		c.Timeout.Stuck = defaults.Timeout.Stuck
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Dir == "" {
		c.Log.Dir = defaults.Log.Dir
	}

	// Initialize nil slices
	if c.Hooks.PreProcedure == nil {
		c.Hooks.PreProcedure = []HookDefinition{}
	}
	if c.Hooks.PostProcedure == nil {
		c.Hooks.PostProcedure = []HookDefinition{}
	}
	for i := range c.Hooks.PreProcedure {
		if c.Hooks.PreProcedure[i].Timeout == 0 {
			c.Hooks.PreProcedure[i].Timeout = DefaultHookTimeout
		}
	}
	for i := range c.Hooks.PostProcedure {
		if c.Hooks.PostProcedure[i].Timeout == 0 {
			c.Hooks.PostProcedure[i].Timeout = DefaultHookTimeout
		}
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := "multiple validation errors:"
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Acquire.Events < 0 {
		errs = append(errs, &ValidationError{Field: "acquire.events", Message: "must be non-negative"})
	}
	if c.Acquire.BatchSize < 0 {
		errs = append(errs, &ValidationError{Field: "acquire.batch_size", Message: "must be non-negative"})
	}
	if c.Acquire.PollInterval < 0 {
		errs = append(errs, &ValidationError{Field: "acquire.poll_interval", Message: "must be non-negative"})
	}
	if c.Acquire.Timeout < 0 {
		errs = append(errs, &ValidationError{Field: "acquire.timeout", Message: "must be non-negative"})
	}

	if c.Timeout.Active < 0 {
		errs = append(errs, &ValidationError{Field: "timeout.active", Message: "must be non-negative"})
	}
	if c.Timeout.Stuck < 0 {
		errs = append(errs, &ValidationError{Field: "timeout.stuck", Message: "must be non-negative"})
	}
	if c.Timeout.Active > 0 && c.Timeout.Stuck > 0 && c.Timeout.Stuck > c.Timeout.Active {
		errs = append(errs, &ValidationError{
			Field:   "timeout.stuck",
			Message: "should be less than timeout.active",
		})
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, &ValidationError{
			Field:   "log.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	for i, hook := range c.Hooks.PreProcedure {
		if err := validateHook(hook, "hooks.pre_procedure", i); err != nil {
			errs = append(errs, err)
		}
	}
	for i, hook := range c.Hooks.PostProcedure {
		if err := validateHook(hook, "hooks.post_procedure", i); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHook(hook HookDefinition, prefix string, index int) *ValidationError {
	field := fmt.Sprintf("%s[%d]", prefix, index)

	if hook.Command == "" {
		return &ValidationError{
			Field:   field + ".command",
			Message: "must not be empty",
		}
	}

	if hook.OnFailure != "" {
		switch hook.OnFailure {
		case FailureModeSkipProcedure, FailureModeWarnContinue, FailureModeAbortSession:
			// valid
		default:
			return &ValidationError{
				Field:   field + ".on_failure",
				Message: "must be 'skip_procedure', 'warn_continue', or 'abort_session'",
			}
		}
	}

	return nil
}
