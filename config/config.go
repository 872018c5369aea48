// Package config loads the engine's configuration surface: parallelism
// tuning, the prompt-memory window, and default retry policy parameters.
// Typed defaults are overlaid by environment variables and, optionally,
// a YAML file for operators who prefer a config file over an
// environment block.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ParallelismConfig governs the parallel-vs-sequential decision and the
// parallel executor's worker pool.
type ParallelismConfig struct {
	Enabled                      bool    `yaml:"enabled"`
	MaxThreads                   int     `yaml:"maxThreads"`
	MaxParallelTasksPerBatch     int     `yaml:"maxParallelTasksPerBatch"`
	TaskTimeoutSeconds           int     `yaml:"taskTimeoutSeconds"`
	MinTasksForParallelExecution int     `yaml:"minTasksForParallelExecution"`
	ParallelismThreshold         float64 `yaml:"parallelismThreshold"`
	FallbackToSequentialEnabled  bool    `yaml:"fallbackToSequentialEnabled"`
}

// MemoryConfig governs the agent's bounded in-prompt memory window.
type MemoryConfig struct {
	DefaultMemoryLimit int `yaml:"defaultMemoryLimit"`
}

// RetryDefaults are the fallback parameters for an exponential backoff
// policy when a caller does not supply its own.
type RetryDefaults struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
	Multiplier   float64       `yaml:"multiplier"`
	JitterFactor float64       `yaml:"jitterFactor"`
	MaxDuration  time.Duration `yaml:"maxDuration"`
}

// RetryConfig wraps RetryDefaults to mirror the retry.defaults.* env/YAML
// namespace.
type RetryConfig struct {
	Defaults RetryDefaults `yaml:"defaults"`
}

// Config is the engine's full typed configuration.
type Config struct {
	Parallelism ParallelismConfig `yaml:"parallelism"`
	Memory      MemoryConfig      `yaml:"memory"`
	Retry       RetryConfig       `yaml:"retry"`
}

// Default returns a Config populated with sensible defaults: parallelism
// enabled with maxThreads set to the host CPU count, a
// 300-second task timeout, a minimum of 2 tasks before parallel execution
// is considered, a 0.3 parallelism-ratio threshold, sequential fallback
// enabled, a 10-entry memory window, and a 3-attempt exponential backoff
// retry default.
func Default() *Config {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	return &Config{
		Parallelism: ParallelismConfig{
			Enabled:                      true,
			MaxThreads:                   threads,
			MaxParallelTasksPerBatch:     threads,
			TaskTimeoutSeconds:           300,
			MinTasksForParallelExecution: 2,
			ParallelismThreshold:         0.3,
			FallbackToSequentialEnabled:  true,
		},
		Memory: MemoryConfig{
			DefaultMemoryLimit: 10,
		},
		Retry: RetryConfig{
			Defaults: RetryDefaults{
				MaxAttempts:  3,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     30 * time.Second,
				Multiplier:   2.0,
				JitterFactor: 0.1,
				MaxDuration:  10 * time.Minute,
			},
		},
	}
}

// FromEnv returns Default() overlaid with any of the recognized
// TASKMIND_* environment variables that are set. A malformed value for a
// recognized variable is reported as an error naming the variable; unset
// variables leave the default untouched.
func FromEnv() (*Config, error) {
	cfg := Default()

	type binding struct {
		name string
		set  func(string) error
	}

	bindings := []binding{
		{"TASKMIND_PARALLELISM_ENABLED", boolSetter(&cfg.Parallelism.Enabled)},
		{"TASKMIND_PARALLELISM_MAX_THREADS", intSetter(&cfg.Parallelism.MaxThreads)},
		{"TASKMIND_PARALLELISM_MAX_PARALLEL_TASKS_PER_BATCH", intSetter(&cfg.Parallelism.MaxParallelTasksPerBatch)},
		{"TASKMIND_PARALLELISM_TASK_TIMEOUT_SECONDS", intSetter(&cfg.Parallelism.TaskTimeoutSeconds)},
		{"TASKMIND_PARALLELISM_MIN_TASKS_FOR_PARALLEL_EXECUTION", intSetter(&cfg.Parallelism.MinTasksForParallelExecution)},
		{"TASKMIND_PARALLELISM_THRESHOLD", floatSetter(&cfg.Parallelism.ParallelismThreshold)},
		{"TASKMIND_PARALLELISM_FALLBACK_TO_SEQUENTIAL_ENABLED", boolSetter(&cfg.Parallelism.FallbackToSequentialEnabled)},
		{"TASKMIND_MEMORY_DEFAULT_MEMORY_LIMIT", intSetter(&cfg.Memory.DefaultMemoryLimit)},
		{"TASKMIND_RETRY_MAX_ATTEMPTS", intSetter(&cfg.Retry.Defaults.MaxAttempts)},
		{"TASKMIND_RETRY_INITIAL_DELAY", durationSetter(&cfg.Retry.Defaults.InitialDelay)},
		{"TASKMIND_RETRY_MAX_DELAY", durationSetter(&cfg.Retry.Defaults.MaxDelay)},
		{"TASKMIND_RETRY_MULTIPLIER", floatSetter(&cfg.Retry.Defaults.Multiplier)},
		{"TASKMIND_RETRY_JITTER_FACTOR", floatSetter(&cfg.Retry.Defaults.JitterFactor)},
		{"TASKMIND_RETRY_MAX_DURATION", durationSetter(&cfg.Retry.Defaults.MaxDuration)},
	}

	for _, b := range bindings {
		v, ok := os.LookupEnv(b.name)
		if !ok || v == "" {
			continue
		}
		if err := b.set(v); err != nil {
			return nil, fmt.Errorf("config: invalid value for %s: %w", b.name, err)
		}
	}

	return cfg, nil
}

// LoadFile overlays YAML content at path onto base. Only fields present
// in the file are changed; base is otherwise returned unmodified. Pass
// Default() or the result of FromEnv as base to layer a file on top of
// environment-derived defaults.
func LoadFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	out := *base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &out, nil
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func floatSetter(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func durationSetter(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
