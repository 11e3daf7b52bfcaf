// config_loader.go: Configuration loading from multiple sources
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
	"github.com/agilira/nanolog/internal/zephyroslite"
)

// validateFilePath checks if a file path is safe to use.
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty file path")
	}
	if strings.Contains(filepath.Clean(filename), "..") {
		return fmt.Errorf("path contains directory traversal: %s", filename)
	}
	return nil
}

// jsonConfig is the on-disk shape LoadConfigFromJSON and the dynamic
// watcher parse; field names are the snake_case convention the rest of
// the AGILira config tooling uses.
type jsonConfig struct {
	Level              string `json:"level"`
	LogFile            string `json:"log_file"`
	RingCapacity       int    `json:"ring_capacity"`
	ReleaseThreshold   int    `json:"release_threshold"`
	BackpressurePolicy string `json:"backpressure_policy"`
	IdleStrategy       string `json:"idle_strategy"`
	DirectIO           bool   `json:"direct_io"`
	Compress           bool   `json:"compress"`
}

// LoadConfigFromJSON loads a Config from a JSON file. Unset or
// zero-valued fields are left for Config.withDefaults to fill in.
func LoadConfigFromJSON(filename string) (*Config, error) {
	var config Config

	if err := validateFilePath(filename); err != nil {
		return &config, fmt.Errorf("invalid file path: %w", err)
	}

	data, err := os.ReadFile(filename) // #nosec G304 -- path validated above
	if err != nil {
		return &config, fmt.Errorf("failed to read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return &config, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	applyJSONConfig(&config, jc)
	return &config, nil
}

func applyJSONConfig(config *Config, jc jsonConfig) {
	if jc.Level != "" {
		config.Level = parseLevel(jc.Level)
	}
	if jc.LogFile != "" {
		config.LogFilePath = jc.LogFile
	}
	if jc.RingCapacity > 0 {
		config.RingCapacity = jc.RingCapacity
	}
	if jc.ReleaseThreshold > 0 {
		config.ReleaseThreshold = jc.ReleaseThreshold
	}
	if jc.BackpressurePolicy != "" {
		config.BackpressurePolicy = parseBackpressurePolicy(jc.BackpressurePolicy)
	}
	if jc.IdleStrategy != "" {
		config.IdleStrategy = parseIdleStrategy(jc.IdleStrategy)
	}
	config.DirectIO = jc.DirectIO
	config.Compress = jc.Compress
}

// LoadConfigFromEnv loads a Config from NANOLOG_* environment variables.
func LoadConfigFromEnv() (*Config, error) {
	var config Config

	if v := os.Getenv("NANOLOG_LEVEL"); v != "" {
		config.Level = parseLevel(v)
	}
	if v := os.Getenv("NANOLOG_LOG_FILE"); v != "" {
		if err := validateFilePath(v); err != nil {
			return &config, fmt.Errorf("invalid log file path: %w", err)
		}
		config.LogFilePath = v
	}
	if v := os.Getenv("NANOLOG_RING_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.RingCapacity = n
		}
	}
	if v := os.Getenv("NANOLOG_RELEASE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ReleaseThreshold = n
		}
	}
	if v := os.Getenv("NANOLOG_BACKPRESSURE_POLICY"); v != "" {
		config.BackpressurePolicy = parseBackpressurePolicy(v)
	}
	if v := os.Getenv("NANOLOG_IDLE_STRATEGY"); v != "" {
		config.IdleStrategy = parseIdleStrategy(v)
	}
	if v := os.Getenv("NANOLOG_DIRECT_IO"); v != "" {
		config.DirectIO = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("NANOLOG_COMPRESS"); v != "" {
		config.Compress = strings.EqualFold(v, "true") || v == "1"
	}

	return &config, nil
}

// LoadConfigMultiSource loads configuration with precedence: environment
// variables override a JSON file, which overrides production defaults.
func LoadConfigMultiSource(jsonFile string) (*Config, error) {
	config := Config{}

	if jsonFile != "" {
		if jc, err := LoadConfigFromJSON(jsonFile); err == nil {
			config = *jc
		}
	}

	envConfig, err := LoadConfigFromEnv()
	if err != nil {
		return &config, err
	}

	if v := os.Getenv("NANOLOG_LEVEL"); v != "" {
		config.Level = envConfig.Level
	}
	if v := os.Getenv("NANOLOG_LOG_FILE"); v != "" {
		config.LogFilePath = envConfig.LogFilePath
	}
	if v := os.Getenv("NANOLOG_RING_CAPACITY"); v != "" {
		config.RingCapacity = envConfig.RingCapacity
	}
	if v := os.Getenv("NANOLOG_RELEASE_THRESHOLD"); v != "" {
		config.ReleaseThreshold = envConfig.ReleaseThreshold
	}
	if v := os.Getenv("NANOLOG_BACKPRESSURE_POLICY"); v != "" {
		config.BackpressurePolicy = envConfig.BackpressurePolicy
	}
	if v := os.Getenv("NANOLOG_IDLE_STRATEGY"); v != "" {
		config.IdleStrategy = envConfig.IdleStrategy
	}
	if v := os.Getenv("NANOLOG_DIRECT_IO"); v != "" {
		config.DirectIO = envConfig.DirectIO
	}
	if v := os.Getenv("NANOLOG_COMPRESS"); v != "" {
		config.Compress = envConfig.Compress
	}

	return config.withDefaults(), nil
}

func parseLevel(levelStr string) Level {
	var l Level
	if err := l.UnmarshalText([]byte(levelStr)); err == nil {
		return l
	}
	return Notice
}

func parseBackpressurePolicy(policyStr string) BackpressurePolicy {
	switch strings.ToLower(policyStr) {
	case "drop", "drop_on_full", "droponful":
		return DropOnFull
	case "block", "block_on_full", "blockonful":
		return BlockOnFull
	default:
		return DropOnFull
	}
}

func parseIdleStrategy(strategyStr string) zephyroslite.IdleStrategy {
	switch strings.ToLower(strategyStr) {
	case "spinning":
		return zephyroslite.NewSpinningIdleStrategy()
	case "sleeping":
		return zephyroslite.NewSleepingIdleStrategy(1*time.Millisecond, 0)
	case "yielding":
		return zephyroslite.NewYieldingIdleStrategy(1000)
	case "channel":
		return zephyroslite.NewChannelIdleStrategy(100 * time.Millisecond)
	default:
		return zephyroslite.NewProgressiveIdleStrategy()
	}
}

// DynamicConfigWatcher watches a JSON configuration file with Argus and
// applies level changes to a running Logger's AtomicLevel without a
// restart.
type DynamicConfigWatcher struct {
	configPath  string
	atomicLevel *AtomicLevel
	watcher     *argus.Watcher
	enabled     int32
	mu          sync.Mutex
}

// NewDynamicConfigWatcher creates a watcher for configPath targeting
// level. Call Start to begin watching.
func NewDynamicConfigWatcher(configPath string, level *AtomicLevel) (*DynamicConfigWatcher, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	cfg := argus.Config{
		PollInterval:         2 * time.Second,
		OptimizationStrategy: argus.OptimizationAuto,
		Audit: argus.AuditConfig{
			Enabled:       true,
			OutputFile:    "nanolog-config-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 5 * time.Second,
		},
		ErrorHandler: func(err error, path string) {
			handleError(WrapLoggerError(err, ErrCodeInvalidConfig, fmt.Sprintf("config watcher error for %s", path)))
		},
	}

	watcher := argus.New(*cfg.WithDefaults())

	return &DynamicConfigWatcher{
		configPath:  configPath,
		atomicLevel: level,
		watcher:     watcher,
	}, nil
}

// Start begins watching the configuration file for changes.
func (w *DynamicConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.enabled) != 0 {
		return fmt.Errorf("watcher is already started")
	}

	if w.atomicLevel != nil {
		if initial, err := LoadConfigFromJSON(w.configPath); err == nil && IsValidLevel(initial.Level) {
			w.atomicLevel.SetLevel(initial.Level)
		}
	}

	err := w.watcher.Watch(w.configPath, func(event argus.ChangeEvent) {
		newConfig, err := LoadConfigFromJSON(event.Path)
		if err != nil {
			handleError(NewLoggerError(ErrCodeInvalidConfig, fmt.Sprintf("failed to reload config from %s: %v", event.Path, err)))
			return
		}
		if w.atomicLevel != nil && IsValidLevel(newConfig.Level) {
			w.atomicLevel.SetLevel(newConfig.Level)
		}
		fmt.Fprintf(os.Stderr, "[nanolog] configuration reloaded from %s - level: %s\n", event.Path, newConfig.Level.String())
	})
	if err != nil {
		return fmt.Errorf("failed to setup file watcher: %w", err)
	}

	if err := w.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	atomic.StoreInt32(&w.enabled, 1)
	return nil
}

// Stop stops watching the configuration file.
func (w *DynamicConfigWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.enabled) == 0 {
		return fmt.Errorf("watcher is not started")
	}
	if err := w.watcher.Stop(); err != nil {
		return fmt.Errorf("failed to stop file watcher: %w", err)
	}
	atomic.StoreInt32(&w.enabled, 0)
	return nil
}

// IsRunning reports whether the watcher is currently active.
func (w *DynamicConfigWatcher) IsRunning() bool {
	return atomic.LoadInt32(&w.enabled) != 0
}

// EnableDynamicLevel creates and starts a config watcher for logger's
// level against configPath, combining NewDynamicConfigWatcher and Start.
func EnableDynamicLevel(logger *Logger, configPath string) (*DynamicConfigWatcher, error) {
	watcher, err := NewDynamicConfigWatcher(configPath, logger.lvl)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic config watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start dynamic config watcher: %w", err)
	}
	return watcher, nil
}
