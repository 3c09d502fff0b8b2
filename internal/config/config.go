/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "pagesnap/internal/log"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SnapConfig struct {
	// Threshold is the snap distance in canvas pixels.
	Threshold float32 `yaml:"threshold"`
}

type GestureConfig struct {
	// CleanupDelayMs is how long after a gesture ends the registry is emptied.
	CleanupDelayMs int `yaml:"cleanup_delay_ms"`
	// MinSize is the UI-level minimum width/height applied before resize snapping.
	MinSize float32 `yaml:"min_size"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	Path   string `yaml:"path"`   // sqlite file; empty means the per-user data dir
	// PostgresDSN may be left empty when the DSN is kept in the OS keyring.
	PostgresDSN string `yaml:"postgres_dsn"`
}

type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Snap          SnapConfig      `yaml:"snap"`
	Gesture       GestureConfig   `yaml:"gesture"`
	Storage       StorageConfig   `yaml:"storage"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Snap:          SnapConfig{Threshold: 8},
		Gesture:       GestureConfig{CleanupDelayMs: 100, MinSize: 10},
		Storage:       StorageConfig{Driver: "sqlite"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "PAGESNAP_CONFIG"
	EnvSnapThreshold  = "PAGESNAP_SNAP_THRESHOLD"
	EnvCleanupDelayMs = "PAGESNAP_CLEANUP_DELAY_MS"
	EnvMinSize        = "PAGESNAP_MIN_SIZE"
	EnvStorageDriver  = "PAGESNAP_STORAGE_DRIVER"
	EnvStoragePath    = "PAGESNAP_STORAGE_PATH"
	EnvPostgresDSN    = "PAGESNAP_PG_DSN"
	EnvTelemetryOptIn = "PAGESNAP_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "PAGESNAP_TELEMETRY_URL"
	EnvCrashURL       = "PAGESNAP_CRASH_UPLOAD_URL"
	EnvLogLevel       = applog.EnvLevel
	EnvLogFormat      = applog.EnvFormat
	EnvLogSource      = applog.EnvSource
	EnvLogFile        = applog.EnvFile
)

// Dir returns the per-user config directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageSnap")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageSnap")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "pagesnap")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "pagesnap")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// Path returns the config file path, honoring PAGESNAP_CONFIG.
func Path() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and env overrides,
// and resolves the Postgres DSN from the keyring when the file leaves it empty.
// A malformed file is reported; a missing one is not.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.PostgresDSN == "" {
		if dsn, err := secrets.Get(keyringService, keyringPostgresDSN); err == nil {
			cfg.Storage.PostgresDSN = dsn
		}
	}
	return cfg, nil
}

// Save writes the config YAML. The Postgres DSN is never written to disk when
// it came from the keyring; callers store it with SavePostgresDSN instead.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CleanupDelay returns the registry cleanup delay as a duration.
func (g GestureConfig) CleanupDelay() time.Duration {
	if g.CleanupDelayMs < 0 {
		return 0
	}
	return time.Duration(g.CleanupDelayMs) * time.Millisecond
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Snap.Threshold > 0 {
		dst.Snap.Threshold = src.Snap.Threshold
	}
	if src.Gesture.CleanupDelayMs != 0 {
		dst.Gesture.CleanupDelayMs = src.Gesture.CleanupDelayMs
	}
	if src.Gesture.MinSize > 0 {
		dst.Gesture.MinSize = src.Gesture.MinSize
	}
	if s := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); s != "" {
		dst.Storage.Driver = s
	}
	if s := strings.TrimSpace(src.Storage.Path); s != "" {
		dst.Storage.Path = s
	}
	if s := strings.TrimSpace(src.Storage.PostgresDSN); s != "" {
		dst.Storage.PostgresDSN = s
	}
	// booleans: copy directly so user preferences persist
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if s := strings.TrimSpace(src.Telemetry.EventsURL); s != "" {
		dst.Telemetry.EventsURL = s
	}
	if s := strings.TrimSpace(src.Telemetry.CrashURL); s != "" {
		dst.Telemetry.CrashURL = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSnapThreshold)); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			cfg.Snap.Threshold = float32(f)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCleanupDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gesture.CleanupDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			cfg.Gesture.MinSize = float32(f)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashURL)); v != "" {
		cfg.Telemetry.CrashURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"snap.threshold":           EnvSnapThreshold,
		"gesture.cleanup_delay_ms": EnvCleanupDelayMs,
		"gesture.min_size":         EnvMinSize,
		"storage.driver":           EnvStorageDriver,
		"storage.path":             EnvStoragePath,
		"storage.postgres_dsn":     EnvPostgresDSN,
		"telemetry.opt_in":         EnvTelemetryOptIn,
		"telemetry.events_url":     EnvTelemetryURL,
		"telemetry.crash_url":      EnvCrashURL,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}
