// Package config loads governor settings from TOML and the environment
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/perfgov/parameter"
)

// Environment overrides, applied after the file
const (
	EnvTargetFPS      = "PERFGOV_TARGET_FPS"
	EnvMemoryBudgetMB = "PERFGOV_MEMORY_BUDGET_MB"
	EnvLogLevel       = "PERFGOV_LOG_LEVEL"
	EnvDeviceClass    = "PERFGOV_DEVICE_CLASS"
)

// Duration decodes Go duration strings such as "3s" or "500ms"
type Duration time.Duration

// D returns the value as a time.Duration
func (d Duration) D() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type FrameConfig struct {
	TargetFPS    float64  `toml:"target_fps"`
	SampleWindow int      `toml:"sample_window"`
	TickInterval Duration `toml:"tick_interval"`
}

type QualityConfig struct {
	Downgrade          float64  `toml:"downgrade_ratio"`
	Upgrade            float64  `toml:"upgrade_ratio"`
	Critical           float64  `toml:"critical_ratio"`
	LowEvaluations     int      `toml:"low_evaluations"`
	HighEvaluations    int      `toml:"high_evaluations"`
	Cooldown           Duration `toml:"cooldown"`
	EvaluationInterval Duration `toml:"evaluation_interval"`
	ScaleStep          float64  `toml:"scale_step"`
	// InitialTier is low, medium or high; empty follows the device class
	InitialTier string `toml:"initial_tier"`
}

type LODConfig struct {
	Bands          []float64 `toml:"bands"`
	UpdateInterval Duration  `toml:"update_interval"`
	// Multiplier overrides the device class multiplier when positive
	Multiplier float64 `toml:"multiplier"`
}

type MemoryConfig struct {
	// TotalBudgetMB of zero derives the budget from physical memory
	TotalBudgetMB int64 `toml:"total_budget_mb"`

	TextureSplit float64 `toml:"texture_split"`
	MeshSplit    float64 `toml:"mesh_split"`
	AudioSplit   float64 `toml:"audio_split"`
	OtherSplit   float64 `toml:"other_split"`

	// Per-category overrides in MB, zero uses the split
	TextureMB int64 `toml:"texture_mb"`
	MeshMB    int64 `toml:"mesh_mb"`
	AudioMB   int64 `toml:"audio_mb"`
	OtherMB   int64 `toml:"other_mb"`

	Warning              float64  `toml:"warning_ratio"`
	Critical             float64  `toml:"critical_ratio"`
	Emergency            float64  `toml:"emergency_ratio"`
	MaxEvictionsPerCycle int      `toml:"max_evictions_per_cycle"`
	CheckInterval        Duration `toml:"check_interval"`
}

type PoolConfig struct {
	MaxSize          int      `toml:"max_size"`
	InitialSize      int      `toml:"initial_size"`
	AllowForcedReuse bool     `toml:"allow_forced_reuse"`
	CleanupInterval  Duration `toml:"cleanup_interval"`
	MaxIdle          Duration `toml:"max_idle"`
}

type AssetConfig struct {
	// Timeout of zero leaves pending loads unbounded
	Timeout Duration `toml:"timeout"`
	Latency Duration `toml:"latency"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
	Console    bool   `toml:"console"`
}

type DebugConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type PlatformConfig struct {
	// DeviceClass is auto, low, mid or high
	DeviceClass string `toml:"device_class"`
}

// Config is the full governor configuration
type Config struct {
	Frame    FrameConfig    `toml:"frame"`
	Quality  QualityConfig  `toml:"quality"`
	LOD      LODConfig      `toml:"lod"`
	Memory   MemoryConfig   `toml:"memory"`
	Pool     PoolConfig     `toml:"pool"`
	Asset    AssetConfig    `toml:"asset"`
	Log      LogConfig      `toml:"log"`
	Debug    DebugConfig    `toml:"debug"`
	Platform PlatformConfig `toml:"platform"`
}

const defaultDebugAddr = "127.0.0.1:6060"

// Default returns the parameter package defaults
func Default() *Config {
	return &Config{
		Frame: FrameConfig{
			TargetFPS:    parameter.TargetFrameRate,
			SampleWindow: parameter.FrameSampleWindow,
			TickInterval: Duration(parameter.TickInterval),
		},
		Quality: QualityConfig{
			Downgrade:          parameter.DowngradeRatio,
			Upgrade:            parameter.UpgradeRatio,
			Critical:           parameter.CriticalRatio,
			LowEvaluations:     parameter.ConsecutiveLowEvaluations,
			HighEvaluations:    parameter.ConsecutiveHighEvaluations,
			Cooldown:           Duration(parameter.QualityCooldown),
			EvaluationInterval: Duration(parameter.QualityEvaluationInterval),
			ScaleStep:          parameter.RenderScaleStep,
		},
		LOD: LODConfig{
			Bands:          append([]float64(nil), parameter.DefaultLODBands...),
			UpdateInterval: Duration(parameter.LODUpdateInterval),
		},
		Memory: MemoryConfig{
			TextureSplit:         parameter.TextureBudgetSplit,
			MeshSplit:            parameter.MeshBudgetSplit,
			AudioSplit:           parameter.AudioBudgetSplit,
			OtherSplit:           parameter.OtherBudgetSplit,
			Warning:              parameter.WarningRatio,
			Critical:             parameter.CriticalMemoryRatio,
			Emergency:            parameter.EmergencyRatio,
			MaxEvictionsPerCycle: parameter.MaxEvictionsPerCycle,
			CheckInterval:        Duration(parameter.MemoryCheckInterval),
		},
		Pool: PoolConfig{
			MaxSize:          parameter.PoolDefaultMaxSize,
			AllowForcedReuse: true,
			CleanupInterval:  Duration(parameter.PoolCleanupInterval),
			MaxIdle:          Duration(parameter.PoolMaxIdle),
		},
		Asset: AssetConfig{
			Latency: Duration(50 * time.Millisecond),
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Debug: DebugConfig{
			Addr: defaultDebugAddr,
		},
		Platform: PlatformConfig{
			DeviceClass: "auto",
		},
	}
}

// LookupFunc resolves an environment variable
type LookupFunc func(key string) (string, bool)

// Load reads path over the defaults, applies the process environment and sanitizes
// A missing file is not an error when path is empty
// The returned notes list every override and clamp for the caller to log
func Load(path string) (*Config, []string, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment
func LoadWith(path string, lookup LookupFunc) (*Config, []string, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	notes := cfg.ApplyEnv(lookup)
	notes = append(notes, cfg.Sanitize()...)
	return cfg, notes, nil
}

// Decode overlays TOML data onto c; unknown keys are rejected
func (c *Config) Decode(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

// Encode renders c as TOML
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// ApplyEnv applies environment overrides; malformed values are skipped with a note
func (c *Config) ApplyEnv(lookup LookupFunc) []string {
	if lookup == nil {
		return nil
	}
	var notes []string

	if v, ok := lookup(EnvTargetFPS); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Frame.TargetFPS = f
			notes = append(notes, fmt.Sprintf("%s: target_fps=%v", EnvTargetFPS, f))
		} else {
			notes = append(notes, fmt.Sprintf("%s: ignored malformed value %q", EnvTargetFPS, v))
		}
	}
	if v, ok := lookup(EnvMemoryBudgetMB); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Memory.TotalBudgetMB = n
			notes = append(notes, fmt.Sprintf("%s: total_budget_mb=%d", EnvMemoryBudgetMB, n))
		} else {
			notes = append(notes, fmt.Sprintf("%s: ignored malformed value %q", EnvMemoryBudgetMB, v))
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
		notes = append(notes, fmt.Sprintf("%s: level=%s", EnvLogLevel, v))
	}
	if v, ok := lookup(EnvDeviceClass); ok && v != "" {
		c.Platform.DeviceClass = v
		notes = append(notes, fmt.Sprintf("%s: device_class=%s", EnvDeviceClass, v))
	}
	return notes
}
