// Package config loads controller settings from JSON. Every field is
// optional; the Get* accessors supply defaults for anything omitted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/edumag.defaults.json"

const maxFileSize = 1 * 1024 * 1024

// Config is the root configuration document.
type Config struct {
	// Camera and tracker
	CameraDevice    *string `json:"camera_device,omitempty"` // index like "0" or a device path/URL
	CameraWidth     *int    `json:"camera_width,omitempty"`
	CameraHeight    *int    `json:"camera_height,omitempty"`
	ROISize         *int    `json:"roi_size,omitempty"`
	BinaryThreshold *int    `json:"binary_threshold,omitempty"`
	DilateKernel    *int    `json:"dilate_kernel,omitempty"`

	// Control loop
	TickInterval      *string  `json:"tick_interval,omitempty"` // duration string like "100ms"
	TargetTolerancePx *float64 `json:"target_tolerance_px,omitempty"`
	NodeTolerancePx   *float64 `json:"node_tolerance_px,omitempty"`
	MaxFieldMT        *float64 `json:"max_field_mt,omitempty"`
	SessionDuration   *string  `json:"session_duration,omitempty"`

	// Driver link
	SerialPort    *string `json:"serial_port,omitempty"`
	SerialBaud    *int    `json:"serial_baud,omitempty"`
	SerialTimeout *string `json:"serial_timeout,omitempty"`
	EchoAttempts  *int    `json:"echo_attempts,omitempty"`

	// Storage
	DBPath       *string `json:"db_path,omitempty"`
	FieldMapPath *string `json:"field_map_path,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// LoadConfig reads a Config from a .json file of at most 1 MB and
// validates it.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or one of its parents. It panics when the file cannot be found and is
// meant for test setup.
func MustLoadDefaultConfig() *Config {
	for _, prefix := range []string{"", "../", "../../", "../../../"} {
		if cfg, err := LoadConfig(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	for name, d := range map[string]*string{
		"tick_interval":    c.TickInterval,
		"serial_timeout":   c.SerialTimeout,
		"session_duration": c.SessionDuration,
	} {
		if d == nil || *d == "" {
			continue
		}
		v, err := time.ParseDuration(*d)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *d)
		}
	}
	if c.TickInterval != nil && *c.TickInterval != "" && c.GetTickInterval() == 0 {
		return fmt.Errorf("tick_interval must be positive")
	}

	if c.ROISize != nil && *c.ROISize <= 0 {
		return fmt.Errorf("roi_size must be positive, got %d", *c.ROISize)
	}
	if c.BinaryThreshold != nil && (*c.BinaryThreshold < 0 || *c.BinaryThreshold > 255) {
		return fmt.Errorf("binary_threshold must be between 0 and 255, got %d", *c.BinaryThreshold)
	}
	if c.DilateKernel != nil && *c.DilateKernel < 1 {
		return fmt.Errorf("dilate_kernel must be at least 1, got %d", *c.DilateKernel)
	}
	if c.CameraWidth != nil && *c.CameraWidth <= 0 {
		return fmt.Errorf("camera_width must be positive, got %d", *c.CameraWidth)
	}
	if c.CameraHeight != nil && *c.CameraHeight <= 0 {
		return fmt.Errorf("camera_height must be positive, got %d", *c.CameraHeight)
	}
	if c.EchoAttempts != nil && *c.EchoAttempts < 1 {
		return fmt.Errorf("echo_attempts must be at least 1, got %d", *c.EchoAttempts)
	}
	if c.SerialBaud != nil && *c.SerialBaud < 0 {
		return fmt.Errorf("serial_baud must be non-negative, got %d", *c.SerialBaud)
	}
	if c.MaxFieldMT != nil && *c.MaxFieldMT <= 0 {
		return fmt.Errorf("max_field_mt must be positive, got %f", *c.MaxFieldMT)
	}
	for name, v := range map[string]*float64{
		"target_tolerance_px": c.TargetTolerancePx,
		"node_tolerance_px":   c.NodeTolerancePx,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}
	return nil
}

func duration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func (c *Config) GetCameraDevice() string       { return stringOr(c.CameraDevice, "0") }
func (c *Config) GetCameraWidth() int           { return intOr(c.CameraWidth, 1080) }
func (c *Config) GetCameraHeight() int          { return intOr(c.CameraHeight, 1080) }
func (c *Config) GetROISize() int               { return intOr(c.ROISize, 700) }
func (c *Config) GetBinaryThreshold() int       { return intOr(c.BinaryThreshold, 87) }
func (c *Config) GetDilateKernel() int          { return intOr(c.DilateKernel, 5) }
func (c *Config) GetSerialPort() string         { return stringOr(c.SerialPort, "") }
func (c *Config) GetSerialBaud() int            { return intOr(c.SerialBaud, 115200) }
func (c *Config) GetEchoAttempts() int          { return intOr(c.EchoAttempts, 1) }
func (c *Config) GetDBPath() string             { return stringOr(c.DBPath, "edumag.db") }
func (c *Config) GetFieldMapPath() string       { return stringOr(c.FieldMapPath, "") }
func (c *Config) GetMaxFieldMT() float64        { return floatOr(c.MaxFieldMT, 24) }
func (c *Config) GetTargetTolerancePx() float64 { return floatOr(c.TargetTolerancePx, 15) }
func (c *Config) GetNodeTolerancePx() float64   { return floatOr(c.NodeTolerancePx, 20) }

// GetTickInterval returns the control loop period, 100ms by default.
func (c *Config) GetTickInterval() time.Duration {
	return duration(c.TickInterval, 100*time.Millisecond)
}

// GetSerialTimeout returns the per-read serial timeout, 30ms by default.
func (c *Config) GetSerialTimeout() time.Duration {
	return duration(c.SerialTimeout, 30*time.Millisecond)
}

// GetSessionDuration returns the countdown length for timed sessions.
func (c *Config) GetSessionDuration() time.Duration {
	return duration(c.SessionDuration, 60*time.Second)
}
