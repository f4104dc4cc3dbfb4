package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfig_Defaults(t *testing.T) {
	cfg := Empty()
	assert.Equal(t, "0", cfg.GetCameraDevice())
	assert.Equal(t, 1080, cfg.GetCameraWidth())
	assert.Equal(t, 1080, cfg.GetCameraHeight())
	assert.Equal(t, 700, cfg.GetROISize())
	assert.Equal(t, 87, cfg.GetBinaryThreshold())
	assert.Equal(t, 5, cfg.GetDilateKernel())
	assert.Equal(t, 100*time.Millisecond, cfg.GetTickInterval())
	assert.Equal(t, 15.0, cfg.GetTargetTolerancePx())
	assert.Equal(t, 20.0, cfg.GetNodeTolerancePx())
	assert.Equal(t, 24.0, cfg.GetMaxFieldMT())
	assert.Equal(t, "", cfg.GetSerialPort())
	assert.Equal(t, 115200, cfg.GetSerialBaud())
	assert.Equal(t, 30*time.Millisecond, cfg.GetSerialTimeout())
	assert.Equal(t, 1, cfg.GetEchoAttempts())
	assert.Equal(t, time.Minute, cfg.GetSessionDuration())
	assert.Equal(t, "edumag.db", cfg.GetDBPath())
	assert.Equal(t, "", cfg.GetFieldMapPath())
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	file := MustLoadDefaultConfig()
	empty := Empty()

	assert.Equal(t, empty.GetCameraDevice(), file.GetCameraDevice())
	assert.Equal(t, empty.GetROISize(), file.GetROISize())
	assert.Equal(t, empty.GetBinaryThreshold(), file.GetBinaryThreshold())
	assert.Equal(t, empty.GetDilateKernel(), file.GetDilateKernel())
	assert.Equal(t, empty.GetTickInterval(), file.GetTickInterval())
	assert.Equal(t, empty.GetTargetTolerancePx(), file.GetTargetTolerancePx())
	assert.Equal(t, empty.GetNodeTolerancePx(), file.GetNodeTolerancePx())
	assert.Equal(t, empty.GetMaxFieldMT(), file.GetMaxFieldMT())
	assert.Equal(t, empty.GetSerialBaud(), file.GetSerialBaud())
	assert.Equal(t, empty.GetSerialTimeout(), file.GetSerialTimeout())
	assert.Equal(t, empty.GetEchoAttempts(), file.GetEchoAttempts())
	assert.Equal(t, empty.GetSessionDuration(), file.GetSessionDuration())
	assert.Equal(t, empty.GetDBPath(), file.GetDBPath())
}

func TestLoadConfig_Partial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{
  "tick_interval": "50ms",
  "echo_attempts": 3,
  "serial_port": "/dev/ttyACM0"
}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.GetTickInterval())
	assert.Equal(t, 3, cfg.GetEchoAttempts())
	assert.Equal(t, "/dev/ttyACM0", cfg.GetSerialPort())
	assert.Equal(t, 87, cfg.GetBinaryThreshold(), "omitted fields keep defaults")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"bad json", "cfg.json", `{"roi_size":`, "parse config JSON"},
		{"bad duration", "cfg.json", `{"tick_interval":"soon"}`, "tick_interval"},
		{"zero tick", "cfg.json", `{"tick_interval":"0s"}`, "tick_interval"},
		{"negative timeout", "cfg.json", `{"serial_timeout":"-1s"}`, "serial_timeout"},
		{"threshold range", "cfg.json", `{"binary_threshold":300}`, "binary_threshold"},
		{"zero attempts", "cfg.json", `{"echo_attempts":0}`, "echo_attempts"},
		{"roi", "cfg.json", `{"roi_size":0}`, "roi_size"},
		{"kernel", "cfg.json", `{"dilate_kernel":0}`, "dilate_kernel"},
		{"tolerance", "cfg.json", `{"target_tolerance_px":-1}`, "target_tolerance_px"},
		{"max field", "cfg.json", `{"max_field_mt":0}`, "max_field_mt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	body := `{"db_path":"` + strings.Repeat("x", maxFileSize) + `"}`
	_, err := LoadConfig(writeConfig(t, "big.json", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate_PointerHelpers(t *testing.T) {
	cfg := &Config{
		ROISize:           ptrInt(500),
		TargetTolerancePx: ptrFloat64(10),
		SessionDuration:   ptrString("2m"),
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.GetROISize())
	assert.Equal(t, 2*time.Minute, cfg.GetSessionDuration())
}
