package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	"github.com/srg/blelink/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, logrus.PanicLevel, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ScanWindow)
	assert.Equal(t, 30*time.Second, cfg.StaleAfter)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, session.DisconnectFirst, cfg.ReconnectPolicy)
	assert.True(t, cfg.TeardownOnDrop)
	assert.Equal(t, uint32(128), cfg.DispatchBuffer)
	assert.Equal(t, 4096, cfg.ReceiveBuffer)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.True(t, cfg.AutoScan)
	assert.NoError(t, cfg.Validate(), "defaults MUST be valid")
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
scan_window: 3s
reconnect_policy: require-disconnect
teardown_on_drop: false
output_format: json
radio_adapter: hci1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ScanWindow)
	assert.Equal(t, session.RequireDisconnect, cfg.ReconnectPolicy)
	assert.False(t, cfg.TeardownOnDrop, "explicit false MUST override the default")
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "hci1", cfg.RadioAdapter)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout, "unset keys MUST keep defaults")

	opts := cfg.SessionOptions()
	assert.Equal(t, session.RequireDisconnect, opts.Reconnect)
	assert.False(t, opts.TeardownOnDrop)
	assert.Equal(t, 3*time.Second, cfg.AdapterOptions().ScanWindow)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "scan_window: [", "failed to parse config"},
		{"bad level", "log_level: loud", "not a valid logrus Level"},
		{"bad policy", "reconnect_policy: sometimes", "reconnect_policy"},
		{"bad format", "output_format: xml", "output_format"},
		{"bad window", "scan_window: 0s", "scan_window must be positive"},
		{"bad buffer", "receive_buffer: -1", "receive_buffer must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicitly requested missing file MUST fail")

	_, err = Load(writeConfig(t, "output_format: csv"))
	assert.ErrorIs(t, err, device.ErrInvalidArgument)
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			logLevel: logrus.DebugLevel,
		},
		{
			name:     "creates logger with warn level",
			logLevel: logrus.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel: tt.logLevel,
			}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.logLevel, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}
