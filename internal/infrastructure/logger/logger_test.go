package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"default config", DefaultConfig()},
		{"json format", &Config{Level: "info", Format: "json", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"}},
		{"debug level", &Config{Level: "debug", Format: "console", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, levelFor(tt.level))
		})
	}
}

func TestNewWriteSyncer(t *testing.T) {
	t.Run("standard streams", func(t *testing.T) {
		for _, output := range []string{"stdout", "stderr", "STDOUT"} {
			assert.NotNil(t, newWriteSyncer(output), output)
		}
	})

	t.Run("file path", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "sync-log-*.log")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())
		tmpFile.Close()

		assert.NotNil(t, newWriteSyncer(tmpFile.Name()))
	})

	t.Run("unopenable path falls back", func(t *testing.T) {
		assert.NotNil(t, newWriteSyncer("/nonexistent-dir/sync.log"))
	})
}

func TestNamed(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	named := Named(logger, "reconciler")
	assert.NotNil(t, named)
	assert.NotEqual(t, logger, named)
}

func TestJSONOutputShape(t *testing.T) {
	var buf bytes.Buffer

	core := zapcore.NewCore(
		newEncoder(&Config{Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)

	logger.Info("sync run finished", zap.String("entity_type", "invoice"))

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "sync run finished", output["msg"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "invoice", output["entity_type"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	core := zapcore.NewCore(
		newEncoder(&Config{Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)

	logger.Debug("per-record detail")
	assert.Empty(t, buf.String())

	logger.Info("run summary")
	assert.Contains(t, buf.String(), "run summary")
}
