package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-depth/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err, "unknown levels should be rejected")
	assert.Contains(t, err.Error(), "chatty")
}

func TestNewWritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.log")

	logger, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err, "logger with file sink should build")

	logger.Named("DEPTH").Info("model loaded")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "log file should exist after a write")
	assert.Contains(t, string(data), "model loaded", "file sink should receive entries")
	assert.Contains(t, string(data), "DEPTH", "logger name should be recorded")
}

func TestMustFallsBack(t *testing.T) {
	assert.NotNil(t, Must(Options{Level: "nope"}), "Must never returns nil")
}

func TestFromConfig(t *testing.T) {
	opts := FromConfig(config.Config{LogLevel: "warn", LogFile: "/var/log/depth.log"})
	assert.Equal(t, Options{Level: "warn", File: "/var/log/depth.log"}, opts)
}
