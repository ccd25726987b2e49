package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "glowup.log")

	require.NoError(t, Init(Config{Level: "debug", File: logFile}))
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	Info("points awarded", "user", "user_1", "delta", 10)

	_, err := os.Stat(logFile)
	assert.NoError(t, err)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "chatty"}))
}

func TestReportsCallerOutsideWrappers(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug"}))
	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	t.Cleanup(func() { Logger.SetOutput(os.Stderr) })

	Debug("task completed", "task", "skincare_night")
	Warn("push failed")

	out := buf.String()
	assert.Contains(t, out, "logger_test.go:")
	assert.NotContains(t, out, "logger/logger.go:")
}
