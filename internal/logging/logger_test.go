package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level("DEBUG"))
	assert.Equal(t, slog.LevelWarn, Level("warn"))
	assert.Equal(t, slog.LevelError, Level("error"))
	assert.Equal(t, slog.LevelInfo, Level("info"))
	assert.Equal(t, slog.LevelInfo, Level("whatever"))
}

func TestOutput_Stdout(t *testing.T) {
	assert.Equal(t, os.Stdout, Output(Params{}))
}

func TestOutput_FileGetsLogSuffix(t *testing.T) {
	name := filepath.Join(t.TempDir(), "export")

	w := Output(Params{FileName: name})
	rotating, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, name+".log", rotating.Filename)

	logger := slog.New(slog.NewJSONHandler(w, nil))
	logger.Info("hello")
	require.NoError(t, rotating.Close())

	data, err := os.ReadFile(name + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
