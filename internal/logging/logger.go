package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Params struct {
	Level       string
	FileName    string
	LogToStdout bool
}

// New builds the JSON logger used by every component. Without a file name
// logs go to stdout only.
func New(params Params) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(params.Level)}
	return slog.New(slog.NewJSONHandler(Output(params), opts))
}

func Output(params Params) io.Writer {
	if params.FileName == "" {
		return os.Stdout
	}

	fileName := params.FileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}

	rotating := &lumberjack.Logger{
		Filename:  fileName,
		MaxSize:   50, // megabytes
		LocalTime: false,
		Compress:  true,
	}

	if params.LogToStdout {
		return io.MultiWriter(os.Stdout, rotating)
	}
	return rotating
}

func Level(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
