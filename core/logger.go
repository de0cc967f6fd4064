package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type logLevel int

const (
	logSilent logLevel = iota
	logError
	logInfo
	logDebug
)

var (
	currentLevel = logInfo
	slogLevel    = new(slog.LevelVar)
	logger       = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
)

func SetLogLevel(levelStr string) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "silent":
		currentLevel = logSilent
		slogLevel.Set(slog.LevelError + 4)
	case "error":
		currentLevel = logError
		slogLevel.Set(slog.LevelError)
	case "debug":
		currentLevel = logDebug
		slogLevel.Set(slog.LevelDebug)
	default:
		currentLevel = logInfo
		slogLevel.Set(slog.LevelInfo)
	}
	slog.SetDefault(logger)
	Debugf("nivell de log configurat: %s", strings.ToLower(strings.TrimSpace(levelStr)))
}

func Debugf(format string, v ...interface{}) {
	if currentLevel >= logDebug {
		logger.Debug(fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	if currentLevel >= logInfo {
		logger.Info(fmt.Sprintf(format, v...))
	}
}

func Warnf(format string, v ...interface{}) {
	if currentLevel >= logInfo {
		logger.Warn(fmt.Sprintf(format, v...))
	}
}

func Errorf(format string, v ...interface{}) {
	if currentLevel >= logError {
		logger.Error(fmt.Sprintf(format, v...))
	}
}

// runLogger retorna un logger amb els camps d'una execució.
func runLogger(runID, tree string) *slog.Logger {
	return logger.With("run", runID, "tree", tree)
}

// AttachLoggerOutput redirigeix la sortida dels logs.
func AttachLoggerOutput(w io.Writer) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
}
