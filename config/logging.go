package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName   = "gazo.log"
	maxLogSizeMB  = 10
	maxLogBackups = 3
)

// LogFilePath returns the location of the main application log
func LogFilePath() (string, error) {
	configDir, err := verifyConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, logFileName), nil
}

// SetupLogging sends the standard logger to stderr and to a rotating file in the
// config directory. The returned closer flushes the file on shutdown.
func SetupLogging() (io.Closer, error) {
	logPath, err := LogFilePath()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve log file: %w", err)
	}

	sink := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}

	log.SetOutput(io.MultiWriter(os.Stderr, sink))
	log.SetFlags(log.LstdFlags)
	log.Printf("[Config] Logging to %s", logPath)
	return sink, nil
}
