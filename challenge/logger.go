package challenge

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB     = 10
	maxLogBackups    = 3
	debugLogFileName = "challengeDebug.log"
)

var (
	debugLogger *log.Logger
	debugSink   *lumberjack.Logger
	debugMutex  sync.Mutex
)

// InitDebugLogger opens the block-page debug log inside configDir.
// Detection works without it, the detailed traces are simply dropped.
func InitDebugLogger(configDir string) error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugSink != nil {
		return nil
	}

	logPath := filepath.Join(configDir, debugLogFileName)
	debugSink = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
	}
	debugLogger = log.New(debugSink, "", log.LstdFlags|log.Lmicroseconds)

	debugLogger.Printf("=== Challenge debug log opened: %s ===", logPath)
	return nil
}

// CloseDebugLogger flushes and closes the debug log
func CloseDebugLogger() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugSink == nil {
		return nil
	}
	err := debugSink.Close()
	debugSink = nil
	debugLogger = nil
	return err
}

func logDebug(format string, args ...interface{}) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}

// logResponse writes a short trace of the inspected response to the debug log
func logResponse(statusCode, bodySize int, headers map[string]string, bodyPreview string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s: %s\n", k, headers[k])
	}

	logDebug("Response: status=%d size=%d\n  Headers:\n%s  Body preview: %s", statusCode, bodySize, b.String(), bodyPreview)
}

// logDetection writes the verdict to both the main log and the debug log
func logDetection(info *Info) {
	if info == nil {
		logDebug("Result: no challenge detected")
		return
	}
	log.Printf("[Challenge] %s detected (status %d): %s", info.Kind, info.StatusCode, strings.Join(info.Indicators, ", "))
	logDebug("Result: %s detected, indicators: %v", info.Kind, info.Indicators)
}
