package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevelEnvironmentVariable overrides the default Info level, e.g. CTXPACK_LOG_LEVEL=debug.
const LogLevelEnvironmentVariable = "CTXPACK_LOG_LEVEL"

// NewApplicationLogger constructs a zap logger configured for human-readable console output
// on stderr, leaving stdout to the bundle itself.
func NewApplicationLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if requestedLevel := strings.TrimSpace(os.Getenv(LogLevelEnvironmentVariable)); requestedLevel != "" {
		level, parseError := zap.ParseAtomicLevel(requestedLevel)
		if parseError != nil {
			return nil, fmt.Errorf("parse %s: %w", LogLevelEnvironmentVariable, parseError)
		}
		config.Level = level
	}
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	return config.Build()
}
