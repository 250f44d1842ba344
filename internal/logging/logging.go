// Package logging builds the process-wide zap.Logger every ambient and
// domain component takes as a dependency. Grounded on the zap usage
// pattern established by other_examples/111e6b47_kry4r-nuka-world__internal-mcp-client.go.go
// (constructor-injected *zap.Logger, structured fields at call sites) and
// on the teacher's os.Getenv-with-default idiom (internal/tools/web_search.go)
// for reading the log level from the environment.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel is the environment variable consulted for the log level when
// New is called without an explicit override.
const EnvLevel = "CHATCORE_LOG_LEVEL"

// New builds a zap.Logger writing structured JSON to stderr. level may be
// "debug", "info", "warn", "error", or "" (read CHATCORE_LOG_LEVEL,
// defaulting to "info").
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = strings.ToLower(strings.TrimSpace(os.Getenv(EnvLevel)))
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// Nop returns a logger that discards everything, for tests and callers
// that have not wired a real one.
func Nop() *zap.Logger {
	return zap.NewNop()
}
