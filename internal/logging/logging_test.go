package logging

import (
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	logger, err := New("")
	testutil.RequireNoError(t, err, "build logger")
	testutil.RequireTrue(t, logger.Core().Enabled(0), "info level enabled by default")
	logger.Sync()
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	logger, err := New("not-a-real-level")
	testutil.RequireNoError(t, err, "build logger with invalid level")
	testutil.RequireTrue(t, logger != nil, "logger constructed despite invalid level")
	testutil.RequireTrue(t, logger.Core().Enabled(0), "info level enabled after fallback")
	testutil.RequireTrue(t, !logger.Core().Enabled(-1), "debug level disabled after fallback")
	logger.Sync()
}

func TestNopDiscardsWithoutError(t *testing.T) {
	logger := Nop()
	testutil.RequireTrue(t, logger != nil, "nop logger constructed")
	logger.Info("discarded")
}
