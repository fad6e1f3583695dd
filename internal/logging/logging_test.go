package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/doismellburning/samoyed/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsNonNilLoggerForEachLevel(t *testing.T) {
	levels := []config.LogLevel{config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError, "bogus"}
	for _, lvl := range levels {
		logger := New(lvl, FileOptions{})
		require.NotNil(t, logger)
	}
}

func TestNewWritesToRotatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tnc.log")
	logger := New(config.LogLevelInfo, FileOptions{Path: path, MaxSizeMB: 1})
	logger.Info("hello")

	_, err := os.Stat(path)
	require.NoError(t, err)
}
