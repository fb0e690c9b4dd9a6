package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.verbosity))
	}
}

func TestSetupLogger_WritesConsoleAndFile(t *testing.T) {
	prevLogger := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "pmr.log")
	SetupLogger(Options{Verbosity: 1, File: logFile, Console: &console})

	logger := GetLogger("resolver")
	logger.Info().Msg("rebuilt")
	logger.Debug().Msg("hidden")

	assert.Contains(t, console.String(), "rebuilt")
	assert.Contains(t, console.String(), "resolver")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"resolver"`)
}
