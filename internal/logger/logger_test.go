package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, logger.InfoLevel, logger.ParseLevel("INFO"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("warning"))
	assert.Equal(t, logger.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, logger.WarnLevel, logger.ParseLevel("bogus"))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "debug", true)

	logger.With("sampler").Info().Msg("tick")
	assert.Contains(t, buf.String(), "component=sampler")
	assert.Contains(t, buf.String(), "tick")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "warning", true)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("hidden too")
	assert.Empty(t, buf.String())

	logger.ErrorWithCode(errors.New().New(errors.ErrNotExists)).Msg("shown")
	assert.Contains(t, buf.String(), "resource_not_found")
}
