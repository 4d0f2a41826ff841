package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidLevelsAndFormats(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		for _, format := range []string{"json", "console"} {
			logger, err := New(level, format)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		}
	}
}

func TestNew_InvalidLevelErrors(t *testing.T) {
	_, err := New("not-a-level", "json")
	assert.Error(t, err)
}
