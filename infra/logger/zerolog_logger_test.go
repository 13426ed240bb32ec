package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	require.NoError(t, Configure("debug", false))
	require.NoError(t, Configure("warn", false))
	assert.Error(t, Configure("loud", false))
}

func TestConfigurePrettySetsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	require.NoError(t, Configure("info", true))
	assert.Equal(t, "dev", os.Getenv("APP_ENV"))
}

func TestNewReturnsWorkingLogger(t *testing.T) {
	log := New("test")
	require.NotNil(t, log)
	// Smoke: none of these may panic.
	log.Debugf("debug %d", 1)
	log.Debugw("debug", map[string]any{"k": "v"})
	log.Infof("info")
	log.Warnf("warn")
	log.Errorf("error")
}
