package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/courtline/go/internal/config"
)

func TestSetupServices(t *testing.T) {
	cfg := config.Default()

	services, err := setupServices(&cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, services.Outbox)
	assert.NotNil(t, services.Dispatcher)
	assert.NotNil(t, services.Triggers)
}

func TestSetupServicesBadTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Timezone = "Mars/Olympus"

	_, err := setupServices(&cfg, nil)
	require.Error(t, err)
}

func TestSetupLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setupLogLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogLevel("shouting")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
