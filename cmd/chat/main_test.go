package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/platepal/frontend/internal/config"
	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--backend-url", "http://agent:9000", "--mode", "sql"}))

	cfg := &config.Config{Backend: config.BackendConfig{
		Kind:    config.BackendArk,
		URL:     "http://localhost:5001",
		Mode:    chat.ModeMongo,
		DevMode: true,
	}}
	opts := &options{backendURL: "http://agent:9000", mode: "sql"}
	require.NoError(t, applyFlags(cmd, opts, cfg))

	assert.Equal(t, config.BackendHTTP, cfg.Backend.Kind)
	assert.Equal(t, "http://agent:9000", cfg.Backend.URL)
	assert.Equal(t, chat.ModeSQL, cfg.Backend.Mode)
	assert.True(t, cfg.Backend.DevMode, "unset --dev keeps the environment value")
}

func TestApplyFlagsRejectsBadMode(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--mode", "redis"}))

	err := applyFlags(cmd, &options{mode: "redis"}, &config.Config{})
	assert.Error(t, err)
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"backend-url", "mode", "dev", "log-file", "style"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
