package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BANK_USERNAME", "bank")
	t.Setenv("TERMINAL_PASSWORD", "terminal-pass")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bank", cfg.BankUsername)
	assert.Equal(t, "terminal-pass", cfg.TerminalPassword.Expose())
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, 2*time.Second, cfg.LedgerLockTimeout)
	assert.Equal(t, 3, cfg.LedgerLockAttempts)
	assert.Equal(t, 3, cfg.NotifyAttempts)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 720*time.Hour, cfg.CardTokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BANK_USERNAME", "bank")
	t.Setenv("TERMINAL_PASSWORD", "terminal-pass")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "1m")
	t.Setenv("LEDGER_LOCK_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.LedgerLockAttempts)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing username", env: map[string]string{"TERMINAL_PASSWORD": "p"}},
		{name: "missing terminal password", env: map[string]string{"BANK_USERNAME": "bank"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("BANK_USERNAME", "")
			t.Setenv("TERMINAL_PASSWORD", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config.Load")
		})
	}
}
