package provider

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) Environment {
	return Environment{lookup: func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}}
}

func TestAPIKeyPrefersForgeKey(t *testing.T) {
	env := fakeEnv(map[string]string{
		"FORGE_KEY":         "forge",
		"OPEN_ROUTER_KEY":   "openrouter",
		"OPENAI_API_KEY":    "openai",
		"ANTHROPIC_API_KEY": "anthropic",
	})
	key, err := env.APIKey()
	require.NoError(t, err)
	require.Equal(t, "forge", key)
}

func TestAPIKeyFallsThroughPrecedence(t *testing.T) {
	env := fakeEnv(map[string]string{"ANTHROPIC_API_KEY": "anthropic"})
	key, err := env.APIKey()
	require.NoError(t, err)
	require.Equal(t, "anthropic", key)
}

func TestAPIKeyErrorsWhenUnset(t *testing.T) {
	env := fakeEnv(nil)
	_, err := env.APIKey()
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestProviderURLEmptyWhenUnset(t *testing.T) {
	env := fakeEnv(nil)
	require.Equal(t, "", env.ProviderURL())
}

func TestShellFallsBackToDefault(t *testing.T) {
	env := fakeEnv(nil)
	shell := env.Shell()
	if runtime.GOOS == "windows" {
		require.Equal(t, "cmd.exe", shell)
	} else {
		require.Equal(t, "/bin/sh", shell)
	}
}

func TestShellRespectsSHELL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("SHELL is not consulted on windows")
	}
	env := fakeEnv(map[string]string{"SHELL": "/usr/bin/zsh"})
	require.Equal(t, "/usr/bin/zsh", env.Shell())
}
