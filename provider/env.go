package provider

import (
	"errors"
	"os"
	"runtime"
)

// ErrNoAPIKey is returned when none of the recognized API key environment
// variables are set.
var ErrNoAPIKey = errors.New("provider: no API key found in FORGE_KEY, OPEN_ROUTER_KEY, OPENAI_API_KEY, or ANTHROPIC_API_KEY")

// Environment resolves process environment variables into the values
// cmd/agentctl needs to construct a Provider: which API key to use and
// which shell to run tool commands through. Grounded on
// original_source/crates/forge_infra/src/env.rs's ForgeEnvironmentService,
// narrowed to the API-key/shell resolution this runtime's contract-only
// Provider and tool dispatcher need; full OS/cwd/home discovery is out of
// scope.
type Environment struct {
	lookup func(string) (string, bool)
}

// NewEnvironment builds an Environment backed by os.LookupEnv.
func NewEnvironment() Environment {
	return Environment{lookup: os.LookupEnv}
}

// APIKey resolves the API key by the documented precedence: FORGE_KEY,
// then OPEN_ROUTER_KEY, then OPENAI_API_KEY, then ANTHROPIC_API_KEY.
func (e Environment) APIKey() (string, error) {
	for _, name := range []string{"FORGE_KEY", "OPEN_ROUTER_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		if v, ok := e.lookup(name); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrNoAPIKey
}

// ProviderURL resolves FORGE_PROVIDER_URL, the base URL for a Forge-compatible
// OpenAI proxy. Empty when unset, in which case the caller should fall back
// to the provider SDK's default endpoint.
func (e Environment) ProviderURL() string {
	v, _ := e.lookup("FORGE_PROVIDER_URL")
	return v
}

// Shell resolves the shell tool executors should invoke commands through:
// COMSPEC on Windows, otherwise $SHELL falling back to /bin/sh.
func (e Environment) Shell() string {
	if runtime.GOOS == "windows" {
		if v, ok := e.lookup("COMSPEC"); ok && v != "" {
			return v
		}
		return "cmd.exe"
	}
	if v, ok := e.lookup("SHELL"); ok && v != "" {
		return v
	}
	return "/bin/sh"
}
