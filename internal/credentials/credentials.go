// Package credentials resolves provider API keys and endpoints from the process
// environment. Lookups are read-through; nothing is cached.
package credentials

import (
	"fmt"
	"os"
	"strings"
)

// Provider names an upstream LLM service.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	// ProviderGemini has a key slot but no client yet.
	ProviderGemini Provider = "gemini"
)

const (
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultOpenAIEndpoint    = "https://api.openai.com/v1/responses"
)

type envNames struct {
	key      string
	endpoint string
}

var envByProvider = map[Provider]envNames{
	ProviderAnthropic: {key: "ANTHROPIC_API_KEY", endpoint: "ANTHROPIC_API_ENDPOINT"},
	ProviderOpenAI:    {key: "OPENAI_API_KEY", endpoint: "OPENAI_API_ENDPOINT"},
	ProviderGemini:    {key: "GEMINI_API_KEY"},
}

var defaultEndpoints = map[Provider]string{
	ProviderAnthropic: DefaultAnthropicEndpoint,
	ProviderOpenAI:    DefaultOpenAIEndpoint,
}

// Source supplies credentials and endpoints to the provider clients.
type Source interface {
	APIKey(p Provider) (string, error)
	Endpoint(p Provider) string
}

// MissingError reports that no API key is configured for a provider.
type MissingError struct {
	Provider Provider
	Variable string
}

func (e *MissingError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("%s API key is not configured", e.Provider)
	}
	return fmt.Sprintf("%s API key is not found: set %s", e.Provider, e.Variable)
}

func (e *MissingError) Stage() string { return "credential" }

// EnvSource reads credentials from environment variables on every call.
type EnvSource struct {
	lookup func(string) (string, bool)
}

// NewEnvSource returns a Source backed by os.LookupEnv.
func NewEnvSource() *EnvSource {
	return &EnvSource{lookup: os.LookupEnv}
}

func (s *EnvSource) APIKey(p Provider) (string, error) {
	names, ok := envByProvider[p]
	if !ok {
		return "", &MissingError{Provider: p}
	}
	value, ok := s.lookup(names.key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", &MissingError{Provider: p, Variable: names.key}
	}
	return strings.TrimSpace(value), nil
}

func (s *EnvSource) Endpoint(p Provider) string {
	if names, ok := envByProvider[p]; ok && names.endpoint != "" {
		if value, ok := s.lookup(names.endpoint); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return defaultEndpoints[p]
}

// Static is a fixed Source, handy for tests and embedding.
type Static struct {
	Keys      map[Provider]string
	Endpoints map[Provider]string
}

func (s Static) APIKey(p Provider) (string, error) {
	key, ok := s.Keys[p]
	if !ok || key == "" {
		return "", &MissingError{Provider: p}
	}
	return key, nil
}

func (s Static) Endpoint(p Provider) string {
	if endpoint, ok := s.Endpoints[p]; ok && endpoint != "" {
		return endpoint
	}
	return defaultEndpoints[p]
}
