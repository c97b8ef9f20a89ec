package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource_APIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "")

	src := NewEnvSource()

	key, err := src.APIKey(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", key)

	_, err = src.APIKey(ProviderOpenAI)
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ProviderOpenAI, missing.Provider)
	assert.Equal(t, "OPENAI_API_KEY", missing.Variable)
	assert.Equal(t, "credential", missing.Stage())
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestEnvSource_ReadThrough(t *testing.T) {
	src := NewEnvSource()

	t.Setenv("OPENAI_API_KEY", "first")
	key, err := src.APIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "first", key)

	t.Setenv("OPENAI_API_KEY", "second")
	key, err = src.APIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "second", key)
}

func TestEnvSource_GeminiKeyReserved(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")

	key, err := NewEnvSource().APIKey(ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "g-key", key)
	assert.Empty(t, NewEnvSource().Endpoint(ProviderGemini))
}

func TestEnvSource_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		env      map[string]string
		want     string
	}{
		{
			name:     "anthropic default",
			provider: ProviderAnthropic,
			env:      map[string]string{"ANTHROPIC_API_ENDPOINT": ""},
			want:     DefaultAnthropicEndpoint,
		},
		{
			name:     "openai default",
			provider: ProviderOpenAI,
			env:      map[string]string{"OPENAI_API_ENDPOINT": ""},
			want:     DefaultOpenAIEndpoint,
		},
		{
			name:     "anthropic override",
			provider: ProviderAnthropic,
			env:      map[string]string{"ANTHROPIC_API_ENDPOINT": "http://127.0.0.1:9999/v1/messages"},
			want:     "http://127.0.0.1:9999/v1/messages",
		},
		{
			name:     "openai override",
			provider: ProviderOpenAI,
			env:      map[string]string{"OPENAI_API_ENDPOINT": " http://proxy.local/v1/responses "},
			want:     "http://proxy.local/v1/responses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, NewEnvSource().Endpoint(tt.provider))
		})
	}
}

func TestStatic(t *testing.T) {
	src := Static{
		Keys:      map[Provider]string{ProviderOpenAI: "sk"},
		Endpoints: map[Provider]string{ProviderOpenAI: "http://x"},
	}

	key, err := src.APIKey(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk", key)
	assert.Equal(t, "http://x", src.Endpoint(ProviderOpenAI))
	assert.Equal(t, DefaultAnthropicEndpoint, src.Endpoint(ProviderAnthropic))

	_, err = src.APIKey(ProviderAnthropic)
	assert.Error(t, err)
}
