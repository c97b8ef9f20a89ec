package command

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voisia/internal/catalog"
	"voisia/internal/credentials"
	"voisia/internal/logger"
	"voisia/internal/models"
	"voisia/internal/provider"
	"voisia/internal/provider/anthropic"
	"voisia/internal/provider/openai"
)

type fakeAnthropic struct {
	got  anthropic.Params
	resp *anthropic.Response
	err  error
}

func (f *fakeAnthropic) Generate(_ context.Context, p anthropic.Params) (*anthropic.Response, error) {
	f.got = p
	return f.resp, f.err
}

type fakeOpenAI struct {
	got  openai.Params
	resp *openai.Response
	err  error
}

func (f *fakeOpenAI) Generate(_ context.Context, p openai.Params) (*openai.Response, error) {
	f.got = p
	return f.resp, f.err
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llm-info.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newFacade(t *testing.T, d Deps) *Facade {
	t.Helper()
	if d.Anthropic == nil {
		d.Anthropic = &fakeAnthropic{}
	}
	if d.OpenAI == nil {
		d.OpenAI = &fakeOpenAI{}
	}
	if d.Catalog == nil {
		d.Catalog = catalog.NewLoader(filepath.Join(t.TempDir(), "missing.json"))
	}
	d.Logger = logger.Discard()
	f, err := New(d)
	require.NoError(t, err)
	return f
}

func TestGenerateAnthropicResponse_MapsArgs(t *testing.T) {
	system := "be terse"
	fake := &fakeAnthropic{resp: &anthropic.Response{ID: "msg_01"}}
	f := newFacade(t, Deps{Anthropic: fake})

	history := []models.Message{{Role: models.RoleUser, Content: "a"}, {Role: models.RoleAssistant, Content: "b"}}
	resp, err := f.GenerateAnthropicResponse(context.Background(), AnthropicArgs{
		Model:        "claude-x",
		Input:        "c",
		System:       &system,
		MaxTokens:    100,
		Temperature:  0.5,
		TopP:         1,
		ConvoHistory: history,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_01", resp.ID)

	assert.Equal(t, anthropic.Params{
		Model:       "claude-x",
		History:     history,
		Input:       "c",
		System:      &system,
		MaxTokens:   100,
		Temperature: 0.5,
		TopP:        1,
	}, fake.got)
}

func TestGenerateOpenAIResponse_MapsArgs(t *testing.T) {
	fake := &fakeOpenAI{resp: &openai.Response{ID: "resp_01"}}
	f := newFacade(t, Deps{OpenAI: fake})

	resp, err := f.GenerateOpenAIResponse(context.Background(), OpenAIArgs{
		Model:       "gpt-x",
		Input:       "hi",
		MaxTokens:   50,
		Temperature: 0.2,
		TopP:        0.9,
		Store:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "resp_01", resp.ID)
	assert.Equal(t, openai.Params{Model: "gpt-x", Input: "hi", MaxTokens: 50, Temperature: 0.2, TopP: 0.9, Store: true}, fake.got)
}

func TestGenerate_ErrorsCarryStage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "credential",
			err:  &credentials.MissingError{Provider: credentials.ProviderAnthropic, Variable: "ANTHROPIC_API_KEY"},
			want: "credential: ",
		},
		{
			name: "validation",
			err:  &provider.ValidationError{Field: "temperature", Reason: "must be at most 1"},
			want: "validation: temperature must be at most 1",
		},
		{
			name: "upstream",
			err:  &provider.UpstreamError{Provider: "anthropic", StatusCode: 429, Body: `{"error":"rate_limited"}`},
			want: `upstream: anthropic API call failed with status 429: {"error":"rate_limited"}`,
		},
		{
			name: "transport",
			err:  &provider.TransportError{Provider: "anthropic", Cause: errors.New("connection reset")},
			want: "http: anthropic HTTP request failed: connection reset",
		},
		{
			name: "parse",
			err:  provider.NewParseError("anthropic", []byte("<html>"), errors.New("invalid character")),
			want: "parse: failed to parse anthropic response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFacade(t, Deps{Anthropic: &fakeAnthropic{err: tt.err}})

			_, err := f.GenerateAnthropicResponse(context.Background(), AnthropicArgs{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, err.Error(), Describe(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestGetAvailableModels(t *testing.T) {
	path := writeCatalog(t, `{"models":[{"id":"m1","display_name":"M1","provider":"A","tags":["chat"],"params":{"max_tokens":8000,"temperature":0.7,"top_p":1.0}}]}`)
	f := newFacade(t, Deps{Catalog: catalog.NewLoader(path)})

	got, err := f.GetAvailableModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.ModelInfo{{
		ID:          "m1",
		DisplayName: "M1",
		Provider:    "A",
		Tags:        []string{"chat"},
		Params:      catalog.ModelParams{MaxTokens: 8000, Temperature: 0.7, TopP: 1.0},
	}}, got)
}

func TestGetAvailableModels_CatalogErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f := newFacade(t, Deps{})
		_, err := f.GetAvailableModels(context.Background())
		require.Error(t, err)
		assert.Regexp(t, `^catalog: read catalog`, err.Error())
	})

	t.Run("malformed", func(t *testing.T) {
		f := newFacade(t, Deps{Catalog: catalog.NewLoader(writeCatalog(t, `{"models":`))})
		_, err := f.GetAvailableModels(context.Background())
		require.Error(t, err)
		assert.Regexp(t, `^catalog: parse catalog`, err.Error())
	})
}

func TestGenerate_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	creds := credentials.Static{
		Keys:      map[credentials.Provider]string{credentials.ProviderOpenAI: "sk-test"},
		Endpoints: map[credentials.Provider]string{credentials.ProviderOpenAI: srv.URL},
	}
	client, err := openai.New(creds, provider.NewHTTPClient(time.Second), logger.Discard())
	require.NoError(t, err)

	f := newFacade(t, Deps{OpenAI: client, RequestTimeout: 50 * time.Millisecond})
	_, err = f.GenerateOpenAIResponse(context.Background(), OpenAIArgs{Model: "gpt-x", Input: "hi", MaxTokens: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Regexp(t, `^http: `, err.Error())
}

func TestGenerate_UpstreamBodyVerbatim(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	t.Cleanup(srv.Close)

	creds := credentials.Static{
		Keys:      map[credentials.Provider]string{credentials.ProviderAnthropic: "sk-ant"},
		Endpoints: map[credentials.Provider]string{credentials.ProviderAnthropic: srv.URL},
	}
	client, err := anthropic.New(creds, provider.NewHTTPClient(time.Second), logger.Discard())
	require.NoError(t, err)

	f := newFacade(t, Deps{Anthropic: client})
	_, err = f.GenerateAnthropicResponse(context.Background(), AnthropicArgs{Model: "claude-x", Input: "hi", MaxTokens: 100, Temperature: 0.5, TopP: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), `{"error":"rate_limited"}`)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_RequiresDependencies(t *testing.T) {
	loader := catalog.NewLoader("x.json")
	tests := []struct {
		name string
		deps Deps
	}{
		{name: "no anthropic", deps: Deps{OpenAI: &fakeOpenAI{}, Catalog: loader}},
		{name: "no openai", deps: Deps{Anthropic: &fakeAnthropic{}, Catalog: loader}},
		{name: "no catalog", deps: Deps{Anthropic: &fakeAnthropic{}, OpenAI: &fakeOpenAI{}}},
		{name: "negative timeout", deps: Deps{Anthropic: &fakeAnthropic{}, OpenAI: &fakeOpenAI{}, Catalog: loader, RequestTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.deps)
			assert.Error(t, err)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Equal(t, "plain", Describe(errors.New("plain")))
	assert.Equal(t, "http: context canceled", Describe(context.Canceled))
	assert.Equal(t, "catalog: read catalog \"x\": boom", Describe(&catalog.IOError{Path: "x", Cause: errors.New("boom")}))
}
