// Package command exposes the operations the UI invokes. Each operation adapts
// the UI argument record into a provider call and reports failures as
// "<stage>: <detail>" strings.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voisia/internal/catalog"
	"voisia/internal/logger"
	"voisia/internal/models"
	"voisia/internal/provider"
	"voisia/internal/provider/anthropic"
	"voisia/internal/provider/openai"
)

// Command names as the UI invokes them.
const (
	GenerateAnthropic = "generate_anthropic_response"
	GenerateOpenAI    = "generate_openai_response"
	AvailableModels   = "get_available_models"
)

// AnthropicGenerator is satisfied by *anthropic.Client.
type AnthropicGenerator interface {
	Generate(ctx context.Context, p anthropic.Params) (*anthropic.Response, error)
}

// OpenAIGenerator is satisfied by *openai.Client.
type OpenAIGenerator interface {
	Generate(ctx context.Context, p openai.Params) (*openai.Response, error)
}

// CatalogSource is satisfied by *catalog.Loader.
type CatalogSource interface {
	Get() (*catalog.Catalog, error)
}

// Deps wires the facade.
type Deps struct {
	Anthropic AnthropicGenerator
	OpenAI    OpenAIGenerator
	Catalog   CatalogSource
	Logger    *slog.Logger

	// RequestTimeout bounds each generate call. Zero disables the deadline.
	RequestTimeout time.Duration
}

// Facade holds no per-call state and is safe for concurrent use.
type Facade struct {
	anthropic AnthropicGenerator
	openai    OpenAIGenerator
	catalog   CatalogSource
	log       *slog.Logger
	timeout   time.Duration
}

// New validates deps and returns a facade.
func New(d Deps) (*Facade, error) {
	switch {
	case d.Anthropic == nil:
		return nil, errors.New("anthropic client must not be nil")
	case d.OpenAI == nil:
		return nil, errors.New("openai client must not be nil")
	case d.Catalog == nil:
		return nil, errors.New("catalog source must not be nil")
	case d.RequestTimeout < 0:
		return nil, fmt.Errorf("request timeout %s must not be negative", d.RequestTimeout)
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Facade{
		anthropic: d.Anthropic,
		openai:    d.OpenAI,
		catalog:   d.Catalog,
		log:       log,
		timeout:   d.RequestTimeout,
	}, nil
}

// AnthropicArgs is the argument record of generate_anthropic_response.
type AnthropicArgs struct {
	Model        string              `json:"model"`
	Input        string              `json:"input"`
	System       *string             `json:"system,omitempty"`
	MaxTokens    uint32              `json:"maxTokens"`
	Temperature  float32             `json:"temperature"`
	TopP         float32             `json:"topP"`
	Thinking     *anthropic.Thinking `json:"thinking,omitempty"`
	ConvoHistory []models.Message    `json:"convoHistory"`
}

// OpenAIArgs is the argument record of generate_openai_response.
type OpenAIArgs struct {
	Model               string           `json:"model"`
	Input               string           `json:"input"`
	MaxTokens           uint32           `json:"maxTokens"`
	Temperature         float32          `json:"temperature"`
	TopP                float32          `json:"topP"`
	Store               bool             `json:"store"`
	System              *string          `json:"system,omitempty"`
	ConversationHistory []models.Message `json:"conversationHistory"`
}

// GenerateAnthropicResponse appends args.Input to the history and sends it to
// the Anthropic Messages API.
func (f *Facade) GenerateAnthropicResponse(ctx context.Context, args AnthropicArgs) (*anthropic.Response, error) {
	ctx, cancel := f.begin(ctx, GenerateAnthropic)
	defer cancel()

	resp, err := f.anthropic.Generate(ctx, anthropic.Params{
		Model:       args.Model,
		History:     args.ConvoHistory,
		Input:       args.Input,
		System:      args.System,
		MaxTokens:   args.MaxTokens,
		Temperature: args.Temperature,
		TopP:        args.TopP,
		Thinking:    args.Thinking,
	})
	if err != nil {
		return nil, f.fail(ctx, err)
	}
	f.log.InfoContext(ctx, "command completed")
	return resp, nil
}

// GenerateOpenAIResponse appends args.Input to the history and sends it to
// the OpenAI Responses API.
func (f *Facade) GenerateOpenAIResponse(ctx context.Context, args OpenAIArgs) (*openai.Response, error) {
	ctx, cancel := f.begin(ctx, GenerateOpenAI)
	defer cancel()

	resp, err := f.openai.Generate(ctx, openai.Params{
		Model:       args.Model,
		History:     args.ConversationHistory,
		Input:       args.Input,
		MaxTokens:   args.MaxTokens,
		Temperature: args.Temperature,
		TopP:        args.TopP,
		Store:       args.Store,
		System:      args.System,
	})
	if err != nil {
		return nil, f.fail(ctx, err)
	}
	f.log.InfoContext(ctx, "command completed")
	return resp, nil
}

// GetAvailableModels returns the catalog entries in file order.
func (f *Facade) GetAvailableModels(ctx context.Context) ([]catalog.ModelInfo, error) {
	ctx = logger.WithAttrs(ctx, "call_id", uuid.NewString(), "command", AvailableModels)

	c, err := f.catalog.Get()
	if err != nil {
		return nil, f.fail(ctx, err)
	}
	list := c.Models()
	f.log.InfoContext(ctx, "models listed", "count", len(list), "path", c.Path())
	return list, nil
}

func (f *Facade) begin(ctx context.Context, name string) (context.Context, context.CancelFunc) {
	ctx = logger.WithAttrs(ctx, "call_id", uuid.NewString(), "command", name)
	if f.timeout > 0 {
		return context.WithTimeout(ctx, f.timeout)
	}
	return context.WithCancel(ctx)
}

func (f *Facade) fail(ctx context.Context, err error) error {
	e := &Error{Stage: provider.StageOf(err), Err: err}
	f.log.ErrorContext(ctx, "command failed", "stage", e.Stage, "error", err)
	return e
}

// Error is the failure surfaced to the UI. Its message is "<stage>: <detail>".
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Describe renders any error the way the UI displays it. Errors without a
// known stage are rendered unprefixed.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Error()
	}
	return (&Error{Stage: provider.StageOf(err), Err: err}).Error()
}
