// Package openai speaks the OpenAI Responses API.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"voisia/internal/credentials"
	"voisia/internal/models"
	"voisia/internal/provider"
)

const providerName = "openai"

// Params are the provider-neutral inputs of one generate call.
type Params struct {
	Model       string
	History     []models.Message
	Input       string
	MaxTokens   uint32
	Temperature float32
	TopP        float32
	Store       bool
	System      *string
}

// Client sends Responses API requests. It is safe for concurrent use.
type Client struct {
	creds  credentials.Source
	client *http.Client
	log    *slog.Logger
}

// New constructs a client sharing the given HTTP client.
func New(creds credentials.Source, client *http.Client, log *slog.Logger) (*Client, error) {
	if creds == nil {
		return nil, errors.New("credential source must not be nil")
	}
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		creds:  creds,
		client: client,
		log:    log.With("provider", providerName),
	}, nil
}

// BuildRequest maps neutral params onto the Responses API field names:
// messages become input, max_tokens becomes max_output_tokens and the system
// prompt becomes the raw instructions string. History is copied.
func BuildRequest(p Params) (Request, error) {
	req := Request{
		Input:           models.AppendUserTurn(p.History, p.Input),
		Model:           p.Model,
		MaxOutputTokens: p.MaxTokens,
		Store:           p.Store,
		Temperature:     p.Temperature,
		TopP:            p.TopP,
	}
	if p.System != nil {
		instructions := *p.System
		req.Instructions = &instructions
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks numeric ranges and the turn sequence.
func (r Request) Validate() error {
	if err := provider.Validate(r); err != nil {
		return err
	}
	return provider.ValidateConversation(r.Input)
}

// Generate performs one Responses API exchange.
func (c *Client) Generate(ctx context.Context, p Params) (*Response, error) {
	req, err := BuildRequest(p)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	apiKey, err := c.creds.APIKey(credentials.ProviderOpenAI)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	endpoint := c.creds.Endpoint(credentials.ProviderOpenAI)

	c.log.InfoContext(ctx, "sending request",
		"model", req.Model,
		"messages", len(req.Input),
		"instructions", req.Instructions != nil,
		"store", req.Store,
		"max_output_tokens", req.MaxOutputTokens,
		"endpoint", endpoint,
	)

	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
	}
	ex, err := provider.PostJSON(ctx, c.client, providerName, endpoint, headers, req)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	var resp Response
	if err := provider.Decode(providerName, ex, &resp); err != nil {
		return nil, c.fail(ctx, err)
	}

	attrs := []any{
		"id", resp.ID,
		"model", resp.Model,
		"status", resp.Status,
		"output_items", len(resp.Output),
	}
	if resp.Usage != nil {
		attrs = append(attrs, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)
	}
	c.log.InfoContext(ctx, "response received", attrs...)
	return &resp, nil
}

func (c *Client) fail(ctx context.Context, err error) error {
	c.log.ErrorContext(ctx, "request failed", "stage", provider.StageOf(err), "error", err)
	return err
}
