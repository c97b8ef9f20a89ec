// Package anthropic speaks the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"voisia/internal/credentials"
	"voisia/internal/models"
	"voisia/internal/provider"
)

const (
	providerName = "anthropic"
	apiVersion   = "2023-06-01"
)

// Params are the provider-neutral inputs of one generate call.
type Params struct {
	Model       string
	History     []models.Message
	Input       string
	System      *string
	MaxTokens   uint32
	Temperature float32
	TopP        float32
	Thinking    *Thinking
}

// Client sends Messages API requests. It is safe for concurrent use.
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

// BuildRequest assembles and validates the wire request. History is copied.
func BuildRequest(p Params) (Request, error) {
	req := Request{
		Model:       p.Model,
		Messages:    models.AppendUserTurn(p.History, p.Input),
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}

	if p.System != nil {
		req.System = []SystemBlock{{Type: "text", Text: *p.System}}
	}

	if p.Thinking != nil {
		thinking := *p.Thinking
		if thinking.Type == "" {
			thinking.Type = ThinkingDisabled
		}
		if thinking.BudgetTokens != nil {
			budget := *thinking.BudgetTokens
			thinking.BudgetTokens = &budget
		}
		req.Thinking = &thinking
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks numeric ranges, the turn sequence and the thinking budget.
func (r Request) Validate() error {
	if err := provider.Validate(r); err != nil {
		return err
	}
	if err := provider.ValidateConversation(r.Messages); err != nil {
		return err
	}
	if r.Thinking.Enabled() {
		if r.Thinking.BudgetTokens == nil {
			return &provider.ValidationError{Field: "thinking.budget_tokens", Reason: "is required when thinking is enabled"}
		}
		budget := *r.Thinking.BudgetTokens
		if budget < MinThinkingBudget {
			return &provider.ValidationError{Field: "thinking.budget_tokens", Reason: fmt.Sprintf("must be at least %d, got %d", MinThinkingBudget, budget)}
		}
		if budget >= r.MaxTokens {
			return &provider.ValidationError{Field: "thinking.budget_tokens", Reason: fmt.Sprintf("must be less than max_tokens (%d), got %d", r.MaxTokens, budget)}
		}
	}
	return nil
}

// Generate performs one Messages API exchange.
func (c *Client) Generate(ctx context.Context, p Params) (*Response, error) {
	req, err := BuildRequest(p)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	apiKey, err := c.creds.APIKey(credentials.ProviderAnthropic)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	endpoint := c.creds.Endpoint(credentials.ProviderAnthropic)

	c.log.InfoContext(ctx, "sending request",
		"model", req.Model,
		"messages", len(req.Messages),
		"system", req.System != nil,
		"thinking", req.Thinking.Enabled(),
		"max_tokens", req.MaxTokens,
		"endpoint", endpoint,
	)

	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": apiVersion,
	}
	ex, err := provider.PostJSON(ctx, c.client, providerName, endpoint, headers, req)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	var resp Response
	if err := provider.Decode(providerName, ex, &resp); err != nil {
		return nil, c.fail(ctx, err)
	}

	c.log.InfoContext(ctx, "response received",
		"id", resp.ID,
		"model", resp.Model,
		"stop_reason", resp.StopReason,
		"blocks", len(resp.Content),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return &resp, nil
}

func (c *Client) fail(ctx context.Context, err error) error {
	c.log.ErrorContext(ctx, "request failed", "stage", provider.StageOf(err), "error", err)
	return err
}
