package anthropic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voisia/internal/models"
)

const (
	ThinkingEnabled  = "enabled"
	ThinkingDisabled = "disabled"

	// MinThinkingBudget is the smallest budget_tokens the Messages API accepts.
	MinThinkingBudget = 1024

	BlockText     = "text"
	BlockThinking = "thinking"
)

// SystemBlock is one element of the structured system prompt.
type SystemBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Thinking requests extended reasoning under a token budget.
type Thinking struct {
	Type         string  `json:"type" validate:"oneof=enabled disabled"`
	BudgetTokens *uint32 `json:"budget_tokens,omitempty"`
}

// UnmarshalJSON defaults an absent type to "disabled".
func (t *Thinking) UnmarshalJSON(data []byte) error {
	type alias Thinking
	raw := alias{Type: ThinkingDisabled}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		raw.Type = ThinkingDisabled
	}
	*t = Thinking(raw)
	return nil
}

// Enabled reports whether reasoning output was requested.
func (t *Thinking) Enabled() bool {
	return t != nil && t.Type == ThinkingEnabled
}

// Request is the Messages API request body. System and Thinking are elided
// from the payload when nil.
type Request struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages" validate:"min=1,dive"`
	System      []SystemBlock    `json:"system,omitempty"`
	MaxTokens   uint32           `json:"max_tokens" validate:"min=1"`
	Temperature float32          `json:"temperature" validate:"gte=0,lte=1"`
	TopP        float32          `json:"top_p" validate:"gte=0,lte=1"`
	Thinking    *Thinking        `json:"thinking,omitempty"`
}

// Response is the Messages API response body.
type Response struct {
	ID           string         `json:"id" validate:"required"`
	Model        string         `json:"model"`
	Role         string         `json:"role"`
	Type         string         `json:"type"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Content      []ContentBlock `json:"content" validate:"required"`
	Usage        Usage          `json:"usage"`
}

// Usage reports token accounting for one exchange.
type Usage struct {
	InputTokens  uint32 `json:"input_tokens"`
	OutputTokens uint32 `json:"output_tokens"`
}

// Text concatenates the text blocks of the response.
func (r *Response) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == BlockText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Thinking concatenates the reasoning blocks of the response.
func (r *Response) Thinking() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == BlockThinking {
			b.WriteString(block.Thinking)
		}
	}
	return b.String()
}

// Message converts the reply into a conversation turn the UI can append to history.
func (r *Response) Message() models.Message {
	role := r.Role
	if role == "" {
		role = models.RoleAssistant
	}
	return models.Message{Role: role, Content: r.Text()}
}

// ContentBlock is one element of the response content array, discriminated by
// Type. Text and thinking blocks are decoded into fields; any other type is
// kept verbatim and re-emitted unchanged.
type ContentBlock struct {
	Type      string
	Text      string
	Thinking  string
	Signature string

	raw json.RawMessage
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type thinkingBlock struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type      string  `json:"type"`
		Text      *string `json:"text"`
		Thinking  *string `json:"thinking"`
		Signature *string `json:"signature"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch probe.Type {
	case "":
		return errors.New("content block missing type")
	case BlockText:
		if probe.Text == nil {
			return errors.New("text block missing text")
		}
		*b = ContentBlock{Type: BlockText, Text: *probe.Text}
	case BlockThinking:
		if probe.Thinking == nil || probe.Signature == nil {
			return errors.New("thinking block missing thinking or signature")
		}
		*b = ContentBlock{Type: BlockThinking, Thinking: *probe.Thinking, Signature: *probe.Signature}
	default:
		*b = ContentBlock{Type: probe.Type, raw: bytes.Clone(data)}
	}
	return nil
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockText:
		return json.Marshal(textBlock{Type: b.Type, Text: b.Text})
	case BlockThinking:
		return json.Marshal(thinkingBlock{Type: b.Type, Thinking: b.Thinking, Signature: b.Signature})
	default:
		if len(b.raw) > 0 {
			return b.raw, nil
		}
		if b.Type == "" {
			return nil, fmt.Errorf("content block has no type")
		}
		return json.Marshal(struct {
			Type string `json:"type"`
		}{Type: b.Type})
	}
}

// Raw returns the verbatim JSON of a block with an unrecognised type.
func (b ContentBlock) Raw() json.RawMessage {
	return b.raw
}
