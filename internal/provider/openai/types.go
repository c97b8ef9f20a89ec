package openai

import (
	"encoding/json"
	"strings"

	"voisia/internal/models"
)

// Request is the Responses API request body. Instructions is elided when nil.
type Request struct {
	Input           []models.Message `json:"input" validate:"min=1,dive"`
	Model           string           `json:"model"`
	MaxOutputTokens uint32           `json:"max_output_tokens" validate:"min=1"`
	Store           bool             `json:"store"`
	Instructions    *string          `json:"instructions,omitempty"`
	Temperature     float32          `json:"temperature" validate:"gte=0,lte=1"`
	TopP            float32          `json:"top_p" validate:"gte=0,lte=1"`
}

// Response is the Responses API response body. Fields the backend does not
// interpret are kept as raw JSON so the UI sees them unchanged.
type Response struct {
	ID                 string            `json:"id" validate:"required"`
	Object             string            `json:"object"`
	CreatedAt          uint64            `json:"created_at"`
	Status             string            `json:"status"`
	Error              json.RawMessage   `json:"error,omitempty"`
	IncompleteDetails  json.RawMessage   `json:"incomplete_details,omitempty"`
	Instructions       json.RawMessage   `json:"instructions,omitempty"`
	MaxOutputTokens    *uint32           `json:"max_output_tokens"`
	Model              string            `json:"model"`
	Output             []OutputMessage   `json:"output" validate:"required"`
	ParallelToolCalls  bool              `json:"parallel_tool_calls"`
	PreviousResponseID *string           `json:"previous_response_id"`
	Store              bool              `json:"store"`
	Temperature        float32           `json:"temperature"`
	ToolChoice         json.RawMessage   `json:"tool_choice,omitempty"`
	Tools              []json.RawMessage `json:"tools"`
	TopP               float32           `json:"top_p"`
	Truncation         string            `json:"truncation"`
	Usage              *Usage            `json:"usage"`
	User               *string           `json:"user"`
	Metadata           map[string]any    `json:"metadata"`
}

// OutputMessage is one item of the response output array.
type OutputMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Role    string          `json:"role"`
	Content []OutputContent `json:"content"`
}

// OutputContent is one content part of an output message.
type OutputContent struct {
	Type        string            `json:"type"`
	Text        string            `json:"text"`
	Annotations []json.RawMessage `json:"annotations"`
}

// Usage reports token accounting for one exchange.
type Usage struct {
	InputTokens         uint32        `json:"input_tokens"`
	InputTokensDetails  *TokenDetails `json:"input_tokens_details,omitempty"`
	OutputTokens        uint32        `json:"output_tokens"`
	OutputTokensDetails *TokenDetails `json:"output_tokens_details,omitempty"`
	TotalTokens         uint32        `json:"total_tokens"`
}

// TokenDetails breaks token counts down further.
type TokenDetails struct {
	CachedTokens    *uint32 `json:"cached_tokens,omitempty"`
	ReasoningTokens *uint32 `json:"reasoning_tokens,omitempty"`
}

const outputText = "output_text"

// OutputText concatenates the output_text parts of every message item.
func (r *Response) OutputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == outputText {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// Message converts the reply into a conversation turn the UI can append to history.
func (r *Response) Message() models.Message {
	return models.Message{Role: models.RoleAssistant, Content: r.OutputText()}
}
