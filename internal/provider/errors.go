package provider

import (
	"context"
	"errors"
	"fmt"
)

// Stages name the step of a provider call that failed. They prefix the error
// strings handed back to the UI.
const (
	StageCredential = "credential"
	StageValidation = "validation"
	StageHTTP       = "http"
	StageParse      = "parse"
	StageUpstream   = "upstream"
	StageCatalog    = "catalog"
)

// maxSnippet bounds the body excerpt carried by a ParseError.
const maxSnippet = 512

// ValidationError reports a request that violates a numeric or structural
// invariant. It is raised before any network I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Stage() string { return StageValidation }

// TransportError wraps DNS, TCP, TLS, deadline and body-read failures.
type TransportError struct {
	Provider string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s HTTP request failed: %v", e.Provider, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func (e *TransportError) Stage() string { return StageHTTP }

// UpstreamError is a non-2xx response. Body is the verbatim response text.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API call failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamError) Stage() string { return StageUpstream }

// ParseError is a 2xx response whose body did not match the expected shape.
type ParseError struct {
	Provider string
	Snippet  string
	Cause    error
}

// NewParseError captures a bounded excerpt of body.
func NewParseError(provider string, body []byte, cause error) *ParseError {
	snippet := string(body)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &ParseError{Provider: provider, Snippet: snippet, Cause: cause}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v (body: %s)", e.Provider, e.Cause, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Stage() string { return StageParse }

// StageOf returns the stage tag carried by err, falling back to StageHTTP for
// context cancellation and to "" when err carries no stage.
func StageOf(err error) string {
	var staged interface{ Stage() string }
	if errors.As(err, &staged) {
		return staged.Stage()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return StageHTTP
	}
	return ""
}
