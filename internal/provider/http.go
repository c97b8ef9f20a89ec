package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second

	contentTypeJSON = "application/json"
	userAgent       = "voisia/0.1"
)

// NewHTTPClient returns the pooled client shared by every provider call.
// Per-call deadlines come from the request context; the client itself has no
// overall timeout.
func NewHTTPClient(dialTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}

// Exchange is the raw result of a single POST.
type Exchange struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is in [200, 299].
func (e Exchange) OK() bool {
	return e.StatusCode >= 200 && e.StatusCode <= 299
}

// PostJSON marshals payload, POSTs it to url with headers and reads the whole
// response body. Only transport failures are returned as errors; status
// handling is left to the caller.
func PostJSON(ctx context.Context, client *http.Client, providerName, url string, headers map[string]string, payload any) (Exchange, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Exchange{}, &ValidationError{Field: "payload", Reason: fmt.Sprintf("cannot be encoded: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Exchange{}, &TransportError{Provider: providerName, Cause: fmt.Errorf("construct request: %w", err)}
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Exchange{}, &TransportError{Provider: providerName, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Exchange{}, &TransportError{Provider: providerName, Cause: fmt.Errorf("read response body: %w", err)}
	}

	return Exchange{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Decode parses a 2xx body into target and checks its `validate` tags, or
// builds the matching error for non-2xx and malformed bodies.
func Decode(providerName string, ex Exchange, target any) error {
	if !ex.OK() {
		return &UpstreamError{Provider: providerName, StatusCode: ex.StatusCode, Body: string(ex.Body)}
	}
	if err := json.Unmarshal(ex.Body, target); err != nil {
		return NewParseError(providerName, ex.Body, err)
	}
	if err := validate.Struct(target); err != nil {
		return NewParseError(providerName, ex.Body, fmt.Errorf("unexpected response shape: %w", err))
	}
	return nil
}
