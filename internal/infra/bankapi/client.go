package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/multibank/gateway/internal/domain"
)

// RequestOptions carries the optional parts of a partner call. Headers are
// merged into the outbound request verbatim; they hold consent and
// interaction correlation ids required by partner contracts.
type RequestOptions struct {
	Body    any
	Params  url.Values
	Headers http.Header
}

// Client routes authenticated HTTP calls to named partner banks. It is the
// only place outbound HTTP happens: every consent, payment, and product
// operation composes through Request.
type Client struct {
	registry *domain.Registry
	tokens   *TokenCache
	http     *http.Client
}

func New(registry *domain.Registry, teamID, teamSecret string, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		registry: registry,
		tokens:   NewTokenCache(registry, httpClient, teamID, teamSecret),
		http:     httpClient,
	}
}

// Tokens exposes the token cache for wiring and tests.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// Request issues exactly one HTTP call to the named bank and returns the
// partner's response body. Any non-2xx response is normalized into a
// domain.PartnerError carrying the partner's own status, message, and body.
func (c *Client) Request(ctx context.Context, bank, method, path string, opts RequestOptions) (json.RawMessage, error) {
	b, err := c.registry.Resolve(bank)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Get(ctx, bank)
	if err != nil {
		return nil, err
	}

	endpoint := b.BaseURL + path
	if len(opts.Params) > 0 {
		endpoint += "?" + opts.Params.Encode()
	}

	var reqBody io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for name, values := range opts.Headers {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// no partner status to relay, default to 500
		return nil, domain.PartnerError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.PartnerError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.PartnerError{
			StatusCode: resp.StatusCode,
			Message:    partnerMessage(body, resp.StatusCode),
			Data:       rawJSON(body),
		}
	}

	return body, nil
}

// partnerMessage prefers the partner's own error detail over a generic
// string.
func partnerMessage(body []byte, status int) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	return http.StatusText(status)
}

// rawJSON returns body as-is when it is valid JSON, otherwise wrapped as a
// JSON string so PartnerError.Data can always be relayed.
func rawJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	wrapped, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(wrapped)
}
