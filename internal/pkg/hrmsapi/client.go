package hrmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

// TokenProvider hands out the bearer token source of a user.
type TokenProvider interface {
	TokenSource(ctx context.Context, userID string) oauth2.TokenSource
}

// Client talks to the remote HRMS REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenProvider) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	// source authenticates the request; nil sends it anonymously.
	source oauth2.TokenSource
}

func (c *Client) userSource(ctx context.Context, userID string) oauth2.TokenSource {
	if c.tokens == nil {
		return nil
	}
	return c.tokens.TokenSource(ctx, userID)
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := c.httpClient
	if req.source != nil {
		client = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), req.source)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return transportError(req.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(req.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(req.op, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: req.op, StatusCode: resp.StatusCode, Message: ErrMalformedPayload.Error(), Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return nil
}

func pathf(format string, segments ...string) string {
	escaped := make([]interface{}, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return fmt.Sprintf(format, escaped...)
}
