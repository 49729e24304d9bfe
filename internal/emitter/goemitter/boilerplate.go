package goemitter

import "strings"

// renderClientBoilerplate produces the transport scaffold the generated
// functions call: a Client carrying base URL and credentials, one primitive
// per HTTP verb, and the unauthenticated media path used by token-fetch
// operations.
func renderClientBoilerplate(pkg string) string {
	return strings.Replace(clientBoilerplate, "package client", "package "+pkg, 1)
}

const clientBoilerplate = `package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type mediaType int

const (
	mediaJSON mediaType = iota
)

type authConstraint int

const (
	authDefault authConstraint = iota
	// authJWT forces the bearer JWT even when a token would normally be
	// exchanged first; used by the token-fetch operation itself.
	authJWT
)

// Client issues requests against one API host. All generated functions hang
// off it.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client rooted at baseURL authenticating with token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, auth authConstraint, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+u, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	switch auth {
	case authJWT:
		req.Header.Set("Authorization", "Bearer "+c.token)
	default:
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: http %d: %s", method, u, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	return c.do(ctx, http.MethodGet, u, nil, authDefault, out)
}

func (c *Client) post(ctx context.Context, u string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodPost, u, body, authDefault, out)
}

func (c *Client) put(ctx context.Context, u string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodPut, u, body, authDefault, out)
}

func (c *Client) patch(ctx context.Context, u string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodPatch, u, body, authDefault, out)
}

func (c *Client) delete(ctx context.Context, u string, body io.Reader, out any) error {
	return c.do(ctx, http.MethodDelete, u, body, authDefault, out)
}

// postMedia issues a POST outside the standard auth wiring. mt selects the
// request media type; auth selects the credential constraint.
func (c *Client) postMedia(ctx context.Context, u string, body io.Reader, mt mediaType, auth authConstraint, out any) error {
	_ = mt
	return c.do(ctx, http.MethodPost, u, body, auth, out)
}
`
