// Package api is the HTTP client for the restaurant REST API. It implements
// the collaborator interfaces declared by the domain packages.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 8 << 20

// TokenSource provides the bearer token for authenticated requests. An
// empty token means the request is sent without Authorization.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f().
func (f TokenFunc) Token() string { return f() }

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string

	// Err is a domain error the status maps to, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// Client talks to the restaurant API.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   http.DefaultClient,
		tokens: TokenFunc(func() string { return "" }),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SetTokenSource replaces the token source. It must be called before the
// client is shared between goroutines.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

type request struct {
	method string
	path   string
	query  url.Values
	body   func(e *jx.Encoder)

	// anonymous requests never carry a token.
	anonymous bool
}

// do sends r and passes the response body to decode. A 204 response or a
// nil decode skips decoding.
func (c *Client) do(ctx context.Context, r request, decode func(d *jx.Decoder) error) error {
	u := *c.base
	u.Path = u.Path + r.path
	if r.query != nil {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		e := jx.GetEncoder()
		r.body(e)
		body = bytes.NewReader(append([]byte(nil), e.Bytes()...))
		jx.PutEncoder(e)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.anonymous {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(data)}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		zctx.From(ctx).Debug("API error",
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if resp.StatusCode == http.StatusNoContent || decode == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrapf(err, "decode %s", r.path)
	}
	return nil
}

// errorMessage extracts "message", "detail" or "error" from an error body.
func errorMessage(data []byte) string {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return ""
	}
	var msg string
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message", "detail", "error":
			if d.Next() == jx.String && msg == "" {
				s, err := d.Str()
				msg = s
				return err
			}
		}
		return d.Skip()
	})
	return msg
}
