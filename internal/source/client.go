package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client issues XRPC calls on behalf of a Session.
//
// Authenticated calls run as a two-attempt exchange: the first attempt uses
// the current access token; if the response is classified as an expired
// token the session is refreshed and a second, final attempt is made.
type Client struct {
	session *Session
	opts    Options
}

// NewClient creates a client bound to session.
func NewClient(session *Session, opts Options) (*Client, error) {
	if session == nil {
		return nil, errors.New("client: session is required")
	}
	return &Client{session: session, opts: opts.withDefaults()}, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

// Get issues a GET and returns the raw JSON body of a 200 response.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, auth bool) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, auth)
}

// Post issues a JSON POST and returns the raw JSON body of a 200 response.
func (c *Client) Post(ctx context.Context, endpoint string, payload any, auth bool) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, body, auth)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte, auth bool) ([]byte, error) {
	token := ""
	if auth {
		token = c.session.AccessToken()
	}

	status, respBody, err := roundTrip(ctx, c.opts.HTTPClient, method, endpoint, params, body, token)
	if err != nil {
		return nil, err
	}

	if auth && IsTokenExpired(status, respBody) {
		if err := c.session.refreshAfter(ctx, token); err != nil {
			return nil, err
		}
		status, respBody, err = roundTrip(ctx, c.opts.HTTPClient, method, endpoint, params, body, c.session.AccessToken())
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(respBody)}
	}
	return respBody, nil
}

// roundTrip sends one request and reads the whole response. The connection
// is released before returning.
func roundTrip(ctx context.Context, hc *http.Client, method, endpoint string, params url.Values, body []byte, bearer string) (int, []byte, error) {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, data, nil
}

func xrpcURL(host, method string) string {
	return host + "/xrpc/" + method
}
