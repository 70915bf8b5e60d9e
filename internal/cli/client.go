// Package cli is the client side of the shopctl admin tool.
package cli

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
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Balance(ctx context.Context, playerRef string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/"+url.PathEscape(playerRef)+"/balance", nil, &out)
	return out, err
}

func (c *Client) Transactions(ctx context.Context, playerRef string, limit int) (map[string]any, error) {
	path := "/v1/players/" + url.PathEscape(playerRef) + "/transactions"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) RetryCredit(ctx context.Context, actor string, payload map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/credits/retry", map[string]any{
		"actor":   actor,
		"payload": payload,
	}, &out)
	return out, err
}

func (c *Client) Trade(ctx context.Context, from, to string, amount int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trades", map[string]any{
		"from":   from,
		"to":     to,
		"amount": amount,
	}, &out)
	return out, err
}

func (c *Client) PendingDeliveries(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/admin/deliveries", nil, &out)
	return out, err
}

func (c *Client) Flush(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/deliveries/flush", nil, &out)
	return out, err
}

func (c *Client) ResetRetries(ctx context.Context, actor, subject string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/admin/retries/reset", map[string]any{
		"actor":   actor,
		"subject": subject,
	}, nil)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
