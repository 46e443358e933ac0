package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fleetpower/internal/adapters/repository"
	"github.com/okian/fleetpower/internal/domain/ranking"
)

const maxErrorBody = 512

// Client wraps http.Client for the fleetpower API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client rooted at base.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Leaderboard fetches the top limit rows.
func (c *Client) Leaderboard(ctx context.Context, limit int) (repository.View, error) {
	var v repository.View
	err := c.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &v)
	return v, err
}

// Rank fetches the published row of address.
func (c *Client) Rank(ctx context.Context, address string) (ranking.Entry, error) {
	var e ranking.Entry
	err := c.getJSON(ctx, "/rank/"+url.PathEscape(address), &e)
	return e, err
}

// Refresh queues address and returns the response status code.
func (c *Client) Refresh(ctx context.Context, address string) (int, error) {
	resp, err := c.do(ctx, http.MethodPost, "/refresh/"+url.PathEscape(address))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: GET %s: %d %s", ErrStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Request-ID", "smoke-"+uuid.NewString())
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
