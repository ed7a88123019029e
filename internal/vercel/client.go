// Package vercel is a thin client for the deploy host's REST API plus a
// CLI-based deployer. Requests can run under the personal account scope or
// a team scope selected by TeamID.
package vercel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/demoforge/demoforge/internal/provider"
)

const providerName = "vercel"

type Config struct {
	BaseURL      string
	Token        string
	TeamID       string
	DeployDomain string
	Timeout      time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger

	Projects *ProjectsService
}

func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.vercel.com"
	}
	if config.Token == "" {
		return nil, fmt.Errorf("vercel: Token is required")
	}
	if config.DeployDomain == "" {
		config.DeployDomain = "vercel.app"
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("vercel: invalid BaseURL: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}

	c.Projects = &ProjectsService{client: c}

	return c, nil
}

func (c *Client) Config() Config {
	return c.config
}

// TeamConfigured reports whether a team scope is available at all.
func (c *Client) TeamConfigured() bool {
	return c.config.TeamID != ""
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vercel: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("vercel: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vercel: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vercel: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := provider.FromStatus(providerName, resp.StatusCode, string(respBody))

		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}

		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("vercel: failed to decode response: %w", err)
		}
	}

	return nil
}
