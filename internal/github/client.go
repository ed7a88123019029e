// Package github is a thin client for the code host's REST API. The
// credential is supplied per request by the caller, so a fresh Client is
// constructed for each operation rather than held process-wide.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/demoforge/demoforge/internal/provider"
)

const providerName = "github"

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
}

func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.github.com"
	}
	if config.Token == "" {
		return nil, fmt.Errorf("github: Token is required")
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("github: invalid BaseURL: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}, nil
}

type Repo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
	CloneURL string `json:"clone_url"`
}

type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Viewer returns the account the token authenticates as.
func (c *Client) Viewer(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, "GET", "/user", nil, nil, &user); err != nil {
		return nil, fmt.Errorf("get authenticated user: %w", err)
	}
	return &user, nil
}

// CreateRepo creates a repository under the token's account.
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (*Repo, error) {
	body := map[string]any{
		"name":      name,
		"private":   private,
		"auto_init": false,
	}

	var repo Repo
	if err := c.do(ctx, "POST", "/user/repos", nil, body, &repo); err != nil {
		return nil, fmt.Errorf("create repo %q: %w", name, err)
	}
	return &repo, nil
}

func (c *Client) DeleteRepo(ctx context.Context, owner, name string) error {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
	if err := c.do(ctx, "DELETE", path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete repo %s/%s: %w", owner, name, err)
	}
	return nil
}

// ListRepos lists the repositories visible to the token's account.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	query := url.Values{}
	query.Set("per_page", "100")
	query.Set("sort", "created")

	var repos []Repo
	if err := c.do(ctx, "GET", "/user/repos", query, nil, &repos); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

// AuthenticatedRemote builds a push URL carrying the token. Never log the
// result unredacted.
func (c *Client) AuthenticatedRemote(owner, repo string) string {
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", c.config.Token, owner, repo)
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
			return fmt.Errorf("github: failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("github: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("github: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := provider.FromStatus(providerName, resp.StatusCode, string(respBody))

		var errResp struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
		}

		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("github: failed to decode response: %w", err)
		}
	}

	return nil
}
