// Package codegen calls the code-generation provider to produce the source
// files of one demo application. The generated files are treated as an
// opaque bundle; nothing here inspects their content.
package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no provider credential is present.
// Unlike the deploy-host credential, this one has no degraded fallback;
// generation is the one step with no meaningful partial result.
var ErrNotConfigured = errors.New("codegen: API key not configured")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// File is one generated source file, path relative to the bundle root.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	CompanyName  string
	Role         string
	LogoURL      string
	WriteKey     string
	ProfileToken string
	SpaceID      string
	TemplateRepo string
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateApp produces the file bundle for one application role.
func (c *Client) GenerateApp(ctx context.Context, req GenerateRequest) ([]File, error) {
	if c.config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	c.logger.Info("generating application", "company", req.CompanyName, "role", req.Role)

	body := messagesRequest{
		Model:     c.config.Model,
		MaxTokens: 16384,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: buildPrompt(req)},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("codegen: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("codegen: failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("codegen: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("codegen: failed to read response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("codegen: failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("codegen: provider error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return nil, fmt.Errorf("codegen: request failed with status %d: %s", resp.StatusCode, respBody)
	}

	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("codegen: empty completion")
	}

	files, err := parseFiles(parsed.Content[0].Text)
	if err != nil {
		return nil, err
	}

	c.logger.Info("generation completed",
		"company", req.CompanyName,
		"role", req.Role,
		"files", len(files),
		"duration", time.Since(start))
	return files, nil
}

func parseFiles(text string) ([]File, error) {
	// The model is instructed to answer with a bare JSON object; tolerate a
	// fenced code block around it.
	text = trimFence(text)

	var out struct {
		Files []File `json:"files"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("codegen: completion is not a file bundle: %w", err)
	}
	if len(out.Files) == 0 {
		return nil, fmt.Errorf("codegen: completion contained no files")
	}
	return out.Files, nil
}

func trimFence(s string) string {
	s = strings.TrimSpace(s)
	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(s, fence) {
			s = strings.TrimPrefix(s, fence)
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
