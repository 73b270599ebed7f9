// Package tools is the stateless HTTP gateway to the two external tool
// services: Athena (Q&A/RAG) and Moad (documentation generation). It
// translates their responses and failures into a uniform Result or a
// classified error. No retries; each call carries its own timeout.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/config"
)

// Default outbound timeouts. Queries are fast; ingest uploads and doc
// generation get a longer budget.
const (
	DefaultQueryTimeout = 15 * time.Second
	DefaultSlowTimeout  = 30 * time.Second
)

// Result is the uniform outcome of a tool invocation.
type Result struct {
	Response string          `json:"response"`
	Model    string          `json:"model,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Client issues HTTP calls to the external tools.
type Client struct {
	athena config.ToolConfig
	moad   config.ToolConfig

	queryClient *http.Client
	slowClient  *http.Client
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	Athena       config.ToolConfig
	Moad         config.ToolConfig
	QueryTimeout time.Duration // defaults to DefaultQueryTimeout
	SlowTimeout  time.Duration // defaults to DefaultSlowTimeout
}

// NewClient creates a tool gateway Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Athena.URL == "" || opts.Athena.APIKey == "" {
		return nil, fmt.Errorf("tools: athena url and api key are required")
	}
	if opts.Moad.URL == "" || opts.Moad.APIKey == "" {
		return nil, fmt.Errorf("tools: moad url and api key are required")
	}
	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	slowTimeout := opts.SlowTimeout
	if slowTimeout <= 0 {
		slowTimeout = DefaultSlowTimeout
	}
	return &Client{
		athena:      opts.Athena,
		moad:        opts.Moad,
		queryClient: &http.Client{Timeout: queryTimeout},
		slowClient:  &http.Client{Timeout: slowTimeout},
	}, nil
}

// Ask sends a prompt to the Athena query endpoint and returns its answer.
func (c *Client) Ask(ctx context.Context, prompt string, options map[string]any) (*Result, error) {
	if prompt == "" {
		return nil, apperr.InvalidParams("prompt must be a non-empty string")
	}
	if options == nil {
		options = map[string]any{}
	}

	body, err := json.Marshal(map[string]any{"prompt": prompt, "options": options})
	if err != nil {
		return nil, apperr.Internal("encode athena request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.athena.URL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build athena request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.athena.APIKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(c.queryClient, req, "Athena")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data struct {
			Answer string `json:"answer"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Data.Answer == "" {
		return nil, apperr.Upstream(http.StatusBadGateway, "invalid response from Athena API").
			With("body", string(raw))
	}

	model := parsed.Model
	if model == "" {
		model = "Athena"
	}
	return &Result{Response: parsed.Data.Answer, Model: model, Raw: raw}, nil
}

// GenerateDocs asks Moad to generate documentation for a project.
func (c *Client) GenerateDocs(ctx context.Context, projectPath, outputPath string) (*Result, error) {
	if projectPath == "" || outputPath == "" {
		return nil, apperr.InvalidParams("projectPath and outputPath are required for Moad")
	}

	body, err := json.Marshal(map[string]string{
		"projectPath": projectPath,
		"outputPath":  outputPath,
	})
	if err != nil {
		return nil, apperr.Internal("encode moad request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.moad.URL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("build moad request", err)
	}
	req.Header.Set("x-api-key", c.moad.APIKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(c.slowClient, req, "Moad")
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Message == "" {
		return nil, apperr.Upstream(http.StatusBadGateway, "invalid response from Moad API").
			With("body", string(raw))
	}
	return &Result{Response: parsed.Message, Raw: raw}, nil
}

// do executes the request and returns the raw 2xx body. Non-2xx responses
// become UpstreamError with status and body attached; transport failures
// (including timeouts) become GatewayFailure.
func (c *Client) do(client *http.Client, req *http.Request, service string) (json.RawMessage, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Gateway(fmt.Sprintf("failed to call %s API", service), err).
			With("service", service)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Gateway(fmt.Sprintf("failed to read %s response", service), err).
			With("service", service)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode,
			fmt.Sprintf("%s API error: %d %s", service, resp.StatusCode, http.StatusText(resp.StatusCode))).
			With("service", service).
			With("body", string(raw))
	}
	return raw, nil
}
