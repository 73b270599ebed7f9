package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/athenahq/toolgate/internal/apperr"
)

// Upload describes a local file to feed into Athena's knowledge base.
type Upload struct {
	FilePath    string
	SourceType  string // defaults to "file"
	Title       string // defaults to the file's base name
	Description string
	Tags        []string
}

// Ingest uploads a local file to the Athena ingest endpoint. The file must
// exist before any network call is made.
func (c *Client) Ingest(ctx context.Context, up Upload) (*Result, error) {
	if up.FilePath == "" {
		return nil, apperr.InvalidParams("upload file path is required")
	}
	info, err := os.Stat(up.FilePath)
	if err != nil || info.IsDir() {
		return nil, apperr.InvalidParams(fmt.Sprintf("upload file not found: %s", up.FilePath))
	}

	body, contentType, err := c.buildIngestBody(up)
	if err != nil {
		return nil, apperr.Internal("build athena ingest body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.athena.URL+"/ingest", body)
	if err != nil {
		return nil, apperr.Internal("build athena ingest request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.athena.APIKey)
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(c.slowClient, req, "Athena")
	if err != nil {
		return nil, err
	}

	// Ingest responses carry either {data:{answer}} or a bare {message}.
	var parsed struct {
		Data struct {
			Answer string `json:"answer"`
		} `json:"data"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Upstream(http.StatusBadGateway, "invalid response from Athena API").
			With("body", string(raw))
	}
	response := parsed.Data.Answer
	if response == "" {
		response = parsed.Message
	}
	if response == "" {
		return nil, apperr.Upstream(http.StatusBadGateway, "invalid response from Athena API").
			With("body", string(raw))
	}
	return &Result{Response: response, Model: "Athena", Raw: raw}, nil
}

// buildIngestBody assembles the multipart form for an ingest upload.
func (c *Client) buildIngestBody(up Upload) (io.Reader, string, error) {
	f, err := os.Open(up.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", up.FilePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(up.FilePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", up.FilePath, err)
	}

	sourceType := up.SourceType
	if sourceType == "" {
		sourceType = "file"
	}
	title := up.Title
	if title == "" {
		title = filepath.Base(up.FilePath)
	}
	if err := w.WriteField("source_type", sourceType); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("title", title); err != nil {
		return nil, "", err
	}
	if up.Description != "" {
		if err := w.WriteField("description", up.Description); err != nil {
			return nil, "", err
		}
	}
	if len(up.Tags) > 0 {
		if err := w.WriteField("tags", strings.Join(up.Tags, ",")); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
