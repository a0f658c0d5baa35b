package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WordPress publishes through the WordPress REST API using an application
// password.
type WordPress struct {
	baseURL  string
	username string
	appPass  string
	client   *http.Client
}

// NewWordPress creates a WordPress publisher for the site at baseURL.
func NewWordPress(baseURL, username, appPassword string) *WordPress {
	return &WordPress{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		appPass:  appPassword,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateConnection checks the credentials against the current-user endpoint.
func (w *WordPress) ValidateConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.baseURL+"/wp-json/wp/v2/users/me", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(w.username, w.appPass)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connection check returned status %d", resp.StatusCode)
	}
	return nil
}

type wpPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

type wpPostResponse struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// Publish creates a published post. Images are referenced from the body
// markdown; sideloading media is left to the site's configuration.
func (w *WordPress) Publish(ctx context.Context, pubReq *Request) (*PostInfo, error) {
	body, err := json.Marshal(wpPostRequest{
		Title:   pubReq.Title,
		Content: pubReq.Body,
		Status:  "publish",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		w.baseURL+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(w.username, w.appPass)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("post creation returned status %d: %s", resp.StatusCode, payload)
	}

	var created wpPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode post response: %w", err)
	}

	return &PostInfo{ID: fmt.Sprintf("%d", created.ID), URL: created.Link}, nil
}

// DeletePost removes a post, skipping the trash.
func (w *WordPress) DeletePost(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/wp-json/wp/v2/posts/%s?force=true", w.baseURL, id), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(w.username, w.appPass)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}
