package main

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

	"github.com/use-agent/sectionscraper/models"
)

// apiClient talks to a running sectionscraper server.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// Scrapes can run the full rendering fallback.
		http: &http.Client{Timeout: 180 * time.Second},
	}
}

func (c *apiClient) scrape(ctx context.Context, target string, maxAge int) (*models.ScrapeResponse, error) {
	var resp models.ScrapeResponse
	err := c.do(ctx, http.MethodPost, "/api/scrape", models.ScrapeRequest{URL: target, MaxAge: maxAge}, &resp)
	return &resp, err
}

func (c *apiClient) list(ctx context.Context, search string, page, limit int) (*models.ListResponse, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/scrapes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp models.ListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *apiClient) get(ctx context.Context, id string) (*models.StoredScrape, error) {
	var resp models.ScrapeRecordResponse
	if err := c.do(ctx, http.MethodGet, "/api/scrapes/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Result == nil {
		return nil, fmt.Errorf("empty scrape record")
	}
	return resp.Data, nil
}

// do sends a request and decodes a 2xx body into out. Non-2xx responses
// are turned into errors carrying the API error code.
func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != nil {
			return fmt.Errorf("[%s] %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
