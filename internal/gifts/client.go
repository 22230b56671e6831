package gifts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPError is a non-2xx marketplace response.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("marketplace returned status %d", e.Status)
}

// TransportError wraps network and decode failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "marketplace request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Source fetches the raw listing of a slug.
type Source interface {
	Fetch(ctx context.Context, slug string) (Listing, error)
}

// Client reads collections from the marketplace API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a marketplace client. A zero timeout means 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch issues one GET for the slug's upgradable gifts.
func (c *Client) Fetch(ctx context.Context, slug string) (Listing, error) {
	endpoint := fmt.Sprintf("%s/gifts/filters/%s?collectionType=upgradable", c.baseURL, url.PathEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Listing{}, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Listing{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Listing{}, &HTTPError{Status: resp.StatusCode}
	}

	var listing Listing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return Listing{}, &TransportError{Err: fmt.Errorf("decode listing: %w", err)}
	}
	return listing, nil
}
