// Package rowstore is a client for the Baserow REST API, used as a remote
// row store for open orders and paid history.
package rowstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the hosted Baserow API
const DefaultBaseURL = "https://api.baserow.io"

// Options configures a Client
type Options struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client talks to one Baserow instance with a database token
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a row store client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// BoolFilter restricts a listing to rows whose boolean field equals Value
type BoolFilter struct {
	Field string
	Value bool
}

// Query describes a row listing
type Query struct {
	Filters  []BoolFilter
	Size     int // Page size; 0 uses the server default
	MaxPages int // Pages to read; 0 reads them all
}

type rowPage struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []Row   `json:"results"`
}

// ListRows returns the rows of a table matching the query, following the
// next-page links until exhausted or until q.MaxPages pages were read.
// Next links must stay on the client's base URL.
func (c *Client) ListRows(ctx context.Context, tableID string, q Query) ([]Row, error) {
	next := c.listURL(tableID, q)

	var rows []Row
	for pages := 0; next != ""; pages++ {
		if q.MaxPages > 0 && pages == q.MaxPages {
			break
		}
		if err := c.checkSameOrigin(next); err != nil {
			return nil, err
		}

		var page rowPage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		rows = append(rows, page.Results...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return rows, nil
}

// checkSameOrigin keeps the token from being sent to a host other than the
// configured one
func (c *Client) checkSameOrigin(endpoint string) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	target, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid next page URL: %w", err)
	}
	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return fmt.Errorf("refusing to follow next page on %s://%s", target.Scheme, target.Host)
	}
	return nil
}

// PatchRow updates the given fields of one row
func (c *Client) PatchRow(ctx context.Context, tableID string, rowID int64, fields map[string]any) error {
	body := make(map[string]any, len(fields))
	for id, value := range fields {
		body[FieldKey(id)] = value
	}
	endpoint := fmt.Sprintf("%s/api/database/rows/table/%s/%d/", c.baseURL, url.PathEscape(tableID), rowID)
	return c.do(ctx, http.MethodPatch, endpoint, body, nil)
}

func (c *Client) listURL(tableID string, q Query) string {
	params := url.Values{}
	for _, f := range q.Filters {
		params.Set("filter__"+FieldKey(f.Field)+"__boolean", strconv.FormatBool(f.Value))
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}
	endpoint := fmt.Sprintf("%s/api/database/rows/table/%s/", c.baseURL, url.PathEscape(tableID))
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
