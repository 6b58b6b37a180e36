package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/hextiles/internal/db"
	"github.com/banshee-data/hextiles/internal/httputil"
)

// Client talks to a running hextiles server.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a Client for baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

// CreateDataset uploads a dataset and returns the stored metadata.
func (c *Client) CreateDataset(ctx context.Context, req CreateDatasetRequest) (*db.Dataset, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	var out db.Dataset
	if err := c.do(ctx, http.MethodPost, "/api/datasets", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hexbin fetches the aggregate table of a dataset. params holds the
// hexbin query parameters, e.g. gridsize or aggregator.
func (c *Client) Hexbin(ctx context.Context, id string, params url.Values) (*TableJSON, error) {
	path := "/api/datasets/" + url.PathEscape(id) + "/hexbin"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out TableJSON
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return httputil.DecodeJSON(resp, out)
}
