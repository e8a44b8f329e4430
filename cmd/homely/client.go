package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// actionClient calls a running homely server.
type actionClient struct {
	baseURL string
	http    *http.Client
}

func newActionClient(serverURL, basePath string) *actionClient {
	return &actionClient{
		baseURL: strings.TrimRight(serverURL, "/") + "/" + strings.Trim(basePath, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// call invokes action and decodes the JSON response into out. A response
// with success=false is returned as an error carrying the server's message.
func (c *actionClient) call(ctx context.Context, method, action string, query url.Values, out any) error {
	u := c.baseURL + "/" + action
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return fmt.Errorf("%s: %s", action, failure.Error)
		}
		return fmt.Errorf("%s: unexpected status %s", action, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	return nil
}
