package discogs

import (
	"context"
	"encoding/json"
	"fmt"

	"crate/internal/services"
)

// Identity describes the account that owns the API token.
type Identity struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	ResourceURL  string `json:"resource_url"`
	ConsumerName string `json:"consumer_name"`
}

// Identity resolves the token owner through /oauth/identity. Unlike the backup
// fetches, a non-2xx status is an error here.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	resp, err := c.Get(ctx, c.Endpoints("").Identity())
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(resp.Body, &apiErr)
		if apiErr.Message != "" {
			return nil, fmt.Errorf("%w: identity: status %d: %s", services.ErrTransport, resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: identity: status %d", services.ErrTransport, resp.StatusCode)
	}
	var identity Identity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return nil, fmt.Errorf("%w: decode identity: %w", services.ErrTransport, err)
	}
	return &identity, nil
}
