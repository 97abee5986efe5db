package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crate/internal/services"
)

type pageEnvelope struct {
	Pagination *struct {
		Pages *int `json:"pages"`
	} `json:"pagination"`
	Message string `json:"message"`
}

// FetchPages retrieves rawURL and, when allPages is set, every further page the
// first response declares. Bodies are returned in page order.
func (c *Client) FetchPages(ctx context.Context, rawURL string, allPages bool) ([][]byte, error) {
	if !strings.Contains(rawURL, "?") {
		rawURL += "?"
	}

	first, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	pages := [][]byte{first.Body}
	if !allPages {
		return pages, nil
	}

	resource, _ := services.ResourceFromContext(ctx)
	total, err := PageCount(first.Body)
	if err != nil {
		return nil, services.Annotate(resource, "read page count", rawURL, err)
	}

	for page := 2; page <= total; page++ {
		resp, err := c.Get(ctx, fmt.Sprintf("%s&page=%d", rawURL, page))
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Body)
	}
	return pages, nil
}

// PageCount reads pagination.pages from a first-page body. A body that is not
// JSON is a transport error; a JSON body without the field is a malformed page.
func PageCount(body []byte) (int, error) {
	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, fmt.Errorf("%w: decode first page: %w", services.ErrTransport, err)
	}
	if envelope.Pagination == nil || envelope.Pagination.Pages == nil {
		if msg := strings.TrimSpace(envelope.Message); msg != "" {
			return 0, fmt.Errorf("%w: pagination.pages missing (api message: %s)", services.ErrMalformedPage, msg)
		}
		return 0, fmt.Errorf("%w: pagination.pages missing", services.ErrMalformedPage)
	}
	return *envelope.Pagination.Pages, nil
}
