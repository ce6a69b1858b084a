package api

import (
	"context"
	"net/url"
)

// Gateway fetches a fresh websocket URL from GET gateway/index. The gateway
// URL is session-specific and must be refetched before every connect attempt.
func (c *Client) Gateway(ctx context.Context, compress bool) (string, error) {
	query := url.Values{}
	if compress {
		query.Set("compress", "1")
	} else {
		query.Set("compress", "0")
	}

	var resp GatewayResponse
	if err := c.get(ctx, "gateway/index", query, &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

// Me fetches the bot's own identity from GET user/me.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "user/me", nil, &user); err != nil {
		return nil, err
	}

	return &user, nil
}
