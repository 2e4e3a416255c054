package atsapi

import (
	"context"
	"net/url"
)

const (
	interviewsPath = "/interviews"
	// We never need cancelled bookings; the feed filters server-side too.
	activeInterviews = "non_archived"
)

// Interviews fetches the authoritative interview schedule feed.
func (c *Client) Interviews(ctx context.Context) ([]Interview, error) {
	q := url.Values{}
	q.Set("scope", activeInterviews)

	items, err := c.GetItems(ctx, interviewsPath, q)
	if err != nil {
		return nil, err
	}

	return c.DecodeInterviews(items), nil
}
