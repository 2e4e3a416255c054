package atsapi

import (
	"context"
	"net/url"
)

const submissionsPath = "/submissions"

// SubmissionsByRequirement fetches the provider's submissions for one
// requirement and normalizes them.
func (c *Client) SubmissionsByRequirement(ctx context.Context, requirementID string) ([]Submission, error) {
	q := url.Values{}
	q.Set("requirement_id", requirementID)

	return c.fetchSubmissions(ctx, q)
}

// SubmissionsByClient fetches submissions scoped to one client account.
func (c *Client) SubmissionsByClient(ctx context.Context, clientID string) ([]Submission, error) {
	q := url.Values{}
	q.Set("client_id", clientID)

	return c.fetchSubmissions(ctx, q)
}

// Submissions fetches the provider's full submission universe. Some providers
// only speak bulk; callers scope-filter afterwards.
func (c *Client) Submissions(ctx context.Context) ([]Submission, error) {
	return c.fetchSubmissions(ctx, nil)
}

func (c *Client) fetchSubmissions(ctx context.Context, q url.Values) ([]Submission, error) {
	items, err := c.GetItems(ctx, submissionsPath, q)
	if err != nil {
		return nil, err
	}

	return c.DecodeSubmissions(items), nil
}
