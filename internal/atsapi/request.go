package atsapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avolkov/ats-reconciler/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"

	retryBaseDelay = 500 * time.Millisecond
	maxRetries     = 3
)

// absenceCodes are responses meaning "nothing here for this scope", not
// provider failure. Adapters yield zero records for them.
var absenceCodes = map[int]bool{
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusMethodNotAllowed:    true,
	http.StatusUnprocessableEntity: true,
}

// APIError is a non-2xx provider response.
type APIError struct {
	Code   int
	Status string
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bad status from %s: %s", e.URL, e.Status)
}

// IsExpectedAbsence reports whether err means the endpoint simply has nothing
// for the current scope (401/403/404/405/422).
func IsExpectedAbsence(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return absenceCodes[apiErr.Code]
	}
	return false
}

// IsTimeout reports whether err is a client-side timeout or deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type ItemResponse struct {
	Items   []Item
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

type Item interface{}

// GetItems makes a GET request to the provider and returns items from all
// pages. Cancelling ctx stops pagination between pages and aborts the
// in-flight request.
func (c *Client) GetItems(ctx context.Context, path string, q url.Values) ([]Item, error) {
	var items []Item

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	// Additional headers. For GET requests only
	req.Header.Set("Content-Type", contentType)
	if q == nil {
		q = url.Values{}
	}
	// Set per_page max as possible. It should be faster.
	if q.Get("per_page") == "" {
		q.Set("per_page", perPage)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}

	response, err := c.parseItemResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got provider response", zap.Int("pages", response.Pages), zap.Int("max items per page", response.PerPage))

	items = append(items, response.Items...)

	for response.Page < (response.Pages - 1) {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))

		resp, err = c.request(addPage(req, response.Page+1))
		if err != nil {
			return nil, err
		}

		response, err = c.parseItemResponse(resp)
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)
	}

	return items, nil
}

func (c *Client) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return nil, &APIError{Code: resp.StatusCode, Status: resp.Status, URL: resp.Request.URL.Path}
	}

	var body io.ReadCloser
	var err error
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		body, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer body.Close()
	default:
		body = resp.Body
		defer body.Close()
	}

	var response *ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	return response, nil
}

// request executes req, retrying 429 responses with exponential backoff.
func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	for attempt := 0; ; attempt++ {
		resp, err := c.HTTPClient.Do(req.Clone(req.Context()))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		delay := utils.Backoff(attempt, retryBaseDelay)
		c.logger.Debug("rate limited, retrying",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
		)

		if err := utils.WaitFor(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.Token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}
