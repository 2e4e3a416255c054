// Package atsapi talks to ATS-style upstream providers: submission feeds in
// several wire shapes and the interview-schedule feed. All records leave this
// package already normalized into Submission and Interview values.
package atsapi

import (
	"net/http"
	"time"

	"github.com/avolkov/ats-reconciler/internal/logger"
	"go.uber.org/zap"
)

const (
	userAgent = "avolkov/ats-reconciler"
	// Max value for list endpoints per page.
	perPage = "100"

	defaultTimeout = 15 * time.Second
)

// Shape selects the wire format a provider speaks. Each shape has its own
// raw record type and mapping function in records.go.
type Shape string

const (
	// ShapeBridge nests candidate and requirement sub-objects.
	ShapeBridge Shape = "bridge"
	// ShapeLedger is flat with *_id columns.
	ShapeLedger Shape = "ledger"
	// ShapeArchive is the legacy export: profile sub-object, odd field names.
	ShapeArchive Shape = "archive"
)

// Config describes one upstream provider endpoint.
type Config struct {
	Name    string
	BaseURL string
	Token   string
	Shape   Shape
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	logger *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
}

// New builds a provider client. Every fetch method takes the caller's
// context; abandoning that context cancels in-flight pagination.
func New(log *zap.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	log = logger.WithFields(log, logger.StringFields(
		logger.StringField{Key: logger.FieldProvider, Value: cfg.Name},
	)...)

	return &Client{
		cfg:    cfg,
		logger: log,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.cfg.Name }
