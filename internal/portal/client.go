// Package portal drives the college ECAP portal through an automated
// browser session: the login sequence and the report export-and-fetch.
// The selectors and the pre-submit script pair below are the portal's wire
// contract; any markup change on the portal side surfaces only as an
// authentication or malformed-report failure.
package portal

import (
	"log/slog"
	"time"

	"github.com/vijay-2155/VignanEcap/internal/config"
)

// Credentials are supplied per invocation, never logged and never retained
// by the pipeline.
type Credentials struct {
	Username string
	Password string
}

// Client performs authenticated portal interactions on a browser session.
type Client struct {
	cfg      config.PortalConfig
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewClient creates a portal client. attempts and backoff set the bounded
// retry policy for transient steps (navigation, element waits, export
// control lookup).
func NewClient(cfg config.PortalConfig, attempts int, backoff time.Duration, logger *slog.Logger) *Client {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Client{
		cfg:      cfg,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.With(slog.String("component", "portal")),
	}
}
