// Package sheetlog forwards activity events to a Google Apps Script web app
// that appends them to a spreadsheet.  Delivery is best effort: one attempt
// per event, bounded by a timeout.
package sheetlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/elpasoverse/portal/internal/metrics"
	"github.com/elpasoverse/portal/internal/queue"
)

// payload is the body the Apps Script expects.
type payload struct {
	Secret    string         `json:"secret"`
	Sheet     string         `json:"sheet"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Client posts events to the webhook.  With no URL configured it only logs.
type Client struct {
	url     string
	secret  string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func New(url, secret string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:     url,
		secret:  secret,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger.With("component", "sheetlog"),
	}
}

// Handle implements queue.Handler.
func (c *Client) Handle(ctx context.Context, ev queue.Event) error {
	if c.url == "" {
		c.logger.Debug("webhook not configured", "sheet", ev.Sheet, "data", ev.Data)
		return nil
	}
	body, err := json.Marshal(payload{
		Secret:    c.secret,
		Sheet:     ev.Sheet,
		Data:      ev.Data,
		Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SheetLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SheetPosts.WithLabelValues(ev.Sheet, "error").Inc()
		return fmt.Errorf("post %s: %w", ev.Sheet, err)
	}
	defer resp.Body.Close()
	// Apps Script answers with a 302 to the result page; anything below 400 landed.
	if resp.StatusCode >= 400 {
		metrics.SheetPosts.WithLabelValues(ev.Sheet, "error").Inc()
		return fmt.Errorf("post %s: status %d", ev.Sheet, resp.StatusCode)
	}
	metrics.SheetPosts.WithLabelValues(ev.Sheet, "ok").Inc()
	return nil
}
