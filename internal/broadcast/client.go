package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/clients"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

// Notifier delivers real-time events to the live-feed fan-out. Implemented by
// Client; the worker depends on the interface so tests can capture events.
type Notifier interface {
	Notify(ctx context.Context, event any)
}

// Client posts events to the gateway's internal broadcast endpoint. Delivery
// is best-effort: failures are logged and swallowed so a down gateway never
// stalls ingestion.
type Client struct {
	url        string
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
	logger     logging.Logger
}

// NewClient creates a broadcast client for the given endpoint URL.
func NewClient(url string, timeout time.Duration, logger logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: clients.DefaultTransport(),
		},
		executor: clients.NewHTTPExecutor(clients.HTTPExecutorConfig{
			MaxRetries:  2,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    500 * time.Millisecond,
			ShouldRetry: clients.DefaultShouldRetry,
		}),
		logger: logger,
	}
}

// Notify serializes the event and posts it to the gateway. Errors never
// propagate to the caller.
func (c *Client) Notify(ctx context.Context, event any) {
	if err := c.post(ctx, event); err != nil {
		c.logger.WithError(err).Warn("Failed to deliver broadcast event")
	}
}

func (c *Client) post(ctx context.Context, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := clients.ExecuteHTTP(ctx, c.executor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("broadcast endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
