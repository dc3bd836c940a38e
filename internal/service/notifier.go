package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/josh-kwaku/acquisim/internal/logging"
	"github.com/josh-kwaku/acquisim/internal/metrics"
	"github.com/josh-kwaku/acquisim/internal/session"
)

// Notification is the body POSTed to a merchant's notification_url.
type Notification struct {
	OperationStatus session.OperationStatus `json:"operation_status"`
	CardToken       string                  `json:"card_token,omitempty"`
}

type NotifierConfig struct {
	Timeout  time.Duration
	Attempts int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
}

type Notifier struct {
	httpClient *http.Client
	cfg        NotifierConfig
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// Notify delivers n to url. Transport errors and 5xx responses are retried;
// any other non-2xx status is final.
func (c *Notifier) Notify(ctx context.Context, url string, n Notification) (err error) {
	log := logging.FromContext(ctx)
	defer func() {
		result := "delivered"
		if err != nil {
			result = "failed"
		}
		metrics.Notifications.WithLabelValues(result).Inc()
	}()

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("Notify: marshal: %w", err)
	}

	attempt := 0
	send := func() error {
		attempt++
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Warn("notification send failed", "attempt", attempt, "error", err)
			return fmt.Errorf("send: %w", err)
		}
		defer resp.Body.Close()

		log.Info("notification response received",
			"attempt", attempt,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.Attempts-1)), ctx)
	if err := backoff.Retry(send, policy); err != nil {
		return fmt.Errorf("Notify: %w", err)
	}
	return nil
}
