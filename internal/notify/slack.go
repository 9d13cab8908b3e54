package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/pkg/util"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = time.Second
	DefaultTimeout     = 10 * time.Second
)

type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Timeout     time.Duration
}

// Slack posts incoming-webhook messages. Delivery never returns an error:
// failures are logged and reported as false.
type Slack struct {
	client  *retryablehttp.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

type slackPayload struct {
	Text string `json:"text"`
}

func NewSlack(cfg Config, logger *slog.Logger, m *metrics.Collector) *Slack {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger = util.OrDiscard(logger)

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.MaxAttempts - 1
	client.RetryWaitMin = cfg.BaseBackoff
	client.RetryWaitMax = cfg.BaseBackoff << (cfg.MaxAttempts - 1)
	client.Backoff = retryablehttp.DefaultBackoff
	client.CheckRetry = retryPolicy
	client.ErrorHandler = giveUp
	// The library logs request URLs, and a webhook URL is a credential.
	client.Logger = nil

	return &Slack{client: client, logger: logger, metrics: m}
}

// retryPolicy retries 429 and 5xx. Network errors follow the library's
// default classification. Any other status is final.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// giveUp builds the final error without the request URL.
func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("giving up after %d attempt(s): status %d", numTries, resp.StatusCode)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return nil, fmt.Errorf("giving up after %d attempt(s): %w", numTries, err)
}

// Send delivers text to webhookURL.
func (s *Slack) Send(ctx context.Context, webhookURL, text string) bool {
	if webhookURL == "" {
		s.logger.Warn("slack webhook not configured, skipping message")
		s.metrics.Notification(metrics.ResultSkipped)
		return false
	}

	if err := s.post(ctx, webhookURL, text); err != nil {
		s.logger.Error("slack delivery failed", "error", err)
		s.metrics.Notification(metrics.ResultFailed)
		return false
	}

	s.metrics.Notification(metrics.ResultDelivered)
	return true
}

func (s *Slack) post(ctx context.Context, webhookURL, text string) error {
	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, webhookURL, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, msg)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
