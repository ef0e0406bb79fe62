package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"applyd/internal/logging"
)

const webhookBodyLimit = 1 << 20

// Webhook posts the prepared submission as JSON to an external endpoint that
// performs the actual portal interaction. A 2xx response whose body carries
// {"submitted": true} counts as confirmation; anything else does not.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook builds a webhook submitter with the given request timeout.
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logging.WithComponent(logger, "submit.webhook"),
	}
}

type webhookResponse struct {
	Submitted    bool           `json:"submitted"`
	Confirmation string         `json:"confirmation"`
	Details      map[string]any `json:"details"`
}

func (w *Webhook) Submit(ctx context.Context, sub Submission) (Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return Result{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, webhookBodyLimit))
	if err != nil {
		return Result{}, fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("webhook returned %s", resp.Status)
	}

	var decoded webhookResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode webhook response: %w", err)
	}

	details := decoded.Details
	if details == nil {
		details = map[string]any{}
	}
	if decoded.Confirmation != "" {
		details["confirmation"] = decoded.Confirmation
	}

	w.logger.Info("webhook submission",
		logging.String(logging.FieldPortal, sub.Portal),
		logging.String("company", sub.Company),
		logging.Bool("submitted", decoded.Submitted),
	)
	return Result{
		Portal:    sub.Portal,
		Submitted: decoded.Submitted,
		Details:   details,
	}, nil
}
