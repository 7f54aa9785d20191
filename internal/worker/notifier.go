package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/socialchef/clipchef/internal/httpclient"
)

// JobNotice tells a webhook that an extraction job finished.
type JobNotice struct {
	JobID     string `json:"job_id"`
	URL       string `json:"url"`
	OK        bool   `json:"ok"`
	Step      string `json:"step,omitempty"`
	Error     string `json:"error,omitempty"`
	Finished  int64  `json:"finished_at"`
	StatusURL string `json:"status_url,omitempty"`
}

// Notifier posts JobNotices to a fixed webhook URL.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier returns nil when webhookURL is empty; a nil *Notifier ignores notices.
func NewNotifier(webhookURL string, httpClient *http.Client) *Notifier {
	if webhookURL == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = httpclient.New(10*time.Second, httpclient.WithUserAgent("clipchef-notifier/1"))
	}
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (n *Notifier) Notify(ctx context.Context, notice JobNotice) error {
	if n == nil {
		return nil
	}

	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal job notice: %w", err)
	}

	ctx = httpclient.WithProvider(ctx, "job-webhook")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify failed with status %d", resp.StatusCode)
	}

	return nil
}
