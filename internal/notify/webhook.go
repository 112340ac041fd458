package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stellarlinkco/leadflow/internal/config"
	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/scoring"
)

// WebhookNotifier POSTs lead events as JSON to a CRM endpoint.
type WebhookNotifier struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewWebhookNotifier(cfg config.WebhookNotifyConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	return &WebhookNotifier{
		url:        cfg.URL,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (w *WebhookNotifier) Name() string { return "webhook" }

type webhookEvent struct {
	Event      string               `json:"event"`
	SessionKey string               `json:"sessionKey,omitempty"`
	Profile    *profile.Profile     `json:"profile"`
	Scores     *scoring.Scores      `json:"scores,omitempty"`
	Insights   *scoring.Insights    `json:"insights,omitempty"`
	Predicted  *scoring.Predictions `json:"predictions,omitempty"`
	SentAt     time.Time            `json:"sentAt"`
}

func (w *WebhookNotifier) AnalysisComplete(ctx context.Context, p *profile.Profile, res *scoring.Result) error {
	return w.post(ctx, webhookEvent{
		Event:     "analysis_complete",
		Profile:   p,
		Scores:    &res.Scores,
		Insights:  &res.Insights,
		Predicted: &res.Predictions,
		SentAt:    time.Now().UTC(),
	})
}

func (w *WebhookNotifier) SessionAbandoned(ctx context.Context, sessionKey string, p *profile.Profile) error {
	return w.post(ctx, webhookEvent{
		Event:      "session_abandoned",
		SessionKey: sessionKey,
		Profile:    p,
		SentAt:     time.Now().UTC(),
	})
}

func (w *WebhookNotifier) RecoveryLinkRequested(ctx context.Context, sessionKey string, p *profile.Profile) error {
	return w.post(ctx, webhookEvent{
		Event:      "recovery_link_requested",
		SessionKey: sessionKey,
		Profile:    p,
		SentAt:     time.Now().UTC(),
	})
}

func (w *WebhookNotifier) post(ctx context.Context, ev webhookEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Leadflow-Secret", w.secret)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook http %d for %s", resp.StatusCode, strings.TrimSpace(ev.Event))
	}
	return nil
}
