package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

const defaultBaseURL = "https://api.onesignal.com"

// OneSignal отправляет push-уведомления по external_id пользователей.
type OneSignal struct {
	http    *http.Client
	baseURL string
	appID   string
	apiKey  string
}

var _ domain.Pusher = (*OneSignal)(nil)

// NewOneSignal создаёт клиента OneSignal.
func NewOneSignal(baseURL, appID, apiKey string) *OneSignal {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OneSignal{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		apiKey:  apiKey,
	}
}

type notificationRequest struct {
	AppID          string              `json:"app_id"`
	IncludeAliases map[string][]string `json:"include_aliases"`
	TargetChannel  string              `json:"target_channel"`
	Headings       map[string]string   `json:"headings,omitempty"`
	Contents       map[string]string   `json:"contents"`
	Data           map[string]string   `json:"data,omitempty"`
}

// Send отправляет уведомление.
func (o *OneSignal) Send(ctx context.Context, msg domain.PushMessage) error {
	if o.appID == "" || o.apiKey == "" {
		return fmt.Errorf("push: не задан ONESIGNAL_APP_ID или ONESIGNAL_API_KEY")
	}
	if len(msg.ExternalUserIDs) == 0 {
		return fmt.Errorf("push: нет получателей")
	}
	body := notificationRequest{
		AppID:          o.appID,
		IncludeAliases: map[string][]string{"external_id": msg.ExternalUserIDs},
		TargetChannel:  "push",
		Contents:       map[string]string{"en": msg.Body, "ja": msg.Body},
		Data:           msg.Data,
	}
	if msg.Title != "" {
		body.Headings = map[string]string{"en": msg.Title, "ja": msg.Title}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("push: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+o.apiKey)

	start := time.Now()
	resp, err := o.http.Do(req)
	metrics.ObserveNetworkRequest("onesignal", "notifications", o.appID, start, err)
	if err != nil {
		return fmt.Errorf("push: do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
