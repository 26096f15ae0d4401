// Package notify delivers outbound events to the notification collaborator.
// Delivery is fire-and-forget from the core's perspective: failures are
// logged and never propagate into scheduling results.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const dispatchTimeout = 5 * time.Second

// Dispatcher posts events to the notification service's webhook endpoint.
type Dispatcher struct {
	EndpointURL string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// NewDispatcher returns a Dispatcher with the 5-second dispatch HTTP client.
func NewDispatcher(endpointURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		EndpointURL: endpointURL,
		HTTPClient:  &http.Client{Timeout: dispatchTimeout},
		Logger:      logger,
	}
}

// eventEnvelope is the JSON body sent to the notification service.
type eventEnvelope struct {
	EventType string    `json:"event_type"`
	Targets   []string  `json:"targets"` // role names or user ids
	Payload   any       `json:"payload"`
	SentAt    time.Time `json:"sent_at"`
}

// Notify sends one event. A missing endpoint makes the dispatcher a no-op,
// which is how tests and local runs disable notifications.
func (d *Dispatcher) Notify(ctx context.Context, eventType string, targets []string, payload any) {
	if d.EndpointURL == "" {
		return
	}
	body, err := json.Marshal(eventEnvelope{
		EventType: eventType,
		Targets:   targets,
		Payload:   payload,
		SentAt:    time.Now(),
	})
	if err != nil {
		d.Logger.Error("marshal notification failed", "event_type", eventType, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.EndpointURL, bytes.NewReader(body))
	if err != nil {
		d.Logger.Error("create notification request failed", "event_type", eventType, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		d.Logger.Warn("notification delivery failed", "event_type", eventType, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.Logger.Warn("notification service returned non-2xx", "event_type", eventType, "status", resp.StatusCode)
	}
}
