package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 10 * time.Second

// maxConcurrentDeliveries caps the fan-out per event.
const maxConcurrentDeliveries = 8

// Dispatcher fans an event out to every active webhook registered for it.
// Delivery is fire-and-forget: failures are logged and recorded on the
// webhook row, never retried, and never surfaced to the triggering run.
type Dispatcher struct {
	store   *Store
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. A zero timeout falls back to DefaultTimeout.
func NewDispatcher(store *Store, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		timeout: timeout,
	}
}

// envelope is the JSON body delivered to webhook endpoints.
type envelope struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// Notify delivers the event to all matching active webhooks concurrently.
// It satisfies the importer's Notifier contract.
func (d *Dispatcher) Notify(ctx context.Context, event string, payload map[string]any) {
	hooks, err := d.store.ListActive(ctx, event)
	if err != nil {
		d.logger.Error("Failed to load webhooks for event",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(hooks) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDeliveries)

	for _, hook := range hooks {
		g.Go(func() error {
			result := d.Deliver(gctx, &hook, event, payload)

			if err := d.store.RecordDelivery(gctx, hook.ID, result); err != nil {
				d.logger.Warn("Failed to record webhook delivery",
					slog.Int64("webhook_id", hook.ID),
					slog.String("error", err.Error()),
				)
			}

			if result.Err != nil {
				d.logger.Error("Webhook delivery failed",
					slog.Int64("webhook_id", hook.ID),
					slog.String("event", event),
					slog.String("url", hook.URL),
					slog.String("error", result.Err.Error()),
				)
			} else {
				d.logger.Info("Webhook delivered",
					slog.Int64("webhook_id", hook.ID),
					slog.String("event", event),
					slog.Int("response_code", result.ResponseCode),
					slog.Int64("response_time_ms", result.ResponseTimeMs),
				)
			}

			// Delivery failures never propagate to the triggering run.
			return nil
		})
	}

	_ = g.Wait()
}

// Deliver performs one POST to the webhook endpoint and returns the outcome.
// It is used by Notify and by the synchronous test endpoint.
func (d *Dispatcher) Deliver(ctx context.Context, hook *Webhook, event string, payload map[string]any) DeliveryResult {
	body, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return DeliveryResult{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return DeliveryResult{ResponseTimeMs: elapsed, Err: err}
	}
	defer resp.Body.Close()

	return DeliveryResult{
		Success:        resp.StatusCode >= 200 && resp.StatusCode < 300,
		ResponseCode:   resp.StatusCode,
		ResponseTimeMs: elapsed,
	}
}
