package webhook

import (
	"database/sql"
	"errors"
	"time"
)

// Event types that can trigger a webhook.
const (
	EventProductCreated  = "product_created"
	EventProductUpdated  = "product_updated"
	EventProductDeleted  = "product_deleted"
	EventProductImported = "product_imported"
	EventBulkDelete      = "bulk_delete"
)

// ErrWebhookNotFound is returned when a webhook cannot be found in the database
var ErrWebhookNotFound = errors.New("webhook not found")

// KnownEvent reports whether event is one of the supported event types.
func KnownEvent(event string) bool {
	switch event {
	case EventProductCreated, EventProductUpdated, EventProductDeleted,
		EventProductImported, EventBulkDelete:
		return true
	}
	return false
}

// Webhook is a registered external notification endpoint. Delivery stats from
// the most recent attempt are recorded on the row.
type Webhook struct {
	ID                 int64          `db:"id"`
	URL                string         `db:"url"`
	EventType          string         `db:"event_type"`
	IsActive           bool           `db:"is_active"`
	LastTriggeredAt    sql.NullTime   `db:"last_triggered_at"`
	LastResponseCode   sql.NullInt64  `db:"last_response_code"`
	LastResponseTimeMs sql.NullInt64  `db:"last_response_time_ms"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// DeliveryResult captures one delivery attempt for recording and for the
// synchronous test endpoint.
type DeliveryResult struct {
	Success        bool
	ResponseCode   int
	ResponseTimeMs int64
	Err            error
}
