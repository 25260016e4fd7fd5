package dto

// CreateWebhookRequest is the body for POST /api/v1/webhooks.
type CreateWebhookRequest struct {
	URL       string `json:"url" binding:"required,url"`
	EventType string `json:"event_type" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

// UpdateWebhookRequest is the body for PUT /api/v1/webhooks/:id.
type UpdateWebhookRequest struct {
	URL       string `json:"url" binding:"required,url"`
	EventType string `json:"event_type" binding:"required"`
	IsActive  *bool  `json:"is_active"`
}

// WebhookDTO is the wire shape of one webhook registration.
type WebhookDTO struct {
	ID                 int64  `json:"id"`
	URL                string `json:"url"`
	EventType          string `json:"event_type"`
	IsActive           bool   `json:"is_active"`
	LastTriggeredAt    string `json:"last_triggered_at,omitempty"`
	LastResponseCode   *int64 `json:"last_response_code,omitempty"`
	LastResponseTimeMs *int64 `json:"last_response_time_ms,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// TestWebhookResponse is the result of a synchronous webhook probe.
type TestWebhookResponse struct {
	Success        bool   `json:"success"`
	ResponseCode   int    `json:"response_code"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}
