package webhook

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store handles webhook persistence.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new webhook store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ListActive returns the active webhooks registered for an event type.
func (s *Store) ListActive(ctx context.Context, eventType string) ([]Webhook, error) {
	query := `
		SELECT id, url, event_type, is_active,
		       last_triggered_at, last_response_code, last_response_time_ms,
		       created_at, updated_at
		FROM webhooks
		WHERE event_type = $1 AND is_active = TRUE
		ORDER BY id
	`

	var hooks []Webhook
	if err := s.db.SelectContext(ctx, &hooks, query, eventType); err != nil {
		return nil, fmt.Errorf("failed to list active webhooks: %w", err)
	}
	return hooks, nil
}

// List returns all registered webhooks, newest first.
func (s *Store) List(ctx context.Context) ([]Webhook, error) {
	query := `
		SELECT id, url, event_type, is_active,
		       last_triggered_at, last_response_code, last_response_time_ms,
		       created_at, updated_at
		FROM webhooks
		ORDER BY created_at DESC, id DESC
	`

	var hooks []Webhook
	if err := s.db.SelectContext(ctx, &hooks, query); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return hooks, nil
}

// Get returns one webhook by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Webhook, error) {
	query := `
		SELECT id, url, event_type, is_active,
		       last_triggered_at, last_response_code, last_response_time_ms,
		       created_at, updated_at
		FROM webhooks
		WHERE id = $1
	`

	var hook Webhook
	if err := s.db.GetContext(ctx, &hook, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return &hook, nil
}

// Create registers a new webhook and returns it with its assigned ID.
func (s *Store) Create(ctx context.Context, url, eventType string, isActive bool) (*Webhook, error) {
	query := `
		INSERT INTO webhooks (url, event_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, url, event_type, is_active,
		          last_triggered_at, last_response_code, last_response_time_ms,
		          created_at, updated_at
	`

	var hook Webhook
	if err := s.db.GetContext(ctx, &hook, query, url, eventType, isActive); err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return &hook, nil
}

// Update modifies a webhook's target, event type, and active flag.
func (s *Store) Update(ctx context.Context, id int64, url, eventType string, isActive bool) (*Webhook, error) {
	query := `
		UPDATE webhooks
		SET url = $1, event_type = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, url, event_type, is_active,
		          last_triggered_at, last_response_code, last_response_time_ms,
		          created_at, updated_at
	`

	var hook Webhook
	if err := s.db.GetContext(ctx, &hook, query, url, eventType, isActive, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}
	return &hook, nil
}

// Delete removes a webhook.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrWebhookNotFound
	}
	return nil
}

// RecordDelivery stores the outcome of the most recent delivery attempt.
// A response code of zero marks a transport failure or timeout.
func (s *Store) RecordDelivery(ctx context.Context, id int64, result DeliveryResult) error {
	query := `
		UPDATE webhooks
		SET last_triggered_at = NOW(),
		    last_response_code = $1,
		    last_response_time_ms = NULLIF($2, -1),
		    updated_at = NOW()
		WHERE id = $3
	`

	ms := result.ResponseTimeMs
	if !result.Success && result.ResponseCode == 0 && ms == 0 {
		ms = -1
	}

	if _, err := s.db.ExecContext(ctx, query, result.ResponseCode, ms, id); err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}
