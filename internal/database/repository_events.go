package database

import (
	"context"
	"fmt"
	"time"
)

// AppendEvent inserts a new audit event. Events are append-only; the id and
// timestamp are store-assigned.
func (r *Repository) AppendEvent(ctx context.Context, event *LicenseEvent) error {
	query := `
	INSERT INTO license_events (client_id, event, detail, ip)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
	RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		event.ClientID,
		event.Event,
		event.Detail,
		event.IP,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ListEventsForClient returns a client's events most-recent-first
func (r *Repository) ListEventsForClient(ctx context.Context, clientID string, limit int) ([]LicenseEvent, error) {
	if !validID(clientID) {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT id, client_id, event, COALESCE(detail, ''), COALESCE(ip, ''), created_at
	FROM license_events
	WHERE client_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []LicenseEvent
	for rows.Next() {
		var e LicenseEvent
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Event, &e.Detail, &e.IP, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// DeleteEventsForClient removes all events for a client. Used only as part of
// client deletion.
func (r *Repository) DeleteEventsForClient(ctx context.Context, clientID string) error {
	if !validID(clientID) {
		return nil
	}
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM license_events WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

// CountChecksSince counts successful verification events after the given time
func (r *Repository) CountChecksSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM license_events WHERE event = 'check_ok' AND created_at > $1`
	if err := r.db.Pool.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count checks: %w", err)
	}
	return count, nil
}
