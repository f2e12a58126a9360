package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for unique-constraint violations. The service layer maps
// these onto its own error taxonomy.
var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateKey   = errors.New("license key already exists")
)

// validID reports whether an id can be bound against the UUID-typed id
// column. Ids arrive from URL paths, so a malformed value is routine; it can
// never match a row and is resolved as absent instead of reaching the driver.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

const clientColumns = `id, name, COALESCE(email, ''), COALESCE(company, ''), plan, status,
	license_key, expires_at, blocked, COALESCE(block_reason, ''), last_check,
	COALESCE(last_ip, ''), login_count, COALESCE(notes, ''), created_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Company,
		&c.Plan,
		&c.Status,
		&c.LicenseKey,
		&c.ExpiresAt,
		&c.Blocked,
		&c.BlockReason,
		&c.LastCheck,
		&c.LastIP,
		&c.LoginCount,
		&c.Notes,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClient inserts a new client record
func (r *Repository) CreateClient(ctx context.Context, client *Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	client.CreatedAt = time.Now()

	query := `
	INSERT INTO clients (id, name, email, company, plan, status, license_key, expires_at, blocked, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		client.ID,
		client.Name,
		client.Email,
		client.Company,
		client.Plan,
		client.Status,
		client.LicenseKey,
		client.ExpiresAt,
		client.Blocked,
		client.Notes,
		client.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "clients_license_key_key" {
			return ErrDuplicateKey
		}
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// GetClientByID retrieves a client by ID. Returns (nil, nil) when not found.
func (r *Repository) GetClientByID(ctx context.Context, id string) (*Client, error) {
	if !validID(id) {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM clients WHERE id = $1`, clientColumns)

	client, err := scanClient(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by id: %w", err)
	}

	return client, nil
}

// GetClientByKey retrieves a client by its license key. Returns (nil, nil) when not found.
func (r *Repository) GetClientByKey(ctx context.Context, key string) (*Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE license_key = $1`, clientColumns)

	client, err := scanClient(r.db.Pool.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by key: %w", err)
	}

	return client, nil
}

// ListClients retrieves all clients newest-first, each decorated with its
// event count and most recent event timestamp.
func (r *Repository) ListClients(ctx context.Context) ([]ClientSummary, error) {
	query := fmt.Sprintf(`
	SELECT %s,
		(SELECT COUNT(*) FROM license_events e WHERE e.client_id = clients.id),
		(SELECT MAX(e.created_at) FROM license_events e WHERE e.client_id = clients.id)
	FROM clients
	ORDER BY created_at DESC
	`, clientColumns)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []ClientSummary
	for rows.Next() {
		var c ClientSummary
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Email,
			&c.Company,
			&c.Plan,
			&c.Status,
			&c.LicenseKey,
			&c.ExpiresAt,
			&c.Blocked,
			&c.BlockReason,
			&c.LastCheck,
			&c.LastIP,
			&c.LoginCount,
			&c.Notes,
			&c.CreatedAt,
			&c.EventCount,
			&c.LastEvent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}

// RecordCheck updates the verification bookkeeping for a client in a single
// statement so that login_count stays monotonic under concurrent checks.
func (r *Repository) RecordCheck(ctx context.Context, id, ip string, now time.Time) error {
	query := `
	UPDATE clients
	SET last_check = $2, last_ip = $3, login_count = login_count + 1
	WHERE id = $1
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, now, ip); err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}
	return nil
}

// BlockClient marks a client as blocked with the given reason
func (r *Repository) BlockClient(ctx context.Context, id, reason string) error {
	query := `UPDATE clients SET blocked = TRUE, block_reason = $2 WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("failed to block client: %w", err)
	}
	return nil
}

// UnblockClient clears the blocked flag and reason, resets the status label
// and writes the given expiry (callers pass the current expiry to leave it unchanged).
func (r *Repository) UnblockClient(ctx context.Context, id string, expiresAt *time.Time) error {
	query := `
	UPDATE clients
	SET blocked = FALSE, block_reason = NULL, status = 'active', expires_at = $2
	WHERE id = $1
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, expiresAt); err != nil {
		return fmt.Errorf("failed to unblock client: %w", err)
	}
	return nil
}

// ExtendClient sets a new expiry and reactivates the client
func (r *Repository) ExtendClient(ctx context.Context, id string, expiresAt time.Time) error {
	query := `
	UPDATE clients
	SET expires_at = $2, status = 'active', blocked = FALSE
	WHERE id = $1
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, expiresAt); err != nil {
		return fmt.Errorf("failed to extend client: %w", err)
	}
	return nil
}

// UpdateLicenseKey overwrites the activation key for a client
func (r *Repository) UpdateLicenseKey(ctx context.Context, id, key string) error {
	query := `UPDATE clients SET license_key = $2 WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id, key)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to update license key: %w", err)
	}
	return nil
}

// DeleteClient deletes a client record. Deleting an absent client is not an error.
func (r *Repository) DeleteClient(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

// GetClientStats returns the aggregate license counters, computed on demand
func (r *Repository) GetClientStats(ctx context.Context, now time.Time) (*LicenseStats, error) {
	stats := &LicenseStats{}

	query := `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE blocked),
		COUNT(*) FILTER (WHERE NOT blocked AND expires_at IS NOT NULL AND expires_at < $1)
	FROM clients
	`
	err := r.db.Pool.QueryRow(ctx, query, now).Scan(&stats.Total, &stats.Blocked, &stats.Expired)
	if err != nil {
		return nil, fmt.Errorf("failed to get client stats: %w", err)
	}
	stats.Active = stats.Total - stats.Blocked - stats.Expired

	checks, err := r.CountChecksSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	stats.ChecksToday = checks

	return stats, nil
}
