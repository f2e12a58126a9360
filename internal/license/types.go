package license

import (
	"context"
	"time"

	"cvite-license-server/internal/database"
)

// Status classifies the outcome of a verification call
type Status string

const (
	StatusInvalid Status = "invalid"
	StatusBlocked Status = "blocked"
	StatusExpired Status = "expired"
	StatusActive  Status = "active"
)

// Event vocabulary for the audit trail
const (
	EventCreated        = "created"
	EventBlocked        = "blocked"
	EventUnblocked      = "unblocked"
	EventExtended       = "extended"
	EventKeyRenewed     = "key_renewed"
	EventCheckOK        = "check_ok"
	EventBlockedAttempt = "blocked_attempt"
	EventExpiredAttempt = "expired_attempt"
)

// Verdict is the outcome of a key verification. Verification failures are
// normal responses carrying a status, never errors.
type Verdict struct {
	OK      bool        `json:"ok"`
	Status  Status      `json:"status"`
	Message string      `json:"message"`
	Client  *ClientInfo `json:"client,omitempty"`
}

// ClientInfo is the subset of client data returned to the desktop application
// on a successful check.
type ClientInfo struct {
	Name      string     `json:"name"`
	Company   string     `json:"company"`
	Plan      string     `json:"plan"`
	DaysLeft  *int       `json:"daysLeft"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// CreateClientRequest carries the admin input for issuing a new license
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Company string `json:"company"`
	Plan    string `json:"plan"`
	Days    int    `json:"days"`
	Notes   string `json:"notes"`
}

// Store is the persistence contract for license records and their audit
// trail. Both the PostgreSQL repository and the test double implement it.
type Store interface {
	CreateClient(ctx context.Context, client *database.Client) error
	GetClientByID(ctx context.Context, id string) (*database.Client, error)
	GetClientByKey(ctx context.Context, key string) (*database.Client, error)
	ListClients(ctx context.Context) ([]database.ClientSummary, error)
	RecordCheck(ctx context.Context, id, ip string, now time.Time) error
	BlockClient(ctx context.Context, id, reason string) error
	UnblockClient(ctx context.Context, id string, expiresAt *time.Time) error
	ExtendClient(ctx context.Context, id string, expiresAt time.Time) error
	UpdateLicenseKey(ctx context.Context, id, key string) error
	DeleteClient(ctx context.Context, id string) error
	GetClientStats(ctx context.Context, now time.Time) (*database.LicenseStats, error)
	AppendEvent(ctx context.Context, event *database.LicenseEvent) error
	ListEventsForClient(ctx context.Context, clientID string, limit int) ([]database.LicenseEvent, error)
	DeleteEventsForClient(ctx context.Context, clientID string) error
}

// EventSink receives every appended audit event, e.g. for live broadcast to
// admin consoles. Publishing must not block the request path.
type EventSink interface {
	Publish(event database.LicenseEvent)
}
