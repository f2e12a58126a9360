package database

import (
	"time"
)

// Client represents a licensed client record
type Client struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	Company     string     `json:"company" db:"company"`
	Plan        string     `json:"plan" db:"plan"`
	Status      string     `json:"status" db:"status"` // display label only, never drives access decisions
	LicenseKey  string     `json:"license_key" db:"license_key"`
	ExpiresAt   *time.Time `json:"expires_at" db:"expires_at"` // nil = never expires
	Blocked     bool       `json:"blocked" db:"blocked"`
	BlockReason string     `json:"block_reason" db:"block_reason"`
	LastCheck   *time.Time `json:"last_check" db:"last_check"`
	LastIP      string     `json:"last_ip" db:"last_ip"`
	LoginCount  int64      `json:"login_count" db:"login_count"`
	Notes       string     `json:"notes" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ClientSummary is a client row decorated with event aggregates for admin listings
type ClientSummary struct {
	Client
	EventCount int64      `json:"event_count"`
	LastEvent  *time.Time `json:"last_event"`
}

// LicenseEvent is a single audit trail entry for a client
type LicenseEvent struct {
	ID        int64     `json:"id" db:"id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	Event     string    `json:"event" db:"event"`
	Detail    string    `json:"detail" db:"detail"`
	IP        string    `json:"ip" db:"ip"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LicenseStats holds the on-demand aggregate counters for the admin dashboard
type LicenseStats struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	Blocked     int64 `json:"blocked"`
	Expired     int64 `json:"expired"`
	ChecksToday int64 `json:"checks_today"`
}
