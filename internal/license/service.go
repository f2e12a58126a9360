// Package license implements the license state machine: verification verdicts
// and the administrative transitions on client records.
package license

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cvite-license-server/internal/database"
	"cvite-license-server/internal/keygen"

	"github.com/rs/zerolog"
)

// User-facing verification messages
const (
	msgMissingKey     = "missing key"
	msgUnknownKey     = "key not recognized"
	msgBlockedDefault = "your access has been disabled by the administrator, contact your provider"
	msgExpired        = "your license has expired, contact your provider to renew"
	msgActive         = "license active"

	// DefaultBlockReason is written when an admin blocks without giving one
	DefaultBlockReason = "access revoked by administrator"

	expiryWarningDays = 7
)

// Config holds the tunable service settings
type Config struct {
	DefaultPlan string
	KeyPrefix   string
	// OpTimeout bounds every store operation; a timeout maps to a store error.
	OpTimeout time.Duration
}

// Service owns the license decision logic over an injected store
type Service struct {
	store     Store
	keys      *keygen.Generator
	sink      EventSink
	logger    zerolog.Logger
	opTimeout time.Duration
	plan      string

	now func() time.Time
}

// NewService creates a license service
func NewService(store Store, cfg Config, sink EventSink, logger zerolog.Logger) *Service {
	if cfg.DefaultPlan == "" {
		cfg.DefaultPlan = "monthly"
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}
	return &Service{
		store:     store,
		keys:      keygen.New(cfg.KeyPrefix),
		sink:      sink,
		logger:    logger.With().Str("component", "license").Logger(),
		opTimeout: cfg.OpTimeout,
		plan:      cfg.DefaultPlan,
		now:       time.Now,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// storeError logs the underlying failure and returns the opaque taxonomy error
func (s *Service) storeError(op string, err error) *Error {
	s.logger.Error().Err(err).Str("op", op).Msg("store operation failed")
	return ErrStore
}

// logEvent appends an audit event and forwards it to the live sink. The
// append must succeed before the HTTP response goes out, so failures are
// returned, not swallowed.
func (s *Service) logEvent(ctx context.Context, clientID, event, detail, ip string) error {
	e := &database.LicenseEvent{
		ClientID: clientID,
		Event:    event,
		Detail:   detail,
		IP:       ip,
	}
	if err := s.store.AppendEvent(ctx, e); err != nil {
		return s.storeError("append_event", err)
	}
	if s.sink != nil {
		s.sink.Publish(*e)
	}
	return nil
}

// Verify evaluates a raw activation key and returns the verdict. Blocked
// takes priority over expiry; the check bookkeeping on the record is updated
// exactly once per call that finds the key, whatever the verdict.
func (s *Service) Verify(ctx context.Context, rawKey, ip string) (*Verdict, error) {
	key := keygen.Normalize(rawKey)
	if key == "" {
		return &Verdict{OK: false, Status: StatusInvalid, Message: msgMissingKey}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.store.GetClientByKey(ctx, key)
	if err != nil {
		return nil, s.storeError("get_by_key", err)
	}
	if client == nil {
		return &Verdict{OK: false, Status: StatusInvalid, Message: msgUnknownKey}, nil
	}

	now := s.now()
	if err := s.store.RecordCheck(ctx, client.ID, ip, now); err != nil {
		return nil, s.storeError("record_check", err)
	}

	if client.Blocked {
		if err := s.logEvent(ctx, client.ID, EventBlockedAttempt, "attempt on blocked account", ip); err != nil {
			return nil, err
		}
		message := client.BlockReason
		if message == "" {
			message = msgBlockedDefault
		}
		return &Verdict{OK: false, Status: StatusBlocked, Message: message}, nil
	}

	if client.ExpiresAt != nil && now.After(*client.ExpiresAt) {
		if err := s.logEvent(ctx, client.ID, EventExpiredAttempt, "attempt on expired license", ip); err != nil {
			return nil, err
		}
		return &Verdict{OK: false, Status: StatusExpired, Message: msgExpired}, nil
	}

	if err := s.logEvent(ctx, client.ID, EventCheckOK, "", ip); err != nil {
		return nil, err
	}

	var daysLeft *int
	if client.ExpiresAt != nil {
		d := daysUntil(*client.ExpiresAt, now)
		daysLeft = &d
	}

	return &Verdict{
		OK:      true,
		Status:  StatusActive,
		Message: activeMessage(daysLeft),
		Client: &ClientInfo{
			Name:      client.Name,
			Company:   client.Company,
			Plan:      client.Plan,
			DaysLeft:  daysLeft,
			ExpiresAt: client.ExpiresAt,
		},
	}, nil
}

func daysUntil(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Hours() / 24))
}

func activeMessage(daysLeft *int) string {
	if daysLeft == nil {
		return msgActive
	}
	if *daysLeft <= expiryWarningDays {
		if *daysLeft == 1 {
			return "warning: license expires in 1 day"
		}
		return fmt.Sprintf("warning: license expires in %d days", *daysLeft)
	}
	return fmt.Sprintf("license active, %d days remaining", *daysLeft)
}

// Create issues a new license: fresh id, fresh key, optional expiry in days
func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*database.Client, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, validationError("name and email are required")
	}

	plan := req.Plan
	if plan == "" {
		plan = s.plan
	}

	now := s.now()
	client := &database.Client{
		Name:       name,
		Email:      email,
		Company:    strings.TrimSpace(req.Company),
		Plan:       plan,
		Status:     "active",
		LicenseKey: s.keys.Generate(),
		Notes:      req.Notes,
	}
	if req.Days > 0 {
		exp := now.Add(time.Duration(req.Days) * 24 * time.Hour)
		client.ExpiresAt = &exp
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.store.CreateClient(ctx, client)
	if err == database.ErrDuplicateKey {
		// generator collision, retry once with a fresh key
		client.LicenseKey = s.keys.Generate()
		err = s.store.CreateClient(ctx, client)
	}
	if err == database.ErrDuplicateEmail {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, s.storeError("create_client", err)
	}

	detail := fmt.Sprintf("license created by admin, plan: %s", plan)
	if err := s.logEvent(ctx, client.ID, EventCreated, detail, ""); err != nil {
		return nil, err
	}

	s.logger.Info().Str("client_id", client.ID).Str("plan", plan).Msg("license created")
	return client, nil
}

// Block disables a client immediately. Blocking an already-blocked client
// succeeds and just updates the reason.
func (s *Service) Block(ctx context.Context, id, reason string) (*database.Client, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.store.GetClientByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get_by_id", err)
	}
	if client == nil {
		return nil, ErrNotFound
	}

	if reason == "" {
		reason = DefaultBlockReason
	}
	if err := s.store.BlockClient(ctx, id, reason); err != nil {
		return nil, s.storeError("block_client", err)
	}
	if err := s.logEvent(ctx, id, EventBlocked, reason, ""); err != nil {
		return nil, err
	}

	s.logger.Info().Str("client_id", id).Str("reason", reason).Msg("client blocked")
	client.Blocked = true
	client.BlockReason = reason
	return client, nil
}

// Unblock re-enables a client. A positive days value restarts the expiry
// clock from now; otherwise the expiry is left as it was.
func (s *Service) Unblock(ctx context.Context, id string, days int) (*database.Client, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.store.GetClientByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get_by_id", err)
	}
	if client == nil {
		return nil, ErrNotFound
	}

	expiresAt := client.ExpiresAt
	detail := "unblocked by admin, term unchanged"
	if days > 0 {
		exp := s.now().Add(time.Duration(days) * 24 * time.Hour)
		expiresAt = &exp
		detail = fmt.Sprintf("unblocked by admin, new term: %d days", days)
	}

	if err := s.store.UnblockClient(ctx, id, expiresAt); err != nil {
		return nil, s.storeError("unblock_client", err)
	}
	if err := s.logEvent(ctx, id, EventUnblocked, detail, ""); err != nil {
		return nil, err
	}

	s.logger.Info().Str("client_id", id).Int("days", days).Msg("client unblocked")
	client.Blocked = false
	client.BlockReason = ""
	client.Status = "active"
	client.ExpiresAt = expiresAt
	return client, nil
}

// Extend adds days on top of the remaining balance of a still-valid license,
// or restarts the clock from now for an expired or never-expiring one. It
// also clears any block.
func (s *Service) Extend(ctx context.Context, id string, days int) (*database.Client, error) {
	if days < 1 {
		return nil, validationError("days must be at least 1")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.store.GetClientByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get_by_id", err)
	}
	if client == nil {
		return nil, ErrNotFound
	}

	now := s.now()
	base := now
	if client.ExpiresAt != nil && client.ExpiresAt.After(now) {
		base = *client.ExpiresAt
	}
	newExpiry := base.Add(time.Duration(days) * 24 * time.Hour)

	if err := s.store.ExtendClient(ctx, id, newExpiry); err != nil {
		return nil, s.storeError("extend_client", err)
	}
	detail := fmt.Sprintf("extended by %d days, new expiry: %s", days, newExpiry.UTC().Format(time.RFC3339))
	if err := s.logEvent(ctx, id, EventExtended, detail, ""); err != nil {
		return nil, err
	}

	s.logger.Info().Str("client_id", id).Time("expires_at", newExpiry).Msg("license extended")
	client.ExpiresAt = &newExpiry
	client.Status = "active"
	client.Blocked = false
	return client, nil
}

// RenewKey rotates the activation key, invalidating the previous one. No
// other field changes.
func (s *Service) RenewKey(ctx context.Context, id string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	client, err := s.store.GetClientByID(ctx, id)
	if err != nil {
		return "", s.storeError("get_by_id", err)
	}
	if client == nil {
		return "", ErrNotFound
	}

	newKey := s.keys.Generate()
	err = s.store.UpdateLicenseKey(ctx, id, newKey)
	if err == database.ErrDuplicateKey {
		newKey = s.keys.Generate()
		err = s.store.UpdateLicenseKey(ctx, id, newKey)
	}
	if err != nil {
		return "", s.storeError("update_key", err)
	}

	if err := s.logEvent(ctx, id, EventKeyRenewed, "key regenerated by admin", ""); err != nil {
		return "", err
	}

	s.logger.Info().Str("client_id", id).Msg("license key renewed")
	return newKey, nil
}

// Delete removes the client and its whole audit trail. Absence is success.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.DeleteEventsForClient(ctx, id); err != nil {
		return s.storeError("delete_events", err)
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return s.storeError("delete_client", err)
	}

	s.logger.Info().Str("client_id", id).Msg("client deleted")
	return nil
}

// ListClients returns all clients with their event aggregates, newest first
func (s *Service) ListClients(ctx context.Context) ([]database.ClientSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	clients, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, s.storeError("list_clients", err)
	}
	return clients, nil
}

// ListEvents returns a client's audit trail, most recent first
func (s *Service) ListEvents(ctx context.Context, clientID string, limit int) ([]database.LicenseEvent, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.store.ListEventsForClient(ctx, clientID, limit)
	if err != nil {
		return nil, s.storeError("list_events", err)
	}
	return events, nil
}

// Stats computes the aggregate counters on demand
func (s *Service) Stats(ctx context.Context) (*database.LicenseStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.store.GetClientStats(ctx, s.now())
	if err != nil {
		return nil, s.storeError("get_stats", err)
	}
	return stats, nil
}
