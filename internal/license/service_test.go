package license

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cvite-license-server/internal/database"

	"github.com/rs/zerolog"
)

// ============================================================================
// In-memory Store test double
// ============================================================================

type memStore struct {
	mu      sync.Mutex
	clients map[string]*database.Client
	events  []database.LicenseEvent
	nextID  int64

	keyLookups int
}

func newMemStore() *memStore {
	return &memStore{clients: make(map[string]*database.Client)}
}

func copyClient(c *database.Client) *database.Client {
	cp := *c
	if c.ExpiresAt != nil {
		exp := *c.ExpiresAt
		cp.ExpiresAt = &exp
	}
	if c.LastCheck != nil {
		lc := *c.LastCheck
		cp.LastCheck = &lc
	}
	return &cp
}

func (m *memStore) CreateClient(_ context.Context, client *database.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.Email == client.Email {
			return database.ErrDuplicateEmail
		}
		if c.LicenseKey == client.LicenseKey {
			return database.ErrDuplicateKey
		}
	}
	if client.ID == "" {
		client.ID = fmt.Sprintf("client-%d", len(m.clients)+1)
	}
	client.CreatedAt = time.Now()
	m.clients[client.ID] = copyClient(client)
	return nil
}

func (m *memStore) GetClientByID(_ context.Context, id string) (*database.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return copyClient(c), nil
}

func (m *memStore) GetClientByKey(_ context.Context, key string) (*database.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyLookups++
	for _, c := range m.clients {
		if c.LicenseKey == key {
			return copyClient(c), nil
		}
	}
	return nil, nil
}

func (m *memStore) ListClients(_ context.Context) ([]database.ClientSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.ClientSummary
	for _, c := range m.clients {
		out = append(out, database.ClientSummary{Client: *copyClient(c)})
	}
	return out, nil
}

func (m *memStore) RecordCheck(_ context.Context, id, ip string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil
	}
	c.LastCheck = &now
	c.LastIP = ip
	c.LoginCount++
	return nil
}

func (m *memStore) BlockClient(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		c.Blocked = true
		c.BlockReason = reason
	}
	return nil
}

func (m *memStore) UnblockClient(_ context.Context, id string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		c.Blocked = false
		c.BlockReason = ""
		c.Status = "active"
		c.ExpiresAt = expiresAt
	}
	return nil
}

func (m *memStore) ExtendClient(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		exp := expiresAt
		c.ExpiresAt = &exp
		c.Status = "active"
		c.Blocked = false
	}
	return nil
}

func (m *memStore) UpdateLicenseKey(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for cid, c := range m.clients {
		if c.LicenseKey == key && cid != id {
			return database.ErrDuplicateKey
		}
	}
	if c, ok := m.clients[id]; ok {
		c.LicenseKey = key
	}
	return nil
}

func (m *memStore) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
	return nil
}

func (m *memStore) GetClientStats(_ context.Context, now time.Time) (*database.LicenseStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &database.LicenseStats{}
	for _, c := range m.clients {
		stats.Total++
		switch {
		case c.Blocked:
			stats.Blocked++
		case c.ExpiresAt != nil && c.ExpiresAt.Before(now):
			stats.Expired++
		}
	}
	stats.Active = stats.Total - stats.Blocked - stats.Expired
	for _, e := range m.events {
		if e.Event == EventCheckOK && e.CreatedAt.After(now.Add(-24*time.Hour)) {
			stats.ChecksToday++
		}
	}
	return stats, nil
}

func (m *memStore) AppendEvent(_ context.Context, event *database.LicenseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	event.ID = m.nextID
	event.CreatedAt = time.Now()
	m.events = append(m.events, *event)
	return nil
}

func (m *memStore) ListEventsForClient(_ context.Context, clientID string, limit int) ([]database.LicenseEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.LicenseEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].ClientID == clientID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *memStore) DeleteEventsForClient(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.ClientID != clientID {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

func (m *memStore) eventsFor(clientID string) []database.LicenseEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.LicenseEvent
	for _, e := range m.events {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out
}

// ============================================================================
// Helpers
// ============================================================================

func newTestService(store *memStore) *Service {
	return NewService(store, Config{DefaultPlan: "monthly", KeyPrefix: "CVITE"}, nil, zerolog.Nop())
}

func mustCreate(t *testing.T, svc *Service, req CreateClientRequest) *database.Client {
	t.Helper()
	client, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return client
}

// ============================================================================
// Verify
// ============================================================================

func TestVerifyMissingKey(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	verdict, err := svc.Verify(context.Background(), "   ", "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.OK || verdict.Status != StatusInvalid {
		t.Errorf("expected invalid verdict, got ok=%v status=%s", verdict.OK, verdict.Status)
	}
	if store.keyLookups != 0 {
		t.Errorf("empty key must not hit the store, saw %d lookups", store.keyLookups)
	}
	if len(store.events) != 0 {
		t.Errorf("empty key must not log events, saw %d", len(store.events))
	}
}

func TestVerifyUnknownKey(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	verdict, err := svc.Verify(context.Background(), "CVITE-AAAAA-BBBBB-CCCCC", "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusInvalid {
		t.Errorf("expected invalid, got %s", verdict.Status)
	}
	if len(store.events) != 0 {
		t.Errorf("unknown key must not log events, saw %d", len(store.events))
	}
}

func TestVerifyNormalizesKey(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	verdict, err := svc.Verify(context.Background(), "  "+strings.ToLower(client.LicenseKey)+"  ", "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusActive {
		t.Errorf("expected active for lower-cased padded key, got %s", verdict.Status)
	}
}

func TestVerifyBlockedTakesPriorityOverExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 1})

	if _, err := svc.Block(context.Background(), client.ID, "payment overdue"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	// jump past expiry; blocked must still win
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	verdict, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusBlocked {
		t.Errorf("expected blocked, got %s", verdict.Status)
	}
	if verdict.Message != "payment overdue" {
		t.Errorf("expected exact block reason, got %q", verdict.Message)
	}

	events := store.eventsFor(client.ID)
	last := events[len(events)-1]
	if last.Event != EventBlockedAttempt {
		t.Errorf("expected blocked_attempt event, got %s", last.Event)
	}
}

func TestVerifyExpired(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 30})

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }

	verdict, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.OK || verdict.Status != StatusExpired {
		t.Errorf("expected expired verdict, got ok=%v status=%s", verdict.OK, verdict.Status)
	}

	events := store.eventsFor(client.ID)
	last := events[len(events)-1]
	if last.Event != EventExpiredAttempt {
		t.Errorf("expected expired_attempt event, got %s", last.Event)
	}
}

func TestVerifyCountsEveryVerdict(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 1})

	// active, then blocked, then expired: three lookups, three increments
	if _, err := svc.Verify(context.Background(), client.LicenseKey, "1.1.1.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Block(context.Background(), client.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(context.Background(), client.LicenseKey, "1.1.1.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Unblock(context.Background(), client.ID, 0); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := svc.Verify(context.Background(), client.LicenseKey, "1.1.1.1"); err != nil {
		t.Fatal(err)
	}

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.LoginCount != 3 {
		t.Errorf("expected login count 3, got %d", stored.LoginCount)
	}
	if stored.LastIP != "1.1.1.1" {
		t.Errorf("expected last ip recorded, got %q", stored.LastIP)
	}
}

func TestVerifyConcurrentChecksIncrementOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4"); err != nil {
				t.Errorf("Verify failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.LoginCount != n {
		t.Errorf("expected login count %d after %d concurrent checks, got %d", n, n, stored.LoginCount)
	}
}

func TestVerifyDaysLeftAndWarningWindow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	created := time.Now()
	svc.now = func() time.Time { return created }
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 30})

	// 25 days later: 5 days left, warning message
	svc.now = func() time.Time { return created.Add(25 * 24 * time.Hour) }
	verdict, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusActive {
		t.Fatalf("expected active at day 25, got %s", verdict.Status)
	}
	if verdict.Client == nil || verdict.Client.DaysLeft == nil || *verdict.Client.DaysLeft != 5 {
		t.Fatalf("expected daysLeft=5, got %+v", verdict.Client)
	}
	if !strings.Contains(verdict.Message, "5 days") {
		t.Errorf("expected expiring-soon message with count, got %q", verdict.Message)
	}

	// 31 days later: expired
	svc.now = func() time.Time { return created.Add(31 * 24 * time.Hour) }
	verdict, err = svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusExpired {
		t.Errorf("expected expired at day 31, got %s", verdict.Status)
	}
}

func TestVerifyNoExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	verdict, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusActive {
		t.Fatalf("expected active, got %s", verdict.Status)
	}
	if verdict.Client.DaysLeft != nil {
		t.Errorf("expected nil daysLeft for never-expiring license, got %d", *verdict.Client.DaysLeft)
	}
	if verdict.Message != msgActive {
		t.Errorf("expected plain active message, got %q", verdict.Message)
	}
}

// ============================================================================
// Create
// ============================================================================

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemStore())

	if _, err := svc.Create(context.Background(), CreateClientRequest{Email: "a@example.com"}); err == nil {
		t.Error("expected validation error for missing name")
	}
	if _, err := svc.Create(context.Background(), CreateClientRequest{Name: "Alice"}); err == nil {
		t.Error("expected validation error for missing email")
	}
}

func TestCreateDefaultsAndNormalization(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "Alice@Example.COM"})
	if client.Email != "alice@example.com" {
		t.Errorf("expected lower-cased email, got %q", client.Email)
	}
	if client.Plan != "monthly" {
		t.Errorf("expected default plan monthly, got %q", client.Plan)
	}
	if client.Status != "active" {
		t.Errorf("expected initial status active, got %q", client.Status)
	}
	if client.ExpiresAt != nil {
		t.Errorf("expected nil expiry without days, got %v", client.ExpiresAt)
	}
	if !strings.HasPrefix(client.LicenseKey, "CVITE-") {
		t.Errorf("expected CVITE key prefix, got %q", client.LicenseKey)
	}

	events := store.eventsFor(client.ID)
	if len(events) != 1 || events[0].Event != EventCreated {
		t.Errorf("expected a single created event, got %+v", events)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	_, err := svc.Create(context.Background(), CreateClientRequest{Name: "Bob", Email: "A@EXAMPLE.COM"})
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != CodeDuplicateEmail {
		t.Errorf("expected DUPLICATE_EMAIL error, got %v", err)
	}
}

func TestCreateThenVerifyRoundTrip(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 30})

	verdict, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict.Status != StatusActive {
		t.Fatalf("expected active, got %s", verdict.Status)
	}
	if verdict.Client.DaysLeft == nil || *verdict.Client.DaysLeft != 30 {
		t.Errorf("expected daysLeft=30 right after create, got %+v", verdict.Client.DaysLeft)
	}
}

// ============================================================================
// Block / Unblock
// ============================================================================

func TestBlockUnknownClient(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Block(context.Background(), "nope", "reason")
	if err != ErrNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestBlockIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	if _, err := svc.Block(context.Background(), client.ID, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Block(context.Background(), client.ID, "second"); err != nil {
		t.Fatalf("blocking an already-blocked client must succeed: %v", err)
	}

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.BlockReason != "second" {
		t.Errorf("expected reason updated to %q, got %q", "second", stored.BlockReason)
	}
}

func TestBlockDefaultReason(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	if _, err := svc.Block(context.Background(), client.ID, ""); err != nil {
		t.Fatal(err)
	}
	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.BlockReason != DefaultBlockReason {
		t.Errorf("expected default reason, got %q", stored.BlockReason)
	}
}

func TestUnblockClearsReasonAndKeepsExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 10})
	originalExpiry := *client.ExpiresAt

	if _, err := svc.Block(context.Background(), client.ID, "overdue"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Unblock(context.Background(), client.ID, 0); err != nil {
		t.Fatal(err)
	}

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.Blocked || stored.BlockReason != "" {
		t.Errorf("expected unblocked with cleared reason, got blocked=%v reason=%q", stored.Blocked, stored.BlockReason)
	}
	if stored.ExpiresAt == nil || !stored.ExpiresAt.Equal(originalExpiry) {
		t.Errorf("expiry must be unchanged without days, got %v", stored.ExpiresAt)
	}
	if stored.Status != "active" {
		t.Errorf("expected status active, got %q", stored.Status)
	}
}

func TestUnblockWithDaysResetsExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 2})

	now := time.Now()
	svc.now = func() time.Time { return now }

	if _, err := svc.Unblock(context.Background(), client.ID, 15); err != nil {
		t.Fatal(err)
	}

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	want := now.Add(15 * 24 * time.Hour)
	if stored.ExpiresAt == nil || !stored.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, stored.ExpiresAt)
	}
}

// ============================================================================
// Extend
// ============================================================================

func TestExtendComposesOnRemainingBalance(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	now := time.Now()
	svc.now = func() time.Time { return now }
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 10})

	updated, err := svc.Extend(context.Background(), client.ID, 5)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	want := now.Add(15 * 24 * time.Hour)
	if !updated.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry now+15d (%v), got %v", want, updated.ExpiresAt)
	}
}

func TestExtendRestartsClockWhenExpired(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	created := time.Now()
	svc.now = func() time.Time { return created }
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com", Days: 1})

	// 3 days past expiry
	now := created.Add(4 * 24 * time.Hour)
	svc.now = func() time.Time { return now }

	updated, err := svc.Extend(context.Background(), client.ID, 5)
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}

	want := now.Add(5 * 24 * time.Hour)
	if !updated.ExpiresAt.Equal(want) {
		t.Errorf("expected clock restarted from now (%v), got %v", want, updated.ExpiresAt)
	}
}

func TestExtendClearsBlock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})

	if _, err := svc.Block(context.Background(), client.ID, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Extend(context.Background(), client.ID, 7); err != nil {
		t.Fatal(err)
	}

	stored, _ := store.GetClientByID(context.Background(), client.ID)
	if stored.Blocked {
		t.Error("extend must clear the blocked flag")
	}
}

func TestExtendValidation(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Extend(context.Background(), "any", 0)
	svcErr, ok := err.(*Error)
	if !ok || svcErr.Code != CodeValidation {
		t.Errorf("expected VALIDATION_ERROR for days=0, got %v", err)
	}

	_, err = svc.Extend(context.Background(), "missing", 5)
	if err != ErrNotFound {
		t.Errorf("expected NOT_FOUND for unknown id, got %v", err)
	}
}

// ============================================================================
// RenewKey / Delete
// ============================================================================

func TestRenewKeyInvalidatesOldKey(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})
	oldKey := client.LicenseKey

	newKey, err := svc.RenewKey(context.Background(), client.ID)
	if err != nil {
		t.Fatalf("RenewKey failed: %v", err)
	}
	if newKey == oldKey {
		t.Fatal("expected a different key after renewal")
	}

	verdict, _ := svc.Verify(context.Background(), oldKey, "1.2.3.4")
	if verdict.Status != StatusInvalid {
		t.Errorf("old key must be invalid after renewal, got %s", verdict.Status)
	}

	verdict, _ = svc.Verify(context.Background(), newKey, "1.2.3.4")
	if verdict.Status != StatusActive {
		t.Errorf("new key must verify, got %s", verdict.Status)
	}
}

func TestRenewKeyUnknownClient(t *testing.T) {
	svc := newTestService(newMemStore())
	if _, err := svc.RenewKey(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDeleteIsIdempotentAndCascades(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	client := mustCreate(t, svc, CreateClientRequest{Name: "Alice", Email: "a@example.com"})
	if _, err := svc.Verify(context.Background(), client.LicenseKey, "1.2.3.4"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), client.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(context.Background(), client.ID); err != nil {
		t.Fatalf("second Delete must succeed: %v", err)
	}
	if err := svc.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("deleting a nonexistent id must succeed: %v", err)
	}

	if got := store.eventsFor(client.ID); len(got) != 0 {
		t.Errorf("expected events cascaded away, got %d", len(got))
	}
}

// ============================================================================
// Stats
// ============================================================================

func TestStats(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	base := time.Now()

	// C is created two days in the past with a one-day term, so it is
	// already expired when stats run at base
	svc.now = func() time.Time { return base.Add(-48 * time.Hour) }
	mustCreate(t, svc, CreateClientRequest{Name: "C", Email: "c@example.com", Days: 1})

	svc.now = func() time.Time { return base }
	a := mustCreate(t, svc, CreateClientRequest{Name: "A", Email: "a@example.com"})       // active
	mustCreate(t, svc, CreateClientRequest{Name: "B", Email: "b@example.com", Days: 30}) // active
	d := mustCreate(t, svc, CreateClientRequest{Name: "D", Email: "d@example.com"})

	if _, err := svc.Block(context.Background(), d.ID, "bad actor"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(context.Background(), a.LicenseKey, "1.2.3.4"); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("expected total 4, got %d", stats.Total)
	}
	if stats.Blocked != 1 {
		t.Errorf("expected blocked 1, got %d", stats.Blocked)
	}
	if stats.Expired != 1 {
		t.Errorf("expected expired 1, got %d", stats.Expired)
	}
	if stats.Active != 2 {
		t.Errorf("expected active 2, got %d", stats.Active)
	}
	if stats.ChecksToday != 1 {
		t.Errorf("expected 1 check today, got %d", stats.ChecksToday)
	}
}

func TestDaysUntilRounding(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		expiry time.Time
		want   int
	}{
		{now.Add(24 * time.Hour), 1},
		{now.Add(25 * time.Hour), 2},
		{now.Add(30 * 24 * time.Hour), 30},
		{now.Add(time.Minute), 1},
	}
	for _, tt := range tests {
		if got := daysUntil(tt.expiry, now); got != tt.want {
			t.Errorf("daysUntil(%v) = %d, want %d", tt.expiry, got, tt.want)
		}
	}
}
