package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"guestlist/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// mockInviteeRepository is an in-memory InviteeRepository with the same
// compare-and-swap behavior as the Postgres implementation: guarded updates
// fail with ErrConflict when the guard no longer holds. All methods are
// mutex-protected so concurrency tests can hammer it from many goroutines.
type mockInviteeRepository struct {
	mu       sync.Mutex
	invitees map[string]*domain.Invitee
	nextID   int

	createErr error
	// createErrOnce is consumed by the first Create call, then cleared.
	createErrOnce error
}

func newMockInviteeRepository() *mockInviteeRepository {
	return &mockInviteeRepository{invitees: map[string]*domain.Invitee{}}
}

func (m *mockInviteeRepository) add(inv *domain.Invitee) *domain.Invitee {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invitees[cp.ID] = &cp
	return inv
}

func copyInvitee(inv *domain.Invitee) *domain.Invitee {
	cp := *inv
	return &cp
}

func (m *mockInviteeRepository) Create(ctx context.Context, inv *domain.Invitee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErrOnce != nil {
		err := m.createErrOnce
		m.createErrOnce = nil
		return err
	}
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.invitees {
		if existing.EventID == inv.EventID && existing.Phone == inv.Phone {
			return domain.ErrDuplicatePhone
		}
		if existing.QRToken == inv.QRToken {
			return domain.ErrDuplicateQRToken
		}
	}
	m.nextID++
	if inv.ID == "" {
		inv.ID = "inv-" + strconv.Itoa(m.nextID)
	}
	m.invitees[inv.ID] = copyInvitee(inv)
	return nil
}

func (m *mockInviteeRepository) GetByID(ctx context.Context, id string) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyInvitee(inv), nil
}

func (m *mockInviteeRepository) GetByEventAndPhone(ctx context.Context, eventID, phone string) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitees {
		if inv.EventID == eventID && inv.Phone == phone {
			return copyInvitee(inv), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockInviteeRepository) GetByQRToken(ctx context.Context, qrToken string) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitees {
		if inv.QRToken == qrToken {
			return copyInvitee(inv), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockInviteeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Invitee
	for _, inv := range m.invitees {
		if inv.EventID == eventID {
			out = append(out, copyInvitee(inv))
		}
	}
	return out, nil
}

func (m *mockInviteeRepository) List(ctx context.Context, search string, params domain.PaginationParams) ([]*domain.InviteeListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.InviteeListItem
	for _, inv := range m.invitees {
		out = append(out, &domain.InviteeListItem{Invitee: *inv})
	}
	return out, len(out), nil
}

func (m *mockInviteeRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invitees[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.invitees, id)
	return nil
}

func (m *mockInviteeRepository) Confirm(ctx context.Context, id string, email, name *string, at time.Time) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok || inv.Confirmed {
		return nil, domain.ErrConflict
	}
	inv.Confirmed = true
	inv.ConfirmedAt = &at
	if email != nil {
		inv.Email = email
	}
	if name != nil {
		inv.Name = name
	}
	inv.UpdatedAt = at
	return copyInvitee(inv), nil
}

func (m *mockInviteeRepository) CheckIn(ctx context.Context, id string, at time.Time) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok || inv.CheckedIn {
		return nil, domain.ErrConflict
	}
	inv.CheckedIn = true
	inv.CheckedInAt = &at
	inv.UpdatedAt = at
	return copyInvitee(inv), nil
}

func (m *mockInviteeRepository) SetConfirmed(ctx context.Context, id string, confirmed bool, email, name *string, at time.Time) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inv.Confirmed = confirmed
	if confirmed {
		inv.ConfirmedAt = &at
		if email != nil {
			inv.Email = email
		}
		if name != nil {
			inv.Name = name
		}
	} else {
		inv.ConfirmedAt = nil
		inv.CheckedIn = false
		inv.CheckedInAt = nil
	}
	inv.UpdatedAt = at
	return copyInvitee(inv), nil
}

func (m *mockInviteeRepository) SetCheckedIn(ctx context.Context, id string, checkedIn bool, at time.Time) (*domain.Invitee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if checkedIn && !inv.Confirmed {
		return nil, domain.ErrConflict
	}
	inv.CheckedIn = checkedIn
	if checkedIn {
		inv.CheckedInAt = &at
	} else {
		inv.CheckedInAt = nil
	}
	inv.UpdatedAt = at
	return copyInvitee(inv), nil
}

func (m *mockInviteeRepository) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitees[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.EmailSent = true
	inv.EmailSentAt = &at
	return nil
}

type mockEventRepository struct {
	mu     sync.Mutex
	events map[string]*domain.Event
	err    error
}

func newMockEventRepository() *mockEventRepository {
	return &mockEventRepository{events: map[string]*domain.Event{}}
}

func (m *mockEventRepository) add(ev *domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
}

func (m *mockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if event.ID == "" {
		event.ID = "ev-created"
	}
	m.events[event.ID] = event
	return nil
}

func (m *mockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

func (m *mockEventRepository) ListByCreator(ctx context.Context, userID string) ([]*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Event
	for _, ev := range m.events {
		if ev.CreatedBy == userID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *mockEventRepository) Update(ctx context.Context, id string, title, location, description *string, startTime, endTime *time.Time) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if title != nil {
		ev.Title = *title
	}
	if location != nil {
		ev.Location = *location
	}
	if description != nil {
		ev.Description = description
	}
	if startTime != nil {
		ev.StartTime = *startTime
	}
	if endTime != nil {
		ev.EndTime = *endTime
	}
	return ev, nil
}

func (m *mockEventRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// mockEmailService records sends and signals each one on a channel so tests
// can wait for the detached dispatch goroutine.
type mockEmailService struct {
	mu    sync.Mutex
	sent  []*domain.InvitationEmailData
	err   error
	calls chan string
}

func newMockEmailService() *mockEmailService {
	return &mockEmailService{calls: make(chan string, 16)}
}

func (m *mockEmailService) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	m.mu.Lock()
	err := m.err
	if err == nil {
		m.sent = append(m.sent, data)
	}
	m.mu.Unlock()
	m.calls <- data.Email
	return err
}

func (m *mockEmailService) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockEmailService) lastSent() *domain.InvitationEmailData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

type mockQRTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	n      int
}

func (m *mockQRTokenGenerator) Generate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.n < len(m.tokens) {
		t := m.tokens[m.n]
		m.n++
		return t, nil
	}
	m.n++
	return "token-extra", nil
}

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by email
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]*domain.User{}}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	user.ID = "user-" + user.Email
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// mockHasher is a trivially reversible PasswordHasher for service tests.
type mockHasher struct{}

func (mockHasher) GenerateSalt() (string, error) { return "salt", nil }

func (mockHasher) Hash(salt, password string) (string, error) {
	return salt + ":" + password, nil
}

func (mockHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type mockTokenIssuer struct {
	token string
	err   error
}

func (m *mockTokenIssuer) Issue(userID, email string, expiry time.Duration) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.token, nil
}
