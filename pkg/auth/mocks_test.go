package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fakeUserStore is a minimal in-memory UserStore with the same
// compare-and-swap contract as the real stores. The userstore package cannot
// be imported here because it depends on this package.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User

	failCreate error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*User)}
}
func (s *fakeUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailAlreadyRegistered
		}
	}
	clone := cloneFakeUser(u)
	clone.Version = 1
	s.users[clone.ID] = clone
	u.Version = 1
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneFakeUser(u), nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneFakeUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeUserStore) GetByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ProviderName == provider && u.ProviderID == providerID {
			return cloneFakeUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeUserStore) GetByResetCode(ctx context.Context, code string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code == "" {
		return nil, ErrUserNotFound
	}
	for _, u := range s.users {
		if u.ResetCode == code {
			return cloneFakeUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeUserStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	if current.Version != u.Version {
		return ErrVersionConflict
	}
	clone := cloneFakeUser(u)
	clone.Version = current.Version + 1
	s.users[u.ID] = clone
	u.Version = clone.Version
	return nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) Mutate(ctx context.Context, id uuid.UUID, fn func(*User) error) (*User, error) {
	for range 5 {
		u, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		switch err := s.Update(ctx, u); err {
		case nil:
			return u, nil
		case ErrVersionConflict:
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrVersionConflict
}

// mustGet fetches the stored record directly, failing the version dance.
func (s *fakeUserStore) mustGet(id uuid.UUID) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFakeUser(s.users[id])
}

func cloneFakeUser(u *User) *User {
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	clone.PasswordHash = append([]byte(nil), u.PasswordHash...)
	clone.LockedUntil = cloneFakeTime(u.LockedUntil)
	clone.VerificationTokenExpiresAt = cloneFakeTime(u.VerificationTokenExpiresAt)
	clone.ResetCodeExpiresAt = cloneFakeTime(u.ResetCodeExpiresAt)
	clone.RefreshTokenExpiresAt = cloneFakeTime(u.RefreshTokenExpiresAt)
	return &clone
}

func cloneFakeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// fakeProfileStore records profile writes and can be told to fail creation.
type fakeProfileStore struct {
	mu         sync.Mutex
	profiles   map[uuid.UUID]string
	complete   map[uuid.UUID]bool
	failCreate error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		profiles: make(map[uuid.UUID]string),
		complete: make(map[uuid.UUID]bool),
	}
}

func (s *fakeProfileStore) CreateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		return s.failCreate
	}
	s.profiles[userID] = displayName
	return nil
}

func (s *fakeProfileStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

func (s *fakeProfileStore) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.complete[userID], nil
}

func (s *fakeProfileStore) has(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.profiles[userID]
	return ok
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationEmail(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendPasswordResetCode(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// MockSessionRevoker is a mock implementation of SessionRevoker.
type MockSessionRevoker struct {
	mock.Mock
}

func (m *MockSessionRevoker) Revoke(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// fakeAdapter is a scripted ProviderAdapter.
type fakeAdapter struct {
	name    string
	profile *Profile
	err     error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) AuthURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (a *fakeAdapter) ResolveProfile(ctx context.Context, code string) (*Profile, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.profile, nil
}

// fakeStateStore is a single-use in-memory StateStore.
type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]time.Time)}
}

func (s *fakeStateStore) StoreState(ctx context.Context, state string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = expiresAt
	return nil
}

func (s *fakeStateStore) ConsumeState(ctx context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[state]; !ok {
		return ErrStateNotFound
	}
	delete(s.states, state)
	return nil
}
