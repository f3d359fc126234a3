package userstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uniserve/uniserve/pkg/auth"
)

// MemoryStore is an in-memory UserStore with the same compare-and-swap
// update contract as the postgres store. Used by tests and the dev profile.
type MemoryStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]*auth.User
	byEmail     map[string]uuid.UUID
	byProvider  map[string]uuid.UUID
	byResetCode map[string]uuid.UUID
}

var _ auth.UserStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:        make(map[uuid.UUID]*auth.User),
		byEmail:     make(map[string]uuid.UUID),
		byProvider:  make(map[string]uuid.UUID),
		byResetCode: make(map[string]uuid.UUID),
	}
}

func providerKey(provider, providerID string) string {
	return provider + "\x00" + providerID
}

// Create stores a new user, enforcing unique email and provider link.
func (s *MemoryStore) Create(ctx context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return auth.ErrEmailAlreadyRegistered
	}
	if u.ProviderName != "" {
		if _, exists := s.byProvider[providerKey(u.ProviderName, u.ProviderID)]; exists {
			return auth.ErrEmailAlreadyRegistered
		}
	}

	clone := cloneUser(u)
	clone.Version = 1
	s.byID[clone.ID] = clone
	s.index(clone)

	u.Version = clone.Version
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *MemoryStore) GetByProvider(ctx context.Context, provider, providerID string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byProvider[providerKey(provider, providerID)]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *MemoryStore) GetByResetCode(ctx context.Context, code string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if code == "" {
		return nil, auth.ErrUserNotFound
	}
	id, ok := s.byResetCode[code]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// Update applies the write only if the stored version still matches,
// mirroring the WHERE id AND version clause of the postgres store.
func (s *MemoryStore) Update(ctx context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[u.ID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if current.Version != u.Version {
		return auth.ErrVersionConflict
	}

	s.unindex(current)
	clone := cloneUser(u)
	clone.Version = current.Version + 1
	clone.UpdatedAt = time.Now()
	s.byID[clone.ID] = clone
	s.index(clone)

	u.Version = clone.Version
	u.UpdatedAt = clone.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	s.unindex(u)
	delete(s.byID, id)
	return nil
}

// Mutate re-reads and retries on version conflict, so concurrent writers
// on the same record serialize instead of clobbering each other.
func (s *MemoryStore) Mutate(ctx context.Context, id uuid.UUID, fn func(*auth.User) error) (*auth.User, error) {
	var err error
	for range mutateAttempts {
		var u *auth.User
		u, err = s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err = fn(u); err != nil {
			return nil, err
		}
		err = s.Update(ctx, u)
		if err == nil {
			return u, nil
		}
		if err != auth.ErrVersionConflict {
			return nil, err
		}
	}
	return nil, err
}

func (s *MemoryStore) index(u *auth.User) {
	s.byEmail[strings.ToLower(u.Email)] = u.ID
	if u.ProviderName != "" {
		s.byProvider[providerKey(u.ProviderName, u.ProviderID)] = u.ID
	}
	if u.ResetCode != "" {
		s.byResetCode[u.ResetCode] = u.ID
	}
}

func (s *MemoryStore) unindex(u *auth.User) {
	delete(s.byEmail, strings.ToLower(u.Email))
	if u.ProviderName != "" {
		delete(s.byProvider, providerKey(u.ProviderName, u.ProviderID))
	}
	if u.ResetCode != "" {
		delete(s.byResetCode, u.ResetCode)
	}
}

func cloneUser(u *auth.User) *auth.User {
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	clone.PasswordHash = append([]byte(nil), u.PasswordHash...)
	clone.LockedUntil = cloneTime(u.LockedUntil)
	clone.VerificationTokenExpiresAt = cloneTime(u.VerificationTokenExpiresAt)
	clone.ResetCodeExpiresAt = cloneTime(u.ResetCodeExpiresAt)
	clone.RefreshTokenExpiresAt = cloneTime(u.RefreshTokenExpiresAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// MemoryProfileStore is the in-memory ProfileStore counterpart.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*StudentProfile
}

var _ auth.ProfileStore = (*MemoryProfileStore)(nil)

// StudentProfile is the dependent record created alongside every account.
// StudentID is the mandatory field gating profile completeness.
type StudentProfile struct {
	UserID      uuid.UUID
	DisplayName string
	AvatarURL   string
	StudentID   string
	CreatedAt   time.Time
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[uuid.UUID]*StudentProfile)}
}

func (s *MemoryProfileStore) CreateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[userID] = &StudentProfile{
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (s *MemoryProfileStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

func (s *MemoryProfileStore) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return false, nil
	}
	return p.StudentID != "", nil
}

// SetStudentID fills the mandatory field; used by the profile-completion
// flow outside this subsystem and by tests.
func (s *MemoryProfileStore) SetStudentID(userID uuid.UUID, studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		p.StudentID = studentID
	}
}
