package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newOnboarderFixture(profile *Profile, opts ...OnboarderOption) (*Onboarder, *fakeUserStore, *fakeProfileStore, *fakeStateStore) {
	store := newFakeUserStore()
	profiles := newFakeProfileStore()
	states := newFakeStateStore()
	adapter := &fakeAdapter{name: "google", profile: profile}
	base := []OnboarderOption{WithAdapter(adapter)}
	o := NewOnboarder(store, profiles, states, append(base, opts...)...)
	return o, store, profiles, states
}

func issueState(t *testing.T, o *Onboarder) string {
	t.Helper()
	authURL, err := o.AuthURL(context.Background(), "google")
	require.NoError(t, err)
	_, state, ok := strings.Cut(authURL, "state=")
	require.True(t, ok)
	return state
}

func TestAuthURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown provider", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(nil)
		_, err := o.AuthURL(ctx, "github")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("each call issues a distinct state", func(t *testing.T) {
		o, _, _, states := newOnboarderFixture(nil)
		first := issueState(t, o)
		second := issueState(t, o)
		assert.NotEqual(t, first, second)
		assert.Len(t, states.states, 2)
	})
}

func TestOnboard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	profile := &Profile{
		ProviderUserID: "google-123",
		Email:          "New.Student@University.edu",
		DisplayName:    "New Student",
		AvatarURL:      "https://img.test/avatar.png",
		EmailVerified:  true,
	}

	t.Run("creates a verified account with profile on first login", func(t *testing.T) {
		o, store, profiles, _ := newOnboarderFixture(profile)
		state := issueState(t, o)

		res, err := o.Onboard(ctx, "google", "auth-code", state)
		require.NoError(t, err)
		assert.True(t, res.User.IsVerified)
		assert.Equal(t, "new.student@university.edu", res.User.Email)
		assert.Equal(t, "google", res.User.ProviderName)
		assert.Equal(t, "google-123", res.User.ProviderID)
		assert.Equal(t, []string{"student"}, res.User.Roles)
		assert.False(t, res.ProfileComplete)
		assert.True(t, profiles.has(res.User.ID))

		// The placeholder credential must not be an empty hash.
		stored := store.mustGet(res.User.ID)
		assert.NotEmpty(t, stored.PasswordHash)
	})

	t.Run("state is single use", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(profile)
		state := issueState(t, o)

		_, err := o.Onboard(ctx, "google", "auth-code", state)
		require.NoError(t, err)

		_, err = o.Onboard(ctx, "google", "auth-code", state)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown state is rejected before the code exchange", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(profile)
		_, err := o.Onboard(ctx, "google", "auth-code", "forged-state")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("returning identity resolves to the linked account", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(profile)

		first, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		require.NoError(t, err)
		second, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, second.User.ID)
	})

	t.Run("provider failure surfaces as external error", func(t *testing.T) {
		store := newFakeUserStore()
		states := newFakeStateStore()
		adapter := &fakeAdapter{name: "google", err: errors.New("upstream 500")}
		o := NewOnboarder(store, newFakeProfileStore(), states, WithAdapter(adapter))

		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		assert.ErrorIs(t, err, ErrExternalProvider)
	})

	t.Run("incomplete provider profile is rejected", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(&Profile{ProviderUserID: "", Email: "x@university.edu"})
		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		assert.ErrorIs(t, err, ErrExternalProvider)
	})

	t.Run("domain outside the allowlist is refused", func(t *testing.T) {
		o, _, _, _ := newOnboarderFixture(profile, WithDomainPolicy(DomainAllowlist([]string{"other.edu"})))
		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		assert.ErrorIs(t, err, ErrEmailDomainNotAllowed)
	})

	t.Run("attaches the identity to a verified password account", func(t *testing.T) {
		o, store, _, _ := newOnboarderFixture(profile)
		hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		existing := &User{
			ID:           uuid.New(),
			Email:        "new.student@university.edu",
			PasswordHash: hash,
			Roles:        []string{"student"},
			IsVerified:   true,
		}
		require.NoError(t, store.Create(ctx, existing))

		res, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		require.NoError(t, err)
		assert.Equal(t, existing.ID, res.User.ID)
		assert.Equal(t, "google", res.User.ProviderName)

		stored := store.mustGet(existing.ID)
		assert.Equal(t, "google-123", stored.ProviderID)
	})

	t.Run("unverified password account cannot be taken over", func(t *testing.T) {
		o, store, _, _ := newOnboarderFixture(profile)
		existing := &User{
			ID:    uuid.New(),
			Email: "new.student@university.edu",
			Roles: []string{"student"},
		}
		require.NoError(t, store.Create(ctx, existing))

		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	})

	t.Run("account linked to another identity keeps its link", func(t *testing.T) {
		o, store, _, _ := newOnboarderFixture(profile)
		existing := &User{
			ID:           uuid.New(),
			Email:        "new.student@university.edu",
			Roles:        []string{"student"},
			IsVerified:   true,
			ProviderName: "google",
			ProviderID:   "someone-else",
		}
		require.NoError(t, store.Create(ctx, existing))

		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	})

	t.Run("profile write failure removes the half-created account", func(t *testing.T) {
		o, store, profiles, _ := newOnboarderFixture(profile)
		profiles.failCreate = errors.New("profile storage down")

		_, err := o.Onboard(ctx, "google", "auth-code", issueState(t, o))
		require.Error(t, err)
		_, err = store.GetByEmail(ctx, "new.student@university.edu")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestDomainAllowlist(t *testing.T) {
	t.Parallel()

	t.Run("empty list allows everything", func(t *testing.T) {
		policy := DomainAllowlist(nil)
		assert.True(t, policy("anyone@anywhere.com"))
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		policy := DomainAllowlist([]string{" University.EDU "})
		assert.True(t, policy("student@UNIVERSITY.edu"))
		assert.False(t, policy("student@elsewhere.edu"))
	})
}
