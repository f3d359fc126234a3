package jwt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniserve/uniserve/pkg/jwt"
	"github.com/uniserve/uniserve/pkg/keys"
)

func newService(t *testing.T, cfg jwt.Config) *jwt.Service {
	t.Helper()
	provider, err := keys.Generate()
	require.NoError(t, err)
	svc, err := jwt.New(provider, cfg)
	require.NoError(t, err)
	return svc
}

func defaultConfig() jwt.Config {
	return jwt.Config{
		Issuer:     "uniserve-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
}

type recordedRefresh struct {
	subject   string
	tokenID   string
	expiresAt time.Time
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedRefresh
	err     error
}

func (r *fakeRecorder) RecordRefresh(ctx context.Context, subject, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, recordedRefresh{subject, tokenID, expiresAt})
	return nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil provider", func(t *testing.T) {
		_, err := jwt.New(nil, defaultConfig())
		assert.ErrorIs(t, err, jwt.ErrMissingKeyProvider)
	})

	t.Run("missing issuer", func(t *testing.T) {
		provider, err := keys.Generate()
		require.NoError(t, err)
		_, err = jwt.New(provider, jwt.Config{})
		assert.ErrorIs(t, err, jwt.ErrMissingIssuer)
	})
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t, defaultConfig())

	t.Run("round trip carries subject, purpose and scope", func(t *testing.T) {
		token, err := svc.Issue(ctx, "user-1", []string{"student"}, jwt.PurposeAccess)
		require.NoError(t, err)

		claims := svc.ParseAndVerify(token, jwt.PurposeAccess)
		require.NotNil(t, claims)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, jwt.PurposeAccess, claims.Purpose)
		assert.Equal(t, []string{"student"}, claims.Scope)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("unknown purpose is rejected at issuance", func(t *testing.T) {
		_, err := svc.Issue(ctx, "user-1", nil, jwt.Purpose("banana"))
		assert.ErrorIs(t, err, jwt.ErrInvalidPurpose)
	})

	t.Run("recovery tokens carry no scope", func(t *testing.T) {
		token, err := svc.Issue(ctx, "user-1", []string{"student"}, jwt.PurposeVerifyEmail)
		require.NoError(t, err)

		claims := svc.ParseAndVerify(token, jwt.PurposeVerifyEmail)
		require.NotNil(t, claims)
		assert.Empty(t, claims.Scope)
	})
}

func TestPurposeIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newService(t, defaultConfig())

	purposes := []jwt.Purpose{
		jwt.PurposeAccess,
		jwt.PurposeRefresh,
		jwt.PurposeVerifyEmail,
		jwt.PurposeResetPassword,
	}
	for _, issued := range purposes {
		token, err := svc.Issue(ctx, "user-1", nil, issued)
		require.NoError(t, err)
		for _, expected := range purposes {
			valid := svc.Verify(token, expected)
			assert.Equal(t, issued == expected, valid,
				"token issued for %s checked as %s", issued, expected)
		}
	}
}

func TestParseAndVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("token signed by another key is rejected", func(t *testing.T) {
		issuerSvc := newService(t, defaultConfig())
		verifierSvc := newService(t, defaultConfig())

		token, err := issuerSvc.Issue(ctx, "user-1", nil, jwt.PurposeAccess)
		require.NoError(t, err)
		assert.Nil(t, verifierSvc.ParseAndVerify(token, jwt.PurposeAccess))
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		provider, err := keys.Generate()
		require.NoError(t, err)
		issuerSvc, err := jwt.New(provider, jwt.Config{Issuer: "someone-else", AccessTTL: time.Hour})
		require.NoError(t, err)
		verifierSvc, err := jwt.New(provider, defaultConfig())
		require.NoError(t, err)

		token, err := issuerSvc.Issue(ctx, "user-1", nil, jwt.PurposeAccess)
		require.NoError(t, err)
		assert.Nil(t, verifierSvc.ParseAndVerify(token, jwt.PurposeAccess))
	})

	t.Run("malformed input", func(t *testing.T) {
		svc := newService(t, defaultConfig())
		assert.Nil(t, svc.ParseAndVerify("", jwt.PurposeAccess))
		assert.Nil(t, svc.ParseAndVerify("not.a.token", jwt.PurposeAccess))
	})
}

func TestSessionRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refresh issuance notifies the recorder", func(t *testing.T) {
		svc := newService(t, defaultConfig())
		recorder := &fakeRecorder{}
		svc.SetSessionRecorder(recorder)

		token, err := svc.Issue(ctx, "user-1", []string{"student"}, jwt.PurposeRefresh)
		require.NoError(t, err)

		claims := svc.ParseAndVerify(token, jwt.PurposeRefresh)
		require.NotNil(t, claims)
		require.Len(t, recorder.records, 1)
		assert.Equal(t, "user-1", recorder.records[0].subject)
		assert.Equal(t, claims.ID, recorder.records[0].tokenID)
	})

	t.Run("access issuance does not notify", func(t *testing.T) {
		svc := newService(t, defaultConfig())
		recorder := &fakeRecorder{}
		svc.SetSessionRecorder(recorder)

		_, err := svc.Issue(ctx, "user-1", nil, jwt.PurposeAccess)
		require.NoError(t, err)
		assert.Empty(t, recorder.records)
	})

	t.Run("recorder failure fails the issuance", func(t *testing.T) {
		svc := newService(t, defaultConfig())
		svc.SetSessionRecorder(&fakeRecorder{err: assert.AnError})

		_, err := svc.Issue(ctx, "user-1", nil, jwt.PurposeRefresh)
		assert.Error(t, err)
	})
}
