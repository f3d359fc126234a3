package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uniserve/uniserve/pkg/auth"
)

// mutateAttempts bounds optimistic-concurrency retries. Contention on one
// user record is a handful of racing requests at most, not a hot loop.
const mutateAttempts = 5

const uniqueViolation = "23505"

// PostgresStore persists users in a single table with a version column.
// Updates carry WHERE id AND version, so a write against a stale snapshot
// affects zero rows and surfaces as ErrVersionConflict. That conditional
// update is what serializes racing refreshes against a revoke.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ auth.UserStore = (*PostgresStore)(nil)

// NewPostgresStore creates a user store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id, email, password_hash, roles, is_verified, is_locked, locked_until,
	failed_login_attempts, verification_token, verification_token_expires_at,
	reset_code, reset_code_expires_at, refresh_token_id, refresh_token_expires_at,
	provider_name, provider_id, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *auth.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, nullif($9, ''), $10,
			nullif($11, ''), $12, nullif($13, ''), $14,
			nullif($15, ''), nullif($16, ''), 1, $17, $18)`

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Roles, u.IsVerified, u.IsLocked, u.LockedUntil,
		u.FailedLoginAttempts, u.VerificationToken, u.VerificationTokenExpiresAt,
		u.ResetCode, u.ResetCodeExpiresAt, u.RefreshTokenID, u.RefreshTokenExpiresAt,
		u.ProviderName, u.ProviderID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrEmailAlreadyRegistered
		}
		return err
	}

	u.Version = 1
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
}

func (s *PostgresStore) GetByProvider(ctx context.Context, provider, providerID string) (*auth.User, error) {
	return s.get(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_name = $1 AND provider_id = $2`,
		provider, providerID)
}

func (s *PostgresStore) GetByResetCode(ctx context.Context, code string) (*auth.User, error) {
	if code == "" {
		return nil, auth.ErrUserNotFound
	}
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE reset_code = $1`, code)
}

func (s *PostgresStore) Update(ctx context.Context, u *auth.User) error {
	query := `UPDATE users SET
			email = lower($3), password_hash = $4, roles = $5, is_verified = $6,
			is_locked = $7, locked_until = $8, failed_login_attempts = $9,
			verification_token = nullif($10, ''), verification_token_expires_at = $11,
			reset_code = nullif($12, ''), reset_code_expires_at = $13,
			refresh_token_id = nullif($14, ''), refresh_token_expires_at = $15,
			provider_name = nullif($16, ''), provider_id = nullif($17, ''),
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2`

	tag, err := s.pool.Exec(ctx, query,
		u.ID, u.Version,
		u.Email, u.PasswordHash, u.Roles, u.IsVerified,
		u.IsLocked, u.LockedUntil, u.FailedLoginAttempts,
		u.VerificationToken, u.VerificationTokenExpiresAt,
		u.ResetCode, u.ResetCodeExpiresAt,
		u.RefreshTokenID, u.RefreshTokenExpiresAt,
		u.ProviderName, u.ProviderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing record from a stale version.
		if _, getErr := s.GetByID(ctx, u.ID); getErr != nil {
			return getErr
		}
		return auth.ErrVersionConflict
	}

	u.Version++
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Mutate(ctx context.Context, id uuid.UUID, fn func(*auth.User) error) (*auth.User, error) {
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
		if !errors.Is(err, auth.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, err
}

func (s *PostgresStore) get(ctx context.Context, query string, args ...any) (*auth.User, error) {
	row := s.pool.QueryRow(ctx, query, args...)

	var (
		u            auth.User
		verification *string
		resetCode    *string
		refreshID    *string
		providerName *string
		providerID   *string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Roles, &u.IsVerified, &u.IsLocked, &u.LockedUntil,
		&u.FailedLoginAttempts, &verification, &u.VerificationTokenExpiresAt,
		&resetCode, &u.ResetCodeExpiresAt, &refreshID, &u.RefreshTokenExpiresAt,
		&providerName, &providerID, &u.Version, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	u.VerificationToken = deref(verification)
	u.ResetCode = deref(resetCode)
	u.RefreshTokenID = deref(refreshID)
	u.ProviderName = deref(providerName)
	u.ProviderID = deref(providerID)
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PostgresProfileStore persists the dependent student profile records.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

var _ auth.ProfileStore = (*PostgresProfileStore)(nil)

// NewPostgresProfileStore creates a profile store backed by the given pool.
func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

func (s *PostgresProfileStore) CreateProfile(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO student_profiles (user_id, display_name, avatar_url, created_at)
		 VALUES ($1, $2, nullif($3, ''), $4)`,
		userID, displayName, avatarURL, time.Now(),
	)
	return err
}

func (s *PostgresProfileStore) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM student_profiles WHERE user_id = $1`, userID)
	return err
}

func (s *PostgresProfileStore) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	var studentID *string
	err := s.pool.QueryRow(ctx,
		`SELECT student_id FROM student_profiles WHERE user_id = $1`, userID,
	).Scan(&studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return studentID != nil && *studentID != "", nil
}
