package auth

import "time"

// AccountState is derived from the verification and lock fields, never
// stored as a literal enum.
type AccountState string

const (
	StateUnverified      AccountState = "unverified"
	StateActive          AccountState = "active"
	StateLockedTemp      AccountState = "locked_temp"
	StateLockedPermanent AccountState = "locked_permanent"
)

const (
	// MaxFailedLogins is the failure count at which the account locks.
	MaxFailedLogins = 5

	// LockoutDuration is how long an automatic lock lasts.
	LockoutDuration = time.Hour
)

// StateOf computes the account state at the given instant. A temporary lock
// whose deadline has passed still reports locked here; the transition out
// happens lazily in CheckLoginAllowed, never as a side effect of reading.
func StateOf(u *User, now time.Time) AccountState {
	switch {
	case u.IsLocked && u.LockedUntil == nil:
		return StateLockedPermanent
	case u.IsLocked:
		return StateLockedTemp
	case !u.IsVerified:
		return StateUnverified
	default:
		return StateActive
	}
}

// CheckLoginAllowed reports whether the account may authenticate right now.
// An expired temporary lock is cleared in place (lazy auto-unlock) and
// changed=true tells the caller the mutation must be persisted. A manual
// lock (nil LockedUntil) is never cleared here.
func CheckLoginAllowed(u *User, now time.Time) (changed bool, err error) {
	if u.IsLocked {
		if u.LockedUntil == nil || now.Before(*u.LockedUntil) {
			return false, ErrAccountLocked
		}
		Unlock(u)
		changed = true
	}

	if !u.IsVerified {
		return changed, ErrAccountUnverified
	}
	return changed, nil
}

// RecordFailure increments the failed-attempt counter and locks the account
// for LockoutDuration the moment the threshold is crossed. Returns whether
// this call locked the account.
func RecordFailure(u *User, now time.Time) (locked bool) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLogins && !u.IsLocked {
		until := now.Add(LockoutDuration)
		u.IsLocked = true
		u.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess resets the failure counter and clears any lock state.
func RecordSuccess(u *User) {
	u.FailedLoginAttempts = 0
	u.IsLocked = false
	u.LockedUntil = nil
}

// LockManually applies an indefinite administrative lock. It survives the
// lazy auto-unlock check because LockedUntil stays nil.
func LockManually(u *User) {
	u.IsLocked = true
	u.LockedUntil = nil
}

// Unlock clears the lock and resets the failure counter.
func Unlock(u *User) {
	u.IsLocked = false
	u.LockedUntil = nil
	u.FailedLoginAttempts = 0
}
