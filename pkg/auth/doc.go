// Package auth owns the user record and every state transition on it:
// password authentication with lockout, credential recovery, and federated
// login onboarding.
//
// The account state machine is a set of pure functions over the User struct
// (CheckLoginAllowed, RecordFailure, RecordSuccess, LockManually, Unlock);
// the derived state is computed from the stored fields, never persisted as
// an enum. Five failed logins lock the account for an hour; an expired lock
// is cleared lazily the next time the state is consulted, and an
// administrative lock (no deadline) is never cleared that way.
//
// All writes go through UserStore.Mutate, a retrying read-modify-write on a
// versioned record. Two racing operations on the same user serialize there:
// one of them sees the other's write or retries. This is what keeps a
// refresh racing a revoke from resurrecting a revoked session.
//
// Services in this package return sentinel errors from errors.go; the API
// boundary maps them to protocol status codes. A wrong password is always
// the generic ErrInvalidCredentials, while lock and verification blocks are
// surfaced because the caller cannot proceed regardless.
package auth
