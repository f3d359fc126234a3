// Package userstore provides the storage implementations behind the auth
// subsystem: a postgres-backed user and profile store, an in-memory
// counterpart with identical semantics, and a redis store for one-time
// OAuth states.
//
// Both user stores implement the same optimistic-concurrency contract:
// every record carries a version, Update is a compare-and-swap against it,
// and Mutate retries the read-modify-write on conflict. Concurrent
// operations on one user serialize there; operations on different users
// never interact.
package userstore
