// Package redis wraps the go-redis client with a retrying Connect helper.
// The application uses redis to hold short-lived federated login state.
package redis
