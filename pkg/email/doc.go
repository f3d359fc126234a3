// Package email delivers transactional mail through Postmark, with a
// file-writing sender for local development. The Notifier type renders the
// account recovery messages the auth package dispatches.
package email
