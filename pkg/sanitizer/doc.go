// Package sanitizer normalizes untrusted input before validation and
// storage. Email normalization is centralized here so every lookup and
// uniqueness check sees the same canonical form.
package sanitizer
