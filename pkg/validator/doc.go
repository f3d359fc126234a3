// Package validator provides composable validation rules for the inputs
// this subsystem accepts: email addresses and passwords. Rules are values;
// Apply runs them together and returns every failure at once as a
// ValidationErrors value, so callers can surface all problems in one
// response.
package validator
