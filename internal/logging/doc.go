// Package logging provides slog attribute helpers used across graphmail.
//
// It centralizes attribute names so log lines stay queryable, and provides
// redaction helpers for tokens and mailbox addresses. Nothing in this package
// may ever emit a credential value.
package logging
