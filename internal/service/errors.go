package service

import "errors"

var (
	// ErrSessionExpired is returned when the ledger still requires
	// authentication after one re-authentication and retry.
	ErrSessionExpired = errors.New("ledger session expired")

	// ErrEntryNotFound is returned when a mutation names an entry index that
	// does not exist for the date.
	ErrEntryNotFound = errors.New("log entry not found")

	// ErrInvalidEntry is returned for a malformed entry on add or edit.
	ErrInvalidEntry = errors.New("invalid log entry")

	// ErrJiraNotConfigured is returned by Jira operations while Jira has no
	// working credentials.
	ErrJiraNotConfigured = errors.New("jira is not configured")

	// ErrInvalidMapping is returned for a customer-to-epic mapping with a
	// blank customer or a malformed issue key.
	ErrInvalidMapping = errors.New("invalid epic mapping")
)
