package outbox

import "errors"

var (
	// ErrPersistence means a dispatch attempt could not be durably recorded or re-read.
	ErrPersistence = errors.New("outbox persistence failure")
	// ErrRecordNotFound is returned when no record matches an id or dedupe key.
	ErrRecordNotFound = errors.New("outbox record not found")
	// ErrEventTypeRequired is returned when a record has no event type.
	ErrEventTypeRequired = errors.New("outbox event type is required")
	// ErrRenderedRequired is returned when a record has no rendered snapshot.
	ErrRenderedRequired = errors.New("outbox rendered payload is required")
	// ErrInvalidChannel is returned for a channel outside the known set.
	ErrInvalidChannel = errors.New("outbox channel is invalid")
)
