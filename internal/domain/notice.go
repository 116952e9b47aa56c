package domain

import "time"

// Notice is a dismissible, human-readable error tied to the operation that
// failed.
type Notice struct {
	ID        string
	Operation string
	Scope     string // e.g. a date or an epic key
	Message   string
	CreatedAt time.Time
}
